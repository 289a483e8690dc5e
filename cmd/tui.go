package cmd

import (
	"github.com/mossline/stockwatch/cli"
	"github.com/mossline/stockwatch/tui"
	"github.com/mossline/stockwatch/tui/dashboard"
	"github.com/spf13/cobra"
)

// NewTUICmd creates the `tui` command.
func NewTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive status dashboard",
		Long:  "Live dashboard for a running daemon: connectivity, stock levels and alert activity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			cfg, err := loadConfig(opts)
			if err != nil {
				return cli.NewErrorHandler(opts.Verbose).Handle(err)
			}

			tui.InitializeTUI()
			return dashboard.Run(cfg.Daemon.SocketPath)
		},
	}
}
