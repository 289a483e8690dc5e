package cmd

import (
	"fmt"

	"github.com/mossline/stockwatch/cli"
	"github.com/mossline/stockwatch/tui/theme"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate stockwatch configuration",
	}

	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			handler := cli.NewErrorHandler(opts.Verbose)

			cfg, err := loadConfig(opts)
			if err != nil {
				return handler.Handle(err)
			}

			t := theme.DefaultTheme
			fmt.Printf("%s configuration is valid\n", t.Success.Render("✓"))
			fmt.Printf("  Categories: %d\n", len(cfg.Categories))
			for _, cat := range cfg.Categories {
				fmt.Printf("    %s (%s)\n", t.Accent.Render(cat.Name), cat.Policy)
			}
			if cfg.Feed.StreamURL != "" {
				fmt.Printf("  Stream: %s\n", cfg.Feed.StreamURL)
			}
			if cfg.Feed.PollURL != "" {
				fmt.Printf("  Poll:   %s every %s\n", cfg.Feed.PollURL, cfg.Scheduler.Interval.Std())
			}
			fmt.Printf("  Delivery: %s\n", cfg.Delivery.Mode)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with defaults applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			cfg, err := loadConfig(opts)
			if err != nil {
				return cli.NewErrorHandler(opts.Verbose).Handle(err)
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
