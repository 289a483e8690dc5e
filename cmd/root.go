// Package cmd assembles the stockwatch command tree.
package cmd

import (
	"github.com/mossline/stockwatch/cli"
	"github.com/mossline/stockwatch/config"
	"github.com/mossline/stockwatch/version"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the stockwatch root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"stockwatch",
		"Watch a live game-economy inventory feed and alert subscribers on restocks",
	)

	info := version.GetInfo()
	rootCmd.Version = info.Version
	cli.SetVersionTemplate(rootCmd, cli.VersionInfo{
		Version:   info.Version,
		Commit:    info.Commit,
		BuildDate: info.BuildDate,
		BuildArch: info.Platform,
	})

	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewStopCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewSubscribersCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewLogsCmd())
	rootCmd.AddCommand(NewTUICmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// loadConfig loads from the --config flag path when given, otherwise walks up
// from the working directory.
func loadConfig(opts cli.CommandOptions) (*config.Config, error) {
	if opts.ConfigFile != "" {
		return config.Load(opts.ConfigFile)
	}
	return config.LoadDefault()
}
