package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hpcloud/tail"
	"github.com/mossline/stockwatch/logging"
	"github.com/mossline/stockwatch/tui/theme"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [component]",
		Short: "Display logs from stockwatch components",
		Long: `Shows the log file of a stockwatch component (default: watch). Each
component writes to .stockwatch/logs/<component>-<date>.log.

Examples:
  # Follow the daemon log
  stockwatch logs -f

  # Show today's dispatch log
  stockwatch logs dispatch

  # Follow the stream connection log
  stockwatch logs stream -f`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	component := "watch"
	if len(args) > 0 {
		component = args[0]
	}

	follow, _ := cmd.Flags().GetBool("follow")
	path := logging.LogFilePath(component, time.Now())

	if _, err := os.Stat(path); err != nil {
		if !follow {
			return fmt.Errorf("no log file for component %q at %s", component, path)
		}
		fmt.Printf("%s\n", theme.DefaultTheme.Muted.Render("Waiting for "+path))
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow: follow,
		ReOpen: follow, // keep following across daily rotation
		Location: &tail.SeekInfo{
			Offset: 0,
			Whence: io.SeekStart,
		},
		Logger: tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail %s: %w", path, err)
	}
	defer t.Cleanup()

	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		fmt.Println(line.Text)
	}
	return nil
}
