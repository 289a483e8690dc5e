package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/mossline/stockwatch/cli"
	"github.com/mossline/stockwatch/internal/pidfile"
	"github.com/mossline/stockwatch/internal/server"
	"github.com/mossline/stockwatch/state"
	"github.com/mossline/stockwatch/tui/theme"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the `status` command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE:  runStatusE,
	}
}

func runStatusE(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	handler := cli.NewErrorHandler(opts.Verbose)

	cfg, err := loadConfig(opts)
	if err != nil {
		return handler.Handle(err)
	}

	running, pid, err := pidfile.IsRunning(cfg.Daemon.PidFile)
	if err != nil {
		return fmt.Errorf("error checking status: %w", err)
	}

	if !running {
		fmt.Println("Stopped")
		if st, stErr := state.Load(); stErr == nil {
			if last := st.GetString("last_started"); last != "" {
				fmt.Printf("Last started: %s\n", last)
			}
		}
		os.Exit(1) // Return non-zero for stopped state (useful for scripts)
	}

	client := server.NewClient(cfg.Daemon.SocketPath)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daemonState, err := client.State(ctx)
	if err != nil {
		fmt.Printf("Running (PID: %d), but the status API is unreachable: %v\n", pid, err)
		return nil
	}

	if opts.JSONOutput {
		out, err := json.MarshalIndent(daemonState, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	t := theme.DefaultTheme
	fmt.Printf("%s (PID: %d)\n", t.Success.Render("Running"), pid)

	connStyle := t.Success
	if daemonState.Connection != "connected" {
		connStyle = t.Warning
	}
	fmt.Printf("  Stream:      %s\n", connStyle.Render(daemonState.Connection))
	fmt.Printf("  Uptime:      %s\n", time.Since(daemonState.StartedAt).Round(time.Second))
	fmt.Printf("  Snapshots:   %d (polls: %d)\n", daemonState.SnapshotsSeen, daemonState.PollsRun)
	fmt.Printf("  Alerts sent: %d (failed deliveries: %d)\n", daemonState.AlertsSent, daemonState.DeliveriesFailed)
	fmt.Printf("  Subscribers: %d\n", daemonState.Subscribers)

	if len(daemonState.Categories) > 0 {
		fmt.Println("  Categories:")
		for name, cat := range daemonState.Categories {
			line := fmt.Sprintf("%s: %d items", name, cat.Items)
			if !cat.LastNotify.IsZero() {
				line += fmt.Sprintf(" (last alert %s ago)", time.Since(cat.LastNotify).Round(time.Second))
			}
			fmt.Printf("    %s\n", t.Muted.Render(line))
		}
	}
	return nil
}

// NewStopCmd creates the `stop` command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			cfg, err := loadConfig(opts)
			if err != nil {
				return cli.NewErrorHandler(opts.Verbose).Handle(err)
			}

			running, pid, err := pidfile.IsRunning(cfg.Daemon.PidFile)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}

			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			// Send SIGTERM
			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			fmt.Printf("Sent SIGTERM to process %d\n", pid)
			return nil
		},
	}
}
