package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mossline/stockwatch/cli"
	"github.com/mossline/stockwatch/config"
	"github.com/mossline/stockwatch/internal/alert"
	"github.com/mossline/stockwatch/internal/delivery"
	"github.com/mossline/stockwatch/internal/differ"
	"github.com/mossline/stockwatch/internal/directory"
	"github.com/mossline/stockwatch/internal/dispatch"
	"github.com/mossline/stockwatch/internal/engine"
	"github.com/mossline/stockwatch/internal/feed"
	"github.com/mossline/stockwatch/internal/pidfile"
	"github.com/mossline/stockwatch/internal/schedule"
	"github.com/mossline/stockwatch/internal/server"
	"github.com/mossline/stockwatch/logging"
	"github.com/mossline/stockwatch/state"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the `watch` command: the daemon, run in foreground.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the feed watcher daemon",
		Long: `Run the stockwatch daemon in foreground mode: connect to the live
inventory stream, poll as a fallback when the stream is down, and alert
active subscribers on restocks.`,
		RunE: runWatchE,
	}
}

func runWatchE(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	handler := cli.NewErrorHandler(opts.Verbose)

	cfg, err := loadConfig(opts)
	if err != nil {
		return handler.Handle(err)
	}

	logger := logging.NewLogger("watch")

	// 1. Acquire Lock
	pidPath := cfg.Daemon.PidFile
	if err := pidfile.Acquire(pidPath); err != nil {
		return handler.Handle(err)
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	if err := state.Update(func(st state.State) {
		st.Set("last_started", time.Now().Format(time.RFC3339))
		st.Set("pid", os.Getpid())
	}); err != nil {
		logger.Warnf("Failed to record start state: %v", err)
	}

	// 2. Subscriber directory with hot reload
	dir, err := directory.NewFileStore(cfg.Directory.Path, logging.NewLogger("directory"))
	if err != nil {
		return fmt.Errorf("failed to load subscribers: %w", err)
	}

	// 3. Assemble the pipeline
	eng := buildEngine(cfg, dir)

	srv := server.New(logging.NewLogger("server"))
	srv.SetEngine(eng)
	srv.SetRunningConfig(&server.RunningConfig{
		StreamURL:        cfg.Feed.StreamURL,
		PollURL:          cfg.Feed.PollURL,
		PollInterval:     cfg.Scheduler.Interval.Std(),
		QuiescenceWindow: cfg.Alerts.QuiescenceWindow.Std(),
		DeliveryMode:     cfg.Delivery.Mode,
		StartedAt:        time.Now(),
	})

	// 4. Handle Signals
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("Received stop signal")
		cancel() // Stop the engine

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}

		// Explicitly release pidfile before exit in signal handler
		_ = pidfile.Release(pidPath)
		os.Exit(0)
	}()

	// 5. Start Engine and directory watcher in background
	go func() {
		if err := dir.Watch(ctx); err != nil {
			logger.Errorf("Subscriber watcher error: %v", err)
		}
	}()
	go func() {
		if err := eng.Run(ctx); err != nil {
			logger.Errorf("Engine error: %v", err)
		}
	}()

	// 6. Start Server (Blocking)
	logger.WithField("pid", os.Getpid()).Info("Starting daemon")
	if err := srv.ListenAndServe(cfg.Daemon.SocketPath); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildEngine wires the feed, differ, evaluator and dispatcher from config.
func buildEngine(cfg *config.Config, dir directory.Directory) *engine.Engine {
	var stream *feed.StreamManager
	if cfg.Feed.StreamURL != "" {
		stream = feed.NewStreamManager(feed.StreamOptions{
			URL:         cfg.Feed.StreamURL,
			Categories:  cfg.CategoryNames(),
			BaseDelay:   cfg.Feed.ReconnectBaseDelay.Std(),
			MaxAttempts: cfg.Feed.ReconnectMaxAttempts,
			Logger:      logging.NewLogger("stream"),
		})
	}

	var poller *feed.Poller
	var scheduler *schedule.Scheduler
	if cfg.Feed.PollURL != "" {
		poller = feed.NewPoller(feed.PollerOptions{
			URL:         cfg.Feed.PollURL,
			Attempts:    cfg.Feed.FetchAttempts,
			BackoffBase: cfg.Feed.FetchBackoffBase.Std(),
			BackoffCap:  cfg.Feed.FetchBackoffCap.Std(),
			Logger:      logging.NewLogger("poller"),
		})
		scheduler = schedule.New(schedule.Options{
			Interval:   cfg.Scheduler.Interval.Std(),
			GridOffset: cfg.Scheduler.GridOffset.Std(),
			Logger:     logging.NewLogger("scheduler"),
		})
	}

	var channel delivery.Channel
	if cfg.Delivery.Mode == "webhook" {
		channel = delivery.NewWebhookChannel(cfg.Delivery.WebhookURL, cfg.Delivery.Timeout.Std())
	} else {
		channel = delivery.NewLogChannel(logging.NewLogger("delivery"))
	}

	var limiter *dispatch.Cooldown
	if cfg.Dispatch.Cooldown > 0 {
		limiter = dispatch.NewCooldown(cfg.Dispatch.Cooldown.Std())
	}

	return engine.New(engine.Options{
		Config:    cfg,
		Stream:    stream,
		Poller:    poller,
		Scheduler: scheduler,
		Differ: differ.New(differ.Options{
			Policies: cfg.Policies(),
			Window:   cfg.Alerts.QuiescenceWindow.Std(),
			Bundle:   *cfg.Alerts.BundleWithImmediate,
			Logger:   logging.NewLogger("differ"),
		}),
		Evaluator:  alert.NewEvaluator(cfg.Categories, cfg.Alerts.DefaultWatchList),
		Dispatcher: dispatch.New(channel, limiter, logging.NewLogger("dispatch")),
		Directory:  dir,
		Logger:     logging.NewLogger("engine"),
	})
}
