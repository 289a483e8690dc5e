// Package engine wires the feed, differ, evaluator and dispatcher into the
// running daemon: one snapshot in, category memory updated once, then
// concurrent per-subscriber evaluation and fan-out.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/mossline/stockwatch/config"
	"github.com/mossline/stockwatch/internal/alert"
	"github.com/mossline/stockwatch/internal/differ"
	"github.com/mossline/stockwatch/internal/directory"
	"github.com/mossline/stockwatch/internal/dispatch"
	"github.com/mossline/stockwatch/internal/feed"
	"github.com/mossline/stockwatch/internal/schedule"
	"github.com/mossline/stockwatch/internal/snapshot"
	"github.com/sirupsen/logrus"
)

// Options are the engine's collaborators. Stream, Poller and Scheduler are
// optional: a stream-only deployment runs without the fallback path and vice
// versa.
type Options struct {
	Config     *config.Config
	Stream     *feed.StreamManager
	Poller     *feed.Poller
	Scheduler  *schedule.Scheduler
	Differ     *differ.Differ
	Evaluator  *alert.Evaluator
	Dispatcher *dispatch.Dispatcher
	Directory  directory.Directory
	Store      *Store
	Logger     *logrus.Entry
}

// Engine runs the alert pipeline.
type Engine struct {
	cfg        *config.Config
	stream     *feed.StreamManager
	poller     *feed.Poller
	scheduler  *schedule.Scheduler
	differ     *differ.Differ
	evaluator  *alert.Evaluator
	dispatcher *dispatch.Dispatcher
	directory  directory.Directory
	store      *Store
	logger     *logrus.Entry
}

// New creates an Engine from its collaborators.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	store := opts.Store
	if store == nil {
		store = NewStore()
	}
	return &Engine{
		cfg:        opts.Config,
		stream:     opts.Stream,
		poller:     opts.Poller,
		scheduler:  opts.Scheduler,
		differ:     opts.Differ,
		evaluator:  opts.Evaluator,
		dispatcher: opts.Dispatcher,
		directory:  opts.Directory,
		store:      store,
		logger:     logger,
	}
}

// Store returns the engine's state store.
func (e *Engine) Store() *Store {
	return e.store
}

// Run blocks until ctx is done. Shutdown stops scheduling new work and closes
// the stream; in-flight deliveries complete or fail naturally.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	if e.stream != nil {
		e.stream.Connect(ctx)
		defer e.stream.Disconnect()
	}

	if e.scheduler != nil && e.poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.scheduler.Run(ctx, e.pollGate, e.pollOnce)
		}()
	}

	e.logger.Info("Engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine stopping")
			wg.Wait()
			return nil
		case snap := <-e.snapshots():
			e.handleSnapshot(ctx, snap, "stream")
		case ev := <-e.events():
			e.handleConnEvent(ev)
		}
	}
}

func (e *Engine) snapshots() <-chan snapshot.Snapshot {
	if e.stream == nil {
		return nil
	}
	return e.stream.Snapshots()
}

func (e *Engine) events() <-chan feed.Event {
	if e.stream == nil {
		return nil
	}
	return e.stream.Events()
}

func (e *Engine) handleConnEvent(ev feed.Event) {
	e.store.Apply(UpdateConnection, func(st *State) {
		st.Connection = string(ev.State)
		st.ReconnectAttempt = ev.Attempt
	})
}

// pollGate skips a scheduled poll when the stream is authoritative or there
// is nobody to alert. The next poll is scheduled either way.
func (e *Engine) pollGate() (bool, string) {
	if e.stream != nil && e.stream.Active() {
		return true, "stream active"
	}
	if len(e.directory.ActiveSubscribers()) == 0 {
		return true, "no active subscribers"
	}
	return false, ""
}

func (e *Engine) pollOnce(ctx context.Context) {
	snap, err := e.poller.FetchSnapshot(ctx)
	e.store.Apply(UpdatePoll, func(st *State) { st.PollsRun++ })
	if err != nil {
		e.logger.WithError(err).Warn("Fallback poll failed")
		return
	}
	e.handleSnapshot(ctx, snap, "poll")
}

// handleSnapshot is the pipeline for one snapshot: reconcile category memory
// exactly once, then evaluate subscribers concurrently against the shared
// report and dispatch grouped by identical alert text.
func (e *Engine) handleSnapshot(ctx context.Context, snap snapshot.Snapshot, source string) {
	report := e.differ.Reconcile(snap)

	e.store.Apply(UpdateSnapshot, func(st *State) {
		st.SnapshotsSeen++
		st.LastSnapshotAt = time.Now()
		for _, cat := range e.cfg.Categories {
			st.Categories[cat.Name] = CategoryStatus{
				Items:      len(snap.Items(cat.Name)),
				LastNotify: e.differ.LastNotify(cat.Name),
			}
		}
	})

	if !report.AnyEligible() {
		return
	}

	subscribers := e.directory.ActiveSubscribers()
	e.store.Apply(UpdateSubscribers, func(st *State) { st.Subscribers = len(subscribers) })
	if len(subscribers) == 0 {
		return
	}

	// Subscribers sharing a watch list produce identical text; dispatch each
	// distinct text once to all of its recipients.
	var mu sync.Mutex
	groups := make(map[string][]string)

	var wg sync.WaitGroup
	for _, id := range subscribers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			watchList := alert.WatchList(e.directory.WatchList(id))
			a, ok := e.evaluator.Evaluate(snap, watchList, report)
			if !ok {
				return
			}
			mu.Lock()
			groups[a.Text] = append(groups[a.Text], id)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	if len(groups) == 0 {
		return
	}

	sent, failed := 0, 0
	for text, recipients := range groups {
		result := e.dispatcher.Dispatch(ctx, text, recipients)
		sent += len(result.Succeeded)
		failed += len(result.Failed)
	}

	e.logger.WithFields(logrus.Fields{
		"source": source,
		"sent":   sent,
		"failed": failed,
	}).Info("Alert round complete")

	e.store.Apply(UpdateDispatch, func(st *State) {
		st.AlertsSent += sent
		st.DeliveriesFailed += failed
		if sent > 0 {
			st.LastAlertAt = time.Now()
		}
	})
}
