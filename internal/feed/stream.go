// Package feed owns the upstream inventory feed: the live WebSocket stream
// and the HTTP fallback poller.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mossline/stockwatch/internal/snapshot"
	"github.com/sirupsen/logrus"
)

// ConnState is the connection lifecycle state of the stream.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Event is a connectivity transition notification.
type Event struct {
	State   ConnState
	Attempt int
	Err     error
}

// StreamOptions configures a StreamManager.
type StreamOptions struct {
	URL         string
	Categories  []string
	BaseDelay   time.Duration // reconnect delay scales linearly with the attempt count
	MaxAttempts int           // consecutive failures before reconnection is abandoned
	Logger      *logrus.Entry
}

// StreamManager owns one streaming connection to the feed. It reconnects with
// linear backoff, deduplicates identical snapshots per tracked category, and
// forwards changed snapshots on the Snapshots channel. After MaxAttempts
// consecutive failures it gives up; callers rely on the fallback poller from
// then on.
type StreamManager struct {
	opts   StreamOptions
	dialer *websocket.Dialer
	logger *logrus.Entry

	mu      sync.Mutex
	state   ConnState
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	lastFPs map[string]string // category -> fingerprint of last forwarded snapshot

	snapshots chan snapshot.Snapshot
	events    chan Event
}

// NewStreamManager creates a stream manager. Connect must be called to start it.
func NewStreamManager(opts StreamOptions) *StreamManager {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &StreamManager{
		opts:      opts,
		dialer:    websocket.DefaultDialer,
		logger:    logger,
		state:     StateDisconnected,
		lastFPs:   make(map[string]string),
		snapshots: make(chan snapshot.Snapshot, 8),
		events:    make(chan Event, 16),
	}
}

// Snapshots delivers parsed snapshots that changed at least one tracked
// category relative to the previously forwarded snapshot.
func (m *StreamManager) Snapshots() <-chan snapshot.Snapshot { return m.snapshots }

// Events delivers connectivity transitions. The channel is buffered; stale
// events are dropped rather than blocking the connection loop.
func (m *StreamManager) Events() <-chan Event { return m.events }

// Active reports whether the stream is connected with a live underlying link.
func (m *StreamManager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected && m.conn != nil
}

// Connect starts the connection loop. Calling Connect on a running manager is
// a no-op.
func (m *StreamManager) Connect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(runCtx, m.done)
}

// Disconnect stops the connection loop and closes the link if open. It is
// idempotent and safe to call on a never-started manager.
func (m *StreamManager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	conn := m.conn
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
}

func (m *StreamManager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.setState(StateDisconnected, nil)

	attempt := 0
	for ctx.Err() == nil {
		m.setState(StateConnecting, nil)
		m.emit(Event{State: StateConnecting, Attempt: attempt})

		conn, _, err := m.dialer.DialContext(ctx, m.opts.URL, nil)
		if err == nil {
			attempt = 0
			m.setConn(conn)
			m.setState(StateConnected, conn)
			m.emit(Event{State: StateConnected})
			m.logger.WithField("url", m.opts.URL).Info("Stream connected")

			readErr := m.readLoop(ctx, conn)
			m.setState(StateDisconnected, nil)
			m.emit(Event{State: StateDisconnected, Err: readErr})
			if ctx.Err() != nil {
				return
			}
			m.logger.WithError(readErr).Warn("Stream disconnected")
		} else {
			m.setState(StateDisconnected, nil)
			m.emit(Event{State: StateDisconnected, Err: err})
			if ctx.Err() != nil {
				return
			}
			m.logger.WithError(err).WithField("attempt", attempt+1).Warn("Stream dial failed")
		}

		attempt++
		if attempt >= m.opts.MaxAttempts {
			m.logger.WithField("attempts", attempt).Error("Giving up on stream reconnection; fallback polling takes over")
			m.emit(Event{State: StateDisconnected, Attempt: attempt, Err: ctx.Err()})
			return
		}

		delay := m.opts.BaseDelay * time.Duration(attempt)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// readLoop consumes messages until the link fails or the context is done.
// Malformed messages are dropped with a warning and do not affect the link.
func (m *StreamManager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		snap, err := snapshot.Parse(payload)
		if err != nil {
			m.logger.WithError(err).Warn("Dropping malformed feed message")
			continue
		}

		if !m.changed(snap) {
			m.logger.Debug("Snapshot unchanged, not forwarding")
			continue
		}

		select {
		case m.snapshots <- snap:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// changed compares the snapshot's per-category fingerprints against the last
// forwarded snapshot and records the new fingerprints. Comparison is by
// order-independent encoding, not raw payload bytes; the feed may resend an
// identical snapshot with items reordered.
func (m *StreamManager) changed(snap snapshot.Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, category := range m.opts.Categories {
		fp := snap.Fingerprint(category)
		if fp != m.lastFPs[category] {
			changed = true
		}
		m.lastFPs[category] = fp
	}
	return changed
}

func (m *StreamManager) setConn(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
}

func (m *StreamManager) setState(state ConnState, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	if state != StateConnected {
		m.conn = nil
	} else if conn != nil {
		m.conn = conn
	}
}

func (m *StreamManager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		// Nobody is draining events fast enough; drop rather than stall.
	}
}
