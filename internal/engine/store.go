package engine

import (
	"sync"
	"time"
)

// CategoryStatus is the last observed stock level for one category.
type CategoryStatus struct {
	Items      int       `json:"items"`
	LastNotify time.Time `json:"last_notify"`
}

// State is the daemon's complete world view, served over the status API.
type State struct {
	StartedAt        time.Time                 `json:"started_at"`
	Connection       string                    `json:"connection"`
	ReconnectAttempt int                       `json:"reconnect_attempt,omitempty"`
	SnapshotsSeen    int                       `json:"snapshots_seen"`
	PollsRun         int                       `json:"polls_run"`
	AlertsSent       int                       `json:"alerts_sent"`
	DeliveriesFailed int                       `json:"deliveries_failed"`
	Subscribers      int                       `json:"subscribers"`
	LastSnapshotAt   time.Time                 `json:"last_snapshot_at"`
	LastAlertAt      time.Time                 `json:"last_alert_at"`
	Categories       map[string]CategoryStatus `json:"categories"`
}

// UpdateType defines what kind of state change occurred.
type UpdateType string

const (
	UpdateConnection  UpdateType = "connection"
	UpdateSnapshot    UpdateType = "snapshot"
	UpdateDispatch    UpdateType = "dispatch"
	UpdatePoll        UpdateType = "poll"
	UpdateSubscribers UpdateType = "subscribers"
)

// Update is a state change notification carrying the full state after the
// change, so stream consumers never need to reassemble deltas.
type Update struct {
	Type  UpdateType `json:"type"`
	State State      `json:"state"`
}

// Store is the in-memory state store for the daemon.
// It is thread-safe and supports pub/sub for real-time updates.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[chan Update]struct{}
}

// NewStore creates a Store with empty state.
func NewStore() *Store {
	return &Store{
		state: State{
			StartedAt:  time.Now(),
			Connection: "disconnected",
			Categories: make(map[string]CategoryStatus),
		},
		subscribers: make(map[chan Update]struct{}),
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyState()
}

// Apply mutates the state and notifies subscribers.
func (s *Store) Apply(t UpdateType, mutate func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(&s.state)

	update := Update{Type: t, State: s.copyState()}
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// Non-blocking send to prevent slow clients from stalling the daemon
		}
	}
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100) // Buffered
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, ch)
	close(ch)
}

// copyState returns a deep copy; callers must hold at least a read lock.
func (s *Store) copyState() State {
	out := s.state
	out.Categories = make(map[string]CategoryStatus, len(s.state.Categories))
	for name, cat := range s.state.Categories {
		out.Categories[name] = cat
	}
	return out
}
