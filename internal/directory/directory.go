// Package directory provides the subscriber set and per-subscriber watch
// lists. The engine only reads it for fan-out; mutation happens through the
// CLI or external edits to the backing file.
package directory

import (
	"sort"
	"sync"
)

// Subscriber is one alert recipient.
type Subscriber struct {
	ID        string              `yaml:"id"`
	Active    bool                `yaml:"active"`
	WatchList map[string][]string `yaml:"watch_list,omitempty"`
}

// Directory is the read contract the engine consumes. An empty or absent
// watch list means "use the configured default".
type Directory interface {
	ActiveSubscribers() []string
	WatchList(subscriberID string) map[string][]string
}

// Memory is an in-process Directory, used in tests and as the base for the
// file-backed store.
type Memory struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string]Subscriber)}
}

// Put inserts or replaces a subscriber.
func (m *Memory) Put(sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
}

// Remove deletes a subscriber. Removing an unknown ID is a no-op that
// reports false.
func (m *Memory) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[id]
	delete(m.subs, id)
	return ok
}

// ActiveSubscribers returns the IDs of active subscribers in sorted order.
func (m *Memory) ActiveSubscribers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.subs))
	for id, sub := range m.subs {
		if sub.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// WatchList returns the subscriber's watch list, or nil when the subscriber
// is unknown or has none.
func (m *Memory) WatchList(subscriberID string) map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subs[subscriberID].WatchList
}

// List returns all subscribers sorted by ID.
func (m *Memory) List() []Subscriber {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subscriber, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// replaceAll swaps the full subscriber set. Used by the file store on reload.
func (m *Memory) replaceAll(subs []Subscriber) {
	next := make(map[string]Subscriber, len(subs))
	for _, sub := range subs {
		next[sub.ID] = sub
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = next
}
