// Package differ decides, per category, whether an incoming snapshot is
// alert-worthy, and owns the per-category memory that novelty detection
// depends on.
package differ

import (
	"sync"
	"time"

	"github.com/mossline/stockwatch/config"
	"github.com/mossline/stockwatch/internal/snapshot"
	"github.com/sirupsen/logrus"
)

// categoryMemory is the process-wide per-category state. It is shared by all
// subscribers: novelty is a property of the snapshot stream, not of any one
// subscriber.
type categoryMemory struct {
	lastSeen   map[string]struct{}
	lastNotify time.Time
}

// Report is the per-category outcome of reconciling one snapshot.
type Report struct {
	// Eligible marks categories that may contribute to an alert.
	Eligible map[string]bool
	// NewItems lists the item ids seen for the first time, per slow-restock
	// category. Used for logging only.
	NewItems map[string][]string
}

// AnyEligible reports whether at least one category may alert.
func (r Report) AnyEligible() bool {
	for _, ok := range r.Eligible {
		if ok {
			return true
		}
	}
	return false
}

// Options configures a Differ.
type Options struct {
	Policies map[string]config.CategoryPolicy
	Window   time.Duration // quiescence window for slow-restock categories
	Bundle   bool          // surface slow-restock categories when an immediate sibling fires
	Now      func() time.Time
	Logger   *logrus.Entry
}

// Differ reconciles incoming snapshots against category memory.
type Differ struct {
	mu       sync.Mutex
	policies map[string]config.CategoryPolicy
	window   time.Duration
	bundle   bool
	now      func() time.Time
	memory   map[string]*categoryMemory
	logger   *logrus.Entry
}

// New creates a Differ with empty category memory.
func New(opts Options) *Differ {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	memory := make(map[string]*categoryMemory, len(opts.Policies))
	for name := range opts.Policies {
		memory[name] = &categoryMemory{lastSeen: make(map[string]struct{})}
	}
	return &Differ{
		policies: opts.Policies,
		window:   opts.Window,
		bundle:   opts.Bundle,
		now:      now,
		memory:   memory,
		logger:   logger,
	}
}

// Reconcile updates category memory from the snapshot and reports which
// categories are alert-worthy. It runs exactly once per incoming snapshot,
// before any subscriber fan-out, so every subscriber sees the same novelty
// determination.
func (d *Differ) Reconcile(snap snapshot.Snapshot) Report {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	report := Report{
		Eligible: make(map[string]bool, len(d.policies)),
		NewItems: make(map[string][]string),
	}

	// Immediate categories first: presence is sufficient, and slow-restock
	// bundling needs to know whether any of them fired.
	immediateFired := false
	for name, policy := range d.policies {
		if policy != config.PolicyImmediate {
			continue
		}
		eligible := len(snap.Items(name)) > 0
		report.Eligible[name] = eligible
		if eligible {
			immediateFired = true
		}
	}

	for name, policy := range d.policies {
		if policy != config.PolicySlowRestock {
			continue
		}
		mem := d.memory[name]
		newSet := snap.IDSet(name)

		hasNewItem := false
		for id := range newSet {
			if _, seen := mem.lastSeen[id]; !seen {
				hasNewItem = true
				report.NewItems[name] = append(report.NewItems[name], id)
			}
		}

		quiescenceElapsed := now.Sub(mem.lastNotify) >= d.window
		eligible := len(newSet) > 0 &&
			(hasNewItem || quiescenceElapsed || (d.bundle && immediateFired))
		report.Eligible[name] = eligible

		if eligible && quiescenceElapsed {
			// Neither a bundle-only trigger nor a novelty-only trigger resets
			// the window: the category stays due for its own alert at the
			// original deadline.
			mem.lastNotify = now
		}

		// Always track the latest observed state so future novelty detection
		// is based on what was seen, not only on what was alerted.
		mem.lastSeen = newSet

		if eligible {
			d.logger.WithFields(logrus.Fields{
				"category": name,
				"newItems": len(report.NewItems[name]),
			}).Debug("Slow-restock category eligible")
		}
	}

	return report
}

// LastNotify returns the recorded last-notify time for a category.
// Exposed for the status API.
func (d *Differ) LastNotify(category string) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mem, ok := d.memory[category]; ok {
		return mem.lastNotify
	}
	return time.Time{}
}
