package dispatch

import (
	"sync"
	"time"
)

// Cooldown suppresses repeat sends to the same recipient inside a fixed
// window. Safe for concurrent use.
type Cooldown struct {
	mu       sync.Mutex
	window   time.Duration
	lastSent map[string]time.Time
	now      func() time.Time
}

// NewCooldown creates a limiter. A non-positive window disables suppression.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window:   window,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether a send to the recipient is currently permitted.
func (c *Cooldown) Allow(recipientID string) bool {
	if c.window <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastSent[recipientID]
	if !ok {
		return true
	}
	return c.now().Sub(last) >= c.window
}

// MarkSent records a successful send for the recipient.
func (c *Cooldown) MarkSent(recipientID string) {
	if c.window <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSent[recipientID] = c.now()
}
