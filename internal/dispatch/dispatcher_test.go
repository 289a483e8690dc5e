package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyChannel fails a configured number of attempts per recipient before
// succeeding, and records every attempt.
type flakyChannel struct {
	mu        sync.Mutex
	failUntil map[string]int // recipient -> attempts that fail
	attempts  map[string]int
}

func newFlakyChannel(failUntil map[string]int) *flakyChannel {
	return &flakyChannel{
		failUntil: failUntil,
		attempts:  make(map[string]int),
	}
}

func (c *flakyChannel) Send(ctx context.Context, recipientID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[recipientID]++
	if c.attempts[recipientID] <= c.failUntil[recipientID] {
		return fmt.Errorf("send to %s failed", recipientID)
	}
	return nil
}

func (c *flakyChannel) attemptCount(recipientID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[recipientID]
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func recipients(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user-%d", i)
	}
	return out
}

func TestDispatchAllSucceed(t *testing.T) {
	ch := newFlakyChannel(nil)
	d := New(ch, nil, testLogger())

	result := d.Dispatch(context.Background(), "alert", recipients(10))

	assert.Len(t, result.Succeeded, 10)
	assert.Empty(t, result.Failed)
	for _, r := range recipients(10) {
		assert.Equal(t, 1, ch.attemptCount(r))
	}
}

func TestDispatchRetryRecoversTransientFailures(t *testing.T) {
	// Three recipients fail the first wave and recover on retry.
	ch := newFlakyChannel(map[string]int{"user-1": 1, "user-4": 1, "user-7": 1})
	d := New(ch, nil, testLogger())

	result := d.Dispatch(context.Background(), "alert", recipients(10))

	assert.Len(t, result.Succeeded, 10)
	assert.Empty(t, result.Failed)

	// Flaky recipients got exactly two attempts, the rest exactly one.
	assert.Equal(t, 2, ch.attemptCount("user-1"))
	assert.Equal(t, 2, ch.attemptCount("user-4"))
	assert.Equal(t, 1, ch.attemptCount("user-0"))
}

func TestDispatchPersistentFailuresReported(t *testing.T) {
	ch := newFlakyChannel(map[string]int{"user-2": 2, "user-5": 2})
	d := New(ch, nil, testLogger())

	result := d.Dispatch(context.Background(), "alert", recipients(6))

	assert.Len(t, result.Succeeded, 4)
	require.Len(t, result.Failed, 2)

	failed := append([]string(nil), result.Failed...)
	sort.Strings(failed)
	assert.Equal(t, []string{"user-2", "user-5"}, failed)

	// Exactly one retry, never more.
	assert.Equal(t, 2, ch.attemptCount("user-2"))
	assert.Equal(t, 2, ch.attemptCount("user-5"))
}

func TestDispatchRetryWaveWaitsForFirstWave(t *testing.T) {
	// A slow success in wave one must settle before any retry happens.
	var mu sync.Mutex
	var order []string

	ch := &orderedChannel{record: func(tag string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, tag)
	}}
	d := New(ch, nil, testLogger())

	result := d.Dispatch(context.Background(), "alert", []string{"slow", "fails-once"})
	assert.Len(t, result.Succeeded, 2)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
	assert.Equal(t, "retry:fails-once", order[2])
}

type orderedChannel struct {
	mu     sync.Mutex
	seen   map[string]int
	record func(tag string)
}

func (c *orderedChannel) Send(ctx context.Context, recipientID, text string) error {
	c.mu.Lock()
	if c.seen == nil {
		c.seen = make(map[string]int)
	}
	c.seen[recipientID]++
	attempt := c.seen[recipientID]
	c.mu.Unlock()

	switch {
	case recipientID == "slow":
		time.Sleep(50 * time.Millisecond)
		c.record("first:slow")
		return nil
	case attempt == 1:
		c.record("first:" + recipientID)
		return fmt.Errorf("transient")
	default:
		c.record("retry:" + recipientID)
		return nil
	}
}

func TestDispatchCooldownSuppressesRepeatSends(t *testing.T) {
	ch := newFlakyChannel(nil)
	limiter := NewCooldown(5 * time.Minute)
	d := New(ch, limiter, testLogger())

	first := d.Dispatch(context.Background(), "alert", []string{"user-0"})
	assert.Len(t, first.Succeeded, 1)

	second := d.Dispatch(context.Background(), "alert", []string{"user-0"})
	assert.Empty(t, second.Succeeded)
	assert.Equal(t, []string{"user-0"}, second.Skipped)
	assert.Equal(t, 1, ch.attemptCount("user-0"))
}

func TestCooldownExpires(t *testing.T) {
	limiter := NewCooldown(5 * time.Minute)
	base := time.Now()
	limiter.now = func() time.Time { return base }

	assert.True(t, limiter.Allow("u"))
	limiter.MarkSent("u")
	assert.False(t, limiter.Allow("u"))

	limiter.now = func() time.Time { return base.Add(5 * time.Minute) }
	assert.True(t, limiter.Allow("u"))
}

func TestCooldownDisabled(t *testing.T) {
	limiter := NewCooldown(0)
	limiter.MarkSent("u")
	assert.True(t, limiter.Allow("u"))
}
