// Package schedule drives the fallback polling cadence. Deadlines land on a
// fixed wall-clock grid (for a 5m interval with a 2m offset: :02, :07, :12,
// ...) independent of when the process started, so checks line up with the
// feed's external restock cadence.
package schedule

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// duplicateGuardFraction suppresses a run when the previous run happened less
// than this fraction of the interval ago, protecting against timer drift and
// overlapping schedules.
const duplicateGuardFraction = 0.8

// NextDeadline rounds now up to the next grid boundary. Boundaries are
// multiples of interval shifted by gridOffset, anchored to the epoch (UTC).
func NextDeadline(now time.Time, interval, gridOffset time.Duration) time.Time {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	shifted := now.Add(-gridOffset)
	next := shifted.Truncate(interval).Add(interval).Add(gridOffset)
	if !next.After(now) {
		next = next.Add(interval)
	}
	return next
}

// Gate decides, at the deadline, whether the run should be skipped. The next
// run is scheduled either way.
type Gate func() (skip bool, reason string)

// Options configures a Scheduler.
type Options struct {
	Interval   time.Duration
	GridOffset time.Duration
	Now        func() time.Time
	Logger     *logrus.Entry
}

// Scheduler fires a task on the polling grid with duplicate-run suppression.
type Scheduler struct {
	interval   time.Duration
	gridOffset time.Duration
	now        func() time.Time
	logger     *logrus.Entry
	lastRun    time.Time
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.New())
	}
	return &Scheduler{
		interval:   opts.Interval,
		gridOffset: opts.GridOffset,
		now:        opts.Now,
		logger:     opts.Logger,
	}
}

// Run blocks until ctx is done, invoking task at each grid deadline. gate is
// consulted first; a gated deadline skips the task but still schedules the
// next one. task runs on the scheduler goroutine, so a slow run delays (and
// the guard may then suppress) the following one.
func (s *Scheduler) Run(ctx context.Context, gate Gate, task func(context.Context)) {
	for {
		deadline := NextDeadline(s.now(), s.interval, s.gridOffset)
		s.logger.WithField("deadline", deadline.Format(time.RFC3339)).Debug("Next poll scheduled")

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if gate != nil {
			if skip, reason := gate(); skip {
				s.logger.WithField("reason", reason).Debug("Skipping scheduled poll")
				continue
			}
		}

		now := s.now()
		if !s.allow(now) {
			s.logger.Debug("Suppressing duplicate poll run")
			continue
		}
		s.lastRun = now
		task(ctx)
	}
}

// allow applies the duplicate-run guard.
func (s *Scheduler) allow(now time.Time) bool {
	if s.lastRun.IsZero() {
		return true
	}
	minGap := time.Duration(duplicateGuardFraction * float64(s.interval))
	return now.Sub(s.lastRun) >= minGap
}
