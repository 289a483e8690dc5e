// Package dispatch fans one alert out to many recipients concurrently, with
// settle-all semantics and a single retry wave.
package dispatch

import (
	"context"
	"sync"

	"github.com/mossline/stockwatch/internal/delivery"
	"github.com/sirupsen/logrus"
)

// Result aggregates per-recipient outcomes of one dispatch.
type Result struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	Skipped   []string `json:"skipped"` // suppressed by the cooldown limiter
}

// Dispatcher delivers alerts to recipient sets. A failure for one recipient
// never blocks or fails the others; failures are aggregated into the Result
// and never propagate as errors past this boundary.
type Dispatcher struct {
	channel delivery.Channel
	limiter *Cooldown
	logger  *logrus.Entry
}

// New creates a Dispatcher. limiter may be nil to disable send cooldowns.
func New(channel delivery.Channel, limiter *Cooldown, logger *logrus.Entry) *Dispatcher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Dispatcher{
		channel: channel,
		limiter: limiter,
		logger:  logger,
	}
}

// Dispatch sends text to every recipient concurrently. Recipients that fail
// the first wave are retried exactly once, concurrently, after the first wave
// has fully settled. Recipients still failing after the retry are reported in
// Result.Failed and are not retried further.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, recipients []string) Result {
	var result Result

	eligible := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		if d.limiter != nil && !d.limiter.Allow(recipient) {
			result.Skipped = append(result.Skipped, recipient)
			continue
		}
		eligible = append(eligible, recipient)
	}

	succeeded, failed := d.wave(ctx, text, eligible)
	result.Succeeded = succeeded

	if len(failed) > 0 {
		d.logger.WithField("count", len(failed)).Debug("Retrying failed recipients")
		retried, stillFailed := d.wave(ctx, text, failed)
		result.Succeeded = append(result.Succeeded, retried...)
		result.Failed = stillFailed

		if len(stillFailed) > 0 {
			d.logger.WithFields(logrus.Fields{
				"failed": len(stillFailed),
				"total":  len(recipients),
			}).Warn("Recipients unreachable after retry")
		}
	}

	if d.limiter != nil {
		for _, recipient := range result.Succeeded {
			d.limiter.MarkSent(recipient)
		}
	}

	return result
}

// wave attempts one concurrent send to every recipient and waits for all of
// them to settle before returning.
func (d *Dispatcher) wave(ctx context.Context, text string, recipients []string) (succeeded, failed []string) {
	if len(recipients) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, recipient := range recipients {
		wg.Add(1)
		go func(recipient string) {
			defer wg.Done()
			err := d.channel.Send(ctx, recipient, text)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.logger.WithField("recipient", recipient).WithError(err).Debug("Delivery failed")
				failed = append(failed, recipient)
			} else {
				succeeded = append(succeeded, recipient)
			}
		}(recipient)
	}

	wg.Wait()
	return succeeded, failed
}
