package feed

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/mossline/stockwatch/errors"
	"github.com/mossline/stockwatch/internal/snapshot"
	"github.com/sirupsen/logrus"
)

// PollerOptions configures a Poller.
type PollerOptions struct {
	URL         string
	Attempts    int           // fetch attempts per call (default 3)
	BackoffBase time.Duration // first retry delay, doubled per attempt (default 1s)
	BackoffCap  time.Duration // upper bound on the retry delay (default 5s)
	Logger      *logrus.Entry
}

// Poller fetches one full snapshot over HTTP. It is the fallback path used by
// the scheduler when the stream is down.
type Poller struct {
	opts   PollerOptions
	client *http.Client
	logger *logrus.Entry
}

// NewPoller creates a poller for the configured snapshot endpoint.
func NewPoller(opts PollerOptions) *Poller {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Poller{
		opts:   opts,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// FetchSnapshot retrieves and parses one snapshot, retrying transient network
// failures with capped exponential backoff (1s, 2s, 4s capped at 5s by
// default). A malformed payload is not retried; the endpoint would return the
// same bytes again.
func (p *Poller) FetchSnapshot(ctx context.Context) (snapshot.Snapshot, error) {
	var lastErr error

	delay := p.opts.BackoffBase
	for attempt := 1; attempt <= p.opts.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > p.opts.BackoffCap {
				delay = p.opts.BackoffCap
			}
		}

		snap, err := p.fetchOnce(ctx)
		if err == nil {
			return snap, nil
		}
		if errors.GetCode(err) == errors.ErrCodePayloadInvalid {
			return nil, err
		}
		lastErr = err
		p.logger.WithError(err).WithField("attempt", attempt).Warn("Snapshot fetch failed")
	}

	return nil, lastErr
}

func (p *Poller) fetchOnce(ctx context.Context) (snapshot.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.FeedFetchFailed(p.opts.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.FeedFetchFailed(p.opts.URL,
			errors.New(errors.ErrCodeFeedFetchFailed, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.FeedFetchFailed(p.opts.URL, err)
	}

	return snapshot.Parse(body)
}
