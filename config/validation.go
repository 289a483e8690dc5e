package config

import (
	"fmt"
	"strings"

	"github.com/mossline/stockwatch/errors"
)

// Validate checks semantic constraints that the schema cannot express.
func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New(errors.ErrCodeConfigValidation, "version is required")
	}

	if c.Feed.StreamURL == "" && c.Feed.PollURL == "" {
		return errors.New(errors.ErrCodeConfigValidation,
			"at least one of feed.stream_url or feed.poll_url must be set")
	}
	if c.Feed.StreamURL != "" && !strings.HasPrefix(c.Feed.StreamURL, "ws://") &&
		!strings.HasPrefix(c.Feed.StreamURL, "wss://") {
		return errors.New(errors.ErrCodeConfigValidation,
			"feed.stream_url must be a ws:// or wss:// URL").
			WithDetail("stream_url", c.Feed.StreamURL)
	}

	if len(c.Categories) == 0 {
		return errors.New(errors.ErrCodeConfigValidation, "at least one category must be configured")
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return errors.New(errors.ErrCodeConfigValidation, "category name must not be empty")
		}
		if seen[cat.Name] {
			return errors.New(errors.ErrCodeConfigValidation,
				fmt.Sprintf("duplicate category '%s'", cat.Name)).
				WithDetail("category", cat.Name)
		}
		seen[cat.Name] = true

		switch cat.Policy {
		case PolicyImmediate, PolicySlowRestock:
		default:
			return errors.New(errors.ErrCodeConfigValidation,
				fmt.Sprintf("category '%s' has unknown policy '%s'", cat.Name, cat.Policy)).
				WithDetail("category", cat.Name).
				WithDetail("policy", string(cat.Policy))
		}
	}

	// Watch list entries must reference configured categories.
	for name := range c.Alerts.DefaultWatchList {
		if !seen[name] {
			return errors.New(errors.ErrCodeConfigValidation,
				fmt.Sprintf("default_watch_list references unknown category '%s'", name)).
				WithDetail("category", name)
		}
	}

	switch c.Delivery.Mode {
	case "log":
	case "webhook":
		if c.Delivery.WebhookURL == "" {
			return errors.New(errors.ErrCodeConfigValidation,
				"delivery.webhook_url is required in webhook mode")
		}
	default:
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("unknown delivery mode '%s'", c.Delivery.Mode))
	}

	if c.Scheduler.Interval.Std() <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "scheduler.interval must be positive")
	}

	return nil
}
