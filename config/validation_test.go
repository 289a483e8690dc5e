package config

import (
	"testing"
	"time"

	"github.com/mossline/stockwatch/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Version: "1.0",
		Feed:    FeedConfig{PollURL: "https://feed.example.com/snapshot"},
		Categories: []CategoryConfig{
			{Name: "seed", Policy: PolicyImmediate},
			{Name: "egg", Policy: PolicySlowRestock},
		},
	}
	cfg.SetDefaults()
	return cfg
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantMsg: "version is required",
		},
		{
			name: "no feed endpoints",
			mutate: func(c *Config) {
				c.Feed.StreamURL = ""
				c.Feed.PollURL = ""
			},
			wantMsg: "at least one of feed.stream_url or feed.poll_url",
		},
		{
			name:    "stream URL with wrong scheme",
			mutate:  func(c *Config) { c.Feed.StreamURL = "https://feed.example.com/live" },
			wantMsg: "ws:// or wss://",
		},
		{
			name:    "no categories",
			mutate:  func(c *Config) { c.Categories = nil },
			wantMsg: "at least one category",
		},
		{
			name: "duplicate category",
			mutate: func(c *Config) {
				c.Categories = append(c.Categories, CategoryConfig{Name: "seed", Policy: PolicyImmediate})
			},
			wantMsg: "duplicate category 'seed'",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Categories[0].Policy = "eventually" },
			wantMsg: "unknown policy",
		},
		{
			name: "watch list references unknown category",
			mutate: func(c *Config) {
				c.Alerts.DefaultWatchList = map[string][]string{"gear": {"wrench"}}
			},
			wantMsg: "unknown category 'gear'",
		},
		{
			name:    "webhook mode without URL",
			mutate:  func(c *Config) { c.Delivery.Mode = "webhook" },
			wantMsg: "webhook_url is required",
		},
		{
			name:    "unknown delivery mode",
			mutate:  func(c *Config) { c.Delivery.Mode = "carrier-pigeon" },
			wantMsg: "unknown delivery mode",
		},
		{
			name:    "non-positive scheduler interval",
			mutate:  func(c *Config) { c.Scheduler.Interval = Duration(-time.Minute) },
			wantMsg: "scheduler.interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigValidation, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateAcceptsWssStream(t *testing.T) {
	cfg := validConfig()
	cfg.Feed.StreamURL = "wss://feed.example.com/live"
	require.NoError(t, cfg.Validate())
}
