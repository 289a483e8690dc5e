package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// CategoryPolicy is the cadence class of a category.
type CategoryPolicy string

const (
	// PolicyImmediate alerts on any qualifying presence in a snapshot.
	PolicyImmediate CategoryPolicy = "immediate"
	// PolicySlowRestock alerts only on first appearance of an item or after
	// the quiescence window has elapsed.
	PolicySlowRestock CategoryPolicy = "slow_restock"
)

// Duration wraps time.Duration so config files can use values like "30m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler (used by both the YAML
// and TOML decoders).
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// CategoryConfig defines one tracked inventory category.
type CategoryConfig struct {
	Name   string         `yaml:"name" toml:"name" json:"name" jsonschema:"required,description=Category name as it appears in feed payloads (e.g. seed)"`
	Label  string         `yaml:"label,omitempty" toml:"label,omitempty" json:"label,omitempty" jsonschema:"description=Display label for alerts (defaults to the title-cased name)"`
	Policy CategoryPolicy `yaml:"policy" toml:"policy" json:"policy" jsonschema:"required,description=Cadence class: immediate or slow_restock"`
}

// FeedConfig configures the upstream inventory feed.
type FeedConfig struct {
	StreamURL            string   `yaml:"stream_url" toml:"stream_url" json:"stream_url" jsonschema:"description=WebSocket URL of the live inventory stream"`
	PollURL              string   `yaml:"poll_url" toml:"poll_url" json:"poll_url" jsonschema:"description=HTTP URL for fallback snapshot polling"`
	ReconnectBaseDelay   Duration `yaml:"reconnect_base_delay,omitempty" toml:"reconnect_base_delay,omitempty" json:"reconnect_base_delay,omitempty" jsonschema:"description=Base delay for linear reconnect backoff (default 5s)"`
	ReconnectMaxAttempts int      `yaml:"reconnect_max_attempts,omitempty" toml:"reconnect_max_attempts,omitempty" json:"reconnect_max_attempts,omitempty" jsonschema:"description=Reconnect attempts before giving up (default 5)"`
	FetchAttempts        int      `yaml:"fetch_attempts,omitempty" toml:"fetch_attempts,omitempty" json:"fetch_attempts,omitempty" jsonschema:"description=HTTP fetch attempts per poll (default 3)"`
	FetchBackoffBase     Duration `yaml:"fetch_backoff_base,omitempty" toml:"fetch_backoff_base,omitempty" json:"fetch_backoff_base,omitempty" jsonschema:"description=Base delay for fetch retry backoff (default 1s)"`
	FetchBackoffCap      Duration `yaml:"fetch_backoff_cap,omitempty" toml:"fetch_backoff_cap,omitempty" json:"fetch_backoff_cap,omitempty" jsonschema:"description=Upper bound on fetch retry backoff (default 5s)"`
}

// AlertsConfig controls alert eligibility policy.
type AlertsConfig struct {
	QuiescenceWindow    Duration            `yaml:"quiescence_window,omitempty" toml:"quiescence_window,omitempty" json:"quiescence_window,omitempty" jsonschema:"description=Minimum time between repeat alerts for unchanged slow-restock items (default 30m)"`
	BundleWithImmediate *bool               `yaml:"bundle_with_immediate,omitempty" toml:"bundle_with_immediate,omitempty" json:"bundle_with_immediate,omitempty" jsonschema:"description=Surface slow-restock categories when a sibling immediate category fires (default true)"`
	DefaultWatchList    map[string][]string `yaml:"default_watch_list,omitempty" toml:"default_watch_list,omitempty" json:"default_watch_list,omitempty" jsonschema:"description=Fallback watch list applied to subscribers without one; values may be patterns"`
}

// SchedulerConfig controls the fallback polling cadence.
type SchedulerConfig struct {
	Interval   Duration `yaml:"interval,omitempty" toml:"interval,omitempty" json:"interval,omitempty" jsonschema:"description=Polling grid interval (default 5m)"`
	GridOffset Duration `yaml:"grid_offset,omitempty" toml:"grid_offset,omitempty" json:"grid_offset,omitempty" jsonschema:"description=Offset of the restock grid from the hour (e.g. 2m when the feed restocks at :02 :07 :12 ...)"`
}

// DispatchConfig controls fan-out behaviour.
type DispatchConfig struct {
	Cooldown Duration `yaml:"cooldown,omitempty" toml:"cooldown,omitempty" json:"cooldown,omitempty" jsonschema:"description=Per-recipient minimum gap between sends (default 0: disabled)"`
}

// DeliveryConfig configures the outbound delivery channel.
type DeliveryConfig struct {
	Mode       string   `yaml:"mode,omitempty" toml:"mode,omitempty" json:"mode,omitempty" jsonschema:"description=Delivery mode: webhook or log (default log)"`
	WebhookURL string   `yaml:"webhook_url,omitempty" toml:"webhook_url,omitempty" json:"webhook_url,omitempty" jsonschema:"description=Endpoint receiving {recipient,text} POSTs in webhook mode"`
	Timeout    Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"description=Per-send HTTP timeout (default 10s)"`
}

// DirectoryConfig configures the subscriber directory backend.
type DirectoryConfig struct {
	Path string `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty" jsonschema:"description=Path to the subscribers YAML file (default .stockwatch/subscribers.yml)"`
}

// DaemonConfig configures the daemon's local control surface.
type DaemonConfig struct {
	SocketPath string `yaml:"socket_path,omitempty" toml:"socket_path,omitempty" json:"socket_path,omitempty" jsonschema:"description=Unix socket for the status API (default .stockwatch/daemon.sock)"`
	PidFile    string `yaml:"pid_file,omitempty" toml:"pid_file,omitempty" json:"pid_file,omitempty" jsonschema:"description=Pidfile path (default .stockwatch/daemon.pid)"`
}

// Config is the root stockwatch.yml configuration.
type Config struct {
	Version    string           `yaml:"version" toml:"version" json:"version" jsonschema:"required,description=Configuration version (e.g. '1.0')"`
	Feed       FeedConfig       `yaml:"feed" toml:"feed" json:"feed" jsonschema:"required,description=Upstream inventory feed endpoints and retry policy"`
	Categories []CategoryConfig `yaml:"categories" toml:"categories" json:"categories" jsonschema:"required,description=Tracked categories in display order"`
	Alerts     AlertsConfig     `yaml:"alerts,omitempty" toml:"alerts,omitempty" json:"alerts,omitempty"`
	Scheduler  SchedulerConfig  `yaml:"scheduler,omitempty" toml:"scheduler,omitempty" json:"scheduler,omitempty"`
	Dispatch   DispatchConfig   `yaml:"dispatch,omitempty" toml:"dispatch,omitempty" json:"dispatch,omitempty"`
	Delivery   DeliveryConfig   `yaml:"delivery,omitempty" toml:"delivery,omitempty" json:"delivery,omitempty"`
	Directory  DirectoryConfig  `yaml:"directory,omitempty" toml:"directory,omitempty" json:"directory,omitempty"`
	Daemon     DaemonConfig     `yaml:"daemon,omitempty" toml:"daemon,omitempty" json:"daemon,omitempty"`

	// Extensions captures tool-specific sections such as "logging" that are
	// not part of the core schema. Decode them with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-"`
}

// SetDefaults fills in default values for unset fields.
func (c *Config) SetDefaults() {
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = Duration(5 * time.Second)
	}
	if c.Feed.ReconnectMaxAttempts == 0 {
		c.Feed.ReconnectMaxAttempts = 5
	}
	if c.Feed.FetchAttempts == 0 {
		c.Feed.FetchAttempts = 3
	}
	if c.Feed.FetchBackoffBase == 0 {
		c.Feed.FetchBackoffBase = Duration(time.Second)
	}
	if c.Feed.FetchBackoffCap == 0 {
		c.Feed.FetchBackoffCap = Duration(5 * time.Second)
	}
	if c.Alerts.QuiescenceWindow == 0 {
		c.Alerts.QuiescenceWindow = Duration(30 * time.Minute)
	}
	if c.Alerts.BundleWithImmediate == nil {
		bundle := true
		c.Alerts.BundleWithImmediate = &bundle
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = Duration(5 * time.Minute)
	}
	if c.Delivery.Mode == "" {
		c.Delivery.Mode = "log"
	}
	if c.Delivery.Timeout == 0 {
		c.Delivery.Timeout = Duration(10 * time.Second)
	}
	if c.Directory.Path == "" {
		c.Directory.Path = ".stockwatch/subscribers.yml"
	}
	if c.Daemon.SocketPath == "" {
		c.Daemon.SocketPath = ".stockwatch/daemon.sock"
	}
	if c.Daemon.PidFile == "" {
		c.Daemon.PidFile = ".stockwatch/daemon.pid"
	}
}

// CategoryNames returns the configured category names in display order.
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// Policies returns a name -> policy lookup for the configured categories.
func (c *Config) Policies() map[string]CategoryPolicy {
	policies := make(map[string]CategoryPolicy, len(c.Categories))
	for _, cat := range c.Categories {
		policies[cat.Name] = cat.Policy
	}
	return policies
}

// UnmarshalExtension decodes a specific extension's configuration from the
// generic Extensions map into a strongly-typed struct.
//
// Usage:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
