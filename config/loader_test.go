package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mossline/stockwatch/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
version: "1.0"
feed:
  stream_url: wss://feed.example.com/live
  poll_url: https://feed.example.com/snapshot
categories:
  - name: seed
    policy: immediate
  - name: egg
    label: Eggs
    policy: slow_restock
alerts:
  quiescence_window: 30m
  default_watch_list:
    seed: ["kiwi", "sugar_apple"]
scheduler:
  interval: 5m
  grid_offset: 2m
`

func TestLoadFromBytesYAML(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML), ".yml")
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, "wss://feed.example.com/live", cfg.Feed.StreamURL)
	assert.Equal(t, []string{"seed", "egg"}, cfg.CategoryNames())
	assert.Equal(t, PolicySlowRestock, cfg.Policies()["egg"])
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.GridOffset.Std())
	// Defaults fill in unset fields.
	assert.Equal(t, "log", cfg.Delivery.Mode)
	assert.Equal(t, 5, cfg.Feed.ReconnectMaxAttempts)
}

func TestLoadFromBytesTOML(t *testing.T) {
	raw := `
version = "1.0"

[feed]
poll_url = "https://feed.example.com/snapshot"

[[categories]]
name = "seed"
policy = "immediate"
`
	cfg, err := LoadFromBytes([]byte(raw), ".toml")
	require.NoError(t, err)
	assert.Equal(t, "https://feed.example.com/snapshot", cfg.Feed.PollURL)
	assert.Equal(t, []string{"seed"}, cfg.CategoryNames())
}

func TestLoadFromBytesRejectsUnknownPolicy(t *testing.T) {
	raw := `
version: "1.0"
feed:
  poll_url: https://feed.example.com/snapshot
categories:
  - name: seed
    policy: eventually
`
	_, err := LoadFromBytes([]byte(raw), ".yml")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigValidation, errors.GetCode(err))
}

func TestLoadFromBytesRejectsMalformedYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("version: [unclosed"), ".yml")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestLoadFromBytesExpandsEnvVars(t *testing.T) {
	t.Setenv("STOCKWATCH_POLL_URL", "https://feed.example.com/from-env")

	raw := `
version: "1.0"
feed:
  poll_url: ${STOCKWATCH_POLL_URL}
categories:
  - name: seed
    policy: immediate
delivery:
  mode: ${STOCKWATCH_DELIVERY_MODE:-log}
`
	cfg, err := LoadFromBytes([]byte(raw), ".yml")
	require.NoError(t, err)
	assert.Equal(t, "https://feed.example.com/from-env", cfg.Feed.PollURL)
	assert.Equal(t, "log", cfg.Delivery.Mode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "stockwatch.yml"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockwatch.yml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", cfg.Version)
}

func TestFindConfigFileWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	configPath := filepath.Join(root, "stockwatch.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(validYAML), 0644))

	found, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFindConfigFileNotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := FindConfigFile(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SW_TEST_VALUE", "set")

	assert.Equal(t, "set", expandEnvVars("${SW_TEST_VALUE}"))
	assert.Equal(t, "set", expandEnvVars("${SW_TEST_VALUE:-fallback}"))
	assert.Equal(t, "fallback", expandEnvVars("${SW_TEST_UNSET:-fallback}"))
	assert.Equal(t, "", expandEnvVars("${SW_TEST_UNSET}"))
	assert.Equal(t, "plain text", expandEnvVars("plain text"))
}

func TestMergeConfigOverlaysNonZeroFields(t *testing.T) {
	base, err := LoadFromBytes([]byte(validYAML), ".yml")
	require.NoError(t, err)

	override := &Config{
		Feed:     FeedConfig{PollURL: "https://feed.example.com/override"},
		Delivery: DeliveryConfig{Mode: "webhook", WebhookURL: "https://hooks.example.com/x"},
	}
	mergeConfig(base, override)

	assert.Equal(t, "https://feed.example.com/override", base.Feed.PollURL)
	assert.Equal(t, "webhook", base.Delivery.Mode)
	// Untouched fields keep the base values.
	assert.Equal(t, "wss://feed.example.com/live", base.Feed.StreamURL)
	assert.Equal(t, []string{"seed", "egg"}, base.CategoryNames())
}
