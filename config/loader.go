package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mossline/stockwatch/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and parses a stockwatch configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return LoadFromBytes(data, filepath.Ext(path))
}

// LoadDefault finds and loads the configuration starting from the current
// working directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	path, err := FindConfigFile(cwd)
	if err != nil {
		return nil, err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Apply a local override file if one sits next to the main config.
	dir := filepath.Dir(path)
	for _, name := range []string{"stockwatch.override.yml", ".stockwatch.override.yml"} {
		overridePath := filepath.Join(dir, name)
		if _, statErr := os.Stat(overridePath); statErr == nil {
			overrideData, readErr := os.ReadFile(overridePath)
			if readErr != nil {
				continue
			}
			expanded := expandEnvVars(string(overrideData))
			var override Config
			if yaml.Unmarshal([]byte(expanded), &override) == nil {
				mergeConfig(cfg, &override)
			}
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromBytes parses configuration from raw bytes. ext selects the decoder
// (".toml" for TOML, anything else is treated as YAML).
func LoadFromBytes(data []byte, ext string) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var config Config
	if ext == ".toml" {
		if err := toml.Unmarshal([]byte(expanded), &config); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}

	// Validate against the embedded JSON schema.
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(&config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile searches for a stockwatch configuration file:
// 1. Current directory up to filesystem root
// 2. XDG config directory (~/.config/stockwatch/stockwatch.yml)
func FindConfigFile(startDir string) (string, error) {
	configNames := []string{
		"stockwatch.yml",
		"stockwatch.yaml",
		".stockwatch.yml",
		".stockwatch.yaml",
		"stockwatch.toml",
	}

	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if xdgConfigPath := getXDGConfigPath(); xdgConfigPath != "" {
		if info, err := os.Stat(xdgConfigPath); err == nil && !info.IsDir() {
			return xdgConfigPath, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// getXDGConfigPath returns the XDG config path for stockwatch.
func getXDGConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "stockwatch", "stockwatch.yml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "stockwatch", "stockwatch.yml")
	}

	return ""
}

// mergeConfig overlays non-zero fields of override onto base.
func mergeConfig(base, override *Config) {
	if override.Version != "" {
		base.Version = override.Version
	}
	if override.Feed.StreamURL != "" {
		base.Feed.StreamURL = override.Feed.StreamURL
	}
	if override.Feed.PollURL != "" {
		base.Feed.PollURL = override.Feed.PollURL
	}
	if override.Feed.ReconnectBaseDelay != 0 {
		base.Feed.ReconnectBaseDelay = override.Feed.ReconnectBaseDelay
	}
	if override.Feed.ReconnectMaxAttempts != 0 {
		base.Feed.ReconnectMaxAttempts = override.Feed.ReconnectMaxAttempts
	}
	if override.Feed.FetchAttempts != 0 {
		base.Feed.FetchAttempts = override.Feed.FetchAttempts
	}
	if len(override.Categories) > 0 {
		base.Categories = override.Categories
	}
	if override.Alerts.QuiescenceWindow != 0 {
		base.Alerts.QuiescenceWindow = override.Alerts.QuiescenceWindow
	}
	if override.Alerts.BundleWithImmediate != nil {
		base.Alerts.BundleWithImmediate = override.Alerts.BundleWithImmediate
	}
	if len(override.Alerts.DefaultWatchList) > 0 {
		base.Alerts.DefaultWatchList = override.Alerts.DefaultWatchList
	}
	if override.Scheduler.Interval != 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.GridOffset != 0 {
		base.Scheduler.GridOffset = override.Scheduler.GridOffset
	}
	if override.Dispatch.Cooldown != 0 {
		base.Dispatch.Cooldown = override.Dispatch.Cooldown
	}
	if override.Delivery.Mode != "" {
		base.Delivery.Mode = override.Delivery.Mode
	}
	if override.Delivery.WebhookURL != "" {
		base.Delivery.WebhookURL = override.Delivery.WebhookURL
	}
	if override.Directory.Path != "" {
		base.Directory.Path = override.Directory.Path
	}
	if override.Daemon.SocketPath != "" {
		base.Daemon.SocketPath = override.Daemon.SocketPath
	}
	if override.Daemon.PidFile != "" {
		base.Daemon.PidFile = override.Daemon.PidFile
	}
	for k, v := range override.Extensions {
		if base.Extensions == nil {
			base.Extensions = make(map[string]interface{})
		}
		base.Extensions[k] = v
	}
}
