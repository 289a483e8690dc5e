package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// JSONSchema renders Duration fields as Go duration strings (e.g. "30m").
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string",
	}
}

// GenerateSchema generates the JSON Schema for the stockwatch configuration.
// It reflects the Config struct from types.go but excludes the 'Extensions'
// field, which holds free-form tool sections (e.g. "logging").
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Extension sections live inline in the file, so the root object must
		// tolerate unknown properties.
		AllowAdditionalProperties: true,
		// Expand struct references instead of using $ref for a cleaner schema.
		ExpandedStruct: true,
		// Use YAML field names for property names
		FieldNameTag: "yaml",
	}

	// A shadow struct without the Extensions field keeps the inline map out
	// of the generated schema.
	type BaseConfig struct {
		Version    string           `yaml:"version" jsonschema:"required,description=Configuration version (e.g. '1.0')"`
		Feed       FeedConfig       `yaml:"feed" jsonschema:"required,description=Upstream inventory feed endpoints and retry policy"`
		Categories []CategoryConfig `yaml:"categories" jsonschema:"required,description=Tracked categories in display order"`
		Alerts     AlertsConfig     `yaml:"alerts,omitempty"`
		Scheduler  SchedulerConfig  `yaml:"scheduler,omitempty"`
		Dispatch   DispatchConfig   `yaml:"dispatch,omitempty"`
		Delivery   DeliveryConfig   `yaml:"delivery,omitempty"`
		Directory  DirectoryConfig  `yaml:"directory,omitempty"`
		Daemon     DaemonConfig     `yaml:"daemon,omitempty"`
	}

	schema := r.Reflect(&BaseConfig{})
	schema.Title = "Stockwatch Configuration"
	schema.Description = "Schema for stockwatch.yml."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}
