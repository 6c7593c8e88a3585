package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".sigplace.yml"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SIGPLACE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: SIGPLACE_PORT -> port, etc.
	if err := k.Load(env.Provider("SIGPLACE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SIGPLACE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}

	if c.MinWidthPx < 0 || c.MinHeightPx < 0 {
		return fmt.Errorf("min_width_px and min_height_px must be non-negative")
	}
	if c.HandlePx < 0 {
		return fmt.Errorf("handle_px must be non-negative")
	}

	if c.PreviewDPI <= 0 {
		return fmt.Errorf("preview_dpi must be positive")
	}

	if c.EmbedDensity <= 0 {
		return fmt.Errorf("embed_density must be positive")
	}

	if c.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must be non-negative")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}

	if c.AuditEntries < 0 {
		return fmt.Errorf("audit_entries must be non-negative")
	}

	return nil
}
