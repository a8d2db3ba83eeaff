package storage

import (
	"github.com/kbukum/featflow/validation"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
)

// Default configuration values.
const (
	DefaultProvider = ProviderLocal
	DefaultBasePath = "./feature_cache"
)

// Config holds storage configuration.
type Config struct {
	// Provider selects the storage backend.
	Provider string `mapstructure:"provider" json:"provider" validate:"required,oneof=local"`

	// BasePath is the root directory for local storage.
	BasePath string `mapstructure:"base_path" json:"base_path" validate:"required"`

	// Enabled controls whether pipeline outputs are written at all.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
