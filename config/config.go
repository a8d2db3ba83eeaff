package config

import (
	"fmt"

	"github.com/kbukum/featflow/logger"
	"github.com/kbukum/featflow/storage"
)

// Config contains the configuration of a featflow application.
type Config struct {
	// Name identifies the pipeline family; used as the storage prefix root.
	Name string `yaml:"name" mapstructure:"name"`
	// Version is the pipeline version string.
	Version string `yaml:"version" mapstructure:"version"`
	// Environment is the deployment environment.
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Debug enables verbose engine logging.
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Logging logger.Config  `yaml:"logging" mapstructure:"logging"`
	Storage storage.Config `yaml:"storage" mapstructure:"storage"`
}

// ApplyDefaults applies default values to the configuration.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	if c.Debug {
		c.Logging.Level = "debug"
	}
	c.Storage.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if c.Storage.Enabled {
		if err := c.Storage.Validate(); err != nil {
			return fmt.Errorf("config.storage: %w", err)
		}
	}
	return nil
}
