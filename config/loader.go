package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct .env file path (optional)
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load loads configuration for the named application. It searches for
// config.yml and .env files in standard locations unless explicit paths are
// provided, binds FEATFLOW_-prefixed environment variables, applies defaults,
// and validates the result.
func Load(name string, opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	if lc.ConfigFile == "" {
		lc.ConfigFile = findConfigFile(lc.FileSystem, name)
	}
	if lc.EnvFile == "" {
		lc.EnvFile = findEnvFile(lc.FileSystem, name)
	}

	cfg := &Config{Name: name}
	if err := loadInto(cfg, lc); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = name
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadInto(cfg *Config, lc LoaderConfig) error {
	v := viper.New()

	// 1. YAML config first (base configuration)
	if lc.ConfigFile != "" && lc.FileSystem.Exists(lc.ConfigFile) {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: reading %s: %w", lc.ConfigFile, err)
		}
	}

	// 2. Environment variables override file values
	v.SetEnvPrefix("FEATFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// 3. Optional .env file; re-bind so fresh variables are visible
	if lc.EnvFile != "" && lc.FileSystem.Exists(lc.EnvFile) {
		if err := lc.FileSystem.LoadEnv(lc.EnvFile); err != nil {
			return fmt.Errorf("config: loading %s: %w", lc.EnvFile, err)
		}
		bindEnvKeys(v)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	return nil
}

// bindEnvKeys binds the known configuration keys so viper.Unmarshal sees
// values that only exist in the environment.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"name", "version", "environment", "debug",
		"logging.level", "logging.format", "logging.output", "logging.no_color",
		"storage.enabled", "storage.provider", "storage.base_path",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// findConfigFile searches for config.yml in standard locations.
func findConfigFile(fs FileSystem, name string) string {
	searchPaths := []string{
		fmt.Sprintf("./config/%s.yml", name),
		fmt.Sprintf("./config/%s.yaml", name),
		"./config/config.yml",
		"./config.yml",
		"./config.yaml",
	}
	for _, path := range searchPaths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches for .env files in standard locations.
func findEnvFile(fs FileSystem, name string) string {
	searchPaths := []string{
		fmt.Sprintf(".env.%s", name),
		".env",
	}
	for _, path := range searchPaths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}
