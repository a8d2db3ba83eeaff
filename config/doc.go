// Package config loads featflow configuration from YAML files and
// environment variables.
//
// Load resolves a config.yml and an optional .env file, binds environment
// variables through viper, and unmarshals into Config. Defaults and
// validation follow the ApplyDefaults/Validate convention used throughout
// this module.
package config
