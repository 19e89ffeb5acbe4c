// Package config loads server configuration from an optional YAML file,
// falling back to sensible defaults when it is absent.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the jeux server.
type Config struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// ClientCapacity bounds the number of simultaneously registered clients.
	ClientCapacity int `yaml:"client_capacity"`

	// Socket deadlines.
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default: info)
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BindAddress:    "0.0.0.0",
		Port:           2657,
		ClientCapacity: 64,
		ReadTimeout:    0,
		WriteTimeout:   5 * time.Second,
		LogLevel:       "info",
	}
}

// Load reads config from a YAML file at path. If the file doesn't exist,
// it returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
