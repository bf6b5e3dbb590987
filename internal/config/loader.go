// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// EnvOptIn is the environment variable that opts a session into capture
// even when the config file leaves it disabled.
const EnvOptIn = "BLACKBOX"

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Convert to JSON and unmarshal to struct (for type safety)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values and the environment
// opt-in applied.
func (l *Loader) LoadWithDefaults(path string) (*Config, error) {
	cfg, err := l.Load(path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOptIn(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with all defaults applied and no config
// file involved. The environment opt-in still applies.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOptIn(cfg)
	return cfg
}

// applyEnvOptIn turns the pipeline on when the opt-in variable is set.
func applyEnvOptIn(cfg *Config) {
	switch os.Getenv(EnvOptIn) {
	case "1", "true", "on":
		cfg.Enabled = true
	}
}

// FindConfig searches for a config file in the current directory.
// It looks for blackbox.hjson first, then blackbox.json.
func (l *Loader) FindConfig() (string, error) {
	candidates := []string{
		"blackbox.hjson",
		"blackbox.json",
	}

	for _, name := range candidates {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for blackbox.hjson, blackbox.json)")
}
