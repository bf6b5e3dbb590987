// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hjson/hjson-go/v4"
)

// ServerConfig configures the ingest server.
type ServerConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// ReportsDir stores received bundles, one JSON file each.
	ReportsDir string `json:"reports_dir"`
	// MaxAge bounds how long stored bundles are kept.
	MaxAge string `json:"max_age"`
	// MaxCount bounds how many stored bundles are kept.
	MaxCount int `json:"max_count"`
	// Debounce delays feed notifications after a file event.
	Debounce string `json:"debounce"`
}

// applyServerDefaults sets default values for missing server config fields.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8330
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = ".blackbox/reports"
	}
	if cfg.MaxAge == "" {
		cfg.MaxAge = "168h"
	}
	if cfg.MaxCount == 0 {
		cfg.MaxCount = 100
	}
	if cfg.Debounce == "" {
		cfg.Debounce = "100ms"
	}
}

// Validate checks the server configuration for inconsistencies.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	for name, val := range map[string]string{
		"max_age":  c.MaxAge,
		"debounce": c.Debounce,
	} {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", name, val, err)
		}
	}
	return nil
}

// LoadServer reads and parses a server configuration file, with defaults
// applied.
func (l *Loader) LoadServer(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg ServerConfig
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyServerDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultServer returns a server configuration with all defaults applied.
func DefaultServer() *ServerConfig {
	cfg := &ServerConfig{}
	applyServerDefaults(cfg)
	return cfg
}
