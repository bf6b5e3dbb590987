// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading for the capture
// pipeline and the ingest server.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	// Enabled gates the entire pipeline. When false (and the BLACKBOX
	// environment variable is not set), initialization returns an inert
	// pipeline with zero behavioral impact on the host.
	Enabled bool `json:"enabled"`

	// Endpoint receives live batches and crash bundles.
	Endpoint string `json:"endpoint"`
	// BeaconEndpoint receives the fire-and-forget teardown flush. Falls
	// back to Endpoint when empty.
	BeaconEndpoint string `json:"beacon_endpoint"`
	// SecondaryEndpoint optionally receives an out-of-band crash
	// notification in addition to the bundle upload.
	SecondaryEndpoint string `json:"secondary_endpoint"`

	// Standalone marks installed/standalone execution contexts, which are
	// more prone to abrupt termination. It switches persistence into
	// mirror mode (every write goes to both backends).
	Standalone bool `json:"standalone"`

	// DataDir holds the durable stores and the local bundle spool.
	DataDir string `json:"data_dir"`

	// AppVersion is recorded in session metadata and crash bundles.
	AppVersion string `json:"app_version"`

	Buffer    BufferConfig    `json:"buffer"`
	Persist   PersistConfig   `json:"persist"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
	Report    ReportConfig    `json:"report"`
}

// BufferConfig bounds the in-memory ring buffer.
type BufferConfig struct {
	MaxEntries int    `json:"max_entries"`
	MaxAge     string `json:"max_age"`
}

// PersistConfig configures the throttled persistence layer.
type PersistConfig struct {
	Interval string `json:"interval"`
}

// HeartbeatConfig configures the liveness tracker.
type HeartbeatConfig struct {
	Interval string `json:"interval"`
}

// ReportConfig configures the network reporter.
type ReportConfig struct {
	FlushInterval  string `json:"flush_interval"`
	TeardownTail   int    `json:"teardown_tail"`
	MaxBundleBytes int    `json:"max_bundle_bytes"`
	Timeout        string `json:"timeout"`
	BeaconTimeout  string `json:"beacon_timeout"`
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = ".blackbox"
	}

	if cfg.Buffer.MaxEntries == 0 {
		cfg.Buffer.MaxEntries = 500
	}
	if cfg.Buffer.MaxAge == "" {
		cfg.Buffer.MaxAge = "60s"
	}

	if cfg.Persist.Interval == "" {
		cfg.Persist.Interval = "250ms"
	}

	if cfg.Heartbeat.Interval == "" {
		cfg.Heartbeat.Interval = "5s"
	}

	if cfg.Report.FlushInterval == "" {
		cfg.Report.FlushInterval = "3s"
	}
	if cfg.Report.TeardownTail == 0 {
		cfg.Report.TeardownTail = 50
	}
	if cfg.Report.MaxBundleBytes == 0 {
		cfg.Report.MaxBundleBytes = 256 * 1024
	}
	if cfg.Report.Timeout == "" {
		cfg.Report.Timeout = "10s"
	}
	if cfg.Report.BeaconTimeout == "" {
		cfg.Report.BeaconTimeout = "2s"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("config: endpoint is required when enabled")
	}
	if c.Buffer.MaxEntries < 0 {
		return fmt.Errorf("config: buffer.max_entries must not be negative")
	}
	for name, val := range map[string]string{
		"buffer.max_age":        c.Buffer.MaxAge,
		"persist.interval":      c.Persist.Interval,
		"heartbeat.interval":    c.Heartbeat.Interval,
		"report.flush_interval": c.Report.FlushInterval,
		"report.timeout":        c.Report.Timeout,
		"report.beacon_timeout": c.Report.BeaconTimeout,
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

// ParseDuration parses a duration string, returning a fallback default for
// empty or malformed values.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
