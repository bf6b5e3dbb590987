// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package report delivers diagnostic data over the network: periodic live
// batches, the final teardown flush, and crash bundle uploads.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/session"
)

// PayloadType discriminates report payloads on the wire.
type PayloadType string

const (
	PayloadCrashBundle PayloadType = "crash-bundle"
	PayloadLive        PayloadType = "live"
	PayloadDebugBundle PayloadType = "debug-bundle"
)

// Truncation constants for oversized bundles.
const (
	// DefaultMaxBundleBytes caps the serialized bundle size.
	DefaultMaxBundleBytes = 256 * 1024
	// TruncatedTail is the entry count kept by the final truncation stage.
	TruncatedTail = 50
)

// Bundle is the unit uploaded to the report endpoint. Live batches use the
// same shape with only the session identity and entries populated.
type Bundle struct {
	Type       PayloadType   `json:"type"`
	SessionID  string        `json:"session_id"`
	Start      time.Time     `json:"start,omitzero"`
	End        time.Time     `json:"end,omitzero"`
	Clean      bool          `json:"clean"`
	Crash      bool          `json:"crash"`
	UserAgent  string        `json:"user_agent,omitempty"`
	AppVersion string        `json:"app_version,omitempty"`
	Standalone bool          `json:"standalone,omitempty"`
	Location   string        `json:"location,omitempty"`
	Truncated  bool          `json:"truncated,omitempty"`
	Entries    []entry.Entry `json:"entries"`
}

// NewBundle builds a bundle from session metadata and its entries, oldest
// first. The derived crash flag is the inverse of the clean flag.
func NewBundle(t PayloadType, meta *session.Meta, entries []entry.Entry) Bundle {
	b := Bundle{
		Type:    t,
		Entries: entries,
	}
	if meta != nil {
		b.SessionID = meta.SessionID
		b.Start = meta.StartTime
		b.End = meta.Heartbeat
		b.Clean = meta.Clean
		b.Crash = !meta.Clean
		b.UserAgent = meta.UserAgent
		b.AppVersion = meta.AppVersion
		b.Standalone = meta.Standalone
	} else {
		b.Crash = true
	}
	if len(entries) > 0 {
		if last := entries[len(entries)-1].Timestamp; last.After(b.End) {
			b.End = last
		}
	}
	if wd, err := os.Getwd(); err == nil {
		b.Location = wd
	}
	return b
}

// MarshalCapped serializes the bundle under maxBytes. Oversized bundles are
// progressively truncated: first the older half of the entries is dropped,
// then everything but a fixed recent tail. A bundle that still does not fit
// is an error; the caller falls back to a local dump.
func (b Bundle) MarshalCapped(maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBundleBytes
	}

	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("bundle: marshal: %w", err)
	}
	if len(data) <= maxBytes {
		return data, nil
	}

	// Stage one: keep the newer half.
	b.Truncated = true
	b.Entries = b.Entries[len(b.Entries)/2:]
	data, err = json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("bundle: marshal: %w", err)
	}
	if len(data) <= maxBytes {
		return data, nil
	}

	// Stage two: keep a small fixed tail.
	if len(b.Entries) > TruncatedTail {
		b.Entries = b.Entries[len(b.Entries)-TruncatedTail:]
	}
	data, err = json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("bundle: marshal: %w", err)
	}
	if len(data) <= maxBytes {
		return data, nil
	}

	return nil, fmt.Errorf("bundle: %d bytes after truncation, cap is %d", len(data), maxBytes)
}
