// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session tracks per-boot liveness: a heartbeat-stamped metadata
// record that distinguishes a clean exit from a crash on the next start.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"runtime"
	"time"
)

// Meta is the one liveness/identity record per process lifetime.
//
// Clean is false at all times except during the brief window of an orderly
// shutdown. A crash is therefore detectable on the next boot as clean=false
// with a heartbeat older than that boot's start.
type Meta struct {
	SessionID  string    `json:"session_id"`
	StartTime  time.Time `json:"start_time"`
	Heartbeat  time.Time `json:"heartbeat"`
	Clean      bool      `json:"clean"`
	UserAgent  string    `json:"user_agent"`
	AppVersion string    `json:"app_version"`
	Standalone bool      `json:"standalone"`
}

// NewMeta creates the metadata record for a fresh session.
func NewMeta(appVersion string, standalone bool) *Meta {
	now := time.Now()
	return &Meta{
		SessionID:  generateSessionID(),
		StartTime:  now,
		Heartbeat:  now,
		Clean:      false,
		UserAgent:  userAgent(),
		AppVersion: appVersion,
		Standalone: standalone,
	}
}

// generateSessionID generates an opaque session identifier.
func generateSessionID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b) + "-" + time.Now().Format("20060102-150405")
}

// userAgent describes the runtime environment of this process.
func userAgent() string {
	host, _ := os.Hostname()
	return runtime.GOOS + "/" + runtime.GOARCH + " go/" + runtime.Version() + " host/" + host
}
