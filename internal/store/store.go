// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store persists ring-buffer snapshots and session metadata to
// durable storage. A transactional SQLite store is the primary backend; a
// synchronous JSON file store is the fallback. Both hold exactly two
// records under fixed keys, intentionally overwritten on every persist,
// since only the previous session's data ever needs to be recoverable.
package store

import (
	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/session"
)

// Fixed record keys. Not session-scoped: each persist overwrites the
// previous one.
const (
	KeySnapshot = "ring-snapshot"
	KeyMeta     = "session-meta"
)

// Store is a durable backend holding one ring snapshot and one session
// metadata record.
type Store interface {
	SaveSnapshot(entries []entry.Entry) error
	SaveMeta(meta *session.Meta) error

	// LoadSnapshot returns the persisted entries, or nil if none exist.
	LoadSnapshot() ([]entry.Entry, error)
	// LoadMeta returns the persisted metadata, or nil if none exists.
	LoadMeta() (*session.Meta, error)

	// Clear removes both records.
	Clear() error
	Close() error
}

// Outcome reports where a persist attempt landed. Persistence is a safety
// net: failures are recorded here instead of propagating to callers.
type Outcome struct {
	PrimaryOK  bool
	FallbackOK bool
}

// Landed reports whether the write reached at least one backend.
func (o Outcome) Landed() bool {
	return o.PrimaryOK || o.FallbackOK
}
