// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/session"
)

func sampleEntries(n int) []entry.Entry {
	entries := make([]entry.Entry, n)
	for i := range entries {
		entries[i] = entry.Entry{
			Type:      entry.TypeLog,
			Timestamp: time.Now().Add(time.Duration(i) * time.Millisecond),
			Message:   "msg",
		}
	}
	return entries
}

func TestFileStoreRoundtrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	// Empty store loads nothing.
	entries, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, entries)
	meta, err := s.LoadMeta()
	require.NoError(t, err)
	assert.Nil(t, meta)

	require.NoError(t, s.SaveSnapshot(sampleEntries(3)))
	m := session.NewMeta("1.0", false)
	require.NoError(t, s.SaveMeta(m))

	entries, err = s.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	loaded, err := s.LoadMeta()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, m.SessionID, loaded.SessionID)
	assert.False(t, loaded.Clean)
}

func TestFileStoreOverwrite(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SaveSnapshot(sampleEntries(5)))
	require.NoError(t, s.SaveSnapshot(sampleEntries(2)))

	entries, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, entries, 2, "fixed-key record should be overwritten")
}

func TestFileStoreQuota(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	big := []entry.Entry{{
		Type:    entry.TypeLog,
		Message: strings.Repeat("x", MaxFileRecordBytes),
	}}
	err = s.SaveSnapshot(big)
	assert.Error(t, err, "record over quota must be rejected")

	// Nothing partial should remain readable.
	entries, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestFileStoreClear(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SaveSnapshot(sampleEntries(1)))
	require.NoError(t, s.SaveMeta(session.NewMeta("1.0", false)))
	require.NoError(t, s.Clear())

	entries, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, entries)
	meta, err := s.LoadMeta()
	require.NoError(t, err)
	assert.Nil(t, meta)

	// Clearing an already-empty store is fine.
	require.NoError(t, s.Clear())
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackbox.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, entries)

	require.NoError(t, s.SaveSnapshot(sampleEntries(4)))
	m := session.NewMeta("2.0", true)
	m.Clean = true
	require.NoError(t, s.SaveMeta(m))

	entries, err = s.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	loaded, err := s.LoadMeta()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, m.SessionID, loaded.SessionID)
	assert.True(t, loaded.Clean)
	assert.True(t, loaded.Standalone)
}

func TestSQLiteStoreOverwriteAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackbox.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveSnapshot(sampleEntries(10)))
	require.NoError(t, s.SaveSnapshot(sampleEntries(1)))

	entries, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.Clear())
	entries, err = s.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackbox.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(sampleEntries(7)))
	require.NoError(t, s.Close())

	// Next boot reads what the previous one wrote.
	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	entries, err := s2.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, entries, 7)
}

func TestOpenSQLiteBadPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
