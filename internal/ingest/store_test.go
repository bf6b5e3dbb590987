// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/report"
)

func testBundle(sessionID string) report.Bundle {
	return report.Bundle{
		Type:      report.PayloadCrashBundle,
		SessionID: sessionID,
		Crash:     true,
		Entries: []entry.Entry{
			{Type: entry.TypeLog, Message: "starting up"},
			{Type: entry.TypeError, Message: "it broke"},
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store, err := NewStore(Config{ReportsDir: t.TempDir()})
	require.NoError(t, err)

	rec, err := store.Save(testBundle("sess-1"), "10.0.0.1:1234")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	loaded, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", loaded.Bundle.SessionID)
	assert.Equal(t, 2, loaded.Stats.TotalEntries)
	assert.Equal(t, 1, loaded.Stats.ErrorCount)
	assert.Equal(t, "10.0.0.1:1234", loaded.RemoteAddr)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, err := NewStore(Config{ReportsDir: t.TempDir()})
	require.NoError(t, err)

	first, err := store.Save(testBundle("sess-old"), "")
	require.NoError(t, err)
	second, err := store.Save(testBundle("sess-new"), "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	summaries, err := store.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "sess-new", summaries[0].SessionID)
	assert.Equal(t, "sess-old", summaries[1].SessionID)
}

func TestStore_Newest(t *testing.T) {
	store, err := NewStore(Config{ReportsDir: t.TempDir()})
	require.NoError(t, err)

	rec, err := store.Newest()
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = store.Save(testBundle("sess-1"), "")
	require.NoError(t, err)
	saved, err := store.Save(testBundle("sess-2"), "")
	require.NoError(t, err)

	rec, err = store.Newest()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, saved.ID, rec.ID)
}

func TestStore_Delete(t *testing.T) {
	store, err := NewStore(Config{ReportsDir: t.TempDir()})
	require.NoError(t, err)

	rec, err := store.Save(testBundle("sess-1"), "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(rec.ID))
	_, err = store.Get(rec.ID)
	assert.Error(t, err)

	err = store.Delete("20200101-000000.000")
	assert.Error(t, err)
}

func TestStore_Clear(t *testing.T) {
	store, err := NewStore(Config{ReportsDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Save(testBundle("a"), "")
	require.NoError(t, err)
	_, err = store.Save(testBundle("b"), "")
	require.NoError(t, err)

	require.NoError(t, store.Clear())
	summaries, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestStore_CleanupByCount(t *testing.T) {
	store, err := NewStore(Config{ReportsDir: t.TempDir(), MaxCount: 3})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := store.Save(testBundle("sess"), "")
		require.NoError(t, err)
	}

	summaries, err := store.List()
	require.NoError(t, err)
	assert.Len(t, summaries, 3)
}

func TestStore_CleanupByAge(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(Config{ReportsDir: dir, MaxAge: time.Hour})
	require.NoError(t, err)

	// Plant a stale record by hand, with an ID older than the cutoff.
	oldID := time.Now().Add(-2 * time.Hour).Format(idFormat)
	data := []byte(`{"version":"1.0","id":"` + oldID + `","bundle":{"type":"crash-bundle","session_id":"stale","entries":[]}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, oldID+".json"), data, 0644))

	_, err = store.Save(testBundle("fresh"), "")
	require.NoError(t, err)

	summaries, err := store.List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "fresh", summaries[0].SessionID)
}

func TestStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(Config{ReportsDir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	summaries, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestGenerateRecordIDMonotonic(t *testing.T) {
	a := generateRecordID()
	b := generateRecordID()
	assert.Less(t, a, b)
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	id1, ch1 := hub.Subscribe(4)
	_, ch2 := hub.Subscribe(4)

	hub.Broadcast(Summary{ID: "rec-1"})

	assert.Equal(t, "rec-1", (<-ch1).ID)
	assert.Equal(t, "rec-1", (<-ch2).ID)

	hub.Unsubscribe(id1)
	_, open := <-ch1
	assert.False(t, open)
	assert.Equal(t, 1, hub.Len())
}

func TestWatcherAnnouncesNewRecords(t *testing.T) {
	store, err := NewStore(Config{ReportsDir: t.TempDir()})
	require.NoError(t, err)
	hub := NewHub()

	w, err := NewWatcher(store, hub, 10*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	_, ch := hub.Subscribe(4)

	rec, err := store.Save(testBundle("watched"), "")
	require.NoError(t, err)

	select {
	case s := <-ch:
		assert.Equal(t, rec.ID, s.ID)
		assert.Equal(t, "watched", s.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not announce the record")
	}
}
