// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ingest stores bundles received by the report server. Each
// bundle is a single JSON file in the reports directory, named by a
// timestamp-derived ID, with age- and count-based cleanup.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wingedpig/blackbox/internal/report"
)

const recordVersion = "1.0"

// idFormat is the timestamp layout used for record IDs and filenames.
const idFormat = "20060102-150405.000"

// Config holds configuration for bundle storage.
type Config struct {
	ReportsDir string        // Directory to store bundle files
	MaxAge     time.Duration // Max age of records to keep
	MaxCount   int           // Max number of records to keep
}

// Record is a stored bundle with ingest metadata.
type Record struct {
	Version    string        `json:"version"`
	ID         string        `json:"id"`
	ReceivedAt time.Time     `json:"received_at"`
	RemoteAddr string        `json:"remote_addr,omitempty"`
	Bundle     report.Bundle `json:"bundle"`
	Stats      Stats         `json:"stats"`
}

// Summary is the listing view of a record.
type Summary struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"session_id"`
	Type       report.PayloadType `json:"type"`
	Crash      bool               `json:"crash"`
	AppVersion string             `json:"app_version,omitempty"`
	ReceivedAt time.Time          `json:"received_at"`
	EntryCount int                `json:"entry_count"`
	ErrorCount int                `json:"error_count"`
}

// Stats holds per-record entry statistics.
type Stats struct {
	TotalEntries int            `json:"total_entries"`
	ByType       map[string]int `json:"by_type"`
	ErrorCount   int            `json:"error_count"`
}

// Store handles bundle persistence for the ingest server.
type Store struct {
	mu     sync.RWMutex
	config Config
}

// NewStore creates a bundle store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = ".blackbox/reports"
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}
	if cfg.MaxCount == 0 {
		cfg.MaxCount = 100
	}

	if err := os.MkdirAll(cfg.ReportsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	return &Store{config: cfg}, nil
}

// Dir returns the directory records are written to.
func (s *Store) Dir() string {
	return s.config.ReportsDir
}

// Save stores a received bundle and returns its record. Cleanup of old
// records runs afterward.
func (s *Store) Save(b report.Bundle, remoteAddr string) (*Record, error) {
	rec := &Record{
		Version:    recordVersion,
		ID:         generateRecordID(),
		ReceivedAt: time.Now(),
		RemoteAddr: remoteAddr,
		Bundle:     b,
		Stats:      buildStats(b),
	}

	s.mu.Lock()
	filename := filepath.Join(s.config.ReportsDir, rec.ID+".json")
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to write record file: %w", err)
	}
	s.mu.Unlock()

	s.cleanup()
	return rec, nil
}

// List returns all records, newest first.
func (s *Store) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.config.ReportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	var summaries []Summary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		rec, err := s.loadRecord(entry.Name())
		if err != nil {
			continue
		}
		summaries = append(summaries, summarize(rec))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ReceivedAt.After(summaries[j].ReceivedAt)
	})

	return summaries, nil
}

// Get retrieves a specific record by ID.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadRecord(id + ".json")
}

// Newest returns the most recent record, or nil when none exist.
func (s *Store) Newest() (*Record, error) {
	summaries, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return s.Get(summaries[0].ID)
}

// Delete removes a record by ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filename := filepath.Join(s.config.ReportsDir, id+".json")
	if err := os.Remove(filename); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("record not found: %s", id)
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Clear removes all records.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.config.ReportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read reports directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		os.Remove(filepath.Join(s.config.ReportsDir, entry.Name()))
	}

	return nil
}

// loadRecord loads a record from disk.
func (s *Store) loadRecord(filename string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.config.ReportsDir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &rec, nil
}

// cleanup removes old records based on age and count limits.
func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.config.ReportsDir)
	if err != nil {
		return
	}

	type recordFile struct {
		name      string
		timestamp time.Time
	}

	var files []recordFile
	cutoff := time.Now().Add(-s.config.MaxAge)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		idPart := strings.TrimSuffix(entry.Name(), ".json")
		ts, err := time.ParseInLocation(idFormat, idPart, time.Local)
		if err != nil {
			continue
		}

		if ts.Before(cutoff) {
			os.Remove(filepath.Join(s.config.ReportsDir, entry.Name()))
			continue
		}

		files = append(files, recordFile{name: entry.Name(), timestamp: ts})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].timestamp.After(files[j].timestamp)
	})

	if len(files) > s.config.MaxCount {
		for _, f := range files[s.config.MaxCount:] {
			os.Remove(filepath.Join(s.config.ReportsDir, f.name))
		}
	}
}

// summarize builds the listing view of a record.
func summarize(rec *Record) Summary {
	return Summary{
		ID:         rec.ID,
		SessionID:  rec.Bundle.SessionID,
		Type:       rec.Bundle.Type,
		Crash:      rec.Bundle.Crash,
		AppVersion: rec.Bundle.AppVersion,
		ReceivedAt: rec.ReceivedAt,
		EntryCount: rec.Stats.TotalEntries,
		ErrorCount: rec.Stats.ErrorCount,
	}
}

// buildStats builds entry statistics for a bundle.
func buildStats(b report.Bundle) Stats {
	stats := Stats{
		TotalEntries: len(b.Entries),
		ByType:       make(map[string]int),
	}
	for _, e := range b.Entries {
		stats.ByType[e.Type.String()]++
		if e.Type.IsError() {
			stats.ErrorCount++
		}
	}
	return stats
}

var idMu sync.Mutex
var lastID string

// generateRecordID generates a unique record ID based on timestamp.
// Collisions within the same millisecond get a bumped timestamp so two
// near-simultaneous uploads never share a filename.
func generateRecordID() string {
	idMu.Lock()
	defer idMu.Unlock()

	id := time.Now().Format(idFormat)
	for id <= lastID && lastID != "" {
		t, err := time.ParseInLocation(idFormat, lastID, time.Local)
		if err != nil {
			break
		}
		id = t.Add(time.Millisecond).Format(idFormat)
	}
	lastID = id
	return id
}
