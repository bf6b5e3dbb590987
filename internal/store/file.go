// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/session"
)

// MaxFileRecordBytes is the quota for a single fallback record. The
// fallback store mimics a quota-limited synchronous key-value store:
// oversized records are rejected rather than partially written.
const MaxFileRecordBytes = 1 << 20 // 1 MB

// FileStore is the synchronous fallback backend: one JSON file per record
// under fixed names, written with plain os.WriteFile. A synchronous write
// is more likely to have landed before a hard termination than the primary
// backend's transactional commit, which is why standalone sessions mirror
// every write here in addition to the primary store.
type FileStore struct {
	dir string
}

// NewFileStore creates the fallback store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: dir is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("file store: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// SaveSnapshot overwrites the current ring snapshot record.
func (s *FileStore) SaveSnapshot(entries []entry.Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("file store: marshal snapshot: %w", err)
	}
	return s.put(KeySnapshot, data)
}

// SaveMeta overwrites the current session metadata record.
func (s *FileStore) SaveMeta(meta *session.Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("file store: marshal meta: %w", err)
	}
	return s.put(KeyMeta, data)
}

// LoadSnapshot returns the persisted entries, or nil if none exist.
func (s *FileStore) LoadSnapshot() ([]entry.Entry, error) {
	data, err := s.get(KeySnapshot)
	if err != nil || data == nil {
		return nil, err
	}

	var entries []entry.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("file store: unmarshal snapshot: %w", err)
	}
	return entries, nil
}

// LoadMeta returns the persisted metadata, or nil if none exists.
func (s *FileStore) LoadMeta() (*session.Meta, error) {
	data, err := s.get(KeyMeta)
	if err != nil || data == nil {
		return nil, err
	}

	var meta session.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("file store: unmarshal meta: %w", err)
	}
	return &meta, nil
}

// Clear removes both records.
func (s *FileStore) Clear() error {
	var firstErr error
	for _, key := range []string{KeySnapshot, KeyMeta} {
		if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("file store: remove %s: %w", key, err)
		}
	}
	return firstErr
}

// Close is a no-op; the file store holds no resources between writes.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) put(key string, data []byte) error {
	if len(data) > MaxFileRecordBytes {
		return fmt.Errorf("file store: record %s exceeds quota (%d > %d bytes)", key, len(data), MaxFileRecordBytes)
	}
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("file store: write %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("file store: read %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
