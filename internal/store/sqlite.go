// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/session"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ring_snapshot (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS session_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore is the primary durable backend: a transactional key-value
// store with one logical table per record kind.
type SQLiteStore struct {
	pool *sqlitex.Pool
	path string
}

// OpenSQLite opens (creating if needed) the primary store at path. The
// caller decides once at startup whether to fall back when this fails; a
// failed open here is not retried per write.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: 2,
		PrepareConn: func(conn *sqlite.Conn) error {
			pragmas := []string{
				"PRAGMA journal_mode=WAL",
				"PRAGMA synchronous=NORMAL",
				"PRAGMA busy_timeout=5000",
			}
			for _, pragma := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("sqlite store: %s: %w", pragma, err)
				}
			}
			return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening %s: %w", path, err)
	}

	s := &SQLiteStore{pool: pool, path: path}

	// Take a connection once so that open failures (bad file, locked
	// database) surface at boot rather than on the first write.
	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite store: initial connection: %w", err)
	}
	pool.Put(conn)

	return s, nil
}

// SaveSnapshot overwrites the current ring snapshot record.
func (s *SQLiteStore) SaveSnapshot(entries []entry.Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal snapshot: %w", err)
	}
	return s.put("ring_snapshot", KeySnapshot, string(data))
}

// SaveMeta overwrites the current session metadata record.
func (s *SQLiteStore) SaveMeta(meta *session.Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal meta: %w", err)
	}
	return s.put("session_meta", KeyMeta, string(data))
}

// LoadSnapshot returns the persisted entries, or nil if none exist.
func (s *SQLiteStore) LoadSnapshot() ([]entry.Entry, error) {
	value, ok, err := s.get("ring_snapshot", KeySnapshot)
	if err != nil || !ok {
		return nil, err
	}

	var entries []entry.Entry
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		return nil, fmt.Errorf("sqlite store: unmarshal snapshot: %w", err)
	}
	return entries, nil
}

// LoadMeta returns the persisted metadata, or nil if none exists.
func (s *SQLiteStore) LoadMeta() (*session.Meta, error) {
	value, ok, err := s.get("session_meta", KeyMeta)
	if err != nil || !ok {
		return nil, err
	}

	var meta session.Meta
	if err := json.Unmarshal([]byte(value), &meta); err != nil {
		return nil, fmt.Errorf("sqlite store: unmarshal meta: %w", err)
	}
	return &meta, nil
}

// Clear removes both records.
func (s *SQLiteStore) Clear() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteTransient(conn, "DELETE FROM ring_snapshot", nil); err != nil {
		return fmt.Errorf("sqlite store: clear snapshot: %w", err)
	}
	if err := sqlitex.ExecuteTransient(conn, "DELETE FROM session_meta", nil); err != nil {
		return fmt.Errorf("sqlite store: clear meta: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

func (s *SQLiteStore) put(table, key, value string) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)

	query := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, table)
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{key, value},
	})
}

func (s *SQLiteStore) get(table, key string) (string, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return "", false, fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var value string
	var found bool
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", table)
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("sqlite store: select: %w", err)
	}
	return value, found, nil
}
