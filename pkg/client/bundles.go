// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// BundleClient provides access to stored bundle operations.
type BundleClient struct {
	c *Client
}

// Summary represents a stored bundle summary.
type Summary struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Type       string    `json:"type"`
	Crash      bool      `json:"crash"`
	AppVersion string    `json:"app_version,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	EntryCount int       `json:"entry_count"`
	ErrorCount int       `json:"error_count"`
}

// Record represents a full stored bundle with ingest metadata.
type Record struct {
	Version    string    `json:"version"`
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Bundle     Bundle    `json:"bundle"`
	Stats      Stats     `json:"stats"`
}

// Bundle is the payload an instrumented application uploaded.
type Bundle struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	Start      time.Time `json:"start,omitzero"`
	End        time.Time `json:"end,omitzero"`
	Clean      bool      `json:"clean"`
	Crash      bool      `json:"crash"`
	UserAgent  string    `json:"user_agent,omitempty"`
	AppVersion string    `json:"app_version,omitempty"`
	Standalone bool      `json:"standalone,omitempty"`
	Location   string    `json:"location,omitempty"`
	Truncated  bool      `json:"truncated,omitempty"`
	Entries    []Entry   `json:"entries"`
}

// Entry is a single diagnostic entry inside a bundle.
type Entry struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Args      []string  `json:"args,omitempty"`
	Error     string    `json:"error,omitempty"`
	Stack     string    `json:"stack,omitempty"`
	URL       string    `json:"url,omitempty"`
	Status    int       `json:"status,omitempty"`
	Duration  int64     `json:"duration_ms,omitempty"`
	Tag       string    `json:"tag,omitempty"`
	Sequence  uint64    `json:"sequence,omitempty"`
}

// Stats contains per-record entry statistics.
type Stats struct {
	TotalEntries int            `json:"total_entries"`
	ByType       map[string]int `json:"by_type"`
	ErrorCount   int            `json:"error_count"`
}

// List returns all stored bundles, newest first.
func (b *BundleClient) List(ctx context.Context) ([]Summary, error) {
	data, err := b.c.get(ctx, "/api/v1/bundles")
	if err != nil {
		return nil, err
	}

	var summaries []Summary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("failed to parse bundles: %w", err)
	}

	return summaries, nil
}

// Get retrieves a specific bundle by ID.
func (b *BundleClient) Get(ctx context.Context, id string) (*Record, error) {
	data, err := b.c.get(ctx, "/api/v1/bundles/"+id)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}

	return &rec, nil
}

// Newest returns the most recent stored bundle, or nil when none exist.
func (b *BundleClient) Newest(ctx context.Context) (*Record, error) {
	data, err := b.c.get(ctx, "/api/v1/bundles/newest")
	if err != nil {
		return nil, err
	}

	// Handle null response
	if string(data) == "null" {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}

	return &rec, nil
}

// Delete removes a bundle by ID.
func (b *BundleClient) Delete(ctx context.Context, id string) error {
	_, err := b.c.delete(ctx, "/api/v1/bundles/"+id)
	return err
}

// Clear removes all stored bundles.
func (b *BundleClient) Clear(ctx context.Context) error {
	_, err := b.c.delete(ctx, "/api/v1/bundles")
	return err
}

// Watch streams summaries of bundles as they are stored. The channel is
// closed when ctx is cancelled or the connection drops.
func (b *BundleClient) Watch(ctx context.Context) (<-chan Summary, error) {
	wsURL := b.c.baseURL + "/api/v1/bundles/ws"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	ch := make(chan Summary, 16)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			var s Summary
			if err := conn.ReadJSON(&s); err != nil {
				return
			}
			select {
			case ch <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
