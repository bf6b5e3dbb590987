// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ring provides the bounded, time-windowed in-memory log of recent
// diagnostic entries, plus the pending-delivery queue drained by the
// network reporter.
package ring

import (
	"sync"
	"time"

	"github.com/wingedpig/blackbox/internal/entry"
)

const (
	// DefaultMaxEntries is the count bound on the buffer.
	DefaultMaxEntries = 500
	// DefaultMaxAge is the time-window bound, measured from the newest entry.
	DefaultMaxAge = 60 * time.Second
)

// Buffer is a thread-safe ring buffer for diagnostic entries. It enforces
// both a maximum count and a maximum time window (oldest entries scroll out
// once they fall more than maxAge behind the newest entry).
//
// A parallel pending queue tracks entries not yet delivered to the network
// reporter. The two retention policies are independent: an entry can scroll
// out of the ring while still pending delivery, and vice versa.
type Buffer struct {
	mu       sync.RWMutex
	entries  []entry.Entry
	head     int    // Next write position
	size     int    // Current number of entries
	maxSize  int    // Maximum capacity
	maxAge   time.Duration
	sequence uint64

	pending []entry.Entry // Entries awaiting network delivery
}

// NewBuffer creates a new entry buffer.
func NewBuffer(maxSize int, maxAge time.Duration) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Buffer{
		entries: make([]entry.Entry, maxSize),
		maxSize: maxSize,
		maxAge:  maxAge,
	}
}

// Push appends an entry and trims the front so the buffer never exceeds its
// count or time-window bounds. Push never fails; trimming happens
// synchronously inside the call.
func (b *Buffer) Push(e entry.Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.sequence++
	e.Sequence = b.sequence

	b.entries[b.head] = e
	b.head = (b.head + 1) % b.maxSize
	if b.size < b.maxSize {
		b.size++
	}

	// Time-window trim: drop from the front anything older than the window
	// measured from the entry just written.
	cutoff := e.Timestamp.Add(-b.maxAge)
	for b.size > 1 {
		start := b.head - b.size
		if start < 0 {
			start += b.maxSize
		}
		if !b.entries[start].Timestamp.Before(cutoff) {
			break
		}
		b.size--
	}

	b.pending = append(b.pending, e)
}

// Snapshot returns all buffered entries in chronological order.
func (b *Buffer) Snapshot() []entry.Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.copyRange(b.size)
}

// Tail returns the most recent n entries in chronological order.
func (b *Buffer) Tail(n int) []entry.Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > b.size {
		n = b.size
	}
	return b.copyRange(n)
}

// copyRange copies the newest n entries. Caller must hold the lock.
func (b *Buffer) copyRange(n int) []entry.Entry {
	if n == 0 {
		return nil
	}

	result := make([]entry.Entry, n)
	start := b.head - n
	if start < 0 {
		start += b.maxSize
	}
	for i := 0; i < n; i++ {
		result[i] = b.entries[(start+i)%b.maxSize]
	}
	return result
}

// DrainPending atomically removes and returns the pending-delivery queue.
// The drain is a single splice, so entries pushed concurrently land in the
// next drain rather than interleaving with this one.
func (b *Buffer) DrainPending() []entry.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	drained := b.pending
	b.pending = nil
	return drained
}

// Requeue pushes a failed delivery batch back onto the front of the pending
// queue, ahead of entries that arrived in the meantime. The combined queue
// is bounded to the buffer's max size; the oldest entries are dropped first.
func (b *Buffer) Requeue(batch []entry.Entry) {
	if len(batch) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	combined := make([]entry.Entry, 0, len(batch)+len(b.pending))
	combined = append(combined, batch...)
	combined = append(combined, b.pending...)
	if len(combined) > b.maxSize {
		combined = combined[len(combined)-b.maxSize:]
	}
	b.pending = combined
}

// PendingLen returns the number of entries awaiting delivery.
func (b *Buffer) PendingLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pending)
}

// Len returns the current number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// MaxSize returns the maximum capacity.
func (b *Buffer) MaxSize() int {
	return b.maxSize
}

// HasErrors reports whether any buffered entry carries error severity.
func (b *Buffer) HasErrors() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := 0; i < b.size; i++ {
		start := b.head - b.size
		if start < 0 {
			start += b.maxSize
		}
		if b.entries[(start+i)%b.maxSize].Type.IsError() {
			return true
		}
	}
	return false
}

// Clear removes all entries, including pending ones.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
	b.pending = nil
}
