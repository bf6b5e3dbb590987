// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/ring"
)

// DefaultHeartbeatInterval is the spacing between liveness updates.
const DefaultHeartbeatInterval = 5 * time.Second

// Persister is the subset of the persistence layer the tracker drives.
type Persister interface {
	Schedule()
	Force()
}

// TeardownFlusher delivers a final best-effort batch during shutdown.
type TeardownFlusher interface {
	TeardownFlush()
}

// TrackerConfig holds the parameters for a Tracker.
type TrackerConfig struct {
	Meta      *Meta
	Buffer    *ring.Buffer
	Persister Persister
	Flusher   TeardownFlusher // optional
	Interval  time.Duration
}

// Tracker maintains the session's liveness record. It pushes heartbeat
// entries on a fixed interval and performs the orderly shutdown exactly
// once per hide/terminate cycle; a resume re-arms the shutdown and
// immediately re-marks the session dirty.
type Tracker struct {
	mu        sync.Mutex
	meta      *Meta
	buffer    *ring.Buffer
	persister Persister
	flusher   TeardownFlusher
	interval  time.Duration

	fired  atomic.Bool // orderly shutdown already performed
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewTracker creates a tracker for the given session metadata.
func NewTracker(cfg TrackerConfig) *Tracker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Tracker{
		meta:      cfg.Meta,
		buffer:    cfg.Buffer,
		persister: cfg.Persister,
		flusher:   cfg.Flusher,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start records the session start and begins the heartbeat loop. The
// initial metadata (clean=false) is persisted immediately so a crash
// before the first heartbeat is still detectable.
func (t *Tracker) Start() {
	t.buffer.Push(entry.New(entry.TypeSessionStart, t.meta.SessionID))
	t.persister.Force()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stopCh:
				return
			case <-ticker.C:
				t.heartbeat()
			}
		}
	}()
}

// heartbeat records one liveness update.
func (t *Tracker) heartbeat() {
	if t.fired.Load() {
		return
	}
	t.buffer.Push(entry.New(entry.TypeHeartbeat, ""))
	t.mu.Lock()
	t.meta.Heartbeat = time.Now()
	t.mu.Unlock()
	t.persister.Schedule()
}

// Shutdown performs the orderly shutdown exactly once: a session-end entry,
// metadata marked clean and persisted immediately, and a final teardown
// flush. Safe to call from multiple termination signals.
func (t *Tracker) Shutdown() {
	if t.fired.Swap(true) {
		return
	}

	t.buffer.Push(entry.New(entry.TypeSessionEnd, t.meta.SessionID))
	t.mu.Lock()
	t.meta.Clean = true
	t.meta.Heartbeat = time.Now()
	t.mu.Unlock()
	t.persister.Force()

	if t.flusher != nil {
		t.flusher.TeardownFlush()
	}
}

// Resume undoes a shutdown that turned out not to be terminal: mobile-style
// background/foreground cycling, or a session restored from cache. The
// shutdown guard is reset and the metadata is immediately re-marked dirty.
func (t *Tracker) Resume() {
	if !t.fired.Swap(false) {
		return
	}

	t.mu.Lock()
	t.meta.Clean = false
	t.meta.Heartbeat = time.Now()
	t.mu.Unlock()
	t.persister.Force()
}

// MetaCopy returns a copy of the current metadata, safe for the persister
// to serialize concurrently with heartbeat updates.
func (t *Tracker) MetaCopy() *Meta {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := *t.meta
	return &m
}

// SessionID returns the session identifier.
func (t *Tracker) SessionID() string {
	return t.meta.SessionID
}

// Clean reports whether the orderly shutdown has marked the session clean.
func (t *Tracker) Clean() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meta.Clean
}

// Stop halts the heartbeat loop. It does not perform the orderly shutdown;
// callers wanting a clean exit call Shutdown first.
func (t *Tracker) Stop() {
	t.once.Do(func() { close(t.stopCh) })
	t.wg.Wait()
}
