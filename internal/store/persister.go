// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"sync"
	"time"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/session"
)

// DefaultPersistInterval is the minimum spacing between throttled writes.
const DefaultPersistInterval = 250 * time.Millisecond

// Mode selects which backends receive writes. Decided once at startup,
// never re-probed per write.
type Mode int

const (
	// ModePrimary writes to the primary store only.
	ModePrimary Mode = iota
	// ModeFallbackOnly is used when the primary store failed to open.
	ModeFallbackOnly
	// ModeMirror writes every record to both stores. Used in standalone
	// execution contexts, where the primary backend's commit can be
	// silently lost on hard termination while the synchronous fallback
	// write has usually already landed. Both stores holding valid data
	// after a crash is expected; recovery picks the better of the two.
	ModeMirror
)

func (m Mode) String() string {
	switch m {
	case ModePrimary:
		return "primary"
	case ModeFallbackOnly:
		return "fallback-only"
	case ModeMirror:
		return "mirror"
	default:
		return "unknown"
	}
}

// PersisterConfig holds the parameters for a Persister.
type PersisterConfig struct {
	Primary  Store // nil in fallback-only mode
	Fallback Store
	Mode     Mode
	Interval time.Duration

	// Snapshot and Meta supply the data to persist. Both are invoked at
	// write time so every write captures current state.
	Snapshot func() []entry.Entry
	Meta     func() *session.Meta
}

// Persister writes buffer snapshots and session metadata to durable
// storage. Writes are throttled: at most one per interval, with a single
// deferred timer covering calls that arrive too early. Force bypasses the
// throttle for error-severity entries and user-visible sends.
//
// Storage failures never propagate to callers. They are swallowed into the
// last Outcome and a failure counter; persistence is a safety net, not a
// correctness requirement of the instrumented application.
type Persister struct {
	primary  Store
	fallback Store
	mode     Mode
	interval time.Duration
	snapshot func() []entry.Entry
	meta     func() *session.Meta

	mu        sync.Mutex // guards throttle state
	lastWrite time.Time
	timer     *time.Timer

	writeMu     sync.Mutex // serializes actual writes
	writes      int
	failures    int
	lastOutcome Outcome
}

// NewPersister creates a persister. Interval defaults to
// DefaultPersistInterval.
func NewPersister(cfg PersisterConfig) *Persister {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	return &Persister{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		mode:     cfg.Mode,
		interval: interval,
		snapshot: cfg.Snapshot,
		meta:     cfg.Meta,
	}
}

// Schedule requests a persist. If the interval since the last write has
// elapsed, the write happens now (asynchronously, off the capture path);
// otherwise a single deferred timer is armed for the remainder. Calling
// Schedule again while a timer is armed does nothing extra.
func (p *Persister) Schedule() {
	p.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(p.lastWrite)
	if elapsed >= p.interval {
		p.lastWrite = now
		p.mu.Unlock()
		go p.write()
		return
	}
	if p.timer == nil {
		p.timer = time.AfterFunc(p.interval-elapsed, p.fire)
	}
	p.mu.Unlock()
}

// Force cancels any pending timer and writes immediately, synchronously.
// Called after error-severity entries and before user-visible sends.
func (p *Persister) Force() {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.lastWrite = time.Now()
	p.mu.Unlock()

	p.write()
}

// fire runs when the deferred timer expires.
func (p *Persister) fire() {
	p.mu.Lock()
	p.timer = nil
	p.lastWrite = time.Now()
	p.mu.Unlock()

	p.write()
}

// write pushes the current snapshot and metadata to the configured
// backends. All errors are swallowed into the outcome.
func (p *Persister) write() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	entries := p.snapshot()
	meta := p.meta()

	var out Outcome
	switch p.mode {
	case ModeFallbackOnly:
		out.FallbackOK = p.writeTo(p.fallback, entries, meta)
	case ModeMirror:
		out.PrimaryOK = p.writeTo(p.primary, entries, meta)
		out.FallbackOK = p.writeTo(p.fallback, entries, meta)
	default:
		out.PrimaryOK = p.writeTo(p.primary, entries, meta)
	}

	p.writes++
	if !out.Landed() {
		p.failures++
	}
	p.lastOutcome = out
}

// writeTo persists both records to a single backend, reporting success.
func (p *Persister) writeTo(s Store, entries []entry.Entry, meta *session.Meta) bool {
	if s == nil {
		return false
	}
	ok := true
	if err := s.SaveSnapshot(entries); err != nil {
		ok = false
	}
	if meta != nil {
		if err := s.SaveMeta(meta); err != nil {
			ok = false
		}
	}
	return ok
}

// Stop cancels any pending deferred write.
func (p *Persister) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Writes returns the number of completed write attempts.
func (p *Persister) Writes() int {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.writes
}

// Failures returns the number of writes that reached no backend.
func (p *Persister) Failures() int {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.failures
}

// LastOutcome returns the outcome of the most recent write.
func (p *Persister) LastOutcome() Outcome {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.lastOutcome
}

// Mode returns the backend mode decided at startup.
func (p *Persister) Mode() Mode {
	return p.mode
}
