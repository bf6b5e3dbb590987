// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package recovery inspects the previous session's persisted state at
// startup, classifies it as clean exit or crash, and uploads a crash
// bundle when warranted.
package recovery

import (
	"log"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/report"
	"github.com/wingedpig/blackbox/internal/session"
	"github.com/wingedpig/blackbox/internal/store"
)

// Classification is the outcome of inspecting the prior session.
type Classification string

const (
	// ClassNone means no prior record exists: first boot, or already
	// cleared. This is the common case.
	ClassNone Classification = "none"
	// ClassCleanDiscard means the prior session shut down cleanly with no
	// error entries; its record is discarded without an upload to avoid
	// reporting every ordinary exit.
	ClassCleanDiscard Classification = "clean-discard"
	// ClassCleanWithErrors means the session shut down cleanly but
	// captured error entries, which are still worth uploading.
	ClassCleanWithErrors Classification = "clean-with-errors"
	// ClassCrash means the session never reached the orderly shutdown.
	ClassCrash Classification = "crash"
)

// Uploader sends a crash bundle to the report endpoint.
type Uploader interface {
	UploadBundle(report.Bundle) error
}

// Result describes what the engine found and did.
type Result struct {
	Classification Classification
	SessionID      string
	EntryCount     int
	// Source names the backend the record was recovered from.
	Source string
	// Uploaded is true when the bundle reached the endpoint.
	Uploaded bool
	// UploadErr holds the delivery failure, if any. The persisted record
	// is left intact in that case so the next boot retries.
	UploadErr error
}

// Engine reads the previous session's durable state. It is a read-once,
// then read-and-delete consumer: it runs before the new session's capture
// begins and never sees its own session's data.
type Engine struct {
	primary  store.Store // nil when the primary store failed to open
	fallback store.Store
	uploader Uploader
}

// NewEngine creates a recovery engine over the available backends.
func NewEngine(primary, fallback store.Store, uploader Uploader) *Engine {
	return &Engine{primary: primary, fallback: fallback, uploader: uploader}
}

// candidate is one backend's view of the prior session.
type candidate struct {
	name    string
	store   store.Store
	entries []entry.Entry
	meta    *session.Meta
}

func (c *candidate) populated() bool {
	return c.meta != nil || len(c.entries) > 0
}

// Run executes the recovery pass. It never fails the caller's boot: read
// errors degrade to "nothing recovered".
func (e *Engine) Run() *Result {
	best := e.pick()
	if best == nil {
		return &Result{Classification: ClassNone}
	}

	result := &Result{
		EntryCount: len(best.entries),
		Source:     best.name,
	}
	if best.meta != nil {
		result.SessionID = best.meta.SessionID
	}

	crash := best.meta == nil || !best.meta.Clean
	hasErrors := false
	for _, en := range best.entries {
		if en.Type.IsError() {
			hasErrors = true
			break
		}
	}

	if !crash && !hasErrors {
		// Ordinary exit: discard without uploading.
		result.Classification = ClassCleanDiscard
		e.clearAll()
		return result
	}

	if crash {
		result.Classification = ClassCrash
	} else {
		result.Classification = ClassCleanWithErrors
	}

	bundle := report.NewBundle(report.PayloadCrashBundle, best.meta, best.entries)
	if err := e.uploader.UploadBundle(bundle); err != nil {
		// Leave the record for the next boot to retry.
		result.UploadErr = err
		log.Printf("blackbox: recovery upload failed, keeping record: %v", err)
		return result
	}

	result.Uploaded = true
	e.clearAll()
	return result
}

// pick loads both backends and selects the more complete record: greater
// entry count wins, ties resolve toward the primary backend. This is a
// completeness heuristic, not a recency comparison: a crash can truncate
// one write path but not the other.
func (e *Engine) pick() *candidate {
	var candidates []*candidate
	if e.primary != nil {
		candidates = append(candidates, e.load("primary", e.primary))
	}
	if e.fallback != nil {
		candidates = append(candidates, e.load("fallback", e.fallback))
	}

	var best *candidate
	for _, c := range candidates {
		if !c.populated() {
			continue
		}
		if best == nil || len(c.entries) > len(best.entries) {
			best = c
		}
	}
	return best
}

// load reads one backend, swallowing errors into an empty candidate.
func (e *Engine) load(name string, s store.Store) *candidate {
	c := &candidate{name: name, store: s}

	entries, err := s.LoadSnapshot()
	if err == nil {
		c.entries = entries
	}
	meta, err := s.LoadMeta()
	if err == nil {
		c.meta = meta
	}
	return c
}

// clearAll removes the prior session's records from every backend, so a
// record recovered from one store is not re-processed from the other on
// the following boot.
func (e *Engine) clearAll() {
	if e.primary != nil {
		e.primary.Clear()
	}
	if e.fallback != nil {
		e.fallback.Clear()
	}
}
