// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package pipeline assembles the capture components into a running
// instance: ring buffer, dual-backend persister, session tracker, network
// reporter, and the boot-time recovery pass. Hosts normally reach it
// through pkg/blackbox rather than directly.
package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/wingedpig/blackbox/internal/config"
	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/recovery"
	"github.com/wingedpig/blackbox/internal/report"
	"github.com/wingedpig/blackbox/internal/ring"
	"github.com/wingedpig/blackbox/internal/session"
	"github.com/wingedpig/blackbox/internal/store"
)

const (
	dbFileName  = "blackbox.db"
	fallbackDir = "fallback"
	spoolDir    = "spool"
)

// Pipeline owns every capture component for one session. A disabled
// configuration yields an inert pipeline whose methods all no-op, so
// hosts can wire capture calls unconditionally.
type Pipeline struct {
	enabled bool
	cfg     *config.Config

	buffer    *ring.Buffer
	primary   store.Store // nil when the primary backend failed to open
	fallback  store.Store
	persister *store.Persister
	tracker   *session.Tracker
	reporter  *report.Reporter

	recovered *recovery.Result

	sigStop func()
}

// New builds a pipeline from cfg. Recovery of the previous session's
// record runs here, before any capture begins, so the engine never sees
// the new session's data. The returned pipeline is not yet capturing;
// call Start.
func New(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if !cfg.Enabled {
		return &Pipeline{cfg: cfg}, nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create data dir: %w", err)
	}

	fb, err := store.NewFileStore(filepath.Join(cfg.DataDir, fallbackDir))
	if err != nil {
		return nil, fmt.Errorf("pipeline: open fallback store: %w", err)
	}

	// The primary backend failing to open is survivable: persistence
	// drops to fallback-only for the whole session. The decision is made
	// once, here, not retried per write.
	mode := store.ModePrimary
	if cfg.Standalone {
		mode = store.ModeMirror
	}
	var primary store.Store
	sq, err := store.OpenSQLite(filepath.Join(cfg.DataDir, dbFileName))
	if err != nil {
		log.Printf("blackbox: primary store unavailable, using fallback only: %v", err)
		mode = store.ModeFallbackOnly
	} else {
		primary = sq
	}

	p := &Pipeline{
		enabled:  true,
		cfg:      cfg,
		primary:  primary,
		fallback: fb,
	}

	p.buffer = ring.NewBuffer(
		cfg.Buffer.MaxEntries,
		config.ParseDuration(cfg.Buffer.MaxAge, ring.DefaultMaxAge),
	)

	p.reporter = report.NewReporter(report.ReporterConfig{
		Buffer:            p.buffer,
		Meta:              p.metaCopy,
		Endpoint:          cfg.Endpoint,
		BeaconEndpoint:    cfg.BeaconEndpoint,
		SecondaryEndpoint: cfg.SecondaryEndpoint,
		FlushInterval:     config.ParseDuration(cfg.Report.FlushInterval, report.DefaultFlushInterval),
		TeardownTail:      cfg.Report.TeardownTail,
		MaxBundleBytes:    cfg.Report.MaxBundleBytes,
		Timeout:           config.ParseDuration(cfg.Report.Timeout, report.DefaultTimeout),
		BeaconTimeout:     config.ParseDuration(cfg.Report.BeaconTimeout, report.DefaultBeaconTimeout),
		SpoolDir:          filepath.Join(cfg.DataDir, spoolDir),
	})

	p.recovered = recovery.NewEngine(primary, fb, p.reporter).Run()
	if p.recovered.Classification != recovery.ClassNone {
		log.Printf("blackbox: recovered prior session %s: %s (%d entries from %s)",
			p.recovered.SessionID, p.recovered.Classification,
			p.recovered.EntryCount, p.recovered.Source)
	}

	p.persister = store.NewPersister(store.PersisterConfig{
		Primary:  primary,
		Fallback: fb,
		Mode:     mode,
		Interval: config.ParseDuration(cfg.Persist.Interval, store.DefaultPersistInterval),
		Snapshot: p.buffer.Snapshot,
		Meta:     p.metaCopy,
	})

	p.tracker = session.NewTracker(session.TrackerConfig{
		Meta:      session.NewMeta(cfg.AppVersion, cfg.Standalone),
		Buffer:    p.buffer,
		Persister: p.persister,
		Flusher:   p.reporter,
		Interval:  config.ParseDuration(cfg.Heartbeat.Interval, session.DefaultHeartbeatInterval),
	})

	return p, nil
}

// metaCopy supplies the current session metadata to the persister and
// reporter. It is safe before Start (the tracker exists once New
// returns) and on the inert pipeline.
func (p *Pipeline) metaCopy() *session.Meta {
	if p.tracker == nil {
		return nil
	}
	return p.tracker.MetaCopy()
}

// Start begins capture: session start entry, heartbeat loop, live flush
// loop, and the process signal handlers.
func (p *Pipeline) Start() {
	if !p.enabled {
		return
	}
	p.tracker.Start()
	p.reporter.Start()
	p.sigStop = p.installSignals()
}

// Record accepts a captured entry. Error-severity entries force an
// immediate persist so they are durable before any crash that follows;
// the write itself runs off the caller's goroutine, so recording never
// blocks.
func (p *Pipeline) Record(e entry.Entry) {
	if !p.enabled {
		return
	}
	p.buffer.Push(entry.Clip(e))
	if e.Type.IsError() {
		go p.persister.Force()
		return
	}
	p.persister.Schedule()
}

// Shutdown performs the orderly end-of-session sequence: session-end
// entry, clean flag, forced persist, teardown flush. Idempotent.
func (p *Pipeline) Shutdown() {
	if !p.enabled {
		return
	}
	p.tracker.Shutdown()
}

// Suspend runs the orderly shutdown without ending the process, for
// hosts that can be stopped and later continued.
func (p *Pipeline) Suspend() {
	if !p.enabled {
		return
	}
	p.tracker.Shutdown()
}

// Resume re-arms capture after a Suspend: the session is marked dirty
// again and the next Suspend or Shutdown will fire the full sequence.
func (p *Pipeline) Resume() {
	if !p.enabled {
		return
	}
	p.tracker.Resume()
}

// SendNow packages the current buffer into a debug bundle and uploads
// it, spooling locally on failure. It returns the spool path when the
// upload could not complete.
func (p *Pipeline) SendNow() (string, error) {
	if !p.enabled {
		return "", fmt.Errorf("pipeline: disabled")
	}
	p.persister.Force()
	b := report.NewBundle(report.PayloadDebugBundle, p.metaCopy(), p.buffer.Snapshot())
	return p.reporter.SendBundle(b)
}

// Recovery reports what the boot-time pass found. Nil on a disabled
// pipeline.
func (p *Pipeline) Recovery() *recovery.Result {
	return p.recovered
}

// Enabled reports whether the pipeline is live.
func (p *Pipeline) Enabled() bool {
	return p.enabled
}

// Close stops every component. It performs the orderly shutdown first,
// so closing a live pipeline counts as a clean exit.
func (p *Pipeline) Close() error {
	if !p.enabled {
		return nil
	}
	if p.sigStop != nil {
		p.sigStop()
	}
	p.tracker.Shutdown()
	p.tracker.Stop()
	p.reporter.Stop()
	p.persister.Stop()
	if p.primary != nil {
		if err := p.primary.Close(); err != nil {
			log.Printf("blackbox: close primary store: %v", err)
		}
	}
	return p.fallback.Close()
}
