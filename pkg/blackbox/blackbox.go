// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package blackbox provides best-effort crash capture for Go applications.
//
// Blackbox keeps a bounded ring buffer of recent diagnostic entries (logs,
// errors, panics, failed requests), persists it to local storage on a
// throttled schedule, and on the next start after a crash uploads the
// captured entries as a crash bundle to a report endpoint. Clean exits are
// detected and discarded without an upload.
//
// # Getting Started
//
// Enable capture once, early in main, and close it on the way out:
//
//	err := blackbox.Enable(
//	    blackbox.WithEndpoint("https://reports.example.com/report"),
//	    blackbox.WithAppVersion(version),
//	)
//	if err != nil {
//	    log.Printf("blackbox: %v", err)
//	}
//	defer blackbox.Close()
//
// Then route diagnostics through the capture wrappers:
//
//	slog.SetDefault(slog.New(blackbox.LogHandler(slog.Default().Handler())))
//	httpClient.Transport = blackbox.Transport(httpClient.Transport)
//
// Panics on goroutines the application spawns itself are captured with
// [Go], and panics recovered by the application's own handlers are
// recorded with [Observe]:
//
//	blackbox.Go(func() { worker.Run() })
//
// # Configuration
//
// Options override a config file loaded with [WithConfigFile] (HJSON or
// JSON). Without a config file, [Enable] turns capture on directly; with
// one, the file's enabled flag decides, and setting the BLACKBOX
// environment variable to 1 opts in regardless.
//
// Every capture call is a no-op when blackbox is disabled, so call sites
// never need to guard on [Enabled].
package blackbox

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/wingedpig/blackbox/internal/capture"
	"github.com/wingedpig/blackbox/internal/config"
	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/pipeline"
	"github.com/wingedpig/blackbox/internal/recovery"
)

var (
	mu     sync.Mutex
	active *pipeline.Pipeline
)

// Option configures capture. Options are passed to [Enable] and apply on
// top of any loaded config file.
type Option func(*settings) error

type settings struct {
	cfg        *config.Config
	fromFile   bool
	forceOn    bool
	disableOff bool
}

// WithConfigFile loads configuration from an HJSON or JSON file. The
// file's enabled flag controls whether capture actually starts.
func WithConfigFile(path string) Option {
	return func(s *settings) error {
		cfg, err := config.NewLoader().LoadWithDefaults(path)
		if err != nil {
			return err
		}
		s.cfg = cfg
		s.fromFile = true
		return nil
	}
}

// WithEndpoint sets the report endpoint that receives live batches and
// crash bundles.
func WithEndpoint(url string) Option {
	return func(s *settings) error {
		s.cfg.Endpoint = url
		return nil
	}
}

// WithBeaconEndpoint sets the endpoint for the short-timeout teardown
// flush. Defaults to the report endpoint.
func WithBeaconEndpoint(url string) Option {
	return func(s *settings) error {
		s.cfg.BeaconEndpoint = url
		return nil
	}
}

// WithSecondaryEndpoint sets an endpoint that receives an entry-free
// crash notification in addition to the bundle upload.
func WithSecondaryEndpoint(url string) Option {
	return func(s *settings) error {
		s.cfg.SecondaryEndpoint = url
		return nil
	}
}

// WithDataDir sets the directory for durable stores and the local bundle
// spool. Defaults to ".blackbox".
func WithDataDir(dir string) Option {
	return func(s *settings) error {
		s.cfg.DataDir = dir
		return nil
	}
}

// WithAppVersion records the application version in session metadata and
// uploaded bundles.
func WithAppVersion(v string) Option {
	return func(s *settings) error {
		s.cfg.AppVersion = v
		return nil
	}
}

// WithStandalone marks a standalone execution context, which is more
// prone to abrupt termination. Persistence mirrors every write to both
// backends.
func WithStandalone() Option {
	return func(s *settings) error {
		s.cfg.Standalone = true
		return nil
	}
}

// Enable starts capture. It is idempotent: enabling while already enabled
// returns nil without building a second pipeline. Boot-time recovery of a
// previous crashed session runs inside this call, before any new capture
// begins.
func Enable(opts ...Option) error {
	mu.Lock()
	defer mu.Unlock()

	if active != nil && active.Enabled() {
		return nil
	}

	s := &settings{cfg: config.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return fmt.Errorf("blackbox: %w", err)
		}
	}
	// A bare Enable means on. A config file keeps its own say, with the
	// environment opt-in already folded in by the loader.
	if !s.fromFile {
		s.cfg.Enabled = true
	}
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("blackbox: %w", err)
	}

	p, err := pipeline.New(s.cfg)
	if err != nil {
		return fmt.Errorf("blackbox: %w", err)
	}
	p.Start()
	active = p
	return nil
}

// Close performs the orderly shutdown and releases every resource. Safe
// to call when capture was never enabled.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if active == nil {
		return nil
	}
	err := active.Close()
	active = nil
	return err
}

// Enabled reports whether capture is currently running.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return active != nil && active.Enabled()
}

// current returns the live pipeline, or nil.
func current() *pipeline.Pipeline {
	mu.Lock()
	defer mu.Unlock()
	return active
}

// recorder adapts the active pipeline to the capture interfaces. Capture
// through a stale recorder after Close degrades to a no-op.
type recorder struct{}

func (recorder) Record(e entry.Entry) {
	if p := current(); p != nil {
		p.Record(e)
	}
}

// LogHandler wraps an slog.Handler so that records are captured in
// addition to reaching the wrapped handler. Pass nil to capture only.
func LogHandler(inner slog.Handler) slog.Handler {
	return capture.NewLogHandler(inner, recorder{})
}

// Transport wraps an http.RoundTripper so failed requests are captured.
// Pass nil to wrap http.DefaultTransport.
func Transport(inner http.RoundTripper) http.RoundTripper {
	return capture.NewTransport(inner, recorder{})
}

// Go runs fn on a new goroutine, capturing a panic with its stack before
// letting it crash the process as usual.
func Go(fn func()) {
	capture.Go(recorder{}, fn)
}

// Observe records a recovered panic value. Call it from recover blocks
// that swallow the panic.
func Observe(recovered any) {
	capture.Observe(recorder{}, recovered)
}

// ReportError records an application-surfaced error.
func ReportError(err error) {
	capture.ReportError(recorder{}, err)
}

// ReportResourceError records a failed resource load.
func ReportResourceError(url, tag string, err error) {
	capture.ReportResourceError(recorder{}, url, tag, err)
}

// SendNow uploads the current buffer as a debug bundle, spooling locally
// on failure. The returned path is the spool file when the upload could
// not complete.
func SendNow() (string, error) {
	p := current()
	if p == nil {
		return "", fmt.Errorf("blackbox: not enabled")
	}
	return p.SendNow()
}

// Suspend runs the orderly end-of-session sequence without stopping the
// process. Capture resumes with [Resume].
func Suspend() {
	if p := current(); p != nil {
		p.Suspend()
	}
}

// Resume re-arms capture after [Suspend].
func Resume() {
	if p := current(); p != nil {
		p.Resume()
	}
}

// Recovery reports what the boot-time pass found, or nil when capture is
// not enabled.
func Recovery() *recovery.Result {
	p := current()
	if p == nil {
		return nil
	}
	return p.Recovery()
}

// DebugHandler returns the debug control surface for mounting on a local
// admin port, or nil when capture is not enabled.
func DebugHandler() http.Handler {
	p := current()
	if p == nil {
		return nil
	}
	return p.DebugHandler()
}
