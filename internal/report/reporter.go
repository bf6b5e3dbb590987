// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wingedpig/blackbox/internal/ring"
	"github.com/wingedpig/blackbox/internal/session"
)

// Defaults for the reporter's delivery cadence and transports.
const (
	DefaultFlushInterval = 3 * time.Second
	DefaultTeardownTail  = 50
	DefaultTimeout       = 10 * time.Second
	DefaultBeaconTimeout = 2 * time.Second
)

// ReporterConfig holds the parameters for a Reporter.
type ReporterConfig struct {
	Buffer *ring.Buffer
	// Meta supplies current session metadata at send time.
	Meta func() *session.Meta

	Endpoint          string
	BeaconEndpoint    string // falls back to Endpoint when empty
	SecondaryEndpoint string // optional out-of-band crash notification

	FlushInterval  time.Duration
	TeardownTail   int
	MaxBundleBytes int
	Timeout        time.Duration
	BeaconTimeout  time.Duration

	// SpoolDir receives local bundle dumps when uploads cannot complete.
	SpoolDir string

	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// Reporter delivers entries over two independent best-effort paths: a
// periodic live flush of the pending queue, and a final teardown flush of
// the recent tail using a short-timeout fire-and-forget request. It also
// performs crash bundle uploads for the recovery engine and manual sends.
type Reporter struct {
	buffer *ring.Buffer
	meta   func() *session.Meta

	endpoint          string
	beaconEndpoint    string
	secondaryEndpoint string

	flushInterval  time.Duration
	teardownTail   int
	maxBundleBytes int
	spoolDir       string

	client       *http.Client
	beaconClient *http.Client

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewReporter creates a reporter.
func NewReporter(cfg ReporterConfig) *Reporter {
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	tail := cfg.TeardownTail
	if tail <= 0 {
		tail = DefaultTeardownTail
	}
	maxBytes := cfg.MaxBundleBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBundleBytes
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	beaconTimeout := cfg.BeaconTimeout
	if beaconTimeout <= 0 {
		beaconTimeout = DefaultBeaconTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Reporter{
		buffer:            cfg.Buffer,
		meta:              cfg.Meta,
		endpoint:          cfg.Endpoint,
		beaconEndpoint:    cfg.BeaconEndpoint,
		secondaryEndpoint: cfg.SecondaryEndpoint,
		flushInterval:     flushInterval,
		teardownTail:      tail,
		maxBundleBytes:    maxBytes,
		spoolDir:          cfg.SpoolDir,
		client:            client,
		beaconClient:      &http.Client{Timeout: beaconTimeout},
		stopCh:            make(chan struct{}),
	}
}

// Start begins the live flush loop.
func (r *Reporter) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.Flush()
			}
		}
	}()
}

// Flush drains the pending queue and posts it as a live batch. On failure
// the batch is pushed back onto the front of the queue for the next tick,
// without duplicating entries that arrived in the meantime.
func (r *Reporter) Flush() {
	batch := r.buffer.DrainPending()
	if len(batch) == 0 {
		return
	}

	payload := Bundle{
		Type:      PayloadLive,
		SessionID: r.sessionID(),
		Entries:   batch,
	}
	data, err := payload.MarshalCapped(r.maxBundleBytes)
	if err != nil {
		// Unserializable batch: drop it rather than wedging the queue.
		return
	}

	if err := r.post(r.client, r.endpoint, data); err != nil {
		r.buffer.Requeue(batch)
	}
}

// TeardownFlush sends a bounded tail of recent entries during process
// termination. The beacon transport is a short-timeout request expected to
// complete during teardown; when no beacon endpoint is configured, a
// keep-alive request to the main endpoint is used instead. Failures are
// silently accepted; durable-storage recovery on the next boot does not
// depend on this path.
func (r *Reporter) TeardownFlush() {
	tail := r.buffer.Tail(r.teardownTail)
	if len(tail) == 0 {
		return
	}

	payload := NewBundle(PayloadLive, r.meta(), tail)
	data, err := payload.MarshalCapped(r.maxBundleBytes)
	if err != nil {
		return
	}

	if r.beaconEndpoint != "" {
		r.post(r.beaconClient, r.beaconEndpoint, data)
		return
	}
	r.post(r.beaconClient, r.endpoint, data)
}

// UploadBundle posts a size-capped bundle to the report endpoint. The
// optional secondary endpoint receives an entry-free copy of crash bundles
// as an out-of-band notification, best-effort.
func (r *Reporter) UploadBundle(b Bundle) error {
	data, err := b.MarshalCapped(r.maxBundleBytes)
	if err != nil {
		return err
	}

	if b.Type == PayloadCrashBundle && r.secondaryEndpoint != "" {
		notice := b
		notice.Entries = nil
		if noticeData, err := notice.MarshalCapped(r.maxBundleBytes); err == nil {
			r.post(r.beaconClient, r.secondaryEndpoint, noticeData)
		}
	}

	if err := r.post(r.client, r.endpoint, data); err != nil {
		return fmt.Errorf("upload bundle: %w", err)
	}
	return nil
}

// SendBundle uploads a bundle for a user-visible send. When the upload
// fails (including size-cap exhaustion), the bundle is written to the
// local spool and its path returned so the operator can retrieve it.
func (r *Reporter) SendBundle(b Bundle) (string, error) {
	uploadErr := r.UploadBundle(b)
	if uploadErr == nil {
		return "", nil
	}

	path, dumpErr := r.WriteLocal(b)
	if dumpErr != nil {
		return "", fmt.Errorf("%w (local dump also failed: %v)", uploadErr, dumpErr)
	}
	return path, uploadErr
}

// WriteLocal dumps a bundle to the spool directory, uncapped.
func (r *Reporter) WriteLocal(b Bundle) (string, error) {
	if r.spoolDir == "" {
		return "", fmt.Errorf("no spool directory configured")
	}
	if err := os.MkdirAll(r.spoolDir, 0755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	data, err := b.MarshalCapped(1 << 30)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("bundle-%s-%s.json", b.SessionID, time.Now().Format("20060102-150405.000"))
	path := filepath.Join(r.spoolDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write spool file: %w", err)
	}
	return path, nil
}

// Stop halts the flush loop. A final Flush is attempted so entries pending
// at shutdown get one last delivery chance.
func (r *Reporter) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	r.Flush()
}

func (r *Reporter) sessionID() string {
	if m := r.meta(); m != nil {
		return m.SessionID
	}
	return ""
}

// post sends one JSON payload. Non-2xx statuses are errors so callers can
// requeue or retry on the next boot.
func (r *Reporter) post(client *http.Client, url string, data []byte) error {
	if url == "" {
		return fmt.Errorf("no endpoint configured")
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("report endpoint returned %d", resp.StatusCode)
	}
	return nil
}
