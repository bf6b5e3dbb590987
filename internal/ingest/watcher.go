// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounceDuration = 100 * time.Millisecond

// Watcher watches the reports directory and broadcasts a summary for
// every record that lands there, whether through the ingest handlers or
// copied in out-of-band (a host's local spool dump, for instance).
type Watcher struct {
	store     *Store
	hub       *Hub
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewWatcher creates a watcher over the store's directory and starts
// processing events.
func NewWatcher(store *Store, hub *Hub, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fsWatcher.Add(store.Dir()); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch reports directory: %w", err)
	}

	w := &Watcher{
		store:     store,
		hub:       hub,
		watcher:   fsWatcher,
		debouncer: newDebouncer(debounce),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// processEvents handles fsnotify events until Close.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			// Debounce per file: a record is written in one WriteFile
			// call but can still produce several events.
			name := filepath.Base(event.Name)
			w.debouncer.debounce(name, func() {
				w.announce(name)
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ingest watcher error: %v", err)
		}
	}
}

// announce loads the record behind a filename and broadcasts it.
func (w *Watcher) announce(filename string) {
	rec, err := w.store.loadRecord(filename)
	if err != nil {
		// Partial write or already cleaned up.
		return
	}
	w.hub.Broadcast(summarize(rec))
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.closeCh)
	err := w.watcher.Close()
	w.wg.Wait()
	w.debouncer.stop()
	return err
}

// debouncer coalesces bursts of per-key calls into one.
type debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	timers   map[string]*time.Timer
}

func newDebouncer(duration time.Duration) *debouncer {
	if duration <= 0 {
		duration = defaultDebounceDuration
	}
	return &debouncer{
		duration: duration,
		timers:   make(map[string]*time.Timer),
	}
}

func (d *debouncer) debounce(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.timers[key]; exists {
		timer.Stop()
	}

	d.timers[key] = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
