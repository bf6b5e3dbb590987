// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/blackbox/internal/entry"
	"github.com/wingedpig/blackbox/internal/session"
)

// countingStore records writes and can be made to fail.
type countingStore struct {
	mu        sync.Mutex
	snapshots int
	metas     int
	fail      bool
	last      []entry.Entry
}

func (c *countingStore) SaveSnapshot(entries []entry.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("store unavailable")
	}
	c.snapshots++
	c.last = entries
	return nil
}

func (c *countingStore) SaveMeta(meta *session.Meta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("store unavailable")
	}
	c.metas++
	return nil
}

func (c *countingStore) LoadSnapshot() ([]entry.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, nil
}

func (c *countingStore) LoadMeta() (*session.Meta, error) { return nil, nil }
func (c *countingStore) Clear() error                     { return nil }
func (c *countingStore) Close() error                     { return nil }

func (c *countingStore) snapshotCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots
}

func newTestPersister(primary, fallback Store, mode Mode, interval time.Duration) *Persister {
	meta := session.NewMeta("test", false)
	return NewPersister(PersisterConfig{
		Primary:  primary,
		Fallback: fallback,
		Mode:     mode,
		Interval: interval,
		Snapshot: func() []entry.Entry { return sampleEntries(2) },
		Meta:     func() *session.Meta { return meta },
	})
}

func TestPersisterThrottle(t *testing.T) {
	primary := &countingStore{}
	p := newTestPersister(primary, nil, ModePrimary, 100*time.Millisecond)
	defer p.Stop()

	// First call writes immediately (no prior write).
	p.Schedule()
	require.Eventually(t, func() bool { return primary.snapshotCount() == 1 }, time.Second, 5*time.Millisecond)

	// N calls inside the interval coalesce into exactly one deferred write.
	for i := 0; i < 10; i++ {
		p.Schedule()
	}
	assert.Equal(t, 1, primary.snapshotCount(), "writes inside the interval must be deferred")

	require.Eventually(t, func() bool { return primary.snapshotCount() == 2 }, time.Second, 5*time.Millisecond)

	// No further writes happen without new Schedule calls.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, primary.snapshotCount())
}

func TestPersisterForceImmediate(t *testing.T) {
	primary := &countingStore{}
	p := newTestPersister(primary, nil, ModePrimary, time.Hour)
	defer p.Stop()

	p.Schedule() // immediate (first write)
	require.Eventually(t, func() bool { return primary.snapshotCount() == 1 }, time.Second, 5*time.Millisecond)

	p.Schedule() // arms a one-hour timer
	p.Force()    // cancels it and writes now
	assert.Equal(t, 2, primary.snapshotCount())

	// The cancelled timer must not fire later.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, primary.snapshotCount())
}

func TestPersisterMirrorMode(t *testing.T) {
	primary := &countingStore{}
	fallback := &countingStore{}
	p := newTestPersister(primary, fallback, ModeMirror, 10*time.Millisecond)
	defer p.Stop()

	p.Force()

	assert.Equal(t, 1, primary.snapshotCount())
	assert.Equal(t, 1, fallback.snapshotCount())
	out := p.LastOutcome()
	assert.True(t, out.PrimaryOK)
	assert.True(t, out.FallbackOK)
}

func TestPersisterFallbackOnly(t *testing.T) {
	fallback := &countingStore{}
	p := newTestPersister(nil, fallback, ModeFallbackOnly, 10*time.Millisecond)
	defer p.Stop()

	p.Force()

	assert.Equal(t, 1, fallback.snapshotCount())
	out := p.LastOutcome()
	assert.False(t, out.PrimaryOK)
	assert.True(t, out.FallbackOK)
}

func TestPersisterSwallowsFailures(t *testing.T) {
	primary := &countingStore{fail: true}
	p := newTestPersister(primary, nil, ModePrimary, 10*time.Millisecond)
	defer p.Stop()

	// Must not panic or propagate anything.
	p.Force()
	p.Force()

	assert.Equal(t, 2, p.Failures())
	assert.False(t, p.LastOutcome().Landed())
}

func TestPersisterMirrorPartialFailure(t *testing.T) {
	primary := &countingStore{fail: true}
	fallback := &countingStore{}
	p := newTestPersister(primary, fallback, ModeMirror, 10*time.Millisecond)
	defer p.Stop()

	p.Force()

	out := p.LastOutcome()
	assert.False(t, out.PrimaryOK)
	assert.True(t, out.FallbackOK)
	assert.True(t, out.Landed())
	assert.Equal(t, 0, p.Failures(), "a write that lands somewhere is not a failure")
}
