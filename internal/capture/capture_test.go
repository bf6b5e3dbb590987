// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/blackbox/internal/entry"
)

// memRecorder collects recorded entries.
type memRecorder struct {
	mu      sync.Mutex
	entries []entry.Entry
}

func (m *memRecorder) Record(e entry.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *memRecorder) all() []entry.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entry.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func TestLogHandlerRecords(t *testing.T) {
	rec := &memRecorder{}
	logger := slog.New(NewLogHandler(nil, rec))

	logger.Info("hello", "key", "value")
	logger.Warn("careful")
	logger.Error("boom", "err", "details")

	entries := rec.all()
	require.Len(t, entries, 3)
	assert.Equal(t, entry.TypeLog, entries[0].Type)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Contains(t, entries[0].Args, "key=value")
	assert.Equal(t, entry.TypeWarn, entries[1].Type)
	assert.Equal(t, entry.TypeError, entries[2].Type)
}

func TestLogHandlerDelegates(t *testing.T) {
	var buf testLogSink
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	rec := &memRecorder{}
	logger := slog.New(NewLogHandler(inner, rec))

	logger.Info("passed through")

	assert.Contains(t, buf.String(), "passed through", "wrapped handler must still receive the record")
	assert.Len(t, rec.all(), 1)
}

func TestLogHandlerCapturesAboveInnerThreshold(t *testing.T) {
	var buf testLogSink
	// Inner handler only wants errors.
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})
	rec := &memRecorder{}
	logger := slog.New(NewLogHandler(inner, rec))

	logger.Warn("quiet host, captured anyway")

	assert.NotContains(t, buf.String(), "captured anyway")
	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.TypeWarn, entries[0].Type)
}

func TestLogHandlerWithAttrs(t *testing.T) {
	rec := &memRecorder{}
	logger := slog.New(NewLogHandler(nil, rec)).With("component", "test")

	logger.Error("tagged")

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.TypeError, entries[0].Type)
}

type testLogSink struct {
	mu  sync.Mutex
	buf []byte
}

func (s *testLogSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *testLogSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buf)
}

func TestTransportRecordsStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &memRecorder{}
	client := &http.Client{Transport: NewTransport(nil, rec)}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err, "instrumentation must not change the call's outcome")
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.TypeRequestError, entries[0].Type)
	assert.Equal(t, http.StatusInternalServerError, entries[0].Status)
	assert.Equal(t, srv.URL, entries[0].URL)
}

func TestTransportRecordsTransportErrors(t *testing.T) {
	rec := &memRecorder{}
	client := &http.Client{Transport: NewTransport(nil, rec)}

	_, err := client.Get("http://127.0.0.1:1/unreachable")
	require.Error(t, err, "the original error must still propagate")

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.TypeRequestError, entries[0].Type)
	assert.NotEmpty(t, entries[0].Error)
}

func TestTransportIgnoresSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &memRecorder{}
	client := &http.Client{Transport: NewTransport(nil, rec)}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, rec.all())
}

func TestObserveRecordsPanicValue(t *testing.T) {
	rec := &memRecorder{}

	func() {
		defer func() {
			if r := recover(); r != nil {
				Observe(rec, r)
			}
		}()
		panic("deliberate")
	}()

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.TypePanic, entries[0].Type)
	assert.Equal(t, "deliberate", entries[0].Message)
	assert.NotEmpty(t, entries[0].Stack)
}

func TestReportError(t *testing.T) {
	rec := &memRecorder{}

	ReportError(rec, errors.New("it broke"))
	ReportError(rec, nil)

	entries := rec.all()
	require.Len(t, entries, 1, "nil errors are ignored")
	assert.Equal(t, entry.TypeError, entries[0].Type)
	assert.Equal(t, "it broke", entries[0].Error)
}

func TestReportResourceError(t *testing.T) {
	rec := &memRecorder{}

	ReportResourceError(rec, "assets/intro.ogg", "audio", context.DeadlineExceeded)

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.TypeResourceError, entries[0].Type)
	assert.Equal(t, "assets/intro.ogg", entries[0].URL)
	assert.Equal(t, "audio", entries[0].Tag)
}
