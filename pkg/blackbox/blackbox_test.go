// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package blackbox

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The facade holds package-level state, so these tests run the full
// enable/use/close cycle sequentially within each test.

func startSink(t *testing.T) (*httptest.Server, func() int) {
	t.Helper()
	var mu sync.Mutex
	count := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		mu.Lock()
		count++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() int {
		mu.Lock()
		defer mu.Unlock()
		return count
	}
}

func TestEnableAndClose(t *testing.T) {
	srv, _ := startSink(t)

	require.NoError(t, Enable(
		WithEndpoint(srv.URL),
		WithDataDir(t.TempDir()),
		WithAppVersion("test"),
	))
	assert.True(t, Enabled())

	// Second Enable is a no-op, not an error.
	require.NoError(t, Enable(WithEndpoint(srv.URL), WithDataDir(t.TempDir())))

	require.NoError(t, Close())
	assert.False(t, Enabled())
}

func TestEnableRequiresEndpoint(t *testing.T) {
	err := Enable(WithDataDir(t.TempDir()))
	require.Error(t, err)
	assert.False(t, Enabled())
}

func TestCaptureBeforeEnableIsNoop(t *testing.T) {
	ReportError(errors.New("goes nowhere"))
	Observe("recovered value")
	Suspend()
	Resume()
	assert.Nil(t, Recovery())
	assert.Nil(t, DebugHandler())
	_, err := SendNow()
	assert.Error(t, err)
}

func TestSendNowDelivers(t *testing.T) {
	srv, received := startSink(t)

	require.NoError(t, Enable(
		WithEndpoint(srv.URL),
		WithDataDir(t.TempDir()),
	))
	defer Close()

	ReportError(errors.New("captured"))
	_, err := SendNow()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, received(), 1)
}

func TestRecoveryAvailableAfterEnable(t *testing.T) {
	srv, _ := startSink(t)

	require.NoError(t, Enable(
		WithEndpoint(srv.URL),
		WithDataDir(t.TempDir()),
	))
	defer Close()

	require.NotNil(t, Recovery())
}
