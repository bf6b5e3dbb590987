// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/blackbox/internal/config"
)

func TestAppRunAndShutdown(t *testing.T) {
	cfg := config.DefaultServer()
	cfg.Port = 0 // ephemeral
	cfg.ReportsDir = t.TempDir()

	a, err := New(cfg, "test")
	require.NoError(t, err)
	require.NotNil(t, a.Store())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Give the listener a moment, then ask for shutdown.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAppRejectsHalfTLSConfig(t *testing.T) {
	cfg := config.DefaultServer()
	cfg.ReportsDir = t.TempDir()
	cfg.TLSCert = "/does/not/matter.pem"

	_, err := New(cfg, "test")
	require.Error(t, err)
}
