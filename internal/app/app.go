// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the ingest server together: bundle store, file
// watcher, notification hub, and the HTTP API.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/blackbox/internal/api"
	"github.com/wingedpig/blackbox/internal/config"
	"github.com/wingedpig/blackbox/internal/ingest"
)

// App is the ingest server application.
type App struct {
	config  *config.ServerConfig
	version string

	store     *ingest.Store
	hub       *ingest.Hub
	watcher   *ingest.Watcher
	apiServer *http.Server
	useTLS    bool
}

// New creates the application from a server configuration.
func New(cfg *config.ServerConfig, version string) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultServer()
	}

	store, err := ingest.NewStore(ingest.Config{
		ReportsDir: cfg.ReportsDir,
		MaxAge:     config.ParseDuration(cfg.MaxAge, 7*24*time.Hour),
		MaxCount:   cfg.MaxCount,
	})
	if err != nil {
		return nil, fmt.Errorf("app: create store: %w", err)
	}

	hub := ingest.NewHub()

	watcher, err := ingest.NewWatcher(store, hub,
		config.ParseDuration(cfg.Debounce, 100*time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("app: create watcher: %w", err)
	}

	useTLS, err := api.CheckTLSConfig(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	router := api.NewRouter(api.Dependencies{
		Store:   store,
		Hub:     hub,
		Version: version,
	})

	return &App{
		config:  cfg,
		version: version,
		store:   store,
		hub:     hub,
		watcher: watcher,
		apiServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: router,
		},
		useTLS: useTLS,
	}, nil
}

// Store returns the bundle store.
func (a *App) Store() *ingest.Store {
	return a.store
}

// Run starts the server and blocks until ctx is cancelled or the server
// fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheme := "http"
		if a.useTLS {
			scheme = "https"
		}
		log.Printf("Starting ingest server on %s://%s", scheme, a.apiServer.Addr)

		var err error
		if a.useTLS {
			err = a.apiServer.ListenAndServeTLS(
				api.ExpandPath(a.config.TLSCert), api.ExpandPath(a.config.TLSKey))
		} else {
			err = a.apiServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("API server shutdown: %v", err)
	}

	return a.watcher.Close()
}
