// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api provides the HTTP surface of the ingest server: the report
// endpoints that instrumented applications upload to, and a small
// management API over the stored bundles.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wingedpig/blackbox/internal/api/handlers"
	"github.com/wingedpig/blackbox/internal/api/middleware"
	"github.com/wingedpig/blackbox/internal/ingest"
)

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Store   *ingest.Store
	Hub     *ingest.Hub
	Version string // Application version string
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)

	// Ingest endpoints. /beacon is the same handler on a separate path
	// so teardown traffic is distinguishable in access logs.
	reportHandler := handlers.NewReportHandler(deps.Store)
	r.HandleFunc("/report", reportHandler.Receive).Methods("POST")
	r.HandleFunc("/beacon", reportHandler.Receive).Methods("POST")

	// Management API
	apiV1 := r.PathPrefix("/api/v1").Subrouter()

	bundlesHandler := handlers.NewBundlesHandler(deps.Store)
	apiV1.HandleFunc("/bundles", bundlesHandler.List).Methods("GET")
	apiV1.HandleFunc("/bundles", bundlesHandler.Clear).Methods("DELETE")
	apiV1.HandleFunc("/bundles/newest", bundlesHandler.Newest).Methods("GET")

	feedHandler := handlers.NewFeedHandler(deps.Hub)
	apiV1.HandleFunc("/bundles/ws", feedHandler.WebSocket).Methods("GET")

	apiV1.HandleFunc("/bundles/{id}", bundlesHandler.Get).Methods("GET")
	apiV1.HandleFunc("/bundles/{id}", bundlesHandler.Delete).Methods("DELETE")

	// Health check
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": deps.Version,
		})
	}).Methods("GET")

	return r
}
