// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wingedpig/blackbox/internal/ingest"
)

// BundlesHandler handles stored-bundle API requests.
type BundlesHandler struct {
	store *ingest.Store
}

// NewBundlesHandler creates a new bundles handler.
func NewBundlesHandler(store *ingest.Store) *BundlesHandler {
	return &BundlesHandler{store: store}
}

// List returns all stored bundles, newest first.
// GET /api/v1/bundles
func (h *BundlesHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrStoreError, "failed to list bundles: "+err.Error())
		return
	}
	if summaries == nil {
		summaries = []ingest.Summary{}
	}
	WriteJSON(w, http.StatusOK, summaries)
}

// Get returns a specific bundle by ID.
// GET /api/v1/bundles/{id}
func (h *BundlesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.store.Get(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, ErrNotFound, "bundle not found: "+id)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Newest returns the most recent bundle.
// GET /api/v1/bundles/newest
func (h *BundlesHandler) Newest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Newest()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrStoreError, "failed to get newest bundle: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Delete removes a bundle by ID.
// DELETE /api/v1/bundles/{id}
func (h *BundlesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(id); err != nil {
		WriteError(w, http.StatusNotFound, ErrNotFound, "bundle not found: "+id)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// Clear removes all bundles.
// DELETE /api/v1/bundles
func (h *BundlesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		WriteError(w, http.StatusInternalServerError, ErrStoreError, "failed to clear bundles: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}
