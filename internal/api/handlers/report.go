// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/wingedpig/blackbox/internal/ingest"
	"github.com/wingedpig/blackbox/internal/report"
)

// maxPayloadBytes bounds a single upload. Client bundles are capped well
// below this before sending; anything larger is not one of ours.
const maxPayloadBytes = 4 << 20

// ReportHandler receives payloads from instrumented applications.
type ReportHandler struct {
	store *ingest.Store
}

// NewReportHandler creates a new report handler.
func NewReportHandler(store *ingest.Store) *ReportHandler {
	return &ReportHandler{store: store}
}

// Receive handles an uploaded payload.
// POST /report
// POST /beacon
//
// Crash and debug bundles are stored; live batches and teardown flushes
// are acknowledged without storage. Every path returns quickly: clients
// treat this endpoint as best-effort and some (the beacon path) will not
// wait for more than a couple of seconds.
func (h *ReportHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var b report.Bundle
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err := dec.Decode(&b); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid payload: "+err.Error())
		return
	}

	switch b.Type {
	case report.PayloadCrashBundle, report.PayloadDebugBundle:
		rec, err := h.store.Save(b, r.RemoteAddr)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, ErrStoreError, "failed to store bundle: "+err.Error())
			return
		}
		log.Printf("stored %s %s from session %s (%d entries)",
			b.Type, rec.ID, b.SessionID, len(b.Entries))
		WriteJSON(w, http.StatusOK, map[string]interface{}{"id": rec.ID})

	case report.PayloadLive:
		WriteJSON(w, http.StatusOK, map[string]interface{}{"accepted": len(b.Entries)})

	default:
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "unknown payload type: "+string(b.Type))
	}
}
