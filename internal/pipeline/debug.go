// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/wingedpig/blackbox/internal/report"
)

// DebugHandler returns the debug control surface, for hosts that mount
// it on a local admin port. All routes act on the live pipeline:
//
//	POST /debug/send    force-persist and upload the buffer as a bundle
//	POST /debug/crash   terminate abruptly, bypassing orderly shutdown
//	GET  /debug/bundle  serve the current bundle without sending it
//	GET  /debug/status  counters and session state
func (p *Pipeline) DebugHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/debug/send", p.handleDebugSend).Methods("POST")
	r.HandleFunc("/debug/crash", p.handleDebugCrash).Methods("POST")
	r.HandleFunc("/debug/bundle", p.handleDebugBundle).Methods("GET")
	r.HandleFunc("/debug/status", p.handleDebugStatus).Methods("GET")
	return r
}

func (p *Pipeline) handleDebugSend(w http.ResponseWriter, r *http.Request) {
	if !p.enabled {
		respondError(w, http.StatusServiceUnavailable, "capture disabled")
		return
	}
	path, err := p.SendNow()
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"sent":    false,
			"spooled": path,
			"error":   err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sent": true})
}

// handleDebugCrash exits without the orderly shutdown, leaving the
// persisted record dirty so the next boot exercises the recovery path.
func (p *Pipeline) handleDebugCrash(w http.ResponseWriter, r *http.Request) {
	if !p.enabled {
		respondError(w, http.StatusServiceUnavailable, "capture disabled")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"crashing": true})
	log.Printf("blackbox: simulated crash requested, exiting")
	go func() {
		// Give the response a moment to flush before the process dies.
		time.Sleep(100 * time.Millisecond)
		os.Exit(3)
	}()
}

func (p *Pipeline) handleDebugBundle(w http.ResponseWriter, r *http.Request) {
	if !p.enabled {
		respondError(w, http.StatusServiceUnavailable, "capture disabled")
		return
	}
	b := report.NewBundle(report.PayloadDebugBundle, p.metaCopy(), p.buffer.Snapshot())
	data, err := b.MarshalCapped(p.reporterMaxBundleBytes())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "bundle too large to serialize: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (p *Pipeline) handleDebugStatus(w http.ResponseWriter, r *http.Request) {
	if !p.enabled {
		respondJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	status := map[string]interface{}{
		"enabled":          true,
		"session_id":       p.tracker.SessionID(),
		"clean":            p.tracker.Clean(),
		"buffer_len":       p.buffer.Len(),
		"pending_len":      p.buffer.PendingLen(),
		"has_errors":       p.buffer.HasErrors(),
		"persist_writes":   p.persister.Writes(),
		"persist_failures": p.persister.Failures(),
		"persist_mode":     p.persister.Mode().String(),
	}
	if p.recovered != nil {
		status["recovered"] = string(p.recovered.Classification)
	}
	respondJSON(w, http.StatusOK, status)
}

func (p *Pipeline) reporterMaxBundleBytes() int {
	if p.cfg != nil && p.cfg.Report.MaxBundleBytes > 0 {
		return p.cfg.Report.MaxBundleBytes
	}
	return report.DefaultMaxBundleBytes
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message})
}
