// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// apiHandler creates a handler that returns a standard API response.
func apiHandler(data interface{}, statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		resp := map[string]interface{}{
			"data": data,
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// apiErrorHandler creates a handler that returns an API error.
func apiErrorHandler(code, message string, statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		resp := map[string]interface{}{
			"error": map[string]string{
				"code":    code,
				"message": message,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestNew(t *testing.T) {
	c := New("http://localhost:8330")

	if c.BaseURL() != "http://localhost:8330" {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), "http://localhost:8330")
	}

	if c.Bundles == nil {
		t.Error("Bundles client is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:8330/")

	if c.BaseURL() != "http://localhost:8330" {
		t.Errorf("BaseURL() = %q, want trailing slash removed", c.BaseURL())
	}
}

func TestWithTimeout(t *testing.T) {
	c := New("http://localhost:8330", WithTimeout(5*time.Second))

	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", c.httpClient.Timeout)
	}
}

func TestBundles_List(t *testing.T) {
	summaries := []Summary{
		{ID: "20260101-120000.000", SessionID: "sess-1", Type: "crash-bundle", Crash: true, EntryCount: 12},
		{ID: "20260101-110000.000", SessionID: "sess-2", Type: "debug-bundle", EntryCount: 3},
	}
	srv := httptest.NewServer(apiHandler(summaries, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Bundles.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("List() returned %d summaries, want 2", len(got))
	}
	if got[0].SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", got[0].SessionID)
	}
	if !got[0].Crash {
		t.Error("Crash = false, want true")
	}
}

func TestBundles_Get(t *testing.T) {
	rec := Record{
		ID: "20260101-120000.000",
		Bundle: Bundle{
			Type:      "crash-bundle",
			SessionID: "sess-1",
			Entries:   []Entry{{Type: "panic", Message: "boom"}},
		},
	}
	srv := httptest.NewServer(apiHandler(rec, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Bundles.Get(context.Background(), "20260101-120000.000")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if got.Bundle.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", got.Bundle.SessionID)
	}
	if len(got.Bundle.Entries) != 1 || got.Bundle.Entries[0].Message != "boom" {
		t.Errorf("Entries = %+v, want one panic entry", got.Bundle.Entries)
	}
}

func TestBundles_Get_NotFound(t *testing.T) {
	srv := httptest.NewServer(apiErrorHandler("NOT_FOUND", "bundle not found", http.StatusNotFound))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Bundles.Get(context.Background(), "nope")
	if err == nil {
		t.Fatal("Get() expected error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want NOT_FOUND", apiErr.Code)
	}
}

func TestBundles_Newest_Null(t *testing.T) {
	srv := httptest.NewServer(apiHandler(nil, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Bundles.Newest(context.Background())
	if err != nil {
		t.Fatalf("Newest() error: %v", err)
	}
	if got != nil {
		t.Errorf("Newest() = %+v, want nil", got)
	}
}

func TestBundles_Delete(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		apiHandler(map[string]string{"deleted": "x"}, http.StatusOK)(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Bundles.Delete(context.Background(), "20260101-120000.000"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if method != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", method)
	}
	if path != "/api/v1/bundles/20260101-120000.000" {
		t.Errorf("path = %q", path)
	}
}

func TestBundles_Clear(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiHandler(map[string]bool{"cleared": true}, http.StatusOK)(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Bundles.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if path != "/api/v1/bundles" {
		t.Errorf("path = %q", path)
	}
}
