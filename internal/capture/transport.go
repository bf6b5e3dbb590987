// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"net/http"
	"time"

	"github.com/wingedpig/blackbox/internal/entry"
)

// Transport is an http.RoundTripper that records failed requests
// (transport errors and 4xx/5xx responses) while delegating every request
// unchanged to the transport it wraps. Install it once:
//
//	client.Transport = capture.NewTransport(client.Transport, pipeline)
type Transport struct {
	inner http.RoundTripper
	rec   Recorder
}

// NewTransport wraps inner with capture. A nil inner delegates to
// http.DefaultTransport.
func NewTransport(inner http.RoundTripper, rec Recorder) *Transport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &Transport{inner: inner, rec: rec}
}

// RoundTrip delegates to the wrapped transport and records failures. The
// response and error are returned exactly as the wrapped transport
// produced them.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.inner.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		e := entry.New(entry.TypeRequestError, req.Method+" failed")
		e.URL = req.URL.String()
		e.Error = err.Error()
		e.Duration = duration.Milliseconds()
		t.rec.Record(e)
		return resp, err
	}

	if resp.StatusCode >= 400 {
		e := entry.New(entry.TypeRequestError, req.Method+" "+resp.Status)
		e.URL = req.URL.String()
		e.Status = resp.StatusCode
		e.Duration = duration.Milliseconds()
		t.rec.Record(e)
	}

	return resp, nil
}
