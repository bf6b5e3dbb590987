// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package capture converts runtime events into diagnostic entries. Sources
// are explicit wrappers registered once at initialization: each wrapper
// holds the original it wraps and delegates to it unconditionally, so
// instrumented calls behave exactly as un-instrumented ones apart from a
// cheap in-memory append.
package capture

import (
	"runtime/debug"

	"github.com/wingedpig/blackbox/internal/entry"
)

// Recorder accepts captured entries. The pipeline implements it; recording
// must never block.
type Recorder interface {
	Record(e entry.Entry)
}

// Go runs fn on a new goroutine, recording a panic entry with the stack
// trace before letting the panic proceed. The panic still crashes the
// process exactly as it would un-instrumented; the forced persist that an
// error-severity entry triggers is what makes it recoverable on the next
// boot.
func Go(rec Recorder, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				Observe(rec, r)
				panic(r)
			}
		}()
		fn()
	}()
}

// Observe records a recovered panic value without altering control flow.
// Intended for the host's own recover blocks.
func Observe(rec Recorder, recovered any) {
	e := entry.New(entry.TypePanic, entry.Stringify(recovered))
	e.Stack = string(debug.Stack())
	rec.Record(e)
}

// ReportError records an application-surfaced error.
func ReportError(rec Recorder, err error) {
	if err == nil {
		return
	}
	e := entry.New(entry.TypeError, err.Error())
	e.Error = err.Error()
	rec.Record(e)
}

// ReportResourceError records a failed resource load (asset, file, media).
func ReportResourceError(rec Recorder, url, tag string, err error) {
	e := entry.New(entry.TypeResourceError, "resource failed to load")
	e.URL = url
	e.Tag = tag
	if err != nil {
		e.Error = err.Error()
	}
	rec.Record(e)
}
