// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"log/slog"

	"github.com/wingedpig/blackbox/internal/entry"
)

// LogHandler is an slog.Handler that tees records into the capture
// pipeline while delegating everything to the handler it wraps. Install it
// once at initialization:
//
//	slog.SetDefault(slog.New(capture.NewLogHandler(inner, pipeline)))
type LogHandler struct {
	inner slog.Handler
	rec   Recorder
}

// NewLogHandler wraps inner with capture. A nil inner delegates to a
// discard handler, capturing only.
func NewLogHandler(inner slog.Handler, rec Recorder) *LogHandler {
	if inner == nil {
		inner = slog.DiscardHandler
	}
	return &LogHandler{inner: inner, rec: rec}
}

// Enabled reports whether the wrapped handler wants the record. Warnings
// and errors are always enabled so they reach the capture pipeline even
// when the host logs at a higher threshold.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelWarn {
		return true
	}
	return h.inner.Enabled(ctx, level)
}

// Handle records the entry, then delegates unconditionally.
func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	e := entry.New(typeForLevel(r.Level), r.Message)
	e.Timestamp = r.Time
	r.Attrs(func(a slog.Attr) bool {
		e.Args = append(e.Args, a.String())
		return true
	})
	h.rec.Record(entry.Clip(e))

	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

// WithAttrs returns a handler wrapping the inner handler's derived form.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{inner: h.inner.WithAttrs(attrs), rec: h.rec}
}

// WithGroup returns a handler wrapping the inner handler's derived form.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{inner: h.inner.WithGroup(name), rec: h.rec}
}

func typeForLevel(level slog.Level) entry.Type {
	switch {
	case level >= slog.LevelError:
		return entry.TypeError
	case level >= slog.LevelWarn:
		return entry.TypeWarn
	default:
		return entry.TypeLog
	}
}
