// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package entry defines the structured diagnostic record flowing through
// every stage of the capture pipeline.
package entry

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type discriminates diagnostic entries.
type Type string

const (
	TypeLog           Type = "log"
	TypeWarn          Type = "warn"
	TypeError         Type = "error"
	TypePanic         Type = "panic"
	TypeResourceError Type = "resource-error"
	TypeRequestError  Type = "request-error"
	TypeHeartbeat     Type = "heartbeat"
	TypeSessionStart  Type = "session-start"
	TypeSessionEnd    Type = "session-end"
)

// IsError reports whether entries of this type carry error severity.
// Error-severity entries force an immediate persist and make an otherwise
// clean session worth uploading.
func (t Type) IsError() bool {
	switch t {
	case TypeError, TypePanic, TypeResourceError, TypeRequestError:
		return true
	}
	return false
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// Field size caps. Entries must stay independently serializable and bounded;
// oversized payloads are clipped, never rejected.
const (
	MaxMessageBytes = 4096
	MaxStackBytes   = 8192
	MaxArgBytes     = 1024
)

// Entry is one diagnostic event. Payload fields are optional and depend on
// the entry type.
type Entry struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Args      []string  `json:"args,omitempty"`
	Error     string    `json:"error,omitempty"`
	Stack     string    `json:"stack,omitempty"`
	URL       string    `json:"url,omitempty"`
	Status    int       `json:"status,omitempty"`
	Duration  int64     `json:"duration_ms,omitempty"`
	Tag       string    `json:"tag,omitempty"`
	Sequence  uint64    `json:"sequence,omitempty"`
}

// New creates an entry of the given type stamped with the current time.
func New(t Type, message string) Entry {
	return Entry{
		Type:      t,
		Timestamp: time.Now(),
		Message:   clip(message, MaxMessageBytes),
	}
}

// WithArgs attaches stringified arguments, each clipped to MaxArgBytes.
func (e Entry) WithArgs(args ...any) Entry {
	if len(args) == 0 {
		return e
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = clip(Stringify(a), MaxArgBytes)
	}
	e.Args = out
	return e
}

// Stringify converts an arbitrary value to a string without ever panicking.
// JSON marshaling is attempted first; values that cannot be marshaled (or
// whose marshaling panics) fall back to fmt formatting.
func Stringify(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("<unserializable %T>", v)
		}
	}()

	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case error:
		return t.Error()
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// clip truncates s to at most n bytes, appending a marker when clipped.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[clipped]"
}

// Clip bounds the sized payload fields of e in place and returns it.
func Clip(e Entry) Entry {
	e.Message = clip(e.Message, MaxMessageBytes)
	e.Error = clip(e.Error, MaxMessageBytes)
	e.Stack = clip(e.Stack, MaxStackBytes)
	for i, a := range e.Args {
		e.Args[i] = clip(a, MaxArgBytes)
	}
	return e
}
