// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"sync"
)

// Hub fans out record summaries to subscribers, one buffered channel
// each. Slow subscribers lose notifications rather than block the
// sender.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Summary
}

// NewHub creates a hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Summary)}
}

// Subscribe registers a subscriber with the given buffer size. The
// returned ID releases the subscription via Unsubscribe.
func (h *Hub) Subscribe(buffer int) (int, <-chan Summary) {
	if buffer <= 0 {
		buffer = 16
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan Summary, buffer)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast delivers a summary to every subscriber that has room.
func (h *Hub) Broadcast(s Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- s:
		default:
			// Drop if buffer full
		}
	}
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
