// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wingedpig/blackbox/internal/ingest"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// FeedHandler streams bundle arrivals over a WebSocket.
type FeedHandler struct {
	hub *ingest.Hub
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(hub *ingest.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// WebSocket handles the WebSocket connection for real-time bundle
// notifications. Each stored bundle is sent as one JSON summary.
// GET /api/v1/bundles/ws
func (h *FeedHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch := h.hub.Subscribe(100)
	defer h.hub.Unsubscribe(subID)

	done := make(chan struct{})

	// Set up ping/pong
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(54 * time.Second)
	defer pingTicker.Stop()

	// Read goroutine (for close detection)
	go func() {
		defer close(done)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	// Write loop
	for {
		select {
		case summary, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(summary); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
