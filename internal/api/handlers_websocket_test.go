// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/compit-bridge/internal/models"
	ws "github.com/tomtom215/compit-bridge/internal/websocket"
)

func dial(t *testing.T, server *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func TestWebSocket_NoHub(t *testing.T) {
	env := newTestEnv(t, true)
	rec, body := env.do(t, http.MethodGet, "/api/v1/ws", "")
	checkStatus(t, rec, http.StatusServiceUnavailable)
	checkErrorCode(t, body, ErrCodeServiceUnavailable)
}

func TestWebSocket_PushesHubMessages(t *testing.T) {
	env := newTestEnv(t, true)

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	env.handler.wsHub = hub
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	t.Run("rejects unknown origin", func(t *testing.T) {
		_, resp, err := dial(t, server, "http://evil.example")
		if err == nil {
			t.Fatal("expected handshake failure")
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("response = %v, want 403", resp)
		}
	})

	t.Run("rejects missing origin", func(t *testing.T) {
		if _, _, err := dial(t, server, ""); err == nil {
			t.Fatal("expected handshake failure")
		}
	})

	t.Run("receives entity state", func(t *testing.T) {
		conn, _, err := dial(t, server, "http://allowed.example")
		if err != nil {
			t.Fatalf("dial: %v", err)
		}

		deadline := time.Now().Add(time.Second)
		for hub.GetClientCount() != 1 {
			if time.Now().After(deadline) {
				t.Fatalf("client count = %d, want 1", hub.GetClientCount())
			}
			time.Sleep(5 * time.Millisecond)
		}

		hub.BroadcastJSON(ws.MessageTypeEntityState, models.EntityState{UniqueID: "number_boiler_temp", Value: 50.0})

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Type string            `json:"type"`
			Data models.EntityState `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		checkStringEqual(t, "type", msg.Type, "entity_state")
		checkStringEqual(t, "unique_id", msg.Data.UniqueID, "number_boiler_temp")
	})
}
