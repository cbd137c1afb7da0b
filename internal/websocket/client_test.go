// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// serveHub upgrades every request and attaches the connection to hub.
func serveHub(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		hub.Attach(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestNewClient_UniqueIDs(t *testing.T) {
	hub := NewHub()
	a, b := NewClient(hub, nil), NewClient(hub, nil)
	if a.ID() >= b.ID() {
		t.Errorf("IDs not increasing: %d then %d", a.ID(), b.ID())
	}
}

func TestClient_ReceivesBroadcast(t *testing.T) {
	hub, _, _ := startHub(t)
	conn := dialWebSocket(t, serveHub(t, hub))
	waitForClients(t, hub, 1)

	hub.BroadcastJSON(MessageTypeEntityState, map[string]any{"unique_id": "sensor_pump_speed", "value": 1200})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeEntityState {
		t.Fatalf("type = %q", msg.Type)
	}
	data, ok := msg.Data.(map[string]any)
	if !ok || data["unique_id"] != "sensor_pump_speed" {
		t.Errorf("data = %#v", msg.Data)
	}
}

func TestClient_PingPong(t *testing.T) {
	hub, _, _ := startHub(t)
	conn := dialWebSocket(t, serveHub(t, hub))
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Errorf("type = %q, want pong", msg.Type)
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub, _, _ := startHub(t)
	conn := dialWebSocket(t, serveHub(t, hub))
	waitForClients(t, hub, 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestClient_ConstantsAreConsistent(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
	if maxMessageSize <= 0 {
		t.Errorf("maxMessageSize = %d", maxMessageSize)
	}
}

func TestHub_AttachAfterStop(t *testing.T) {
	hub, cancel, done := startHub(t)
	attached := make(chan bool, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		attached <- hub.Attach(conn)
	}))
	t.Cleanup(server.Close)

	cancel()
	<-done

	dialWebSocket(t, server)
	select {
	case ok := <-attached:
		if ok {
			t.Error("Attach() = true on a stopped hub")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Attach blocked on a stopped hub")
	}
}
