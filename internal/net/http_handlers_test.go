package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	server "hide-and-seek/server"
)

type joinReply struct {
	Ver     int    `json:"ver"`
	ID      string `json:"id"`
	Players []any  `json:"players"`
	Props   []any  `json:"props"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	hub := server.NewHub(server.DefaultHubConfig(), nil)
	srv := httptest.NewServer(NewHTTPHandler(hub, HTTPHandlerConfig{}))
	t.Cleanup(srv.Close)
	return srv
}

func join(t *testing.T, srv *httptest.Server) joinReply {
	t.Helper()
	resp, err := http.Post(srv.URL+"/join", "application/json", nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	defer resp.Body.Close()
	var reply joinReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	return reply
}

func dialWS(t *testing.T, srv *httptest.Server, playerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?id=" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestJoinEndpoint(t *testing.T) {
	srv := newTestServer(t)

	reply := join(t, srv)
	if reply.Ver != server.ProtocolVersion || reply.ID == "" {
		t.Fatalf("join reply = %#v", reply)
	}
	if len(reply.Players) != 1 {
		t.Fatalf("players = %d", len(reply.Players))
	}
	if len(reply.Props) == 0 {
		t.Fatal("join reply carries no props")
	}

	resp, err := http.Get(srv.URL + "/join")
	if err != nil {
		t.Fatalf("get join: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET join status = %d", resp.StatusCode)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	join(t, srv)

	resp, err := http.Get(srv.URL + "/diagnostics")
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status   string `json:"status"`
		Players  []any  `json:"players"`
		TickRate int    `json:"tickRate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode diagnostics: %v", err)
	}
	if payload.Status != "ok" || payload.TickRate != server.TickRate() {
		t.Fatalf("diagnostics = %#v", payload)
	}
	if len(payload.Players) != 1 {
		t.Fatalf("diagnostics players = %d", len(payload.Players))
	}
}

func TestWebSocketRequiresPlayerID(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("ws without id: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestWebSocketRejectsUnknownPlayer(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv, "ghost")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection for unknown player stayed open")
	}
}

func TestWebSocketHeartbeatRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	reply := join(t, srv)
	conn := dialWS(t, srv, reply.ID)

	sent := time.Now().UnixMilli()
	if err := conn.WriteJSON(map[string]any{"type": "heartbeat", "sentAt": sent}); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var beat heartbeatMessage
	if err := conn.ReadJSON(&beat); err != nil {
		t.Fatalf("read heartbeat: %v", err)
	}
	if beat.Type != "heartbeat" || beat.ClientTime != sent {
		t.Fatalf("heartbeat reply = %#v", beat)
	}
	if beat.RTTMillis < 0 {
		t.Fatalf("rtt = %d", beat.RTTMillis)
	}
}

func TestWebSocketCommandResults(t *testing.T) {
	srv := newTestServer(t)
	reply := join(t, srv)
	conn := dialWS(t, srv, reply.ID)

	// Without an active disguise both commands must come back negative.
	for _, cmd := range []string{"unhide", "extend"} {
		msg := map[string]any{"type": cmd}
		if cmd == "extend" {
			msg["extraMs"] = 5000
		}
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write %s: %v", cmd, err)
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var result commandResultMessage
		if err := conn.ReadJSON(&result); err != nil {
			t.Fatalf("read %s result: %v", cmd, err)
		}
		if result.Type != "result" || result.Cmd != cmd || result.OK {
			t.Fatalf("%s result = %#v", cmd, result)
		}
	}
}
