// Package net exposes the hub over HTTP and WebSocket.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	server "hide-and-seek/server"
	"hide-and-seek/server/internal/camouflage"
)

// HTTPHandlerConfig tunes the handler.
type HTTPHandlerConfig struct {
	Logger *log.Logger
}

type clientMessage struct {
	Ver           int     `json:"ver,omitempty"`
	Type          string  `json:"type"`
	DX            float64 `json:"dx"`
	DZ            float64 `json:"dz"`
	SentAt        int64   `json:"sentAt"`
	PreferredType string  `json:"preferredType,omitempty"`
	ExtraMs       int64   `json:"extraMs,omitempty"`
	Level         int     `json:"level,omitempty"`
}

type commandResultMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Cmd  string `json:"cmd"`
	OK   bool   `json:"ok"`
}

type heartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*nethttp.Request) bool { return true },
}

// NewHTTPHandler builds the full server mux around a hub.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string `json:"status"`
			ServerTime int64  `json:"serverTime"`
			Players    any    `json:"players"`
			TickRate   int    `json:"tickRate"`
			Heartbeat  int64  `json:"heartbeatMillis"`
			Telemetry  any    `json:"telemetry"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Players:    hub.DiagnosticsSnapshot(),
			TickRate:   server.TickRate(),
			Heartbeat:  server.HeartbeatInterval().Milliseconds(),
			Telemetry:  hub.TelemetrySnapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Printf("failed to encode diagnostics: %v", err)
		}
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		response := hub.Join()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Printf("failed to encode join response: %v", err)
		}
	})

	mux.HandleFunc("/ws", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		playerID := r.URL.Query().Get("id")
		if playerID == "" {
			nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Printf("websocket upgrade failed for %s: %v", playerID, err)
			return
		}
		sub, _, _, ok := hub.Subscribe(playerID, conn)
		if !ok {
			conn.Close()
			return
		}
		go readLoop(hub, logger, playerID, sub, conn)
	})

	return mux
}

func readLoop(hub *server.Hub, logger *log.Logger, playerID string, sub subscriberWriter, conn *websocket.Conn) {
	defer hub.Disconnect(playerID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Printf("bad message from %s: %v", playerID, err)
			continue
		}
		dispatch(hub, playerID, sub, msg)
	}
}

// subscriberWriter is the slice of the hub subscriber the read loop needs
// to push direct replies.
type subscriberWriter interface {
	WriteJSON(v any) error
}

func dispatch(hub *server.Hub, playerID string, sub subscriberWriter, msg clientMessage) {
	switch msg.Type {
	case "input":
		hub.UpdateIntent(playerID, msg.DX, msg.DZ)
	case "heartbeat":
		now := time.Now()
		rtt, ok := hub.UpdateHeartbeat(playerID, now, msg.SentAt)
		if !ok {
			return
		}
		sub.WriteJSON(heartbeatMessage{
			Ver:        server.ProtocolVersion,
			Type:       "heartbeat",
			ServerTime: now.UnixMilli(),
			ClientTime: msg.SentAt,
			RTTMillis:  rtt.Milliseconds(),
		})
	case "hide":
		ok := hub.Hide(playerID, camouflage.ObjectType(msg.PreferredType))
		sub.WriteJSON(commandResultMessage{Ver: server.ProtocolVersion, Type: "result", Cmd: "hide", OK: ok})
	case "unhide":
		ok := hub.Unhide(playerID)
		sub.WriteJSON(commandResultMessage{Ver: server.ProtocolVersion, Type: "result", Cmd: "unhide", OK: ok})
	case "extend":
		ok := hub.Extend(playerID, time.Duration(msg.ExtraMs)*time.Millisecond)
		sub.WriteJSON(commandResultMessage{Ver: server.ProtocolVersion, Type: "result", Cmd: "extend", OK: ok})
	case "skill":
		hub.SetSkill(playerID, msg.Level)
	}
}
