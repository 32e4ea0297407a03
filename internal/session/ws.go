// Package session — WebSocket surface: the participant trade channel and
// the observer hub for round completion broadcasts.
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zts/round-engine/internal/event"
	"github.com/zts/round-engine/internal/metrics"
	"github.com/zts/round-engine/internal/model"
)

// WSMessage is a JSON message sent to WebSocket clients.
type WSMessage struct {
	Type        string              `json:"type"`
	Participant string              `json:"participant,omitempty"`
	Round       int                 `json:"round,omitempty"`
	Action      string              `json:"action,omitempty"`
	Summary     *model.RoundSummary `json:"summary,omitempty"`
	State       *model.AccountState `json:"state,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// WSHub manages observer WebSocket connections and broadcasts round
// completion messages to all connected clients.
type WSHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *WSHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			metrics.WebSocketClients.Inc()
			slog.Info("ws observer connected", "total", len(h.clients))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				metrics.WebSocketClients.Dec()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected observer clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking event processing.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleObserverWS handles WebSocket upgrade requests at GET /api/v1/ws.
// Observers receive round completion broadcasts.
func (h *WSHub) HandleObserverWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}

// HandleTradeWS handles GET /api/v1/ws/trade?participant=<id>&round=<n>.
// Each inbound JSON payload is one trading report; replies carry the
// updated account state, plus the round summary after an End event.
// Malformed events produce an error frame, never a state change.
func (s *Service) HandleTradeWS(w http.ResponseWriter, r *http.Request) {
	participant := r.URL.Query().Get("participant")
	if participant == "" {
		writeError(w, "participant query parameter is required", http.StatusBadRequest)
		return
	}
	round, err := strconv.Atoi(r.URL.Query().Get("round"))
	if err != nil || round < 1 {
		writeError(w, "round query parameter must be a positive integer", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "participant", participant, "err", err)
		return
	}
	defer conn.Close()

	metrics.WebSocketClients.Inc()
	defer metrics.WebSocketClients.Dec()

	slog.Info("trade channel opened", "participant", participant, "round", round)

	for {
		var payload map[string]any
		if err := conn.ReadJSON(&payload); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("trade channel closed unexpectedly", "participant", participant, "err", err)
			}
			return
		}

		resp, err := s.applyEvent(r.Context(), participant, round, payload)
		if err != nil {
			if errors.Is(err, event.ErrMalformedEvent) {
				conn.WriteJSON(WSMessage{Type: "error", Participant: participant, Round: round, Error: err.Error()})
				continue
			}
			conn.WriteJSON(WSMessage{Type: "error", Participant: participant, Round: round, Error: "internal error"})
			return
		}

		msg := WSMessage{
			Type:        "event_applied",
			Participant: participant,
			Round:       round,
			Action:      resp.Action,
			State:       &resp.State,
		}
		if resp.Summary != nil {
			msg.Type = "round_completed"
			msg.Summary = resp.Summary
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
