package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"nhooyr.io/websocket"
)

// ──────────────────── WebSocket Hub ────────────────────

// WSHub fans editor events out to connected UI clients and keeps the latest
// payload per event kind so a newly connected client gets the full editor
// state replayed before live updates.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool

	stateMu   sync.RWMutex
	lastState map[string]json.RawMessage
}

type WSClient struct {
	conn *websocket.Conn
	send chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// replayedEvents are the sticky event kinds replayed to new clients, in
// dependency order (sequence before playback, so the UI can map clip ids).
var replayedEvents = []string{
	"assets:update",
	"sequence:update",
	"timeline:update",
	"selection:update",
	"playback:state",
	"pipeline:update",
	"render:ready",
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:   make(map[*WSClient]bool),
		lastState: make(map[string]json.RawMessage),
	}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	h.trackState(event, msg)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Slow client: drop the frame rather than stall the editor.
		}
	}
}

func (h *WSHub) trackState(event string, raw []byte) {
	for _, kind := range replayedEvents {
		if kind == event {
			h.stateMu.Lock()
			h.lastState[event] = json.RawMessage(raw)
			h.stateMu.Unlock()
			return
		}
	}
}

// sendCurrentState replays the sticky events to a newly connected client.
func (h *WSHub) sendCurrentState(client *WSClient) {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	for _, kind := range replayedEvents {
		if msg, ok := h.lastState[kind]; ok {
			select {
			case client.send <- msg:
			default:
			}
		}
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── Client messages ────────────────────

// clientMessage is what the browser sends upstream: keepalive pings and
// per-frame slot time reports from the two video elements.
type clientMessage struct {
	Type string  `json:"type"`
	Slot int     `json:"slot,omitempty"`
	Ms   int64   `json:"ms,omitempty"`
	Rate float64 `json:"rate,omitempty"`
}

// SlotReporter receives browser-reported video element times; satisfied by
// RemoteSlots.
type SlotReporter interface {
	ReportTime(slot int, ms int64)
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.config.AuthToken != "" {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token != s.config.AuthToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.wsHub.addClient(client)
	s.wsHub.sendCurrentState(client)
	log.Printf("WebSocket UI client connected (%d total)", s.wsHub.ClientCount())

	ctx := r.Context()

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop: slot time reports and pings.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg clientMessage
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		switch msg.Type {
		case "ping":
			s.wsHub.sendTo(client, "pong", nil)
		case "slot:time":
			if s.slots != nil {
				s.slots.ReportTime(msg.Slot, msg.Ms)
			}
		}
	}

	s.wsHub.removeClient(client)
	log.Printf("WebSocket UI client disconnected (%d total)", s.wsHub.ClientCount())
}

func (h *WSHub) sendTo(client *WSClient, event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case client.send <- msg:
	default:
	}
}
