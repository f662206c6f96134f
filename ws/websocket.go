package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/usenocturne/headunitd/utils"
)

// writeWait bounds each frame write so a client that stops reading is
// dropped instead of stalling Broadcast.
const writeWait = 2 * time.Second

type WebSocketHub struct {
	clients   map[*websocket.Conn]bool
	mu        sync.Mutex
	writeWait time.Duration
	log       zerolog.Logger
}

func NewWebSocketHub(log zerolog.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:   make(map[*websocket.Conn]bool),
		writeWait: writeWait,
		log:       log,
	}
}

func (h *WebSocketHub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.log.Info().Int("clients", len(h.clients)).Msg("WebSocket client connected")
}

func (h *WebSocketHub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		h.log.Info().Int("clients", len(h.clients)).Msg("WebSocket client disconnected")
	}
}

func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *WebSocketHub) Broadcast(event utils.WebSocketEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.log.Debug().Str("type", event.Type).Int("clients", len(h.clients)).Msg("Broadcasting")
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := conn.WriteJSON(event); err != nil {
			h.log.Warn().Err(err).Msg("Client disconnected")
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
