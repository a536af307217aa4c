package services

import (
	"encoding/json"
	"sync"

	"snapnet-backend/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is a push notification delivered to a connected bot
type Event struct {
	Type           string `json:"type"`
	SnapID         string `json:"snap_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	SenderUsername string `json:"sender_username,omitempty"`
}

// Notifier delivers events to online bots. Delivery is best-effort:
// an offline bot simply misses the event and finds the content in its
// inbox.
type Notifier interface {
	Notify(botID string, event Event)
}

// Hub manages websocket connections, one per bot
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewHub creates a new websocket hub
func NewHub() *Hub {
	return &Hub{connections: make(map[string]*websocket.Conn)}
}

// Register registers a bot's connection, replacing any existing one
func (h *Hub) Register(botID string, conn *websocket.Conn) {
	h.mu.Lock()
	if existing, ok := h.connections[botID]; ok {
		existing.Close()
	} else {
		metrics.WSActiveConnections.Inc()
	}
	h.connections[botID] = conn
	h.mu.Unlock()

	log.Info().Str("bot_id", botID).Msg("WebSocket connection registered")
}

// Unregister drops a bot's connection if conn is still the active one
func (h *Hub) Unregister(botID string, conn *websocket.Conn) {
	h.mu.Lock()
	if current, ok := h.connections[botID]; ok && current == conn {
		current.Close()
		delete(h.connections, botID)
		metrics.WSActiveConnections.Dec()
		log.Info().Str("bot_id", botID).Msg("WebSocket connection unregistered")
	}
	h.mu.Unlock()
}

// IsOnline checks whether a bot has a live connection
func (h *Hub) IsOnline(botID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[botID]
	return ok
}

// Notify pushes an event to a bot if it is online
func (h *Hub) Notify(botID string, event Event) {
	h.mu.RLock()
	conn, ok := h.connections[botID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("bot_id", botID).Msg("Failed to marshal event")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Str("bot_id", botID).Str("event", event.Type).Msg("Failed to push event")
		h.Unregister(botID, conn)
	}
}
