package handlers

import (
	"net/http"

	"snapnet-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades connections for the notification hub
type WebSocketHandler struct {
	hub            *services.Hub
	profileService *services.ProfileService
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(hub *services.Hub, profileService *services.ProfileService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, profileService: profileService}
}

// Handle handles GET /ws?api_key=...
// Browsers cannot set headers on websocket requests, so the key is
// taken from the query string here.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	apiKey := r.URL.Query().Get("api_key")
	if apiKey == "" {
		apiKey = r.Header.Get("X-API-Key")
	}

	bot, err := h.profileService.Authenticate(r.Context(), apiKey)
	if err != nil {
		respondError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("bot_id", bot.ID).Msg("WebSocket upgrade failed")
		return
	}

	h.hub.Register(bot.ID, conn)
	defer h.hub.Unregister(bot.ID, conn)

	// The hub only pushes events; inbound frames are drained until the
	// peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("bot_id", bot.ID).Msg("WebSocket closed unexpectedly")
			}
			return
		}
	}
}
