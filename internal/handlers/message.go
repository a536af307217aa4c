package handlers

import (
	"encoding/json"
	"net/http"

	"snapnet-backend/internal/middleware"
	"snapnet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// Send handles POST /api/v1/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	var req services.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.messageService.Send(r.Context(), bot, req)
	if err != nil {
		log.Error().Err(err).Str("bot_id", bot.ID).Msg("Failed to send message")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// Inbox handles GET /api/v1/messages
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	msgs, err := h.messageService.Inbox(r.Context(), bot)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// Sent handles GET /api/v1/messages/sent
func (h *MessageHandler) Sent(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	msgs, err := h.messageService.Sent(r.Context(), bot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// Get handles GET /api/v1/messages/{message_id}
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	messageID := chi.URLParam(r, "message_id")

	msg, err := h.messageService.Get(r.Context(), bot, messageID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// MarkRead handles POST /api/v1/messages/{message_id}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	messageID := chi.URLParam(r, "message_id")

	msg, err := h.messageService.MarkRead(r.Context(), bot, messageID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// Delete handles DELETE /api/v1/messages/{message_id}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	messageID := chi.URLParam(r, "message_id")

	if err := h.messageService.Delete(r.Context(), bot, messageID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
