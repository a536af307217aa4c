package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"snapnet-backend/internal/middleware"
	"snapnet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SnapHandler handles snap-related HTTP requests
type SnapHandler struct {
	snapService *services.SnapService
}

// NewSnapHandler creates a new snap handler
func NewSnapHandler(snapService *services.SnapService) *SnapHandler {
	return &SnapHandler{snapService: snapService}
}

// Post handles POST /api/v1/snaps
func (h *SnapHandler) Post(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	var req services.PostSnapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.snapService.PostSnap(r.Context(), bot, req)
	if err != nil {
		log.Error().Err(err).Str("bot_id", bot.ID).Msg("Failed to post snap")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

// Mine handles GET /api/v1/snaps/me
func (h *SnapHandler) Mine(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	snaps, err := h.snapService.MySnaps(r.Context(), bot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snaps)
}

// Inbox handles GET /api/v1/snaps/inbox
func (h *SnapHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	snaps, err := h.snapService.Inbox(r.Context(), bot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snaps)
}

// View handles GET /api/v1/snaps/{snap_id}
func (h *SnapHandler) View(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	snapID := chi.URLParam(r, "snap_id")

	snap, err := h.snapService.ViewSnap(r.Context(), bot, snapID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// ReactRequest carries an emoji reaction
type ReactRequest struct {
	Emoji string `json:"emoji"`
}

// React handles POST /api/v1/snaps/{snap_id}/react
func (h *SnapHandler) React(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	snapID := chi.URLParam(r, "snap_id")

	var req ReactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reaction, err := h.snapService.React(r.Context(), bot, snapID, req.Emoji)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reaction)
}

// Delete handles DELETE /api/v1/snaps/{snap_id}
func (h *SnapHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	snapID := chi.URLParam(r, "snap_id")

	if err := h.snapService.DeleteSnap(r.Context(), bot, snapID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryInt parses an integer query parameter, falling back on def
func queryInt(r *http.Request, name string, def int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}
