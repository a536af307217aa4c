package handlers

import (
	"net/http"

	"snapnet-backend/internal/middleware"
	"snapnet-backend/internal/services"
)

// StreakHandler handles streak-related HTTP requests
type StreakHandler struct {
	streakTracker *services.StreakTracker
}

// NewStreakHandler creates a new streak handler
func NewStreakHandler(streakTracker *services.StreakTracker) *StreakHandler {
	return &StreakHandler{streakTracker: streakTracker}
}

// Mine handles GET /api/v1/streaks/me
func (h *StreakHandler) Mine(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	streaks, err := h.streakTracker.MyStreaks(r.Context(), bot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, streaks)
}

// Leaderboard handles GET /api/v1/streaks/leaderboard
func (h *StreakHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	entries, err := h.streakTracker.Leaderboard(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
