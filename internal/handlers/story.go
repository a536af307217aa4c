package handlers

import (
	"encoding/json"
	"net/http"

	"snapnet-backend/internal/middleware"
	"snapnet-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	storyService *services.StoryService
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(storyService *services.StoryService) *StoryHandler {
	return &StoryHandler{storyService: storyService}
}

// Create handles POST /api/v1/stories
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	var req services.CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	story, err := h.storyService.CreateStory(r.Context(), bot, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, story)
}

// List handles GET /api/v1/stories
func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	stories, err := h.storyService.ActiveStories(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stories)
}

// Mine handles GET /api/v1/stories/me
func (h *StoryHandler) Mine(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	stories, err := h.storyService.MyStories(r.Context(), bot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stories)
}

// Current handles GET /api/v1/stories/profile/{username}
func (h *StoryHandler) Current(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	story, err := h.storyService.CurrentStory(r.Context(), username)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, story)
}

// AppendRequest carries the snap to append
type AppendRequest struct {
	SnapID string `json:"snap_id"`
}

// Append handles POST /api/v1/stories/{story_id}/append
func (h *StoryHandler) Append(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	storyID := chi.URLParam(r, "story_id")

	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SnapID == "" {
		respondError(w, "snap_id is required", http.StatusBadRequest)
		return
	}

	story, err := h.storyService.AppendSnap(r.Context(), bot, storyID, req.SnapID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, story)
}

// Delete handles DELETE /api/v1/stories/{story_id}
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	storyID := chi.URLParam(r, "story_id")

	if err := h.storyService.DeleteStory(r.Context(), bot, storyID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
