package handlers

import (
	"encoding/json"
	"net/http"

	"snapnet-backend/internal/middleware"
	"snapnet-backend/internal/models"
	"snapnet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profileService *services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// RegisterResponse carries the profile and the one-time API key
type RegisterResponse struct {
	Profile *models.Profile `json:"profile"`
	APIKey  string          `json:"api_key"`
}

// Register handles POST /api/v1/profiles/register
func (h *ProfileHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, apiKey, err := h.profileService.Register(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to register bot")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, RegisterResponse{Profile: profile, APIKey: apiKey})
}

// Me handles GET /api/v1/profiles/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, middleware.GetBot(r.Context()))
}

// Update handles PATCH /api/v1/profiles/me
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	var req services.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := h.profileService.Update(r.Context(), bot.ID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// AvatarRequest carries a base64 avatar image
type AvatarRequest struct {
	ImageB64 string `json:"image_b64"`
}

// UploadAvatar handles POST /api/v1/profiles/me/avatar
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	var req AvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageB64 == "" {
		respondError(w, "image_b64 is required", http.StatusBadRequest)
		return
	}

	profile, err := h.profileService.UploadAvatar(r.Context(), bot.ID, req.ImageB64)
	if err != nil {
		log.Error().Err(err).Str("bot_id", bot.ID).Msg("Failed to upload avatar")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// RotateKey handles POST /api/v1/profiles/me/rotate-key
func (h *ProfileHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	apiKey, err := h.profileService.RotateKey(r.Context(), bot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"api_key": apiKey,
		"message": "Previous keys revoked. Store this key securely; it will not be shown again.",
	})
}

// Get handles GET /api/v1/profiles/{username}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.profileService.GetPublic(r.Context(), username)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Block handles POST /api/v1/profiles/me/block/{username}
func (h *ProfileHandler) Block(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	username := chi.URLParam(r, "username")

	if err := h.profileService.Block(r.Context(), bot.ID, username); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unblock handles DELETE /api/v1/profiles/me/block/{username}
func (h *ProfileHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())
	username := chi.URLParam(r, "username")

	if err := h.profileService.Unblock(r.Context(), bot.ID, username); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ViewerSession handles POST /api/v1/viewer/session
func (h *ProfileHandler) ViewerSession(w http.ResponseWriter, r *http.Request) {
	bot := middleware.GetBot(r.Context())

	token, err := h.profileService.IssueViewerToken(bot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}
