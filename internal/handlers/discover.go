package handlers

import (
	"net/http"

	"snapnet-backend/internal/services"
)

// DiscoverHandler serves the public feed
type DiscoverHandler struct {
	snapService *services.SnapService
}

// NewDiscoverHandler creates a new discover handler
func NewDiscoverHandler(snapService *services.SnapService) *DiscoverHandler {
	return &DiscoverHandler{snapService: snapService}
}

// Feed handles GET /api/v1/discover
func (h *DiscoverHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	var username *string
	if u := r.URL.Query().Get("username"); u != "" {
		username = &u
	}

	snaps, err := h.snapService.Discover(r.Context(), username, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snaps)
}

// Tags handles GET /api/v1/discover/tags
func (h *DiscoverHandler) Tags(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	tags, err := h.snapService.TrendingTags(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tags)
}
