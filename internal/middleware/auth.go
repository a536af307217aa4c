package middleware

import (
	"context"
	"net/http"
	"strings"

	"snapnet-backend/internal/models"
	"snapnet-backend/internal/services"
)

type contextKey string

const botKey contextKey = "bot"

// WithBot returns a context carrying an authenticated bot profile
func WithBot(ctx context.Context, bot *models.Profile) context.Context {
	return context.WithValue(ctx, botKey, bot)
}

// APIKeyAuth authenticates requests by the X-API-Key header and puts
// the resolved bot profile on the context
func APIKeyAuth(profileService *services.ProfileService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				respondError(w, "X-API-Key header required", http.StatusUnauthorized)
				return
			}

			bot, err := profileService.Authenticate(r.Context(), apiKey)
			if err != nil {
				respondError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithBot(r.Context(), bot)))
		})
	}
}

// ViewerAuth authenticates read-only requests: either a bot API key or
// a Bearer viewer session token is accepted
func ViewerAuth(profileService *services.ProfileService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				bot, err := profileService.Authenticate(r.Context(), apiKey)
				if err != nil {
					respondError(w, "Invalid API key", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithBot(r.Context(), bot)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "API key or viewer token required", http.StatusUnauthorized)
				return
			}
			if _, err := profileService.ValidateViewerToken(parts[1]); err != nil {
				respondError(w, "Invalid viewer token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetBot extracts the authenticated bot profile from the context
func GetBot(ctx context.Context) *models.Profile {
	bot, ok := ctx.Value(botKey).(*models.Profile)
	if !ok {
		return nil
	}
	return bot
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
