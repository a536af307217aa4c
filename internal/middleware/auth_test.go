package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/mocks"
	"snapnet-backend/internal/models"
	"snapnet-backend/internal/repository"
	"snapnet-backend/internal/services"
	"snapnet-backend/internal/storage"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestProfileService(profiles *mocks.ProfileStoreMock) *services.ProfileService {
	return services.NewProfileService(profiles, storage.NewMemory(), clock.NewFake(testTime), "test-secret", time.Hour)
}

func okHandler(t *testing.T, wantBot bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantBot {
			require.NotNil(t, GetBot(r.Context()), "bot must be on the context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuthMissingHeader(t *testing.T) {
	service := newTestProfileService(new(mocks.ProfileStoreMock))
	handler := APIKeyAuth(service)(okHandler(t, true))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuthUnknownKey(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	profiles.On("GetKey", mock.Anything, mock.AnythingOfType("string")).Return((*models.APIKey)(nil), repository.ErrNotFound).Once()
	handler := APIKeyAuth(newTestProfileService(profiles))(okHandler(t, true))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "snap_sk_bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	profiles.AssertExpectations(t)
}

func TestAPIKeyAuthResolvesBot(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	profiles.On("GetKey", mock.Anything, mock.AnythingOfType("string")).Return(&models.APIKey{BotID: "bot-1"}, nil).Once()
	profiles.On("GetByID", mock.Anything, "bot-1").Return(&models.Profile{ID: "bot-1", Username: "alpha"}, nil).Once()
	handler := APIKeyAuth(newTestProfileService(profiles))(okHandler(t, true))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "snap_sk_valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	profiles.AssertExpectations(t)
}

func TestViewerAuthAcceptsViewerToken(t *testing.T) {
	service := newTestProfileService(new(mocks.ProfileStoreMock))
	token, err := service.IssueViewerToken("bot-1")
	require.NoError(t, err)

	handler := ViewerAuth(service)(okHandler(t, false))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestViewerAuthRejectsGarbageToken(t *testing.T) {
	service := newTestProfileService(new(mocks.ProfileStoreMock))
	handler := ViewerAuth(service)(okHandler(t, false))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestViewerAuthRejectsMissingCredentials(t *testing.T) {
	service := newTestProfileService(new(mocks.ProfileStoreMock))
	handler := ViewerAuth(service)(okHandler(t, false))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
