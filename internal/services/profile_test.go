package services_test

import (
	"context"
	"strings"
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

func newProfileService(clk clock.Clock, profiles *mocks.ProfileStoreMock) *services.ProfileService {
	return services.NewProfileService(profiles, storage.NewMemory(), clk, "test-secret", 24*time.Hour)
}

func TestRegisterRejectsBadUsername(t *testing.T) {
	service := newProfileService(clock.NewFake(baseTime), new(mocks.ProfileStoreMock))

	for _, username := range []string{"", "x", "has space", "way_too_long_username_over_thirty_chars", "bad!chars"} {
		_, _, err := service.Register(context.Background(), services.RegisterRequest{
			Username:    username,
			DisplayName: "Bot",
		})
		require.ErrorIs(t, err, services.ErrInvalidInput, "username %q", username)
	}
}

func TestRegisterTakenUsername(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	service := newProfileService(clock.NewFake(baseTime), profiles)

	profiles.On("UsernameExists", mock.Anything, "alpha").Return(true, nil).Once()

	_, _, err := service.Register(context.Background(), services.RegisterRequest{
		Username:    "alpha",
		DisplayName: "Alpha",
	})
	require.ErrorIs(t, err, services.ErrConflict)
	profiles.AssertExpectations(t)
}

func TestRegisterIssuesHashedKey(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	service := newProfileService(clock.NewFake(baseTime), profiles)

	var storedHash string
	profiles.On("UsernameExists", mock.Anything, "alpha").Return(false, nil).Once()
	profiles.On("Create", mock.Anything, mock.AnythingOfType("*models.Profile")).Return(nil).Once()
	profiles.On("InsertKey", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string"), baseTime).
		Run(func(args mock.Arguments) { storedHash = args.String(1) }).
		Return(nil).Once()

	profile, rawKey, err := service.Register(context.Background(), services.RegisterRequest{
		Username:    "alpha",
		DisplayName: "Alpha",
	})
	require.NoError(t, err)
	assert.Equal(t, "alpha", profile.Username)
	assert.True(t, profile.Public, "profiles default to public")
	assert.True(t, strings.HasPrefix(rawKey, "snap_sk_"))
	assert.NotEqual(t, rawKey, storedHash, "only the hash may be persisted")
	assert.Len(t, storedHash, 64)
	profiles.AssertExpectations(t)
}

func TestAuthenticateRevokedKey(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	service := newProfileService(clock.NewFake(baseTime), profiles)

	revoked := baseTime.Add(-time.Hour)
	profiles.On("GetKey", mock.Anything, mock.AnythingOfType("string")).Return(&models.APIKey{
		BotID:     botA,
		RevokedAt: &revoked,
	}, nil).Once()

	_, err := service.Authenticate(context.Background(), "snap_sk_whatever")
	require.ErrorIs(t, err, services.ErrUnauthorized)
	profiles.AssertExpectations(t)
}

func TestAuthenticateUnknownKey(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	service := newProfileService(clock.NewFake(baseTime), profiles)

	profiles.On("GetKey", mock.Anything, mock.AnythingOfType("string")).Return((*models.APIKey)(nil), repository.ErrNotFound).Once()

	_, err := service.Authenticate(context.Background(), "snap_sk_unknown")
	require.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestRotateKeyRevokesThenIssues(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	service := newProfileService(clock.NewFake(baseTime), profiles)

	profiles.On("RevokeKeys", mock.Anything, botA, baseTime).Return(nil).Once()
	profiles.On("InsertKey", mock.Anything, mock.AnythingOfType("string"), botA, baseTime).Return(nil).Once()

	rawKey, err := service.RotateKey(context.Background(), botA)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rawKey, "snap_sk_"))
	profiles.AssertExpectations(t)
}

func TestViewerTokenRoundTrip(t *testing.T) {
	clk := clock.NewFake(baseTime)
	service := newProfileService(clk, new(mocks.ProfileStoreMock))

	token, err := service.IssueViewerToken(botA)
	require.NoError(t, err)

	sub, err := service.ValidateViewerToken(token)
	require.NoError(t, err)
	assert.Equal(t, botA, sub)
}

func TestViewerTokenExpires(t *testing.T) {
	clk := clock.NewFake(baseTime)
	service := newProfileService(clk, new(mocks.ProfileStoreMock))

	token, err := service.IssueViewerToken(botA)
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)
	_, err = service.ValidateViewerToken(token)
	require.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestGetPublicHidesPrivateProfiles(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	service := newProfileService(clock.NewFake(baseTime), profiles)

	profiles.On("GetByUsername", mock.Anything, "hermit").Return(&models.Profile{
		ID: botA, Username: "hermit", Public: false,
	}, nil).Once()

	_, err := service.GetPublic(context.Background(), "hermit")
	require.ErrorIs(t, err, services.ErrNotFound)
	profiles.AssertExpectations(t)
}

func TestBlockSelfRejected(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	service := newProfileService(clock.NewFake(baseTime), profiles)

	profiles.On("GetByUsername", mock.Anything, "alpha").Return(&models.Profile{ID: botA, Username: "alpha"}, nil).Once()

	err := service.Block(context.Background(), botA, "alpha")
	require.ErrorIs(t, err, services.ErrInvalidInput)
	profiles.AssertExpectations(t)
}

func TestUpdateValidatesBioLength(t *testing.T) {
	profiles := new(mocks.ProfileStoreMock)
	service := newProfileService(clock.NewFake(baseTime), profiles)

	profiles.On("GetByID", mock.Anything, botA).Return(&models.Profile{ID: botA, Username: "alpha", DisplayName: "Alpha"}, nil).Once()

	long := strings.Repeat("x", 201)
	_, err := service.Update(context.Background(), botA, services.UpdateRequest{Bio: &long})
	require.ErrorIs(t, err, services.ErrInvalidInput)
	profiles.AssertExpectations(t)
}
