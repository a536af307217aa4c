package services_test

import (
	"context"
	"sync"
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

// notifierStub records events per recipient
type notifierStub struct {
	mu     sync.Mutex
	events map[string][]services.Event
}

func newNotifierStub() *notifierStub {
	return &notifierStub{events: make(map[string][]services.Event)}
}

func (n *notifierStub) Notify(botID string, event services.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[botID] = append(n.events[botID], event)
}

func (n *notifierStub) sent(botID string) []services.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[botID]
}

type snapFixture struct {
	clk      *clock.Fake
	snaps    *mocks.SnapStoreMock
	profiles *mocks.ProfileStoreMock
	payloads *storage.Memory
	streaks  *mocks.StreakStoreFake
	notifier *notifierStub
	service  *services.SnapService
}

func newSnapFixture() *snapFixture {
	f := &snapFixture{
		clk:      clock.NewFake(baseTime),
		snaps:    new(mocks.SnapStoreMock),
		profiles: new(mocks.ProfileStoreMock),
		payloads: storage.NewMemory(),
		streaks:  mocks.NewStreakStoreFake(),
		notifier: newNotifierStub(),
	}
	lifecycle := services.NewLifecycleEngine(lifecycleConfig(), f.clk, f.snaps, new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), f.payloads)
	tracker := services.NewStreakTracker(streakConfig(), f.clk, f.streaks, f.profiles)
	f.service = services.NewSnapService(f.snaps, f.profiles, f.payloads, lifecycle, tracker, f.notifier, f.clk)
	return f
}

func strPtr(s string) *string { return &s }

func TestPostSnapRequiresImage(t *testing.T) {
	f := newSnapFixture()
	sender := &models.Profile{ID: botA, Username: "alpha"}

	_, err := f.service.PostSnap(context.Background(), sender, services.PostSnapRequest{})
	require.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestPostSnapPublic(t *testing.T) {
	f := newSnapFixture()
	sender := &models.Profile{ID: botA, Username: "alpha"}

	f.snaps.On("Create", mock.Anything, mock.AnythingOfType("*models.Snap")).Return(nil).Once()
	f.profiles.On("IncrementSnapScore", mock.Anything, botA).Return(nil).Once()
	f.profiles.On("GetByID", mock.Anything, botA).Return(sender, nil)

	view, err := f.service.PostSnap(context.Background(), sender, services.PostSnapRequest{
		ImageURL: strPtr("https://example.com/pic.jpg"),
		Tags:     []string{"sunset"},
	})
	require.NoError(t, err)
	assert.True(t, view.IsPublic)
	assert.Equal(t, "alpha", view.SenderUsername)
	assert.Equal(t, baseTime.Add(24*time.Hour), view.ExpiresAt)
	assert.Empty(t, view.PayloadKey, "external URL snaps own no bucket object")
	assert.Nil(t, f.streaks.Get(botA, botB), "public snaps never touch streaks")
	f.snaps.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
}

func TestPostSnapPrivateFeedsStreakAndNotifies(t *testing.T) {
	f := newSnapFixture()
	sender := &models.Profile{ID: botA, Username: "alpha"}
	recipient := &models.Profile{ID: botB, Username: "beta"}

	f.profiles.On("GetByUsername", mock.Anything, "beta").Return(recipient, nil).Once()
	f.snaps.On("Create", mock.Anything, mock.AnythingOfType("*models.Snap")).Return(nil).Once()
	f.profiles.On("IncrementSnapScore", mock.Anything, botA).Return(nil).Once()
	f.profiles.On("GetByID", mock.Anything, botA).Return(sender, nil)

	view, err := f.service.PostSnap(context.Background(), sender, services.PostSnapRequest{
		ImageBase64:       strPtr("aGVsbG8="),
		RecipientUsername: strPtr("beta"),
		ViewOnce:          true,
	})
	require.NoError(t, err)
	assert.False(t, view.IsPublic)
	assert.NotEmpty(t, view.PayloadKey)
	assert.True(t, f.payloads.Has(view.PayloadKey))

	streak := f.streaks.Get(botA, botB)
	require.NotNil(t, streak)
	assert.Equal(t, 1, streak.Count)

	events := f.notifier.sent(botB)
	require.Len(t, events, 1)
	assert.Equal(t, "snap.received", events[0].Type)
	assert.Equal(t, view.ID, events[0].SnapID)
	assert.Equal(t, "alpha", events[0].SenderUsername)
	f.snaps.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
}

func TestPostSnapRejectsHugeTTL(t *testing.T) {
	f := newSnapFixture()
	sender := &models.Profile{ID: botA, Username: "alpha"}

	_, err := f.service.PostSnap(context.Background(), sender, services.PostSnapRequest{
		ImageURL:       strPtr("https://example.com/pic.jpg"),
		ExpiresInHours: 500,
	})
	require.ErrorIs(t, err, services.ErrInvalidTTL)
}

func TestViewSnapForbiddenForThirdParty(t *testing.T) {
	f := newSnapFixture()
	viewer := &models.Profile{ID: botC, Username: "gamma"}
	recipientID := botB

	f.snaps.On("GetByID", mock.Anything, "s1").Return(&models.Snap{
		ID:          "s1",
		SenderID:    botA,
		RecipientID: &recipientID,
		ExpiresAt:   baseTime.Add(time.Hour),
	}, nil).Once()

	_, err := f.service.ViewSnap(context.Background(), viewer, "s1")
	require.ErrorIs(t, err, services.ErrForbidden)
	f.snaps.AssertExpectations(t)
}

func TestViewSnapConsumedIsGone(t *testing.T) {
	f := newSnapFixture()
	viewer := &models.Profile{ID: botB, Username: "beta"}
	recipientID := botB
	viewed := baseTime.Add(-time.Minute)

	f.snaps.On("GetByID", mock.Anything, "s1").Return(&models.Snap{
		ID:          "s1",
		SenderID:    botA,
		RecipientID: &recipientID,
		ViewOnce:    true,
		ViewedAt:    &viewed,
		ExpiresAt:   baseTime.Add(time.Hour),
	}, nil).Once()

	_, err := f.service.ViewSnap(context.Background(), viewer, "s1")
	require.ErrorIs(t, err, services.ErrGone)
	f.snaps.AssertExpectations(t)
}

func TestViewSnapPublicIncrementsCount(t *testing.T) {
	f := newSnapFixture()
	viewer := &models.Profile{ID: botB, Username: "beta"}

	f.snaps.On("GetByID", mock.Anything, "s1").Return(&models.Snap{
		ID:        "s1",
		SenderID:  botA,
		ViewCount: 3,
		ExpiresAt: baseTime.Add(time.Hour),
	}, nil).Once()
	f.snaps.On("IncrementViewCount", mock.Anything, "s1").Return(nil).Once()
	f.profiles.On("GetByID", mock.Anything, botA).Return(&models.Profile{ID: botA, Username: "alpha"}, nil).Once()

	view, err := f.service.ViewSnap(context.Background(), viewer, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, view.ViewCount)
	assert.Equal(t, "alpha", view.SenderUsername)
	f.snaps.AssertExpectations(t)
}

func TestViewSnapPublicViewOnceConsumedByThirdParty(t *testing.T) {
	f := newSnapFixture()
	viewer := &models.Profile{ID: botB, Username: "beta"}

	key, err := f.payloads.Store(context.Background(), []byte("img"), "image/jpeg", botA)
	require.NoError(t, err)

	f.snaps.On("GetByID", mock.Anything, "s1").Return(&models.Snap{
		ID:         "s1",
		SenderID:   botA,
		ViewOnce:   true,
		PayloadKey: key,
		ExpiresAt:  baseTime.Add(time.Hour),
	}, nil).Once()
	f.snaps.On("MarkViewed", mock.Anything, "s1", baseTime).Return(true, nil).Once()
	f.snaps.On("Delete", mock.Anything, "s1").Return(nil).Once()
	f.profiles.On("GetByID", mock.Anything, botA).Return(&models.Profile{ID: botA, Username: "alpha"}, nil).Once()

	view, err := f.service.ViewSnap(context.Background(), viewer, "s1")
	require.NoError(t, err)
	assert.True(t, view.IsPublic)
	assert.False(t, f.payloads.Has(key), "payload should be gone after the first view")

	viewed := baseTime
	f.snaps.On("GetByID", mock.Anything, "s1").Return(&models.Snap{
		ID:        "s1",
		SenderID:  botA,
		ViewOnce:  true,
		ViewedAt:  &viewed,
		ExpiresAt: baseTime.Add(time.Hour),
	}, nil).Once()

	_, err = f.service.ViewSnap(context.Background(), viewer, "s1")
	require.ErrorIs(t, err, services.ErrGone, "second view of a public view-once snap is gone")
	f.snaps.AssertNotCalled(t, "IncrementViewCount", mock.Anything, "s1")
	f.snaps.AssertExpectations(t)
}

func TestDiscoverUnknownUsernameIsEmpty(t *testing.T) {
	f := newSnapFixture()

	f.profiles.On("GetByUsername", mock.Anything, "nobody").Return((*models.Profile)(nil), repository.ErrNotFound).Once()

	views, err := f.service.Discover(context.Background(), strPtr("nobody"), 20, 0)
	require.NoError(t, err)
	assert.Empty(t, views)
	f.snaps.AssertNotCalled(t, "Discover")
	f.profiles.AssertExpectations(t)
}

func TestTrendingTagsOrdering(t *testing.T) {
	f := newSnapFixture()

	f.snaps.On("ActiveTags", mock.Anything, baseTime).Return([][]string{
		{"sunset", "beach"},
		{"sunset"},
		{"city"},
	}, nil).Once()

	tags, err := f.service.TrendingTags(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, services.TagCount{Tag: "sunset", Count: 2}, tags[0])
	assert.Equal(t, services.TagCount{Tag: "beach", Count: 1}, tags[1])
	assert.Equal(t, services.TagCount{Tag: "city", Count: 1}, tags[2])
	f.snaps.AssertExpectations(t)
}

func TestReactToExpiredSnapIsGone(t *testing.T) {
	f := newSnapFixture()
	bot := &models.Profile{ID: botB, Username: "beta"}

	f.snaps.On("GetByID", mock.Anything, "s1").Return(&models.Snap{
		ID:        "s1",
		SenderID:  botA,
		ExpiresAt: baseTime.Add(-time.Minute),
	}, nil).Once()

	_, err := f.service.React(context.Background(), bot, "s1", "🔥")
	require.ErrorIs(t, err, services.ErrGone)
	f.snaps.AssertExpectations(t)
}

func TestDeleteSnapNotOwner(t *testing.T) {
	f := newSnapFixture()
	bot := &models.Profile{ID: botB, Username: "beta"}

	f.snaps.On("GetByID", mock.Anything, "s1").Return(&models.Snap{
		ID:        "s1",
		SenderID:  botA,
		ExpiresAt: baseTime.Add(time.Hour),
	}, nil).Once()

	err := f.service.DeleteSnap(context.Background(), bot, "s1")
	require.ErrorIs(t, err, services.ErrForbidden)
	f.snaps.AssertNotCalled(t, "Delete")
}

func TestDeleteSnapRemovesPayload(t *testing.T) {
	f := newSnapFixture()
	bot := &models.Profile{ID: botA, Username: "alpha"}

	key, err := f.payloads.Store(context.Background(), []byte("img"), "image/jpeg", botA)
	require.NoError(t, err)

	f.snaps.On("GetByID", mock.Anything, "s1").Return(&models.Snap{
		ID:         "s1",
		SenderID:   botA,
		PayloadKey: key,
		ExpiresAt:  baseTime.Add(time.Hour),
	}, nil).Once()
	f.snaps.On("Delete", mock.Anything, "s1").Return(nil).Once()

	require.NoError(t, f.service.DeleteSnap(context.Background(), bot, "s1"))
	assert.False(t, f.payloads.Has(key))
	f.snaps.AssertExpectations(t)
}
