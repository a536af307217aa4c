package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/config"
	"snapnet-backend/internal/mocks"
	"snapnet-backend/internal/models"
	"snapnet-backend/internal/services"
	"snapnet-backend/internal/storage"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func lifecycleConfig() config.LifecycleConfig {
	return config.LifecycleConfig{
		DefaultTTLHours:  24,
		MaxTTLHours:      168,
		StoryTTLHours:    24,
		ReadGraceMinutes: 20,
	}
}

func newEngine(clk clock.Clock, snaps *mocks.SnapStoreMock, stories *mocks.StoryStoreMock, messages *mocks.MessageStoreMock, payloads storage.PayloadStore) *services.LifecycleEngine {
	return services.NewLifecycleEngine(lifecycleConfig(), clk, snaps, stories, messages, payloads)
}

func TestComputeExpiryDefault(t *testing.T) {
	clk := clock.NewFake(baseTime)
	engine := newEngine(clk, new(mocks.SnapStoreMock), new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), storage.NewMemory())

	expiry, err := engine.ComputeExpiry(0)
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(24*time.Hour), expiry)
}

func TestComputeExpiryCustom(t *testing.T) {
	clk := clock.NewFake(baseTime)
	engine := newEngine(clk, new(mocks.SnapStoreMock), new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), storage.NewMemory())

	expiry, err := engine.ComputeExpiry(6)
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(6*time.Hour), expiry)
}

func TestComputeExpiryRejectsNegative(t *testing.T) {
	clk := clock.NewFake(baseTime)
	engine := newEngine(clk, new(mocks.SnapStoreMock), new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), storage.NewMemory())

	_, err := engine.ComputeExpiry(-1)
	require.ErrorIs(t, err, services.ErrInvalidTTL)
}

func TestComputeExpiryRejectsOverCap(t *testing.T) {
	clk := clock.NewFake(baseTime)
	engine := newEngine(clk, new(mocks.SnapStoreMock), new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), storage.NewMemory())

	_, err := engine.ComputeExpiry(500)
	require.ErrorIs(t, err, services.ErrInvalidTTL)
}

func TestExpiredBoundary(t *testing.T) {
	expiresAt := baseTime.Add(time.Hour)

	assert.False(t, services.Expired(expiresAt, expiresAt.Add(-time.Second)))
	assert.True(t, services.Expired(expiresAt, expiresAt), "exactly at expires_at counts as expired")
	assert.True(t, services.Expired(expiresAt, expiresAt.Add(time.Second)))
}

func TestSnapVisibleViewOnceConsumed(t *testing.T) {
	clk := clock.NewFake(baseTime)
	engine := newEngine(clk, new(mocks.SnapStoreMock), new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), storage.NewMemory())

	viewed := baseTime.Add(-time.Minute)
	snap := &models.Snap{ID: "s1", ViewOnce: true, ViewedAt: &viewed, ExpiresAt: baseTime.Add(time.Hour)}
	assert.False(t, engine.SnapVisible(snap, clk.Now()))

	snap.ViewedAt = nil
	assert.True(t, engine.SnapVisible(snap, clk.Now()))
}

func TestRecordViewExpired(t *testing.T) {
	clk := clock.NewFake(baseTime)
	engine := newEngine(clk, new(mocks.SnapStoreMock), new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), storage.NewMemory())

	snap := &models.Snap{ID: "s1", ExpiresAt: baseTime.Add(-time.Minute)}
	_, err := engine.RecordView(context.Background(), snap)
	require.ErrorIs(t, err, services.ErrGone)
}

func TestRecordViewFirstViewOnceDeletes(t *testing.T) {
	clk := clock.NewFake(baseTime)
	snaps := new(mocks.SnapStoreMock)
	payloads := storage.NewMemory()
	key, err := payloads.Store(context.Background(), []byte("img"), "image/jpeg", "bot-1")
	require.NoError(t, err)

	engine := newEngine(clk, snaps, new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), payloads)

	snap := &models.Snap{ID: "s1", ViewOnce: true, PayloadKey: key, ExpiresAt: baseTime.Add(time.Hour)}
	snaps.On("MarkViewed", mock.Anything, "s1", baseTime).Return(true, nil).Once()
	snaps.On("Delete", mock.Anything, "s1").Return(nil).Once()

	result, err := engine.RecordView(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, result.FirstView)
	assert.True(t, result.Deleted)
	assert.False(t, payloads.Has(key), "payload should be gone after the view-once delete")
	snaps.AssertExpectations(t)
}

func TestRecordViewSecondViewOnceGone(t *testing.T) {
	clk := clock.NewFake(baseTime)
	snaps := new(mocks.SnapStoreMock)
	engine := newEngine(clk, snaps, new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), storage.NewMemory())

	snap := &models.Snap{ID: "s1", ViewOnce: true, ExpiresAt: baseTime.Add(time.Hour)}
	snaps.On("MarkViewed", mock.Anything, "s1", baseTime).Return(false, nil).Once()

	_, err := engine.RecordView(context.Background(), snap)
	require.ErrorIs(t, err, services.ErrGone)
	snaps.AssertExpectations(t)
}

func TestRecordViewPersistentRepeatView(t *testing.T) {
	clk := clock.NewFake(baseTime)
	snaps := new(mocks.SnapStoreMock)
	engine := newEngine(clk, snaps, new(mocks.StoryStoreMock), new(mocks.MessageStoreMock), storage.NewMemory())

	snap := &models.Snap{ID: "s1", ViewCount: 3, ExpiresAt: baseTime.Add(time.Hour)}
	snaps.On("MarkViewed", mock.Anything, "s1", baseTime).Return(false, nil).Once()
	snaps.On("IncrementViewCount", mock.Anything, "s1").Return(nil).Once()

	result, err := engine.RecordView(context.Background(), snap)
	require.NoError(t, err)
	assert.False(t, result.FirstView)
	assert.False(t, result.Deleted)
	assert.Equal(t, 4, snap.ViewCount, "returned snap must carry the bumped count")
	snaps.AssertExpectations(t)
}

func TestPurgeExpiredCountsFailures(t *testing.T) {
	clk := clock.NewFake(baseTime)
	snaps := new(mocks.SnapStoreMock)
	stories := new(mocks.StoryStoreMock)
	messages := new(mocks.MessageStoreMock)
	payloads := storage.NewMemory()

	goodKey, err := payloads.Store(context.Background(), []byte("a"), "image/jpeg", "bot-1")
	require.NoError(t, err)
	badKey, err := payloads.Store(context.Background(), []byte("b"), "image/jpeg", "bot-2")
	require.NoError(t, err)
	payloads.FailDelete[badKey] = true

	engine := newEngine(clk, snaps, stories, messages, payloads)

	expired := []*models.Snap{
		{ID: "s1", PayloadKey: goodKey, ExpiresAt: baseTime.Add(-time.Hour)},
		{ID: "s2", PayloadKey: badKey, ExpiresAt: baseTime.Add(-time.Hour)},
	}
	snaps.On("ListExpired", mock.Anything, baseTime, 500).Return(expired, nil).Once()
	snaps.On("Delete", mock.Anything, "s1").Return(nil).Once()
	stories.On("DeleteExpired", mock.Anything, baseTime).Return(2, nil).Once()
	messages.On("DeleteExpired", mock.Anything, baseTime).Return(3, nil).Once()

	stats, err := engine.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Snaps)
	assert.Equal(t, 2, stats.Stories)
	assert.Equal(t, 3, stats.Messages)
	assert.Equal(t, 1, stats.Failures, "failing payload delete leaves the record for the next pass")
	assert.True(t, payloads.Has(badKey), "failed payload stays in the bucket")
	snaps.AssertExpectations(t)
	stories.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestPurgeExpiredNothingToDo(t *testing.T) {
	clk := clock.NewFake(baseTime)
	snaps := new(mocks.SnapStoreMock)
	stories := new(mocks.StoryStoreMock)
	messages := new(mocks.MessageStoreMock)
	engine := newEngine(clk, snaps, stories, messages, storage.NewMemory())

	snaps.On("ListExpired", mock.Anything, baseTime, 500).Return(([]*models.Snap)(nil), nil).Once()
	stories.On("DeleteExpired", mock.Anything, baseTime).Return(0, nil).Once()
	messages.On("DeleteExpired", mock.Anything, baseTime).Return(0, nil).Once()

	stats, err := engine.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.PurgeStats{}, stats)
}
