package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"snapnet-backend/internal/models"
)

type SnapStoreMock struct {
	mock.Mock
}

func (m *SnapStoreMock) Create(ctx context.Context, snap *models.Snap) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *SnapStoreMock) GetByID(ctx context.Context, id string) (*models.Snap, error) {
	args := m.Called(ctx, id)
	var snap *models.Snap
	if val := args.Get(0); val != nil {
		snap = val.(*models.Snap)
	}
	return snap, args.Error(1)
}

func (m *SnapStoreMock) ListBySender(ctx context.Context, senderID string, now time.Time) ([]*models.Snap, error) {
	args := m.Called(ctx, senderID, now)
	var snaps []*models.Snap
	if val := args.Get(0); val != nil {
		snaps = val.([]*models.Snap)
	}
	return snaps, args.Error(1)
}

func (m *SnapStoreMock) Inbox(ctx context.Context, recipientID string, now time.Time) ([]*models.Snap, error) {
	args := m.Called(ctx, recipientID, now)
	var snaps []*models.Snap
	if val := args.Get(0); val != nil {
		snaps = val.([]*models.Snap)
	}
	return snaps, args.Error(1)
}

func (m *SnapStoreMock) Discover(ctx context.Context, now time.Time, senderID *string, limit, offset int) ([]*models.Snap, error) {
	args := m.Called(ctx, now, senderID, limit, offset)
	var snaps []*models.Snap
	if val := args.Get(0); val != nil {
		snaps = val.([]*models.Snap)
	}
	return snaps, args.Error(1)
}

func (m *SnapStoreMock) ActiveTags(ctx context.Context, now time.Time) ([][]string, error) {
	args := m.Called(ctx, now)
	var tags [][]string
	if val := args.Get(0); val != nil {
		tags = val.([][]string)
	}
	return tags, args.Error(1)
}

func (m *SnapStoreMock) MarkViewed(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *SnapStoreMock) IncrementViewCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SnapStoreMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SnapStoreMock) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Snap, error) {
	args := m.Called(ctx, now, limit)
	var snaps []*models.Snap
	if val := args.Get(0); val != nil {
		snaps = val.([]*models.Snap)
	}
	return snaps, args.Error(1)
}

func (m *SnapStoreMock) UpsertReaction(ctx context.Context, reaction *models.Reaction) error {
	args := m.Called(ctx, reaction)
	return args.Error(0)
}

type StoryStoreMock struct {
	mock.Mock
}

func (m *StoryStoreMock) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *StoryStoreMock) GetByID(ctx context.Context, id string) (*models.Story, error) {
	args := m.Called(ctx, id)
	var story *models.Story
	if val := args.Get(0); val != nil {
		story = val.(*models.Story)
	}
	return story, args.Error(1)
}

func (m *StoryStoreMock) AddSnap(ctx context.Context, storyID, snapID string) error {
	args := m.Called(ctx, storyID, snapID)
	return args.Error(0)
}

func (m *StoryStoreMock) MemberSnaps(ctx context.Context, storyID string) ([]*models.Snap, error) {
	args := m.Called(ctx, storyID)
	var snaps []*models.Snap
	if val := args.Get(0); val != nil {
		snaps = val.([]*models.Snap)
	}
	return snaps, args.Error(1)
}

func (m *StoryStoreMock) ListActivePublic(ctx context.Context, now time.Time) ([]*models.Story, error) {
	args := m.Called(ctx, now)
	var stories []*models.Story
	if val := args.Get(0); val != nil {
		stories = val.([]*models.Story)
	}
	return stories, args.Error(1)
}

func (m *StoryStoreMock) ListByOwner(ctx context.Context, ownerID string, now time.Time) ([]*models.Story, error) {
	args := m.Called(ctx, ownerID, now)
	var stories []*models.Story
	if val := args.Get(0); val != nil {
		stories = val.([]*models.Story)
	}
	return stories, args.Error(1)
}

func (m *StoryStoreMock) LatestActiveByOwner(ctx context.Context, ownerID string, now time.Time) (*models.Story, error) {
	args := m.Called(ctx, ownerID, now)
	var story *models.Story
	if val := args.Get(0); val != nil {
		story = val.(*models.Story)
	}
	return story, args.Error(1)
}

func (m *StoryStoreMock) IncrementViewCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *StoryStoreMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *StoryStoreMock) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MessageStoreMock struct {
	mock.Mock
}

func (m *MessageStoreMock) Create(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageStoreMock) GetByID(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	var msg *models.Message
	if val := args.Get(0); val != nil {
		msg = val.(*models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageStoreMock) Inbox(ctx context.Context, recipientID string, now time.Time) ([]*models.Message, error) {
	args := m.Called(ctx, recipientID, now)
	var msgs []*models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]*models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageStoreMock) Sent(ctx context.Context, senderID string, now time.Time) ([]*models.Message, error) {
	args := m.Called(ctx, senderID, now)
	var msgs []*models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]*models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageStoreMock) MarkRead(ctx context.Context, id string, readAt, newExpiry time.Time) (bool, error) {
	args := m.Called(ctx, id, readAt, newExpiry)
	return args.Bool(0), args.Error(1)
}

func (m *MessageStoreMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MessageStoreMock) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type ProfileStoreMock struct {
	mock.Mock
}

func (m *ProfileStoreMock) Create(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *ProfileStoreMock) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	args := m.Called(ctx, id)
	var profile *models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(*models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileStoreMock) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	args := m.Called(ctx, username)
	var profile *models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(*models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileStoreMock) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *ProfileStoreMock) Update(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *ProfileStoreMock) IncrementSnapScore(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProfileStoreMock) InsertKey(ctx context.Context, keyHash, botID string, now time.Time) error {
	args := m.Called(ctx, keyHash, botID, now)
	return args.Error(0)
}

func (m *ProfileStoreMock) GetKey(ctx context.Context, keyHash string) (*models.APIKey, error) {
	args := m.Called(ctx, keyHash)
	var key *models.APIKey
	if val := args.Get(0); val != nil {
		key = val.(*models.APIKey)
	}
	return key, args.Error(1)
}

func (m *ProfileStoreMock) RevokeKeys(ctx context.Context, botID string, now time.Time) error {
	args := m.Called(ctx, botID, now)
	return args.Error(0)
}

func (m *ProfileStoreMock) Block(ctx context.Context, blockerID, blockedID string, now time.Time) error {
	args := m.Called(ctx, blockerID, blockedID, now)
	return args.Error(0)
}

func (m *ProfileStoreMock) Unblock(ctx context.Context, blockerID, blockedID string) error {
	args := m.Called(ctx, blockerID, blockedID)
	return args.Error(0)
}

func (m *ProfileStoreMock) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	args := m.Called(ctx, blockerID, blockedID)
	return args.Bool(0), args.Error(1)
}
