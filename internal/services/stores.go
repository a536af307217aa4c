package services

import (
	"context"
	"time"

	"snapnet-backend/internal/models"
)

// Store interfaces consumed by the services. The pgx repositories in
// internal/repository satisfy them; internal/mocks provides test doubles.

// SnapStore persists snap records
type SnapStore interface {
	Create(ctx context.Context, snap *models.Snap) error
	GetByID(ctx context.Context, id string) (*models.Snap, error)
	ListBySender(ctx context.Context, senderID string, now time.Time) ([]*models.Snap, error)
	Inbox(ctx context.Context, recipientID string, now time.Time) ([]*models.Snap, error)
	Discover(ctx context.Context, now time.Time, senderID *string, limit, offset int) ([]*models.Snap, error)
	ActiveTags(ctx context.Context, now time.Time) ([][]string, error)
	MarkViewed(ctx context.Context, id string, now time.Time) (bool, error)
	IncrementViewCount(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Snap, error)
	UpsertReaction(ctx context.Context, reaction *models.Reaction) error
}

// StoryStore persists story records and their member lists
type StoryStore interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id string) (*models.Story, error)
	AddSnap(ctx context.Context, storyID, snapID string) error
	MemberSnaps(ctx context.Context, storyID string) ([]*models.Snap, error)
	ListActivePublic(ctx context.Context, now time.Time) ([]*models.Story, error)
	ListByOwner(ctx context.Context, ownerID string, now time.Time) ([]*models.Story, error)
	LatestActiveByOwner(ctx context.Context, ownerID string, now time.Time) (*models.Story, error)
	IncrementViewCount(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MessageStore persists message records
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	Inbox(ctx context.Context, recipientID string, now time.Time) ([]*models.Message, error)
	Sent(ctx context.Context, senderID string, now time.Time) ([]*models.Message, error)
	MarkRead(ctx context.Context, id string, readAt, newExpiry time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// ProfileStore persists profiles, API keys and the block list
type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, profile *models.Profile) error
	IncrementSnapScore(ctx context.Context, id string) error
	InsertKey(ctx context.Context, keyHash, botID string, now time.Time) error
	GetKey(ctx context.Context, keyHash string) (*models.APIKey, error)
	RevokeKeys(ctx context.Context, botID string, now time.Time) error
	Block(ctx context.Context, blockerID, blockedID string, now time.Time) error
	Unblock(ctx context.Context, blockerID, blockedID string) error
	IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error)
}

// StreakStore persists streak pair records. Mutate serializes writers
// of the same pair.
type StreakStore interface {
	Mutate(ctx context.Context, botA, botB string, fn func(s *models.Streak, created bool) error) (*models.Streak, error)
	ListStale(ctx context.Context, olderThan time.Time) ([]*models.Streak, error)
	ListForBot(ctx context.Context, botID string) ([]*models.Streak, error)
	Leaderboard(ctx context.Context, limit int) ([]*models.Streak, error)
}
