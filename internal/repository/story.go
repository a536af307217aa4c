package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snapnet-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const storyColumns = `id, owner_id, title, is_public, expires_at, view_count, created_at`

// StoryRepository handles database operations for stories and their
// ordered member snaps
type StoryRepository struct {
	db *pgxpool.Pool
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *pgxpool.Pool) *StoryRepository {
	return &StoryRepository{db: db}
}

func scanStory(row pgx.Row) (*models.Story, error) {
	var s models.Story
	err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.Public, &s.ExpiresAt, &s.ViewCount, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectStories(rows pgx.Rows) ([]*models.Story, error) {
	defer rows.Close()
	var stories []*models.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stories: %w", err)
	}
	return stories, nil
}

// Create creates a new story
func (r *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	query := `
		INSERT INTO stories (` + storyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		story.ID, story.OwnerID, story.Title, story.Public,
		story.ExpiresAt, story.ViewCount, story.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

// GetByID retrieves a story by ID
func (r *StoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`
	story, err := scanStory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return story, nil
}

// AddSnap appends a snap at the next free position
func (r *StoryRepository) AddSnap(ctx context.Context, storyID, snapID string) error {
	query := `
		INSERT INTO story_snaps (story_id, snap_id, position)
		SELECT $1, $2, COALESCE(MAX(position) + 1, 0)
		FROM story_snaps WHERE story_id = $1
	`
	if _, err := r.db.Exec(ctx, query, storyID, snapID); err != nil {
		return fmt.Errorf("failed to add snap to story: %w", err)
	}
	return nil
}

// MemberSnaps retrieves a story's snaps in position order
func (r *StoryRepository) MemberSnaps(ctx context.Context, storyID string) ([]*models.Snap, error) {
	query := `
		SELECT s.id, s.sender_id, s.recipient_id, s.payload_key, s.image_url,
		       s.caption, s.tags, s.view_once, s.expires_at, s.viewed_at, s.view_count, s.created_at
		FROM story_snaps ss
		JOIN snaps s ON s.id = ss.snap_id
		WHERE ss.story_id = $1
		ORDER BY ss.position
	`
	rows, err := r.db.Query(ctx, query, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get story snaps: %w", err)
	}
	return collectSnaps(rows)
}

// ListActivePublic retrieves unexpired public stories, newest first
func (r *StoryRepository) ListActivePublic(ctx context.Context, now time.Time) ([]*models.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE is_public AND expires_at > $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active stories: %w", err)
	}
	return collectStories(rows)
}

// ListByOwner retrieves a profile's unexpired stories, newest first
func (r *StoryRepository) ListByOwner(ctx context.Context, ownerID string, now time.Time) ([]*models.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE owner_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories by owner: %w", err)
	}
	return collectStories(rows)
}

// LatestActiveByOwner retrieves the most recently created unexpired
// public story of a profile. There is no stored "current story"
// pointer; this query is the definition.
func (r *StoryRepository) LatestActiveByOwner(ctx context.Context, ownerID string, now time.Time) (*models.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE owner_id = $1 AND is_public AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	story, err := scanStory(r.db.QueryRow(ctx, query, ownerID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest story: %w", err)
	}
	return story, nil
}

// IncrementViewCount bumps a story's view count
func (r *StoryRepository) IncrementViewCount(ctx context.Context, id string) error {
	query := `UPDATE stories SET view_count = view_count + 1 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment story view count: %w", err)
	}
	return nil
}

// Delete removes a story and its join rows. Member snaps are not
// touched; they expire on their own schedule.
func (r *StoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes stories past their expiry and returns how many
// were deleted. The join rows cascade at the schema level.
func (r *StoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM stories WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired stories: %w", err)
	}
	return int(result.RowsAffected()), nil
}
