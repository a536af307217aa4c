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

const snapColumns = `id, sender_id, recipient_id, payload_key, image_url, caption, tags, view_once, expires_at, viewed_at, view_count, created_at`

// SnapRepository handles database operations for snaps
type SnapRepository struct {
	db *pgxpool.Pool
}

// NewSnapRepository creates a new snap repository
func NewSnapRepository(db *pgxpool.Pool) *SnapRepository {
	return &SnapRepository{db: db}
}

func scanSnap(row pgx.Row) (*models.Snap, error) {
	var s models.Snap
	err := row.Scan(
		&s.ID, &s.SenderID, &s.RecipientID, &s.PayloadKey, &s.ImageURL,
		&s.Caption, &s.Tags, &s.ViewOnce, &s.ExpiresAt, &s.ViewedAt,
		&s.ViewCount, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSnaps(rows pgx.Rows) ([]*models.Snap, error) {
	defer rows.Close()
	var snaps []*models.Snap
	for rows.Next() {
		s, err := scanSnap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snap: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snaps: %w", err)
	}
	return snaps, nil
}

// Create creates a new snap
func (r *SnapRepository) Create(ctx context.Context, snap *models.Snap) error {
	query := `
		INSERT INTO snaps (` + snapColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		snap.ID, snap.SenderID, snap.RecipientID, snap.PayloadKey, snap.ImageURL,
		snap.Caption, snap.Tags, snap.ViewOnce, snap.ExpiresAt, snap.ViewedAt,
		snap.ViewCount, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create snap: %w", err)
	}
	return nil
}

// GetByID retrieves a snap by ID
func (r *SnapRepository) GetByID(ctx context.Context, id string) (*models.Snap, error) {
	query := `SELECT ` + snapColumns + ` FROM snaps WHERE id = $1`
	snap, err := scanSnap(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snap: %w", err)
	}
	return snap, nil
}

// ListBySender retrieves unexpired snaps posted by a sender, newest first
func (r *SnapRepository) ListBySender(ctx context.Context, senderID string, now time.Time) ([]*models.Snap, error) {
	query := `
		SELECT ` + snapColumns + `
		FROM snaps
		WHERE sender_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, senderID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list snaps by sender: %w", err)
	}
	return collectSnaps(rows)
}

// Inbox retrieves unviewed, unexpired snaps addressed to a recipient
func (r *SnapRepository) Inbox(ctx context.Context, recipientID string, now time.Time) ([]*models.Snap, error) {
	query := `
		SELECT ` + snapColumns + `
		FROM snaps
		WHERE recipient_id = $1 AND expires_at > $2 AND viewed_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, recipientID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox snaps: %w", err)
	}
	return collectSnaps(rows)
}

// Discover retrieves public unexpired snaps with pagination, optionally
// filtered by sender
func (r *SnapRepository) Discover(ctx context.Context, now time.Time, senderID *string, limit, offset int) ([]*models.Snap, error) {
	query := `
		SELECT ` + snapColumns + `
		FROM snaps
		WHERE recipient_id IS NULL AND expires_at > $1
		  AND ($2::uuid IS NULL OR sender_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, now, senderID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query discover feed: %w", err)
	}
	return collectSnaps(rows)
}

// ActiveTags returns the tag arrays of all public unexpired snaps
func (r *SnapRepository) ActiveTags(ctx context.Context, now time.Time) ([][]string, error) {
	query := `SELECT tags FROM snaps WHERE recipient_id IS NULL AND expires_at > $1`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tags: %w", err)
	}
	defer rows.Close()

	var all [][]string
	for rows.Next() {
		var tags []string
		if err := rows.Scan(&tags); err != nil {
			return nil, fmt.Errorf("failed to scan tags: %w", err)
		}
		all = append(all, tags)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return all, nil
}

// MarkViewed transitions viewed_at from null to now and bumps the view
// count. The conditional update is the authoritative first-view decision
// point: exactly one concurrent caller observes true.
func (r *SnapRepository) MarkViewed(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE snaps
		SET viewed_at = $2, view_count = view_count + 1
		WHERE id = $1 AND viewed_at IS NULL
	`
	result, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark snap viewed: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// IncrementViewCount bumps view_count without touching viewed_at
func (r *SnapRepository) IncrementViewCount(ctx context.Context, id string) error {
	query := `UPDATE snaps SET view_count = view_count + 1 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

// Delete deletes a snap by ID
func (r *SnapRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM snaps WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete snap: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpired retrieves snaps whose expiry has passed, oldest first.
// The expires_at index keeps this bounded even on a large table.
func (r *SnapRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Snap, error) {
	query := `
		SELECT ` + snapColumns + `
		FROM snaps
		WHERE expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired snaps: %w", err)
	}
	return collectSnaps(rows)
}

// UpsertReaction records an emoji reaction, replacing any prior one
// from the same bot
func (r *SnapRepository) UpsertReaction(ctx context.Context, reaction *models.Reaction) error {
	query := `
		INSERT INTO snap_reactions (snap_id, bot_id, emoji, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (snap_id, bot_id) DO UPDATE SET emoji = EXCLUDED.emoji
	`
	_, err := r.db.Exec(ctx, query, reaction.SnapID, reaction.BotID, reaction.Emoji, reaction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert reaction: %w", err)
	}
	return nil
}
