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

const profileColumns = `id, username, display_name, bio, avatar_url, is_public, snap_score, created_at`

// ProfileRepository handles database operations for bot profiles,
// their API keys and their block list
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarURL,
		&p.Public, &p.SnapScore, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO bot_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		profile.ID, profile.Username, profile.DisplayName, profile.Bio,
		profile.AvatarURL, profile.Public, profile.SnapScore, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM bot_profiles WHERE id = $1`
	profile, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetByUsername retrieves a profile by username
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM bot_profiles WHERE username = $1`
	profile, err := scanProfile(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by username: %w", err)
	}
	return profile, nil
}

// UsernameExists checks whether a username is taken
func (r *ProfileRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM bot_profiles WHERE username = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// Update writes the mutable profile fields
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE bot_profiles
		SET display_name = $2, bio = $3, avatar_url = $4, is_public = $5
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		profile.ID, profile.DisplayName, profile.Bio, profile.AvatarURL, profile.Public,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementSnapScore bumps a profile's snap score by one
func (r *ProfileRepository) IncrementSnapScore(ctx context.Context, id string) error {
	query := `UPDATE bot_profiles SET snap_score = snap_score + 1 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment snap score: %w", err)
	}
	return nil
}

// InsertKey stores a hashed API key for a bot
func (r *ProfileRepository) InsertKey(ctx context.Context, keyHash, botID string, now time.Time) error {
	query := `INSERT INTO api_keys (key_hash, bot_id, created_at) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, keyHash, botID, now); err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	return nil
}

// GetKey resolves a key hash to its record
func (r *ProfileRepository) GetKey(ctx context.Context, keyHash string) (*models.APIKey, error) {
	query := `SELECT key_hash, bot_id, revoked_at, created_at FROM api_keys WHERE key_hash = $1`
	var key models.APIKey
	err := r.db.QueryRow(ctx, query, keyHash).Scan(&key.KeyHash, &key.BotID, &key.RevokedAt, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &key, nil
}

// RevokeKeys marks every live key of a bot as revoked
func (r *ProfileRepository) RevokeKeys(ctx context.Context, botID string, now time.Time) error {
	query := `UPDATE api_keys SET revoked_at = $2 WHERE bot_id = $1 AND revoked_at IS NULL`
	if _, err := r.db.Exec(ctx, query, botID, now); err != nil {
		return fmt.Errorf("failed to revoke api keys: %w", err)
	}
	return nil
}

// Block records blocker blocking blocked
func (r *ProfileRepository) Block(ctx context.Context, blockerID, blockedID string, now time.Time) error {
	query := `
		INSERT INTO bot_blocks (blocker_id, blocked_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, blockerID, blockedID, now); err != nil {
		return fmt.Errorf("failed to block bot: %w", err)
	}
	return nil
}

// Unblock removes a block edge
func (r *ProfileRepository) Unblock(ctx context.Context, blockerID, blockedID string) error {
	query := `DELETE FROM bot_blocks WHERE blocker_id = $1 AND blocked_id = $2`
	if _, err := r.db.Exec(ctx, query, blockerID, blockedID); err != nil {
		return fmt.Errorf("failed to unblock bot: %w", err)
	}
	return nil
}

// IsBlocked checks whether blocker has blocked blocked
func (r *ProfileRepository) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM bot_blocks WHERE blocker_id = $1 AND blocked_id = $2)`
	var blocked bool
	if err := r.db.QueryRow(ctx, query, blockerID, blockedID).Scan(&blocked); err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return blocked, nil
}
