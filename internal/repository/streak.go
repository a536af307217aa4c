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

const streakColumns = `id, bot_a_id, bot_b_id, count, last_snap_at, bot_a_sent, bot_b_sent, at_risk, created_at`

// StreakRepository handles database operations for streak pairs
type StreakRepository struct {
	db *pgxpool.Pool
}

// NewStreakRepository creates a new streak repository
func NewStreakRepository(db *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{db: db}
}

// CanonicalPair orders two profile IDs so that (a,b) and (b,a) resolve
// to the same record. The (bot_a_id, bot_b_id) unique constraint
// enforces it at the store level as well.
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func scanStreak(row pgx.Row) (*models.Streak, error) {
	var s models.Streak
	err := row.Scan(
		&s.ID, &s.BotAID, &s.BotBID, &s.Count, &s.LastSnapAt,
		&s.BotASent, &s.BotBSent, &s.AtRisk, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectStreaks(rows pgx.Rows) ([]*models.Streak, error) {
	defer rows.Close()
	var streaks []*models.Streak
	for rows.Next() {
		s, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak: %w", err)
		}
		streaks = append(streaks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating streaks: %w", err)
	}
	return streaks, nil
}

// Mutate loads (or initializes) the canonical pair record under a row
// lock, applies fn, and persists the result. fn sees created=true with
// a zero record when the pair does not exist yet; the row lock
// serializes concurrent updates to the same pair. A create that loses
// a race against a concurrent insert returns ErrConflict.
func (r *StreakRepository) Mutate(ctx context.Context, botA, botB string, fn func(s *models.Streak, created bool) error) (*models.Streak, error) {
	a, b := CanonicalPair(botA, botB)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin streak tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + streakColumns + ` FROM streaks WHERE bot_a_id = $1 AND bot_b_id = $2 FOR UPDATE`
	streak, err := scanStreak(tx.QueryRow(ctx, query, a, b))
	created := false
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to lock streak: %w", err)
		}
		streak = &models.Streak{BotAID: a, BotBID: b}
		created = true
	}

	if err := fn(streak, created); err != nil {
		return nil, err
	}

	if created {
		insert := `
			INSERT INTO streaks (` + streakColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (bot_a_id, bot_b_id) DO NOTHING
		`
		result, err := tx.Exec(ctx, insert,
			streak.ID, streak.BotAID, streak.BotBID, streak.Count, streak.LastSnapAt,
			streak.BotASent, streak.BotBSent, streak.AtRisk, streak.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert streak: %w", err)
		}
		if result.RowsAffected() == 0 {
			return nil, ErrConflict
		}
	} else {
		update := `
			UPDATE streaks
			SET count = $2, last_snap_at = $3, bot_a_sent = $4, bot_b_sent = $5, at_risk = $6
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, update,
			streak.ID, streak.Count, streak.LastSnapAt,
			streak.BotASent, streak.BotBSent, streak.AtRisk,
		); err != nil {
			return nil, fmt.Errorf("failed to update streak: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit streak tx: %w", err)
	}
	return streak, nil
}

// ListStale retrieves pairs whose last snap is older than the
// threshold. The last_snap_at index keeps the sweep from scanning
// pairs that cannot need attention yet.
func (r *StreakRepository) ListStale(ctx context.Context, olderThan time.Time) ([]*models.Streak, error) {
	query := `SELECT ` + streakColumns + ` FROM streaks WHERE last_snap_at < $1`
	rows, err := r.db.Query(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale streaks: %w", err)
	}
	return collectStreaks(rows)
}

// ListForBot retrieves every streak a bot participates in, highest
// count first
func (r *StreakRepository) ListForBot(ctx context.Context, botID string) ([]*models.Streak, error) {
	query := `
		SELECT ` + streakColumns + `
		FROM streaks
		WHERE bot_a_id = $1 OR bot_b_id = $1
		ORDER BY count DESC, last_snap_at DESC
	`
	rows, err := r.db.Query(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to list streaks for bot: %w", err)
	}
	return collectStreaks(rows)
}

// Leaderboard retrieves the top streaks. Ordering is deterministic:
// count descending, then most recent last_snap_at, then canonical
// pair id.
func (r *StreakRepository) Leaderboard(ctx context.Context, limit int) ([]*models.Streak, error) {
	query := `
		SELECT ` + streakColumns + `
		FROM streaks
		ORDER BY count DESC, last_snap_at DESC, bot_a_id, bot_b_id
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	return collectStreaks(rows)
}
