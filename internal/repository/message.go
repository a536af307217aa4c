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

const messageColumns = `id, sender_id, recipient_id, snap_id, text, read_at, expires_at, created_at`

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID, &m.SenderID, &m.RecipientID, &m.SnapID, &m.Text,
		&m.ReadAt, &m.ExpiresAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMessages(rows pgx.Rows) ([]*models.Message, error) {
	defer rows.Close()
	var messages []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.SenderID, msg.RecipientID, msg.SnapID, msg.Text,
		msg.ReadAt, msg.ExpiresAt, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// Inbox retrieves unexpired messages addressed to a recipient, newest first
func (r *MessageRepository) Inbox(ctx context.Context, recipientID string, now time.Time) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE recipient_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, recipientID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox messages: %w", err)
	}
	return collectMessages(rows)
}

// Sent retrieves unexpired messages sent by a bot, newest first
func (r *MessageRepository) Sent(ctx context.Context, senderID string, now time.Time) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE sender_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, senderID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent messages: %w", err)
	}
	return collectMessages(rows)
}

// MarkRead sets read_at once and shortens the expiry. The read_at
// guard keeps a second concurrent read from moving the expiry again.
func (r *MessageRepository) MarkRead(ctx context.Context, id string, readAt, newExpiry time.Time) (bool, error) {
	query := `
		UPDATE messages
		SET read_at = $2, expires_at = $3
		WHERE id = $1 AND read_at IS NULL
	`
	result, err := r.db.Exec(ctx, query, id, readAt, newExpiry)
	if err != nil {
		return false, fmt.Errorf("failed to mark message read: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// Delete deletes a message by ID
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes messages past their expiry and returns how
// many were deleted
func (r *MessageRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM messages WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired messages: %w", err)
	}
	return int(result.RowsAffected()), nil
}
