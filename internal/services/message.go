package services

import (
	"context"
	"errors"
	"fmt"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/models"
	"snapnet-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxMessageLen = 2000

// MessageService handles ephemeral bot-to-bot messages
type MessageService struct {
	messages  MessageStore
	profiles  ProfileStore
	snaps     SnapStore
	lifecycle *LifecycleEngine
	notifier  Notifier
	clock     clock.Clock
}

// NewMessageService creates a new message service
func NewMessageService(messages MessageStore, profiles ProfileStore, snaps SnapStore, lifecycle *LifecycleEngine, notifier Notifier, clk clock.Clock) *MessageService {
	return &MessageService{
		messages:  messages,
		profiles:  profiles,
		snaps:     snaps,
		lifecycle: lifecycle,
		notifier:  notifier,
		clock:     clk,
	}
}

// SendMessageRequest describes a message to send. Text or SnapID (or
// both) must be present.
type SendMessageRequest struct {
	RecipientUsername string  `json:"recipient_username"`
	Text              *string `json:"text,omitempty"`
	SnapID            *string `json:"snap_id,omitempty"`
	ExpiresInHours    int     `json:"expires_in_hours"`
}

// MessageView is a message with the sender resolved
type MessageView struct {
	models.Message
	SenderUsername string `json:"sender_username"`
}

func (s *MessageService) view(ctx context.Context, msg *models.Message) *MessageView {
	username := "unknown"
	if sender, err := s.profiles.GetByID(ctx, msg.SenderID); err == nil {
		username = sender.Username
	}
	return &MessageView{Message: *msg, SenderUsername: username}
}

func (s *MessageService) views(ctx context.Context, msgs []*models.Message) []*MessageView {
	out := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.view(ctx, m))
	}
	return out
}

// Send creates a message addressed to a recipient that has not blocked
// the sender
func (s *MessageService) Send(ctx context.Context, sender *models.Profile, req SendMessageRequest) (*MessageView, error) {
	if req.Text == nil && req.SnapID == nil {
		return nil, fmt.Errorf("%w: provide text or snap_id", ErrInvalidInput)
	}
	if req.Text != nil && len(*req.Text) > maxMessageLen {
		return nil, fmt.Errorf("%w: text must be at most %d chars", ErrInvalidInput, maxMessageLen)
	}

	recipient, err := s.profiles.GetByUsername(ctx, req.RecipientUsername)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("recipient %q: %w", req.RecipientUsername, ErrNotFound)
		}
		return nil, err
	}

	blocked, err := s.profiles.IsBlocked(ctx, recipient.ID, sender.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("recipient has blocked sender: %w", ErrForbidden)
	}

	if req.SnapID != nil {
		if _, err := s.snaps.GetByID(ctx, *req.SnapID); err != nil {
			return nil, fmt.Errorf("attached snap %s: %w", *req.SnapID, mapNotFound(err))
		}
	}

	expiresAt, err := s.lifecycle.ComputeExpiry(req.ExpiresInHours)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:          uuid.New().String(),
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		SnapID:      req.SnapID,
		Text:        req.Text,
		ExpiresAt:   expiresAt,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.notifier.Notify(recipient.ID, Event{
		Type:           "message.received",
		MessageID:      msg.ID,
		SenderUsername: sender.Username,
	})

	result := s.view(ctx, msg)
	result.SenderUsername = sender.Username
	return result, nil
}

// markRead applies the read-grace rule: a read message expires at
// read_at + grace, unless it would already expire sooner. The expiry
// is never extended.
func (s *MessageService) markRead(ctx context.Context, msg *models.Message) {
	now := s.clock.Now()
	newExpiry := now.Add(s.lifecycle.ReadGrace())
	if msg.ExpiresAt.Before(newExpiry) {
		newExpiry = msg.ExpiresAt
	}
	updated, err := s.messages.MarkRead(ctx, msg.ID, now, newExpiry)
	if err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("Mark read failed")
		return
	}
	if updated {
		msg.ReadAt = &now
		msg.ExpiresAt = newExpiry
	}
}

// Inbox lists unexpired messages for the bot and auto-marks unread
// ones as read, shortening their expiry to the read grace
func (s *MessageService) Inbox(ctx context.Context, bot *models.Profile) ([]*MessageView, error) {
	msgs, err := s.messages.Inbox(ctx, bot.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if msg.ReadAt == nil {
			s.markRead(ctx, msg)
		}
	}
	return s.views(ctx, msgs), nil
}

// Sent lists the bot's unexpired outgoing messages
func (s *MessageService) Sent(ctx context.Context, botID string) ([]*MessageView, error) {
	msgs, err := s.messages.Sent(ctx, botID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.views(ctx, msgs), nil
}

// Get fetches a single message without marking it read
func (s *MessageService) Get(ctx context.Context, bot *models.Profile, messageID string) (*MessageView, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if bot.ID != msg.SenderID && bot.ID != msg.RecipientID {
		return nil, fmt.Errorf("message %s not addressed to caller: %w", messageID, ErrForbidden)
	}
	if Expired(msg.ExpiresAt, s.clock.Now()) {
		return nil, fmt.Errorf("message %s expired: %w", messageID, ErrGone)
	}
	return s.view(ctx, msg), nil
}

// MarkRead explicitly marks a received message as read
func (s *MessageService) MarkRead(ctx context.Context, bot *models.Profile, messageID string) (*MessageView, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if msg.RecipientID != bot.ID {
		return nil, fmt.Errorf("message %s not addressed to caller: %w", messageID, ErrForbidden)
	}
	if Expired(msg.ExpiresAt, s.clock.Now()) {
		return nil, fmt.Errorf("message %s expired: %w", messageID, ErrGone)
	}
	if msg.ReadAt == nil {
		s.markRead(ctx, msg)
	}
	return s.view(ctx, msg), nil
}

// Delete removes a message; either party may do it
func (s *MessageService) Delete(ctx context.Context, bot *models.Profile, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return mapNotFound(err)
	}
	if bot.ID != msg.SenderID && bot.ID != msg.RecipientID {
		return fmt.Errorf("message %s not addressed to caller: %w", messageID, ErrForbidden)
	}
	return mapNotFound(s.messages.Delete(ctx, messageID))
}
