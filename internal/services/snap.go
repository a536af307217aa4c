package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/models"
	"snapnet-backend/internal/repository"
	"snapnet-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxCaptionLen = 500
	maxTags       = 10
)

// SnapService orchestrates posting, viewing and deleting snaps
type SnapService struct {
	snaps     SnapStore
	profiles  ProfileStore
	payloads  storage.PayloadStore
	lifecycle *LifecycleEngine
	streaks   *StreakTracker
	notifier  Notifier
	clock     clock.Clock
}

// NewSnapService creates a new snap service
func NewSnapService(
	snaps SnapStore,
	profiles ProfileStore,
	payloads storage.PayloadStore,
	lifecycle *LifecycleEngine,
	streaks *StreakTracker,
	notifier Notifier,
	clk clock.Clock,
) *SnapService {
	return &SnapService{
		snaps:     snaps,
		profiles:  profiles,
		payloads:  payloads,
		lifecycle: lifecycle,
		streaks:   streaks,
		notifier:  notifier,
		clock:     clk,
	}
}

// PostSnapRequest describes a snap to create. Either ImageURL or
// ImageBase64 must be set. A snap without a recipient is public.
type PostSnapRequest struct {
	ImageURL          *string  `json:"image_url,omitempty"`
	ImageBase64       *string  `json:"image_base64,omitempty"`
	Caption           *string  `json:"caption,omitempty"`
	Tags              []string `json:"tags"`
	ExpiresInHours    int      `json:"expires_in_hours"`
	ViewOnce          bool     `json:"view_once"`
	RecipientUsername *string  `json:"recipient_username,omitempty"`
}

func (s *SnapService) view(ctx context.Context, snap *models.Snap) *models.SnapView {
	username := "unknown"
	if sender, err := s.profiles.GetByID(ctx, snap.SenderID); err == nil {
		username = sender.Username
	}
	return &models.SnapView{Snap: *snap, IsPublic: snap.Public(), SenderUsername: username}
}

func (s *SnapService) views(ctx context.Context, snaps []*models.Snap) []*models.SnapView {
	out := make([]*models.SnapView, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, s.view(ctx, snap))
	}
	return out
}

// PostSnap stores the payload, persists the record, bumps the
// sender's snap score and feeds the streak tracker for private snaps.
// The payload is confirmed stored before the record is created, so a
// failed upload never leaves a dangling reference.
func (s *SnapService) PostSnap(ctx context.Context, sender *models.Profile, req PostSnapRequest) (*models.SnapView, error) {
	if req.ImageURL == nil && req.ImageBase64 == nil {
		return nil, fmt.Errorf("%w: provide image_url or image_base64", ErrInvalidInput)
	}
	if req.Caption != nil && len(*req.Caption) > maxCaptionLen {
		return nil, fmt.Errorf("%w: caption must be at most %d chars", ErrInvalidInput, maxCaptionLen)
	}
	if len(req.Tags) > maxTags {
		return nil, fmt.Errorf("%w: at most %d tags", ErrInvalidInput, maxTags)
	}

	var recipientID *string
	if req.RecipientUsername != nil {
		recipient, err := s.profiles.GetByUsername(ctx, *req.RecipientUsername)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("recipient %q: %w", *req.RecipientUsername, ErrNotFound)
			}
			return nil, err
		}
		recipientID = &recipient.ID
	}

	expiresAt, err := s.lifecycle.ComputeExpiry(req.ExpiresInHours)
	if err != nil {
		return nil, err
	}

	var payloadKey, imageURL string
	if req.ImageBase64 != nil {
		data, mime, err := decodeDataURL(*req.ImageBase64)
		if err != nil {
			return nil, err
		}
		payloadKey, err = s.payloads.Store(ctx, data, mime, sender.ID)
		if err != nil {
			return nil, fmt.Errorf("payload upload failed: %w", ErrStorageFailure)
		}
		imageURL = s.payloads.PublicURL(payloadKey)
	} else {
		// External URL stored as-is; nothing to purge from the bucket.
		imageURL = *req.ImageURL
	}

	now := s.clock.Now()
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	snap := &models.Snap{
		ID:          uuid.New().String(),
		SenderID:    sender.ID,
		RecipientID: recipientID,
		PayloadKey:  payloadKey,
		ImageURL:    imageURL,
		Caption:     req.Caption,
		Tags:        tags,
		ViewOnce:    req.ViewOnce,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}
	if err := s.snaps.Create(ctx, snap); err != nil {
		return nil, err
	}

	if err := s.profiles.IncrementSnapScore(ctx, sender.ID); err != nil {
		log.Warn().Err(err).Str("bot_id", sender.ID).Msg("Snap score bump failed")
	}

	if recipientID != nil {
		if err := s.streaks.RecordPrivateSnap(ctx, sender.ID, *recipientID); err != nil {
			log.Warn().Err(err).Str("sender", sender.ID).Str("recipient", *recipientID).Msg("Streak update failed")
		}
		s.notifier.Notify(*recipientID, Event{
			Type:           "snap.received",
			SnapID:         snap.ID,
			SenderUsername: sender.Username,
		})
	}

	result := s.view(ctx, snap)
	result.SenderUsername = sender.Username
	return result, nil
}

// ViewSnap returns a snap to a viewer, applying access control and the
// view-once deletion trigger. Expired or consumed snaps yield ErrGone.
func (s *SnapService) ViewSnap(ctx context.Context, viewer *models.Profile, snapID string) (*models.SnapView, error) {
	snap, err := s.snaps.GetByID(ctx, snapID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	now := s.clock.Now()
	if Expired(snap.ExpiresAt, now) {
		return nil, fmt.Errorf("snap %s expired: %w", snapID, ErrGone)
	}
	if snap.ViewOnce && snap.ViewedAt != nil {
		return nil, fmt.Errorf("view-once snap %s consumed: %w", snapID, ErrGone)
	}

	isSender := snap.SenderID == viewer.ID
	isRecipient := snap.RecipientID != nil && *snap.RecipientID == viewer.ID
	if !snap.Public() && !isSender && !isRecipient {
		return nil, fmt.Errorf("snap %s not addressed to viewer: %w", snapID, ErrForbidden)
	}

	// Every non-sender view of a view-once snap goes through the
	// conditional first-view update, so a public view-once snap is
	// consumed and deleted on its first view just like a private one.
	switch {
	case isRecipient || (snap.ViewOnce && !isSender):
		if _, err := s.lifecycle.RecordView(ctx, snap); err != nil {
			return nil, err
		}
	case snap.Public() && !isSender:
		if err := s.snaps.IncrementViewCount(ctx, snap.ID); err != nil {
			return nil, err
		}
		snap.ViewCount++
	}

	return s.view(ctx, snap), nil
}

// Inbox lists unviewed private snaps addressed to the bot
func (s *SnapService) Inbox(ctx context.Context, botID string) ([]*models.SnapView, error) {
	snaps, err := s.snaps.Inbox(ctx, botID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.views(ctx, snaps), nil
}

// MySnaps lists the bot's own unexpired snaps
func (s *SnapService) MySnaps(ctx context.Context, botID string) ([]*models.SnapView, error) {
	snaps, err := s.snaps.ListBySender(ctx, botID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.views(ctx, snaps), nil
}

// Discover lists public unexpired snaps, newest first, optionally
// filtered by sender username
func (s *SnapService) Discover(ctx context.Context, username *string, limit, offset int) ([]*models.SnapView, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var senderID *string
	if username != nil {
		sender, err := s.profiles.GetByUsername(ctx, *username)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return []*models.SnapView{}, nil
			}
			return nil, err
		}
		senderID = &sender.ID
	}

	snaps, err := s.snaps.Discover(ctx, s.clock.Now(), senderID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, snaps), nil
}

// TagCount is one trending tag with its frequency
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TrendingTags counts tags across active public snaps. Ordering is
// deterministic: count descending, then tag ascending.
func (s *SnapService) TrendingTags(ctx context.Context, limit int) ([]TagCount, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	tagSets, err := s.snaps.ActiveTags(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, tags := range tagSets {
		for _, tag := range tags {
			counts[tag]++
		}
	}

	result := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		result = append(result, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// React records an emoji reaction to an accessible, unexpired snap
func (s *SnapService) React(ctx context.Context, bot *models.Profile, snapID, emoji string) (*models.Reaction, error) {
	if emoji == "" || len(emoji) > 10 {
		return nil, fmt.Errorf("%w: emoji must be 1-10 chars", ErrInvalidInput)
	}
	snap, err := s.snaps.GetByID(ctx, snapID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	now := s.clock.Now()
	if Expired(snap.ExpiresAt, now) {
		return nil, fmt.Errorf("snap %s expired: %w", snapID, ErrGone)
	}

	reaction := &models.Reaction{
		SnapID:    snapID,
		BotID:     bot.ID,
		Emoji:     emoji,
		CreatedAt: now,
	}
	if err := s.snaps.UpsertReaction(ctx, reaction); err != nil {
		return nil, err
	}
	return reaction, nil
}

// DeleteSnap removes a bot's own snap: record first, then payload.
// A failed payload delete leaves an unreferenced object in the bucket.
func (s *SnapService) DeleteSnap(ctx context.Context, bot *models.Profile, snapID string) error {
	snap, err := s.snaps.GetByID(ctx, snapID)
	if err != nil {
		return mapNotFound(err)
	}
	if snap.SenderID != bot.ID {
		return fmt.Errorf("snap %s not owned by caller: %w", snapID, ErrForbidden)
	}
	if err := s.snaps.Delete(ctx, snapID); err != nil {
		return mapNotFound(err)
	}
	if snap.PayloadKey != "" {
		if err := s.payloads.Delete(ctx, snap.PayloadKey); err != nil {
			log.Warn().Err(err).Str("snap_id", snapID).Str("payload_key", snap.PayloadKey).Msg("Payload delete failed, object left unreferenced in bucket")
		}
	}
	return nil
}
