package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/config"
	"snapnet-backend/internal/models"
	"snapnet-backend/internal/repository"
	"snapnet-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// purgeBatchSize caps how many expired snaps one purge pass handles;
// leftovers are picked up by the next sweep tick.
const purgeBatchSize = 500

// LifecycleEngine is the single source of truth for expiry timestamps,
// visibility and deletion triggers
type LifecycleEngine struct {
	cfg      config.LifecycleConfig
	clock    clock.Clock
	snaps    SnapStore
	stories  StoryStore
	messages MessageStore
	payloads storage.PayloadStore
}

// NewLifecycleEngine creates a new lifecycle engine
func NewLifecycleEngine(
	cfg config.LifecycleConfig,
	clk clock.Clock,
	snaps SnapStore,
	stories StoryStore,
	messages MessageStore,
	payloads storage.PayloadStore,
) *LifecycleEngine {
	return &LifecycleEngine{
		cfg:      cfg,
		clock:    clk,
		snaps:    snaps,
		stories:  stories,
		messages: messages,
		payloads: payloads,
	}
}

// ComputeExpiry returns now + requestedHours, or now + the default TTL
// when requestedHours is zero (unset). Negative values and values over
// the configured cap are rejected with ErrInvalidTTL.
func (e *LifecycleEngine) ComputeExpiry(requestedHours int) (time.Time, error) {
	now := e.clock.Now()
	switch {
	case requestedHours == 0:
		return now.Add(time.Duration(e.cfg.DefaultTTLHours) * time.Hour), nil
	case requestedHours < 0:
		return time.Time{}, fmt.Errorf("%w: requested %dh", ErrInvalidTTL, requestedHours)
	case requestedHours > e.cfg.MaxTTLHours:
		return time.Time{}, fmt.Errorf("%w: requested %dh exceeds cap of %dh", ErrInvalidTTL, requestedHours, e.cfg.MaxTTLHours)
	}
	return now.Add(time.Duration(requestedHours) * time.Hour), nil
}

// StoryExpiry returns the fixed story expiry from now
func (e *LifecycleEngine) StoryExpiry() time.Time {
	return e.clock.Now().Add(time.Duration(e.cfg.StoryTTLHours) * time.Hour)
}

// ReadGrace returns how long a message survives after being read
func (e *LifecycleEngine) ReadGrace() time.Duration {
	return time.Duration(e.cfg.ReadGraceMinutes) * time.Minute
}

// Expired reports whether an expiry instant has passed. The boundary
// counts as expired: exactly at expires_at the entity is gone.
func Expired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

// SnapVisible reports whether a snap may still be returned by any read
// path
func (e *LifecycleEngine) SnapVisible(s *models.Snap, now time.Time) bool {
	if Expired(s.ExpiresAt, now) {
		return false
	}
	if s.ViewOnce && s.ViewedAt != nil {
		return false
	}
	return true
}

// ViewResult reports what a recorded view did
type ViewResult struct {
	FirstView bool
	Deleted   bool
}

// RecordView applies a recipient view to a snap. The conditional
// update in the store is the single first-view decision point: of two
// concurrent viewers of a view-once snap, exactly one gets
// Deleted=true and the other ErrGone. The record is removed before the
// payload so a payload failure leaves only an unreferenced object in
// the bucket, never a dangling reference.
func (e *LifecycleEngine) RecordView(ctx context.Context, snap *models.Snap) (ViewResult, error) {
	now := e.clock.Now()
	if Expired(snap.ExpiresAt, now) {
		return ViewResult{}, fmt.Errorf("snap %s expired: %w", snap.ID, ErrGone)
	}

	first, err := e.snaps.MarkViewed(ctx, snap.ID, now)
	if err != nil {
		return ViewResult{}, err
	}
	if !first {
		if snap.ViewOnce {
			return ViewResult{}, fmt.Errorf("view-once snap %s already viewed: %w", snap.ID, ErrGone)
		}
		if err := e.snaps.IncrementViewCount(ctx, snap.ID); err != nil {
			return ViewResult{}, err
		}
		snap.ViewCount++
		return ViewResult{}, nil
	}

	snap.ViewedAt = &now
	snap.ViewCount++

	if !snap.ViewOnce {
		return ViewResult{FirstView: true}, nil
	}

	if err := e.snaps.Delete(ctx, snap.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return ViewResult{FirstView: true}, err
	}
	if snap.PayloadKey != "" {
		if err := e.payloads.Delete(ctx, snap.PayloadKey); err != nil {
			log.Warn().Err(err).Str("snap_id", snap.ID).Str("payload_key", snap.PayloadKey).Msg("Payload delete after view failed, object left unreferenced in bucket")
		}
	}
	return ViewResult{FirstView: true, Deleted: true}, nil
}

// PurgeStats summarizes one purge pass
type PurgeStats struct {
	Snaps    int
	Stories  int
	Messages int
	Failures int
}

// PurgeExpired removes every snap, story and message whose expiry has
// passed. Snap payloads are deleted before their records so a failed
// payload delete leaves the row in place to be retried on the next
// tick. Re-running over already-purged data is a no-op. A failure on
// one entity never aborts the rest of the pass.
func (e *LifecycleEngine) PurgeExpired(ctx context.Context) (PurgeStats, error) {
	now := e.clock.Now()
	var stats PurgeStats
	var errs []error

	expired, err := e.snaps.ListExpired(ctx, now, purgeBatchSize)
	if err != nil {
		errs = append(errs, err)
	}
	for _, snap := range expired {
		if snap.PayloadKey != "" {
			if err := e.payloads.Delete(ctx, snap.PayloadKey); err != nil {
				log.Warn().Err(err).Str("snap_id", snap.ID).Msg("Expired payload delete failed, will retry next sweep")
				stats.Failures++
				continue
			}
		}
		if err := e.snaps.Delete(ctx, snap.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("snap_id", snap.ID).Msg("Expired snap delete failed, will retry next sweep")
			stats.Failures++
			continue
		}
		stats.Snaps++
	}

	if n, err := e.stories.DeleteExpired(ctx, now); err != nil {
		errs = append(errs, err)
	} else {
		stats.Stories = n
	}

	if n, err := e.messages.DeleteExpired(ctx, now); err != nil {
		errs = append(errs, err)
	} else {
		stats.Messages = n
	}

	return stats, errors.Join(errs...)
}
