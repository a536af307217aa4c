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

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StreakTracker maintains the reciprocal-snap counter per profile
// pair. A pair record is created lazily on the first private snap
// between two bots and is never deleted; a broken streak has count 0.
type StreakTracker struct {
	cfg      config.StreakConfig
	clock    clock.Clock
	streaks  StreakStore
	profiles ProfileStore
}

// NewStreakTracker creates a new streak tracker
func NewStreakTracker(cfg config.StreakConfig, clk clock.Clock, streaks StreakStore, profiles ProfileStore) *StreakTracker {
	return &StreakTracker{cfg: cfg, clock: clk, streaks: streaks, profiles: profiles}
}

func (t *StreakTracker) window() time.Duration {
	return time.Duration(t.cfg.WindowHours) * time.Hour
}

func (t *StreakTracker) riskThreshold() time.Duration {
	return time.Duration(t.cfg.AtRiskHours) * time.Hour
}

func markSent(s *models.Streak, botID string) {
	if botID == s.BotAID {
		s.BotASent = true
	} else {
		s.BotBSent = true
	}
}

func partnerSent(s *models.Streak, botID string) bool {
	if botID == s.BotAID {
		return s.BotBSent
	}
	return s.BotASent
}

// RecordPrivateSnap feeds one private snap into the pair counter.
// Reciprocity inside the window increments the count, clears both
// sent flags and re-anchors the window at now. A one-sided snap marks
// the sender's flag, clears any at-risk flag (the window is full
// again) and never shortens the window. A snap
// arriving after the window lapsed resets the pair first, so a stale
// flag from a dead window can never produce a bogus increment between
// sweep ticks.
func (t *StreakTracker) RecordPrivateSnap(ctx context.Context, senderID, recipientID string) error {
	now := t.clock.Now()
	_, err := t.streaks.Mutate(ctx, senderID, recipientID, func(s *models.Streak, created bool) error {
		if created {
			s.ID = uuid.New().String()
			s.Count = 1
			s.LastSnapAt = now
			s.CreatedAt = now
			markSent(s, senderID)
			return nil
		}

		if now.Sub(s.LastSnapAt) > t.window() {
			s.Count = 0
			s.BotASent, s.BotBSent = false, false
			s.AtRisk = false
			s.LastSnapAt = now
			markSent(s, senderID)
			return nil
		}

		if partnerSent(s, senderID) {
			s.Count++
			s.BotASent, s.BotBSent = false, false
			s.AtRisk = false
			s.LastSnapAt = now
			return nil
		}

		markSent(s, senderID)
		if now.After(s.LastSnapAt) {
			s.LastSnapAt = now
		}
		// A fresh snap opens a full window, so any at-risk flag from
		// the previous window no longer holds.
		s.AtRisk = false
		return nil
	})
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("streak pair creation raced: %w", ErrConflict)
	}
	return err
}

// evaluate applies the window rules to one pair. Returns whether the
// record changed and whether this change was a reset.
func (t *StreakTracker) evaluate(s *models.Streak, now time.Time) (changed, wasReset bool) {
	elapsed := now.Sub(s.LastSnapAt)

	if elapsed > t.window() {
		if s.Count == 0 && !s.BotASent && !s.BotBSent && !s.AtRisk {
			return false, false
		}
		s.Count = 0
		s.BotASent, s.BotBSent = false, false
		s.AtRisk = false
		return true, true
	}

	remaining := t.window() - elapsed
	atRisk := remaining <= t.riskThreshold() && !(s.BotASent && s.BotBSent)
	if atRisk != s.AtRisk {
		s.AtRisk = atRisk
		return true, false
	}
	return false, false
}

// EvaluateWindows is the sweep entry point: it visits every pair whose
// last snap is old enough to matter, resets lapsed windows and flags
// at-risk ones. Returns how many pairs were reset and newly flagged.
func (t *StreakTracker) EvaluateWindows(ctx context.Context) (reset, flagged int, err error) {
	now := t.clock.Now()
	// Pairs with a snap newer than this can be neither broken nor at
	// risk, so the scan is bounded by the last_snap_at index.
	threshold := now.Add(-(t.window() - t.riskThreshold()))

	stale, err := t.streaks.ListStale(ctx, threshold)
	if err != nil {
		return 0, 0, err
	}

	for _, pair := range stale {
		_, err := t.streaks.Mutate(ctx, pair.BotAID, pair.BotBID, func(s *models.Streak, created bool) error {
			if created {
				// Pair vanished between list and lock; nothing to evaluate.
				return fmt.Errorf("stale pair %s/%s missing: %w", pair.BotAID, pair.BotBID, repository.ErrNotFound)
			}
			changed, wasReset := t.evaluate(s, now)
			if changed && wasReset {
				reset++
			} else if changed {
				flagged++
			}
			return nil
		})
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("bot_a", pair.BotAID).Str("bot_b", pair.BotBID).Msg("Streak window evaluation failed")
		}
	}
	return reset, flagged, nil
}

// StreakView is a streak resolved from one participant's side
type StreakView struct {
	ID              string    `json:"id"`
	PartnerID       string    `json:"partner_id"`
	PartnerUsername string    `json:"partner_username"`
	Count           int       `json:"count"`
	LastSnapAt      time.Time `json:"last_snap_at"`
	AtRisk          bool      `json:"at_risk"`
	CreatedAt       time.Time `json:"created_at"`
}

// MyStreaks lists a bot's streaks with the partner resolved
func (t *StreakTracker) MyStreaks(ctx context.Context, botID string) ([]StreakView, error) {
	streaks, err := t.streaks.ListForBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	views := make([]StreakView, 0, len(streaks))
	for _, s := range streaks {
		partnerID := s.BotAID
		if partnerID == botID {
			partnerID = s.BotBID
		}
		username := "unknown"
		if partner, err := t.profiles.GetByID(ctx, partnerID); err == nil {
			username = partner.Username
		}
		views = append(views, StreakView{
			ID:              s.ID,
			PartnerID:       partnerID,
			PartnerUsername: username,
			Count:           s.Count,
			LastSnapAt:      s.LastSnapAt,
			AtRisk:          s.AtRisk,
			CreatedAt:       s.CreatedAt,
		})
	}
	return views, nil
}

// LeaderboardEntry is one row of the global streak leaderboard
type LeaderboardEntry struct {
	BotAUsername string `json:"bot_a_username"`
	BotBUsername string `json:"bot_b_username"`
	Count        int    `json:"count"`
	AtRisk       bool   `json:"at_risk"`
}

// Leaderboard returns the top streak pairs in deterministic order:
// count descending, most recent last_snap_at first, then canonical
// pair id.
func (t *StreakTracker) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	streaks, err := t.streaks.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(streaks))
	for _, s := range streaks {
		entry := LeaderboardEntry{Count: s.Count, AtRisk: s.AtRisk, BotAUsername: "unknown", BotBUsername: "unknown"}
		if a, err := t.profiles.GetByID(ctx, s.BotAID); err == nil {
			entry.BotAUsername = a.Username
		}
		if b, err := t.profiles.GetByID(ctx, s.BotBID); err == nil {
			entry.BotBUsername = b.Username
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
