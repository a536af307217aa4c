package services

import (
	"context"
	"time"

	"snapnet-backend/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Sweeper drives time-based transitions from a single recurring
// background task: purging expired content and updating streak
// windows. One goroutine consumes the ticker and runs each tick
// inline, so two sweeps can never overlap; a slow tick just delays
// the next one.
type Sweeper struct {
	lifecycle *LifecycleEngine
	streaks   *StreakTracker
	interval  time.Duration
}

// NewSweeper creates a sweeper with the given tick interval
func NewSweeper(lifecycle *LifecycleEngine, streaks *StreakTracker, interval time.Duration) *Sweeper {
	return &Sweeper{lifecycle: lifecycle, streaks: streaks, interval: interval}
}

// Run ticks until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("Sweep scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Sweep scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep tick. Per-entity failures are
// counted and left for the next tick; they never abort the pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	stats, err := s.lifecycle.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Purge pass reported errors")
	}
	metrics.SweepPurgedTotal.WithLabelValues("snap").Add(float64(stats.Snaps))
	metrics.SweepPurgedTotal.WithLabelValues("story").Add(float64(stats.Stories))
	metrics.SweepPurgedTotal.WithLabelValues("message").Add(float64(stats.Messages))
	metrics.SweepFailuresTotal.Add(float64(stats.Failures))

	reset, flagged, err := s.streaks.EvaluateWindows(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Streak window evaluation failed")
	}
	metrics.StreaksResetTotal.Add(float64(reset))
	metrics.StreaksFlaggedTotal.Add(float64(flagged))

	if stats.Snaps+stats.Stories+stats.Messages+stats.Failures+reset+flagged > 0 {
		log.Info().
			Int("snaps", stats.Snaps).
			Int("stories", stats.Stories).
			Int("messages", stats.Messages).
			Int("failures", stats.Failures).
			Int("streaks_reset", reset).
			Int("streaks_flagged", flagged).
			Msg("Sweep tick")
	} else {
		log.Debug().Msg("Sweep tick: nothing to purge")
	}
}
