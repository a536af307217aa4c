package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"snapnet-backend/internal/models"
	"snapnet-backend/internal/repository"
)

// StreakStoreFake is an in-memory StreakStore. It mirrors the pgx
// repository's canonical-pair keying and its Mutate contract, minus
// the row locking: a single mutex serializes everything.
type StreakStoreFake struct {
	mu      sync.Mutex
	streaks map[string]*models.Streak
}

func NewStreakStoreFake() *StreakStoreFake {
	return &StreakStoreFake{streaks: make(map[string]*models.Streak)}
}

func pairKey(a, b string) string {
	return a + "|" + b
}

func (f *StreakStoreFake) Mutate(ctx context.Context, botA, botB string, fn func(s *models.Streak, created bool) error) (*models.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, b := repository.CanonicalPair(botA, botB)
	key := pairKey(a, b)

	stored, ok := f.streaks[key]
	var work models.Streak
	if ok {
		work = *stored
	} else {
		work = models.Streak{BotAID: a, BotBID: b}
	}

	if err := fn(&work, !ok); err != nil {
		return nil, err
	}

	f.streaks[key] = &work
	out := work
	return &out, nil
}

func (f *StreakStoreFake) ListStale(ctx context.Context, olderThan time.Time) ([]*models.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Streak
	for _, s := range f.streaks {
		if s.LastSnapAt.Before(olderThan) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *StreakStoreFake) ListForBot(ctx context.Context, botID string) ([]*models.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Streak
	for _, s := range f.streaks {
		if s.BotAID == botID || s.BotBID == botID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sortStreaks(out)
	return out, nil
}

func (f *StreakStoreFake) Leaderboard(ctx context.Context, limit int) ([]*models.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Streak
	for _, s := range f.streaks {
		copied := *s
		out = append(out, &copied)
	}
	sortStreaks(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns the stored record for a pair, or nil
func (f *StreakStoreFake) Get(botA, botB string) *models.Streak {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, b := repository.CanonicalPair(botA, botB)
	s, ok := f.streaks[pairKey(a, b)]
	if !ok {
		return nil
	}
	copied := *s
	return &copied
}

func sortStreaks(streaks []*models.Streak) {
	sort.SliceStable(streaks, func(i, j int) bool {
		if streaks[i].Count != streaks[j].Count {
			return streaks[i].Count > streaks[j].Count
		}
		if !streaks[i].LastSnapAt.Equal(streaks[j].LastSnapAt) {
			return streaks[i].LastSnapAt.After(streaks[j].LastSnapAt)
		}
		if streaks[i].BotAID != streaks[j].BotAID {
			return streaks[i].BotAID < streaks[j].BotAID
		}
		return streaks[i].BotBID < streaks[j].BotBID
	})
}
