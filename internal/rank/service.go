// Package rank serves the referral leaderboard and drives the time-gated
// weekly counter reset.
package rank

import (
	"context"
	"fmt"
	"log"
	"time"

	"starsref-bot/internal/ledger"
)

type Service struct {
	store ledger.Store
	now   func() time.Time
}

func NewService(store ledger.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// TopN returns the leaderboard, ties broken by registration order. The
// read is a point-in-time snapshot and may lag concurrent credits.
func (s *Service) TopN(ctx context.Context, n int) ([]ledger.RankedUser, error) {
	top, err := s.store.TopReferrers(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return top, nil
}

// RankOf returns the user's 1-based rank by referral count.
func (s *Service) RankOf(ctx context.Context, userID int64) (int64, error) {
	rank, err := s.store.RankOf(ctx, userID)
	if err != nil {
		return 0, err
	}
	return rank, nil
}

// MaybeWeeklyReset zeroes all referral counters once at least 7 days have
// passed since the watermark. Safe to call from concurrent interactions:
// the store makes the check-and-reset one atomic decision.
func (s *Service) MaybeWeeklyReset(ctx context.Context) (bool, error) {
	performed, err := s.store.MaybeWeeklyReset(ctx, s.now())
	if err != nil {
		return false, fmt.Errorf("weekly reset: %w", err)
	}
	if performed {
		log.Println("Weekly referral counters reset")
	}
	return performed, nil
}
