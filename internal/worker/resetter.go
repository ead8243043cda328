package worker

import (
	"context"
	"log"
	"time"

	"starsref-bot/internal/rank"

	"github.com/redis/go-redis/v9"
)

const (
	tickInterval = 1 * time.Hour
	lockKey      = "weekly_reset_lock"
	lockTTL      = 55 * time.Minute
)

// Resetter drives the weekly referral-counter reset on a timer, so the
// reset also fires during quiet weeks with no leaderboard views. The DB
// watermark stays the source of truth; the redis lock only keeps multiple
// bot replicas from hammering the watermark row on the same tick.
type Resetter struct {
	Ranks *rank.Service
	Redis *redis.Client
}

func NewResetter(ranks *rank.Service, rdb *redis.Client) *Resetter {
	return &Resetter{Ranks: ranks, Redis: rdb}
}

func (r *Resetter) Start(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	log.Println("Background weekly-reset worker started")

	// Run once at start
	r.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

func (r *Resetter) check(ctx context.Context) {
	acquired, err := r.Redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil {
		log.Printf("Weekly-reset lock check failed: %v", err)
	} else if !acquired {
		return
	}

	if _, err := r.Ranks.MaybeWeeklyReset(ctx); err != nil {
		log.Printf("Weekly reset check failed: %v", err)
	}
}
