// Package referral attributes new users to referrers and grants the
// one-time reward when a referred user first passes the gate.
package referral

import (
	"context"
	"fmt"

	"starsref-bot/internal/ledger"
)

// Notifier delivers the reward message to the referrer. Delivery is
// best-effort and must never fail the credit, so it returns nothing.
type Notifier interface {
	ReferralCredited(ctx context.Context, referrerID, referredID, newBalance int64)
}

type Engine struct {
	store    ledger.Store
	notifier Notifier
	reward   int64
}

func NewEngine(store ledger.Store, notifier Notifier, reward int64) *Engine {
	return &Engine{store: store, notifier: notifier, reward: reward}
}

// Register upserts the user. A referrer equal to the user's own id is
// treated as absent; on re-registration the first stored referrer wins.
func (e *Engine) Register(ctx context.Context, userID int64, referrerID *int64) error {
	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}
	if err := e.store.Register(ctx, userID, referrerID); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// CreditIfDue applies the at-most-once referral reward for userID's
// referrer and notifies them. Calling it again after a success is a no-op:
// the store's reward-given latch is checked before any balance mutation.
func (e *Engine) CreditIfDue(ctx context.Context, userID int64) error {
	result, err := e.store.CreditReferral(ctx, userID, e.reward)
	if err != nil {
		return fmt.Errorf("credit referral: %w", err)
	}
	if result.Credited {
		e.notifier.ReferralCredited(ctx, result.ReferrerID, userID, result.ReferrerBalance)
	}
	return nil
}
