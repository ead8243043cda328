// Package ledger owns every mutation of users, balances, referral edges,
// withdrawal requests and the weekly-reset watermark. All other packages go
// through a Store; none of them keep private copies of ledger state.
package ledger

import (
	"context"
	"errors"
	"time"

	"starsref-bot/internal/models"
)

var (
	ErrNotFound            = errors.New("ledger: user not found")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
)

// CreditResult reports the outcome of an at-most-once referral credit.
// Credited is false when the user has no referrer or the reward was already
// applied; the remaining fields are only valid when Credited is true.
type CreditResult struct {
	Credited        bool
	ReferrerID      int64
	ReferrerBalance int64
}

// RankedUser is one leaderboard entry.
type RankedUser struct {
	UserID         int64
	ReferralsCount int64
}

type Store interface {
	// Register inserts the user row if absent. Re-registration is a no-op:
	// the first stored referrer wins and is never overwritten.
	Register(ctx context.Context, userID int64, referrerID *int64) error

	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// CreditReferral applies the one-time referral reward for userID's
	// referrer. The reward-given latch and the referrer's balance/counter
	// increments form a single transaction; repeated calls no-op.
	CreditReferral(ctx context.Context, userID, reward int64) (CreditResult, error)

	TopReferrers(ctx context.Context, n int) ([]RankedUser, error)

	// RankOf returns the 1-based rank: 1 + count of users with a strictly
	// greater referrals_count.
	RankOf(ctx context.Context, userID int64) (int64, error)

	// MaybeWeeklyReset zeroes every referrals_count and advances the
	// watermark when at least 7 days have passed since the last reset.
	// The check and the reset are one atomic decision; concurrent calls
	// perform the reset at most once. Returns whether a reset happened.
	MaybeWeeklyReset(ctx context.Context, now time.Time) (bool, error)

	// CreateWithdrawal deducts amount from the user's balance and records a
	// pending withdrawal request, returning its id.
	CreateWithdrawal(ctx context.Context, userID, amount int64) (int64, error)

	SetBanned(ctx context.Context, userID int64, banned bool) error

	// ActiveUserIDs lists every non-banned user, for broadcast delivery.
	ActiveUserIDs(ctx context.Context) ([]int64, error)
}
