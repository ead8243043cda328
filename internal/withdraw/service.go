// Package withdraw records payout requests and notifies the review channel.
package withdraw

import (
	"context"
	"errors"
	"fmt"

	"starsref-bot/internal/ledger"
)

// ErrInvalidAmount is returned for amounts outside the denomination menu.
var ErrInvalidAmount = errors.New("withdraw: invalid amount")

// Denominations is the fixed menu of allowed withdrawal amounts, in stars.
var Denominations = []int64{15, 25, 50, 100}

// Notifier posts new requests to the admin review channel, best-effort.
type Notifier interface {
	WithdrawalRequested(ctx context.Context, requestID, userID, amount int64)
}

type Service struct {
	store    ledger.Store
	notifier Notifier
}

func NewService(store ledger.Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Request validates the amount against the denomination menu, deducts it
// from the user's balance, records a pending request and notifies the
// review channel. Notification failure never invalidates the request.
func (s *Service) Request(ctx context.Context, userID, amount int64) (int64, error) {
	if !allowed(amount) {
		return 0, ErrInvalidAmount
	}

	requestID, err := s.store.CreateWithdrawal(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("request withdrawal: %w", err)
	}

	s.notifier.WithdrawalRequested(ctx, requestID, userID, amount)
	return requestID, nil
}

func allowed(amount int64) bool {
	for _, d := range Denominations {
		if amount == d {
			return true
		}
	}
	return false
}
