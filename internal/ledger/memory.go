package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"starsref-bot/internal/models"
)

// MemoryStore is an in-memory Store used by tests. It serializes every
// operation behind one mutex, which matches the atomicity the SQL
// implementation gets from transactions.
type MemoryStore struct {
	mu          sync.Mutex
	users       map[int64]*models.User
	order       []int64 // insertion order, for stable leaderboard ties
	withdrawals []models.Withdrawal
	lastReset   time.Time
	hasReset    bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]*models.User)}
}

func (s *MemoryStore) Register(_ context.Context, userID int64, referrerID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[userID]; exists {
		return nil
	}
	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}
	s.users[userID] = &models.User{
		UserID:     userID,
		ReferrerID: referrerID,
		CreatedAt:  time.Now(),
	}
	s.order = append(s.order, userID)
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) CreditReferral(_ context.Context, userID, reward int64) (CreditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return CreditResult{}, ErrNotFound
	}
	if user.ReferralRewardGiven || user.ReferrerID == nil {
		return CreditResult{}, nil
	}
	referrer, ok := s.users[*user.ReferrerID]
	if !ok {
		return CreditResult{}, nil
	}

	user.ReferralRewardGiven = true
	referrer.Balance += reward
	referrer.ReferralsCount++

	return CreditResult{
		Credited:        true,
		ReferrerID:      referrer.UserID,
		ReferrerBalance: referrer.Balance,
	}, nil
}

func (s *MemoryStore) TopReferrers(_ context.Context, n int) ([]RankedUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranked := make([]RankedUser, 0, len(s.order))
	for _, id := range s.order {
		ranked = append(ranked, RankedUser{UserID: id, ReferralsCount: s.users[id].ReferralsCount})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ReferralsCount > ranked[j].ReferralsCount
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (s *MemoryStore) RankOf(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	var greater int64
	for _, other := range s.users {
		if other.ReferralsCount > user.ReferralsCount {
			greater++
		}
	}
	return greater + 1, nil
}

func (s *MemoryStore) MaybeWeeklyReset(_ context.Context, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasReset && now.Sub(s.lastReset) < 7*24*time.Hour {
		return false, nil
	}
	for _, user := range s.users {
		user.ReferralsCount = 0
	}
	s.lastReset = now.Truncate(24 * time.Hour)
	s.hasReset = true
	return true, nil
}

func (s *MemoryStore) CreateWithdrawal(_ context.Context, userID, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if user.Balance < amount {
		return 0, ErrInsufficientBalance
	}
	user.Balance -= amount

	id := int64(len(s.withdrawals) + 1)
	s.withdrawals = append(s.withdrawals, models.Withdrawal{
		ID:     id,
		UserID: userID,
		Amount: amount,
		Status: models.WithdrawalPending,
	})
	return id, nil
}

func (s *MemoryStore) SetBanned(_ context.Context, userID int64, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.IsBanned = banned
	return nil
}

func (s *MemoryStore) ActiveUserIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.order))
	for _, id := range s.order {
		if !s.users[id].IsBanned {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Withdrawals returns a snapshot of recorded withdrawal requests.
func (s *MemoryStore) Withdrawals() []models.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Withdrawal(nil), s.withdrawals...)
}

// SetBalance seeds a user's balance. Test helper.
func (s *MemoryStore) SetBalance(userID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.Balance = balance
	}
}

// SetReferralsCount seeds a user's referral counter. Test helper.
func (s *MemoryStore) SetReferralsCount(userID, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.ReferralsCount = count
	}
}
