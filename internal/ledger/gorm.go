package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"starsref-bot/internal/models"
)

// GormStore implements Store on top of PostgreSQL via gorm. Counter updates
// use SQL-side increments so concurrent credits to the same referrer never
// lose updates.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Register(ctx context.Context, userID int64, referrerID *int64) error {
	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}

	user := models.User{
		UserID:     userID,
		ReferrerID: referrerID,
		CreatedAt:  time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return fmt.Errorf("failed to register user %d: %w", userID, err)
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return &user, nil
}

func (s *GormStore) CreditReferral(ctx context.Context, userID, reward int64) (CreditResult, error) {
	var result CreditResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Write-once latch: flipping the flag and crediting the referrer
		// commit together, so a retry after any failure finds the flag
		// unset and repeats the whole unit, never half of it.
		res := tx.Model(&models.User{}).
			Where("user_id = ? AND referral_reward_given = ? AND referrer_id IS NOT NULL", userID, false).
			Update("referral_reward_given", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // no referrer, or already rewarded
		}

		var user models.User
		if err := tx.Select("referrer_id").First(&user, "user_id = ?", userID).Error; err != nil {
			return err
		}
		referrerID := *user.ReferrerID

		err := tx.Model(&models.User{}).
			Where("user_id = ?", referrerID).
			Updates(map[string]interface{}{
				"balance":         gorm.Expr("balance + ?", reward),
				"referrals_count": gorm.Expr("referrals_count + ?", 1),
			}).Error
		if err != nil {
			return err
		}

		var referrer models.User
		if err := tx.Select("balance").First(&referrer, "user_id = ?", referrerID).Error; err != nil {
			return err
		}

		result = CreditResult{
			Credited:        true,
			ReferrerID:      referrerID,
			ReferrerBalance: referrer.Balance,
		}
		return nil
	})
	if err != nil {
		return CreditResult{}, fmt.Errorf("failed to credit referral for user %d: %w", userID, err)
	}
	return result, nil
}

func (s *GormStore) TopReferrers(ctx context.Context, n int) ([]RankedUser, error) {
	var top []RankedUser
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("user_id", "referrals_count").
		Order("referrals_count DESC, created_at ASC").
		Limit(n).
		Find(&top).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load top referrers: %w", err)
	}
	return top, nil
}

func (s *GormStore) RankOf(ctx context.Context, userID int64) (int64, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return 0, err
	}

	var rank int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT (SELECT COUNT(*) FROM users
			WHERE referrals_count > (SELECT referrals_count FROM users WHERE user_id = ?)) + 1
	`, userID).Scan(&rank).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank of user %d: %w", userID, err)
	}
	return rank, nil
}

func (s *GormStore) MaybeWeeklyReset(ctx context.Context, now time.Time) (bool, error) {
	performed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the watermark row so concurrent callers serialize on the
		// reset decision and at most one of them performs it.
		var wm models.WeeklyReset
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(models.WeeklyReset{ID: 1}).
			FirstOrCreate(&wm).Error
		if err != nil {
			return err
		}

		if !wm.LastReset.IsZero() && now.Sub(wm.LastReset) < 7*24*time.Hour {
			return nil
		}

		err = tx.Model(&models.User{}).
			Where("referrals_count <> 0").
			Update("referrals_count", 0).Error
		if err != nil {
			return err
		}

		wm.LastReset = now.Truncate(24 * time.Hour)
		if err := tx.Save(&wm).Error; err != nil {
			return err
		}

		performed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to run weekly reset: %w", err)
	}
	return performed, nil
}

func (s *GormStore) CreateWithdrawal(ctx context.Context, userID, amount int64) (int64, error) {
	var requestID int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("user_id = ? AND balance >= ?", userID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrInsufficientBalance
		}

		withdrawal := models.Withdrawal{
			UserID: userID,
			Amount: amount,
			Status: models.WithdrawalPending,
		}
		if err := tx.Create(&withdrawal).Error; err != nil {
			return err
		}
		requestID = withdrawal.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficientBalance) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to create withdrawal for user %d: %w", userID, err)
	}
	return requestID, nil
}

func (s *GormStore) SetBanned(ctx context.Context, userID int64, banned bool) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("is_banned", banned)
	if res.Error != nil {
		return fmt.Errorf("failed to update ban flag for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("is_banned = ?", false).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return ids, nil
}
