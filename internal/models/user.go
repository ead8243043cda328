package models

import (
	"time"
)

type User struct {
	UserID              int64  `gorm:"primaryKey;autoIncrement:false"`
	ReferrerID          *int64 `gorm:"index"`
	ReferralsCount      int64  `gorm:"not null;default:0"`
	Balance             int64  `gorm:"not null;default:0"`
	ReferralRewardGiven bool   `gorm:"not null;default:false"`
	IsBanned            bool   `gorm:"not null;default:false"`
	CreatedAt           time.Time
}
