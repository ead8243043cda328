package models

import (
	"time"
)

// WeeklyReset is a single-row table (ID is always 1) holding the watermark
// for the weekly referral-counter reset.
type WeeklyReset struct {
	ID        int `gorm:"primaryKey;autoIncrement:false"`
	LastReset time.Time
}
