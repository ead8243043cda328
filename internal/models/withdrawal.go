package models

const (
	WithdrawalPending = "pending"
)

type Withdrawal struct {
	ID     int64  `gorm:"primaryKey"`
	UserID int64  `gorm:"not null;index"`
	Amount int64  `gorm:"not null"`
	Status string `gorm:"default:'pending'"`
}
