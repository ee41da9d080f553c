package model

import "time"

// User stores Telegram user metadata and planning preferences.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	ChatID     int64 `gorm:"index"`
	FirstName  string
	LastName   string
	Username   string
	// PlanningReminderAt is the evening planning reminder time of day,
	// HH:MM or HH:MM:SS. Empty means not configured.
	PlanningReminderAt string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
