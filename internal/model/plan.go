package model

import "time"

// DateFormat is the canonical yyyy-MM-dd layout used for plan dates and
// daily latch values.
const DateFormat = "2006-01-02"

// Plan is one user's task list for a single calendar day. At most one
// plan exists per (user, date); plans are created on demand when a day is
// first addressed.
type Plan struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"uniqueIndex:idx_user_planned_for,priority:1"`
	PlannedFor string `gorm:"uniqueIndex:idx_user_planned_for,priority:2"`
	Status     string `gorm:"default:active"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Tasks      []Task `gorm:"foreignKey:PlanID"`
}
