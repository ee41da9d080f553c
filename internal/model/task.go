package model

import "time"

// Priority is an ordered tier, top first. The mit tier is special: a
// database trigger promotes a task inserted with it to the plan's single
// MIT and demotes any previous holder to high.
type Priority string

const (
	PriorityMIT    Priority = "mit"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Task is a single item on a day plan. A task references either a
// user-defined Category or a SystemCategory, never both.
type Task struct {
	ID               uint `gorm:"primaryKey"`
	PlanID           uint `gorm:"index"`
	UserID           uint `gorm:"index"`
	Title            string
	Description      string
	Priority         Priority `gorm:"default:medium"`
	CategoryID       *uint    `gorm:"index"`
	SystemCategoryID *uint    `gorm:"index"`
	EstimatedMinutes int
	Notes            string
	ReminderAt       *time.Time
	CompletedAt      *time.Time
	IsMIT            bool `gorm:"default:false"`
	NotificationID   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Completed reports whether the task has been marked done.
func (t *Task) Completed() bool {
	return t.CompletedAt != nil
}
