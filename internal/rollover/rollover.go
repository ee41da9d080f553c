// Package rollover implements the carry-forward core: the eligibility
// gate deciding when to prompt a user to roll tasks between days, and the
// task-copying operation that performs the carry-forward with rollback on
// partial failure.
package rollover

import (
	"context"
	"errors"
	"time"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
)

var (
	// ErrNotAuthenticated means no current user was supplied.
	ErrNotAuthenticated = errors.New("rollover: not authenticated")
	// ErrPlanNotOwned means the target plan belongs to another user.
	ErrPlanNotOwned = errors.New("rollover: target plan does not belong to user")
	// ErrTaskLimitReached means the store refused an insert because the
	// target plan is at capacity.
	ErrTaskLimitReached = errors.New("rollover: task limit reached")
)

// TaskLimitMarker is the substring the database raises when a plan is at
// capacity. Insert failures carrying it translate to ErrTaskLimitReached.
const TaskLimitMarker = "TASK_LIMIT_REACHED"

// PlanStore is the slice of the plan repository the core needs.
type PlanStore interface {
	FindByDate(ctx context.Context, userID uint, date string) (*model.Plan, error)
	FindByID(ctx context.Context, planID uint) (*model.Plan, error)
}

// TaskStore is the slice of the task repository the core needs.
type TaskStore interface {
	ListByPlan(ctx context.Context, planID uint) ([]model.Task, error)
	ListIncompleteByPlan(ctx context.Context, planID uint) ([]model.Task, error)
	FindByIDsForUser(ctx context.Context, userID uint, ids []uint) ([]model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, taskID uint) error
	SetNotificationID(ctx context.Context, taskID uint, notificationID string) error
}

// ReminderScheduler schedules task reminders. Implementations must treat
// past-due times as a no-op returning an empty identifier.
type ReminderScheduler interface {
	ScheduleTaskReminder(ctx context.Context, task *model.Task) (string, error)
	CancelTaskReminder(ctx context.Context, id string) error
}

// DailyLatch is a per-day idempotency flag. IsSetToday must fail closed:
// a read error reports true so a prompt is suppressed, not duplicated.
type DailyLatch interface {
	IsSetToday(now time.Time) bool
	SetToday(now time.Time)
}

// Latches groups the per-day flags for one user.
type Latches struct {
	MorningPrompted  DailyLatch
	CelebrationShown DailyLatch
	EveningPrompted  DailyLatch
}

// Task is the projection of a task the rollover prompts work with.
type Task struct {
	ID               uint
	Title            string
	Priority         model.Priority
	CategoryID       *uint
	SystemCategoryID *uint
	ReminderAt       *time.Time
	IsMIT            bool
}

func projectTask(t model.Task) Task {
	return Task{
		ID:               t.ID,
		Title:            t.Title,
		Priority:         t.Priority,
		CategoryID:       t.CategoryID,
		SystemCategoryID: t.SystemCategoryID,
		ReminderAt:       t.ReminderAt,
		IsMIT:            t.IsMIT,
	}
}

// mitFirst moves the MIT-flagged task (if any) to the front, keeping the
// fetch order of the rest.
func mitFirst(tasks []Task) []Task {
	for i, t := range tasks {
		if t.IsMIT && i > 0 {
			reordered := make([]Task, 0, len(tasks))
			reordered = append(reordered, t)
			reordered = append(reordered, tasks[:i]...)
			reordered = append(reordered, tasks[i+1:]...)
			return reordered
		}
	}
	return tasks
}

// Partition splits an eligible list into the MIT (if any) and the rest.
func Partition(tasks []Task) (mit *Task, others []Task) {
	for i := range tasks {
		if tasks[i].IsMIT {
			mit = &tasks[i]
			continue
		}
		others = append(others, tasks[i])
	}
	return mit, others
}
