package rollover

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
)

// Input describes one carry-forward request. SelectedTaskIDs is expected
// to be pre-filtered to existing incomplete tasks; ids the user does not
// own are dropped by the owner-scoped fetch rather than rejected.
type Input struct {
	SelectedTaskIDs []uint
	TargetPlanID    uint
	// MakeMIT promotes the copy of the source plan's MIT (when selected)
	// to the top tier, which the store trigger turns into the target
	// plan's MIT.
	MakeMIT bool
	// KeepReminderTimes rebases each reminder to the same clock time on
	// the target plan's date. Rebased times already in the past are
	// dropped.
	KeepReminderTimes bool
}

// RollbackReport counts rollback actions that themselves failed, leaving
// orphans behind. It is logged, never escalated: the caller already sees
// the original error.
type RollbackReport struct {
	FailedDeletes int
	FailedCancels int
}

func (r RollbackReport) Clean() bool {
	return r.FailedDeletes == 0 && r.FailedCancels == 0
}

// CarryForward copies selected tasks from one day's plan onto another.
type CarryForward struct {
	plans     PlanStore
	tasks     TaskStore
	scheduler ReminderScheduler
	now       func() time.Time
}

func NewCarryForward(plans PlanStore, tasks TaskStore, scheduler ReminderScheduler) *CarryForward {
	return &CarryForward{plans: plans, tasks: tasks, scheduler: scheduler, now: time.Now}
}

// Run copies the selected tasks onto the target plan. From the caller's
// point of view the operation is all-or-nothing: on any insert failure
// the copies created so far are deleted and their reminders cancelled
// before the error is returned. Inserts run sequentially so the rollback
// accumulator always matches what has actually been persisted.
func (c *CarryForward) Run(ctx context.Context, user *model.User, in Input) ([]model.Task, error) {
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	target, err := c.plans.FindByID(ctx, in.TargetPlanID)
	if err != nil {
		return nil, fmt.Errorf("find target plan: %w", err)
	}
	if target == nil || target.UserID != user.ID {
		return nil, ErrPlanNotOwned
	}

	sources, err := c.tasks.FindByIDsForUser(ctx, user.ID, in.SelectedTaskIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch source tasks: %w", err)
	}
	if len(sources) == 0 {
		return []model.Task{}, nil
	}

	var created []model.Task
	var notificationIDs []string
	for _, src := range sources {
		task := model.Task{
			PlanID:           target.ID,
			UserID:           user.ID,
			Title:            src.Title,
			Description:      src.Description,
			Priority:         copyPriority(src, in.MakeMIT),
			CategoryID:       src.CategoryID,
			SystemCategoryID: src.SystemCategoryID,
			EstimatedMinutes: src.EstimatedMinutes,
			Notes:            src.Notes,
			ReminderAt:       c.rebaseReminder(src.ReminderAt, target.PlannedFor, in.KeepReminderTimes),
			// MIT flag, completion, and notification id start fresh on
			// the copy.
		}
		if err := c.tasks.Create(ctx, &task); err != nil {
			c.rollback(ctx, created, notificationIDs)
			if strings.Contains(err.Error(), TaskLimitMarker) {
				return nil, ErrTaskLimitReached
			}
			return nil, fmt.Errorf("copy task %d: %w", src.ID, err)
		}
		// Record before any further side effects so rollback can always
		// find this row.
		created = append(created, task)

		if task.ReminderAt == nil {
			continue
		}
		id, err := c.scheduler.ScheduleTaskReminder(ctx, &task)
		if err != nil {
			log.Printf("[warn] schedule reminder for task %d: %v", task.ID, err)
			continue
		}
		if id == "" {
			continue
		}
		notificationIDs = append(notificationIDs, id)
		if err := c.tasks.SetNotificationID(ctx, task.ID, id); err != nil {
			// Non-fatal: the row simply won't carry the identifier.
			log.Printf("[warn] attach notification id to task %d: %v", task.ID, err)
			continue
		}
		created[len(created)-1].NotificationID = &id
	}

	return created, nil
}

// copyPriority applies the MIT transfer rule. When requested and the
// source was the plan's MIT, the copy gets the top tier and the store
// trigger makes it the target plan's MIT. A source MIT carried over
// without the transfer drops to high so the trigger does not silently
// crown it anyway.
func copyPriority(src model.Task, makeMIT bool) model.Priority {
	if src.IsMIT {
		if makeMIT {
			return model.PriorityMIT
		}
		return model.PriorityHigh
	}
	return src.Priority
}

// rebaseReminder moves a reminder to the same clock time on the target
// plan's date. Rebased times already behind the clock are dropped rather
// than scheduled in the past.
func (c *CarryForward) rebaseReminder(src *time.Time, targetDate string, keep bool) *time.Time {
	if !keep || src == nil {
		return nil
	}
	day, err := time.ParseInLocation(model.DateFormat, targetDate, src.Location())
	if err != nil {
		log.Printf("[warn] invalid plan date %q: %v", targetDate, err)
		return nil
	}
	rebased := time.Date(day.Year(), day.Month(), day.Day(), src.Hour(), src.Minute(), 0, 0, src.Location())
	if rebased.Before(c.now()) {
		return nil
	}
	return &rebased
}

// rollback deletes every task created so far and cancels any reminders
// already scheduled. Failures are counted and logged, not escalated: the
// caller gets the original error either way, but persistent orphans show
// up in the logs.
func (c *CarryForward) rollback(ctx context.Context, created []model.Task, notificationIDs []string) RollbackReport {
	var report RollbackReport
	for _, t := range created {
		if err := c.tasks.Delete(ctx, t.ID); err != nil {
			report.FailedDeletes++
			log.Printf("[warn] rollback: delete task %d: %v", t.ID, err)
		}
	}
	for _, id := range notificationIDs {
		if err := c.scheduler.CancelTaskReminder(ctx, id); err != nil {
			report.FailedCancels++
			log.Printf("[warn] rollback: cancel reminder %s: %v", id, err)
		}
	}
	if !report.Clean() {
		log.Printf("[warn] rollback incomplete: %d deletes and %d cancels failed", report.FailedDeletes, report.FailedCancels)
	}
	return report
}
