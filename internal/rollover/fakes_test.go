package rollover

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
)

// fakeStore implements PlanStore and TaskStore in memory.
type fakeStore struct {
	plans  []model.Plan
	tasks  []model.Task
	nextID uint

	// createErr, when set, is consulted with the 1-based call number
	// before each insert.
	createErr   func(call int) error
	deleteErr   error
	setNotifErr error

	createCalls   int
	deleteCalls   int
	deletedIDs    []uint
	notifAttached map[uint]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, notifAttached: make(map[uint]string)}
}

func (f *fakeStore) addPlan(userID uint, date string) *model.Plan {
	plan := model.Plan{ID: f.nextID, UserID: userID, PlannedFor: date, Status: "active"}
	f.nextID++
	f.plans = append(f.plans, plan)
	return &f.plans[len(f.plans)-1]
}

func (f *fakeStore) addTask(t model.Task) model.Task {
	t.ID = f.nextID
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t
}

func (f *fakeStore) tasksOnPlan(planID uint) []model.Task {
	var out []model.Task
	for _, t := range f.tasks {
		if t.PlanID == planID {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeStore) FindByDate(_ context.Context, userID uint, date string) (*model.Plan, error) {
	for i := range f.plans {
		if f.plans[i].UserID == userID && f.plans[i].PlannedFor == date {
			plan := f.plans[i]
			return &plan, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByID(_ context.Context, planID uint) (*model.Plan, error) {
	for i := range f.plans {
		if f.plans[i].ID == planID {
			plan := f.plans[i]
			return &plan, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListByPlan(_ context.Context, planID uint) ([]model.Task, error) {
	return f.tasksOnPlan(planID), nil
}

func (f *fakeStore) ListIncompleteByPlan(_ context.Context, planID uint) ([]model.Task, error) {
	var out []model.Task
	for _, t := range f.tasksOnPlan(planID) {
		if !t.Completed() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) FindByIDsForUser(_ context.Context, userID uint, ids []uint) ([]model.Task, error) {
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.UserID == userID && want[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, task *model.Task) error {
	f.createCalls++
	if f.createErr != nil {
		if err := f.createErr(f.createCalls); err != nil {
			return err
		}
	}
	task.ID = f.nextID
	f.nextID++
	f.tasks = append(f.tasks, *task)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, taskID uint) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			break
		}
	}
	f.deletedIDs = append(f.deletedIDs, taskID)
	return nil
}

func (f *fakeStore) SetNotificationID(_ context.Context, taskID uint, notificationID string) error {
	if f.setNotifErr != nil {
		return f.setNotifErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			id := notificationID
			f.tasks[i].NotificationID = &id
		}
	}
	f.notifAttached[taskID] = notificationID
	return nil
}

// fakeScheduler records reminder scheduling and cancellation.
type fakeScheduler struct {
	scheduleErr error
	cancelErr   error

	seq       int
	scheduled []string
	cancelled []string
}

func (f *fakeScheduler) ScheduleTaskReminder(_ context.Context, task *model.Task) (string, error) {
	if f.scheduleErr != nil {
		return "", f.scheduleErr
	}
	if task.ReminderAt == nil {
		return "", nil
	}
	f.seq++
	id := fmt.Sprintf("notif-%d", f.seq)
	f.scheduled = append(f.scheduled, id)
	return id, nil
}

func (f *fakeScheduler) CancelTaskReminder(_ context.Context, id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

// fakeLatch is an in-memory DailyLatch. failRead simulates a storage
// error, which must read as "already set".
type fakeLatch struct {
	value    string
	failRead bool
	setCalls int
}

func (l *fakeLatch) IsSetToday(now time.Time) bool {
	if l.failRead {
		return true
	}
	return l.value == now.Format(model.DateFormat)
}

func (l *fakeLatch) SetToday(now time.Time) {
	l.value = now.Format(model.DateFormat)
	l.setCalls++
}

func testLatches() (Latches, *fakeLatch, *fakeLatch, *fakeLatch) {
	morning := &fakeLatch{}
	celebration := &fakeLatch{}
	evening := &fakeLatch{}
	return Latches{
		MorningPrompted:  morning,
		CelebrationShown: celebration,
		EveningPrompted:  evening,
	}, morning, celebration, evening
}
