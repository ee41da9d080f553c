package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
	"github.com/pixelverse-studios/domani-app-sub000/internal/rollover"
)

func newTestDB(t *testing.T, taskLimit int) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), Options{TaskLimit: taskLimit})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user, err := NewUserRepository(db).UpsertFromTelegram(context.Background(), 1001, 2002, "Ada", "L", "ada")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestPlanGetOrCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()
	user := createTestUser(t, db)
	plans := NewPlanRepository(db)

	first, err := plans.GetOrCreate(ctx, user.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	second, err := plans.GetOrCreate(ctx, user.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("plan duplicated: %d vs %d", first.ID, second.ID)
	}

	var count int64
	db.Model(&model.Plan{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one plan, got %d", count)
	}
}

func TestPlanFindByDateReturnsNilWhenAbsent(t *testing.T) {
	db := newTestDB(t, 0)
	user := createTestUser(t, db)

	plan, err := NewPlanRepository(db).FindByDate(context.Background(), user.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("FindByDate: %v", err)
	}
	if plan != nil {
		t.Fatalf("expected nil for an unplanned day, got %+v", plan)
	}
}

func TestMITTriggerDemotesPreviousHolder(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()
	user := createTestUser(t, db)
	plans := NewPlanRepository(db)
	tasks := NewTaskRepository(db)

	plan, err := plans.GetOrCreate(ctx, user.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	first := model.Task{PlanID: plan.ID, UserID: user.ID, Title: "first", Priority: model.PriorityMIT}
	if err := tasks.Create(ctx, &first); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if !first.IsMIT {
		t.Fatal("first mit-tier task should become the MIT")
	}

	second := model.Task{PlanID: plan.ID, UserID: user.ID, Title: "second", Priority: model.PriorityMIT}
	if err := tasks.Create(ctx, &second); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if !second.IsMIT {
		t.Fatal("second mit-tier task should take over as MIT")
	}

	reloaded, err := tasks.FindByID(ctx, user.ID, first.ID)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if reloaded.IsMIT {
		t.Fatal("previous MIT should be demoted")
	}
	if reloaded.Priority != model.PriorityHigh {
		t.Fatalf("previous MIT priority = %s, want %s", reloaded.Priority, model.PriorityHigh)
	}

	var mitCount int64
	db.Model(&model.Task{}).Where("plan_id = ? AND is_mit = ?", plan.ID, true).Count(&mitCount)
	if mitCount != 1 {
		t.Fatalf("plan holds %d MITs, want exactly 1", mitCount)
	}
}

func TestCapacityTriggerSignalsLimitMarker(t *testing.T) {
	db := newTestDB(t, 2)
	ctx := context.Background()
	user := createTestUser(t, db)

	plan, err := NewPlanRepository(db).GetOrCreate(ctx, user.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	tasks := NewTaskRepository(db)

	for i := 0; i < 2; i++ {
		task := model.Task{PlanID: plan.ID, UserID: user.ID, Title: "ok"}
		if err := tasks.Create(ctx, &task); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	over := model.Task{PlanID: plan.ID, UserID: user.ID, Title: "too many"}
	err = tasks.Create(ctx, &over)
	if err == nil {
		t.Fatal("insert past the cap must fail")
	}
	if !strings.Contains(err.Error(), rollover.TaskLimitMarker) {
		t.Fatalf("error %q does not carry the limit marker", err)
	}
}

func TestFindByIDsForUserScopesToOwner(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()
	users := NewUserRepository(db)
	plans := NewPlanRepository(db)
	tasks := NewTaskRepository(db)

	owner, _ := users.UpsertFromTelegram(ctx, 1, 1, "A", "", "a")
	other, _ := users.UpsertFromTelegram(ctx, 2, 2, "B", "", "b")

	ownPlan, _ := plans.GetOrCreate(ctx, owner.ID, "2026-09-01")
	otherPlan, _ := plans.GetOrCreate(ctx, other.ID, "2026-09-01")

	mine := model.Task{PlanID: ownPlan.ID, UserID: owner.ID, Title: "mine"}
	theirs := model.Task{PlanID: otherPlan.ID, UserID: other.ID, Title: "theirs"}
	if err := tasks.Create(ctx, &mine); err != nil {
		t.Fatalf("create mine: %v", err)
	}
	if err := tasks.Create(ctx, &theirs); err != nil {
		t.Fatalf("create theirs: %v", err)
	}

	got, err := tasks.FindByIDsForUser(ctx, owner.ID, []uint{mine.ID, theirs.ID})
	if err != nil {
		t.Fatalf("FindByIDsForUser: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("owner scoping failed: %+v", got)
	}

	empty, err := tasks.FindByIDsForUser(ctx, owner.ID, nil)
	if err != nil {
		t.Fatalf("empty id list: %v", err)
	}
	if len(empty) != 0 {
		t.Fatal("empty id list must return nothing")
	}
}

func TestListIncompleteByPlan(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()
	user := createTestUser(t, db)
	plan, _ := NewPlanRepository(db).GetOrCreate(ctx, user.ID, "2026-09-01")
	tasks := NewTaskRepository(db)

	done := model.Task{PlanID: plan.ID, UserID: user.ID, Title: "done"}
	open := model.Task{PlanID: plan.ID, UserID: user.ID, Title: "open"}
	if err := tasks.Create(ctx, &done); err != nil {
		t.Fatalf("create done: %v", err)
	}
	if err := tasks.Create(ctx, &open); err != nil {
		t.Fatalf("create open: %v", err)
	}
	if err := tasks.MarkCompleted(ctx, &done, time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := tasks.ListIncompleteByPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("ListIncompleteByPlan: %v", err)
	}
	if len(got) != 1 || got[0].ID != open.ID {
		t.Fatalf("incomplete list = %+v, want only the open task", got)
	}
}

func TestSetNotificationID(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()
	user := createTestUser(t, db)
	plan, _ := NewPlanRepository(db).GetOrCreate(ctx, user.ID, "2026-09-01")
	tasks := NewTaskRepository(db)

	task := model.Task{PlanID: plan.ID, UserID: user.ID, Title: "remind me"}
	if err := tasks.Create(ctx, &task); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tasks.SetNotificationID(ctx, task.ID, "reminder-1-1"); err != nil {
		t.Fatalf("SetNotificationID: %v", err)
	}

	reloaded, err := tasks.FindByID(ctx, user.ID, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.NotificationID == nil || *reloaded.NotificationID != "reminder-1-1" {
		t.Fatalf("notification id = %v", reloaded.NotificationID)
	}
}

func TestSeedSystemCategoriesIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(dsn, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Reopening must not duplicate the seed set.
	db, err = NewDB(dsn, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	cats, err := NewCategoryRepository(db).ListSystem(context.Background())
	if err != nil {
		t.Fatalf("ListSystem: %v", err)
	}
	if len(cats) != len(systemCategories) {
		t.Fatalf("seeded %d system categories, want %d", len(cats), len(systemCategories))
	}
}
