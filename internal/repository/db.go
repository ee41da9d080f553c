package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
	"github.com/pixelverse-studios/domani-app-sub000/internal/rollover"
)

// Options control schema-level behavior baked in at migration time.
type Options struct {
	// TaskLimit caps tasks per plan. Inserting past the cap aborts with
	// the rollover.TaskLimitMarker message. Zero disables the cap.
	TaskLimit int
}

// NewDB opens a SQLite database, runs migrations, and installs the
// triggers the rollover core depends on: the single-MIT invariant and the
// per-plan capacity signal.
func NewDB(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "domani.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.SystemCategory{},
		&model.Plan{},
		&model.Task{},
	); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	if err := installTriggers(db, opts.TaskLimit); err != nil {
		return nil, err
	}

	if err := seedSystemCategories(db); err != nil {
		return nil, err
	}

	return db, nil
}

// installTriggers recreates the task triggers. The MIT triggers keep the
// "at most one MIT per plan" invariant inside the store: a task written
// with the mit tier becomes the plan's MIT and the previous holder drops
// to high. The capacity trigger makes over-limit inserts fail with the
// marker the carry-forward translates into ErrTaskLimitReached.
func installTriggers(db *gorm.DB, taskLimit int) error {
	stmts := []string{
		`DROP TRIGGER IF EXISTS trg_tasks_capacity`,
		`DROP TRIGGER IF EXISTS trg_tasks_mit_insert`,
		`DROP TRIGGER IF EXISTS trg_tasks_mit_update`,
		fmt.Sprintf(`CREATE TRIGGER trg_tasks_mit_insert
AFTER INSERT ON tasks
WHEN NEW.priority = '%s'
BEGIN
	UPDATE tasks SET is_mit = 0, priority = '%s'
	 WHERE plan_id = NEW.plan_id AND id <> NEW.id AND is_mit = 1;
	UPDATE tasks SET is_mit = 1 WHERE id = NEW.id;
END`, model.PriorityMIT, model.PriorityHigh),
		fmt.Sprintf(`CREATE TRIGGER trg_tasks_mit_update
AFTER UPDATE OF priority ON tasks
WHEN NEW.priority = '%s' AND OLD.priority <> '%s'
BEGIN
	UPDATE tasks SET is_mit = 0, priority = '%s'
	 WHERE plan_id = NEW.plan_id AND id <> NEW.id AND is_mit = 1;
	UPDATE tasks SET is_mit = 1 WHERE id = NEW.id;
END`, model.PriorityMIT, model.PriorityMIT, model.PriorityHigh),
	}

	if taskLimit > 0 {
		stmts = append(stmts, fmt.Sprintf(`CREATE TRIGGER trg_tasks_capacity
BEFORE INSERT ON tasks
WHEN (SELECT COUNT(*) FROM tasks WHERE plan_id = NEW.plan_id) >= %d
BEGIN
	SELECT RAISE(ABORT, '%s: plan is at capacity');
END`, taskLimit, rollover.TaskLimitMarker))
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("install trigger: %w", err)
		}
	}
	return nil
}

var systemCategories = []model.SystemCategory{
	{Name: "Work", Icon: "💼"},
	{Name: "Personal", Icon: "🏠"},
	{Name: "Health", Icon: "💪"},
	{Name: "Errands", Icon: "🛒"},
}

func seedSystemCategories(db *gorm.DB) error {
	for _, cat := range systemCategories {
		var existing model.SystemCategory
		err := db.Where("name = ?", cat.Name).First(&existing).Error
		switch {
		case err == nil:
			continue
		case err == gorm.ErrRecordNotFound:
			if err := db.Create(&cat).Error; err != nil {
				return fmt.Errorf("seed system category %q: %w", cat.Name, err)
			}
		default:
			return fmt.Errorf("find system category %q: %w", cat.Name, err)
		}
	}
	return nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
