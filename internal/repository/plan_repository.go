package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
)

// PlanRepository manages day plans.
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetOrCreate returns the user's plan for the given yyyy-MM-dd date,
// creating it on first use. The unique (user, date) index backs up the
// one-plan-per-day invariant.
func (r *PlanRepository) GetOrCreate(ctx context.Context, userID uint, date string) (*model.Plan, error) {
	var plan model.Plan
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND planned_for = ?", userID, date).First(&plan).Error
	switch {
	case err == nil:
		return &plan, nil
	case err == gorm.ErrRecordNotFound:
		plan = model.Plan{UserID: userID, PlannedFor: date, Status: "active"}
		if err := db.Create(&plan).Error; err != nil {
			return nil, fmt.Errorf("create plan: %w", err)
		}
		return &plan, nil
	default:
		return nil, fmt.Errorf("find plan: %w", err)
	}
}

// FindByDate returns the user's plan for the date, or nil if the day has
// never been addressed.
func (r *PlanRepository) FindByDate(ctx context.Context, userID uint, date string) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).Where("user_id = ? AND planned_for = ?", userID, date).First(&plan).Error
	switch {
	case err == nil:
		return &plan, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("find plan: %w", err)
	}
}

// FindByID returns the plan regardless of owner, or nil if absent. Callers
// needing an ownership check compare UserID themselves.
func (r *PlanRepository) FindByID(ctx context.Context, planID uint) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).First(&plan, planID).Error
	switch {
	case err == nil:
		return &plan, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("find plan: %w", err)
	}
}
