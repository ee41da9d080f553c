package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
	"github.com/pixelverse-studios/domani-app-sub000/internal/repository"
	"github.com/pixelverse-studios/domani-app-sub000/internal/rollover"
)

// TaskInput represents data required to create a task on a plan.
type TaskInput struct {
	Title            string
	Description      string
	Category         string
	Priority         model.Priority
	EstimatedMinutes int
	Notes            string
	ReminderAt       *time.Time
}

// PlannerService wraps plan and task lifecycle logic for the bot surface.
// The rollover core does not depend on it.
type PlannerService struct {
	planRepo     *repository.PlanRepository
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
}

func NewPlannerService(planRepo *repository.PlanRepository, taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository) *PlannerService {
	return &PlannerService{planRepo: planRepo, taskRepo: taskRepo, categoryRepo: categoryRepo}
}

// PlanOn returns the user's plan for the given day, creating it on first
// use.
func (s *PlannerService) PlanOn(ctx context.Context, user *model.User, day time.Time) (*model.Plan, error) {
	if user == nil {
		return nil, rollover.ErrNotAuthenticated
	}
	return s.planRepo.GetOrCreate(ctx, user.ID, day.Format(model.DateFormat))
}

// AddTask creates a task on the plan. Capacity refusals from the store
// translate to rollover.ErrTaskLimitReached so callers can show the
// specific message.
func (s *PlannerService) AddTask(ctx context.Context, user *model.User, planID uint, input TaskInput) (*model.Task, error) {
	if user == nil {
		return nil, rollover.ErrNotAuthenticated
	}
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.UserID != user.ID {
		return nil, rollover.ErrPlanNotOwned
	}

	var categoryID *uint
	if input.Category != "" {
		category, err := s.categoryRepo.GetOrCreate(ctx, user.ID, input.Category)
		if err != nil {
			return nil, err
		}
		if category != nil {
			categoryID = &category.ID
		}
	}

	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	task := model.Task{
		PlanID:           plan.ID,
		UserID:           user.ID,
		Title:            input.Title,
		Description:      input.Description,
		Priority:         priority,
		CategoryID:       categoryID,
		EstimatedMinutes: input.EstimatedMinutes,
		Notes:            input.Notes,
		ReminderAt:       input.ReminderAt,
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		if strings.Contains(err.Error(), rollover.TaskLimitMarker) {
			return nil, rollover.ErrTaskLimitReached
		}
		return nil, err
	}

	return &task, nil
}

// Tasks lists the plan's tasks in insertion order.
func (s *PlannerService) Tasks(ctx context.Context, user *model.User, planID uint) ([]model.Task, error) {
	if user == nil {
		return nil, rollover.ErrNotAuthenticated
	}
	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.UserID != user.ID {
		return nil, rollover.ErrPlanNotOwned
	}
	return s.taskRepo.ListByPlan(ctx, plan.ID)
}

// CompleteTask marks a task as done.
func (s *PlannerService) CompleteTask(ctx context.Context, user *model.User, taskID uint, completedAt time.Time) (*model.Task, error) {
	if user == nil {
		return nil, rollover.ErrNotAuthenticated
	}
	task, err := s.taskRepo.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.MarkCompleted(ctx, task, completedAt); err != nil {
		return nil, err
	}
	return task, nil
}
