package service

import (
	"context"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
	"github.com/pixelverse-studios/domani-app-sub000/internal/repository"
	"github.com/pixelverse-studios/domani-app-sub000/internal/rollover"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, user *model.User) ([]model.Category, error) {
	if user == nil {
		return nil, rollover.ErrNotAuthenticated
	}
	return s.repo.ListByUser(ctx, user.ID)
}

func (s *CategoryService) ListSystem(ctx context.Context) ([]model.SystemCategory, error) {
	return s.repo.ListSystem(ctx)
}
