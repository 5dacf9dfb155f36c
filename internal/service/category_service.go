package service

import (
	"context"

	"github.com/oXide0/simplicity/internal/models"
	appErrors "github.com/oXide0/simplicity/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
}

// CategoryService exposes the read-only category lookup.
type CategoryService struct {
	repo categoryRepository
}

// NewCategoryService constructs the service.
func NewCategoryService(repo categoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns all categories sorted by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}
