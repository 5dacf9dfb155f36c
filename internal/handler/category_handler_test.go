package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oXide0/simplicity/internal/models"
	appErrors "github.com/oXide0/simplicity/pkg/errors"
)

type mockCategoryService struct {
	listFn func(ctx context.Context) ([]models.Category, error)
}

func (m *mockCategoryService) List(ctx context.Context) ([]models.Category, error) {
	return m.listFn(ctx)
}

func newCategoryRouter(svc categoryService) *gin.Engine {
	h := NewCategoryHandler(svc)
	router := gin.New()
	router.GET("/api/categories", h.List)
	return router
}

func TestCategoryHandlerList(t *testing.T) {
	svc := &mockCategoryService{
		listFn: func(context.Context) ([]models.Category, error) {
			return []models.Category{
				{ID: 1, Name: "Company News"},
				{ID: 2, Name: "Event"},
			}, nil
		},
	}
	router := newCategoryRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/api/categories", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Company News")
	assert.Contains(t, rec.Body.String(), "Event")
}

func TestCategoryHandlerListError(t *testing.T) {
	svc := &mockCategoryService{
		listFn: func(context.Context) ([]models.Category, error) {
			return nil, appErrors.Wrap(errors.New("boom"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
		},
	}
	router := newCategoryRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/api/categories", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to list categories")
}
