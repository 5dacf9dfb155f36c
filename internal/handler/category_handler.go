package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oXide0/simplicity/internal/models"
	"github.com/oXide0/simplicity/pkg/response"
)

type categoryService interface {
	List(ctx context.Context) ([]models.Category, error)
}

// CategoryHandler exposes the read-only category endpoint.
type CategoryHandler struct {
	service categoryService
}

// NewCategoryHandler constructs a category handler.
func NewCategoryHandler(svc categoryService) *CategoryHandler {
	return &CategoryHandler{service: svc}
}

// List godoc
// @Summary List categories
// @Description List all categories sorted by name
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories)
}
