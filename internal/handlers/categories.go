package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renewhub/renewhub/internal/middleware"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/pkg/response"
)

// CategoryHandler exposes CRUD endpoints for service categories.
type CategoryHandler struct {
	service   *services.CategoryService
	inventory *services.InventoryService
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(service *services.CategoryService, inventory *services.InventoryService) *CategoryHandler {
	return &CategoryHandler{service: service, inventory: inventory}
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1024"`
	Color       string `json:"color" validate:"max=16"`
	Icon        string `json:"icon" validate:"max=64"`
}

// GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.service.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, categories)
}

// GET /api/categories/with-services
func (h *CategoryHandler) WithServices(c *gin.Context) {
	groups, err := h.inventory.GroupedByCategory(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, groups)
}

// POST /api/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req categoryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	category, err := h.service.Create(c.Request.Context(), middleware.UserID(c), services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, category)
}

// PUT /api/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	var req categoryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	category, err := h.service.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// DELETE /api/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Category deleted"})
}
