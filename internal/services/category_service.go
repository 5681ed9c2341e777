package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/renewhub/renewhub/internal/models"
	apperrors "github.com/renewhub/renewhub/pkg/errors"
)

// ErrCategoryNotFound indicates the requested category does not exist for the caller.
var ErrCategoryNotFound = apperrors.New("CATEGORY_NOT_FOUND", "Category not found", http.StatusNotFound)

// CategoryInput describes the fields accepted when creating or updating a category.
type CategoryInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

// CategoryService manages per-user service categories.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService constructs a CategoryService instance.
func NewCategoryService(db *gorm.DB) (*CategoryService, error) {
	if db == nil {
		return nil, errors.New("category service: db is required")
	}
	return &CategoryService{db: db}, nil
}

// Create stores a new category owned by the user.
func (s *CategoryService) Create(ctx context.Context, userID string, input CategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	category := &models.Category{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Color:       strings.TrimSpace(input.Color),
		Icon:        strings.TrimSpace(input.Icon),
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, fmt.Errorf("category service: create category: %w", err)
	}
	return category, nil
}

// List returns the user's categories ordered by name.
func (s *CategoryService) List(ctx context.Context, userID string) ([]models.Category, error) {
	ctx = ensureContext(ctx)

	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("category service: list categories: %w", err)
	}
	return categories, nil
}

// Get loads one of the user's categories by identifier.
func (s *CategoryService) Get(ctx context.Context, userID, id string) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	err := s.db.WithContext(ctx).First(&category, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category service: get category: %w", err)
	}
	return &category, nil
}

// Update persists mutable attributes for an existing category. Services that
// reference it pick up the new name.
func (s *CategoryService) Update(ctx context.Context, userID, id string, input CategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"name":        name,
			"description": strings.TrimSpace(input.Description),
		}
		if color := strings.TrimSpace(input.Color); color != "" {
			updates["color"] = color
		}
		if icon := strings.TrimSpace(input.Icon); icon != "" {
			updates["icon"] = icon
		}
		if err := tx.Model(category).Updates(updates).Error; err != nil {
			return fmt.Errorf("category service: update category: %w", err)
		}
		if err := tx.Model(&models.Service{}).
			Where("category_id = ?", category.ID).
			Update("category_name", name).Error; err != nil {
			return fmt.Errorf("category service: rename on services: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes the category. Services that referenced it become
// uncategorised rather than being deleted.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Service{}).
			Where("category_id = ?", category.ID).
			Updates(map[string]any{"category_id": nil, "category_name": ""}).Error; err != nil {
			return fmt.Errorf("category service: detach services: %w", err)
		}
		if err := tx.Delete(category).Error; err != nil {
			return fmt.Errorf("category service: delete category: %w", err)
		}
		return nil
	})
}
