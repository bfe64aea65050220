package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"taskshare/internal/apperrors"
	"taskshare/internal/models"

	"gorm.io/gorm"
)

const (
	maxCategoryNameLength = 50
	maxCategoryIconLength = 50
)

type CategoryInput struct {
	Name  string
	Color string
	Icon  string
}

// CategorySummary is a category with the number of tasks filed under it.
type CategorySummary struct {
	models.Category
	TaskCount int64 `json:"task_count"`
}

type CategoryService interface {
	ListCategories(ctx context.Context, actorID uint) ([]CategorySummary, error)
	GetCategory(ctx context.Context, actorID, categoryID uint) (*models.Category, error)
	CreateCategory(ctx context.Context, actorID uint, in CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, actorID, categoryID uint, in CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, actorID, categoryID uint) error
}

type CategoryServiceImpl struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryServiceImpl {
	return &CategoryServiceImpl{db: db}
}

func (s *CategoryServiceImpl) ListCategories(ctx context.Context, actorID uint) ([]CategorySummary, error) {
	db := s.db.WithContext(ctx)

	var categories []models.Category
	if err := db.Where("user_id = ?", actorID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var counts []struct {
		CategoryID uint
		Total      int64
	}
	err := db.Model(&models.Task{}).
		Select("category_id, COUNT(*) AS total").
		Where("user_id = ? AND category_id IS NOT NULL", actorID).
		Group("category_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count tasks per category: %w", err)
	}

	byCategory := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byCategory[c.CategoryID] = c.Total
	}

	summaries := make([]CategorySummary, 0, len(categories))
	for _, category := range categories {
		summaries = append(summaries, CategorySummary{Category: category, TaskCount: byCategory[category.ID]})
	}
	return summaries, nil
}

func (s *CategoryServiceImpl) GetCategory(ctx context.Context, actorID, categoryID uint) (*models.Category, error) {
	return findOwnedCategory(s.db.WithContext(ctx), actorID, categoryID)
}

func (s *CategoryServiceImpl) CreateCategory(ctx context.Context, actorID uint, in CategoryInput) (*models.Category, error) {
	if err := validateCategoryInput(&in); err != nil {
		return nil, err
	}

	category := models.Category{
		UserID: actorID,
		Name:   in.Name,
		Color:  in.Color,
		Icon:   in.Icon,
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.Conflict(fmt.Sprintf("category %q already exists", in.Name))
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

func (s *CategoryServiceImpl) UpdateCategory(ctx context.Context, actorID, categoryID uint, in CategoryInput) (*models.Category, error) {
	if err := validateCategoryInput(&in); err != nil {
		return nil, err
	}

	var category *models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		category, err = findOwnedCategory(tx, actorID, categoryID)
		if err != nil {
			return err
		}

		category.Name = in.Name
		category.Color = in.Color
		category.Icon = in.Icon
		if err := tx.Save(category).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.Conflict(fmt.Sprintf("category %q already exists", in.Name))
			}
			return fmt.Errorf("update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes the category and leaves its tasks uncategorized.
func (s *CategoryServiceImpl) DeleteCategory(ctx context.Context, actorID, categoryID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findOwnedCategory(tx, actorID, categoryID)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Task{}).
			Where("category_id = ?", category.ID).
			UpdateColumn("category_id", nil).Error
		if err != nil {
			return fmt.Errorf("detach tasks: %w", err)
		}

		if err := tx.Delete(category).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

func findOwnedCategory(db *gorm.DB, actorID, categoryID uint) (*models.Category, error) {
	var category models.Category
	if err := db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("category not found")
		}
		return nil, fmt.Errorf("load category: %w", err)
	}
	if category.UserID != actorID {
		return nil, apperrors.Forbidden("category belongs to another user")
	}
	return &category, nil
}

func validateCategoryInput(in *CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)

	if in.Name == "" {
		return apperrors.Validation("category name is required")
	}
	if utf8.RuneCountInString(in.Name) > maxCategoryNameLength {
		return apperrors.Validation(fmt.Sprintf("category name must be at most %d characters", maxCategoryNameLength))
	}

	color, ok := normalizeColor(in.Color, models.DefaultCategoryColor)
	if !ok {
		return apperrors.Validation("color must look like #rrggbb")
	}
	in.Color = color

	if in.Icon == "" {
		in.Icon = models.DefaultCategoryIcon
	}
	if utf8.RuneCountInString(in.Icon) > maxCategoryIconLength {
		return apperrors.Validation(fmt.Sprintf("icon must be at most %d characters", maxCategoryIconLength))
	}
	return nil
}
