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
	"gorm.io/gorm/clause"
)

const maxTagNameLength = 30

type TagInput struct {
	Name  string
	Color string
}

type TagSummary struct {
	models.Tag
	TaskCount int64 `json:"task_count"`
}

type TagService interface {
	ListTags(ctx context.Context, actorID uint) ([]TagSummary, error)
	GetTag(ctx context.Context, actorID, tagID uint) (*models.Tag, error)
	CreateTag(ctx context.Context, actorID uint, in TagInput) (*models.Tag, error)
	UpdateTag(ctx context.Context, actorID, tagID uint, in TagInput) (*models.Tag, error)
	DeleteTag(ctx context.Context, actorID, tagID uint) error
}

type TagServiceImpl struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagServiceImpl {
	return &TagServiceImpl{db: db}
}

func (s *TagServiceImpl) ListTags(ctx context.Context, actorID uint) ([]TagSummary, error) {
	db := s.db.WithContext(ctx)

	var tags []models.Tag
	if err := db.Where("user_id = ?", actorID).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	var counts []struct {
		TagID uint
		Total int64
	}
	err := db.Table("task_tags").
		Select("task_tags.tag_id, COUNT(*) AS total").
		Joins("JOIN tags ON tags.id = task_tags.tag_id").
		Where("tags.user_id = ?", actorID).
		Group("task_tags.tag_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count tasks per tag: %w", err)
	}

	byTag := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byTag[c.TagID] = c.Total
	}

	summaries := make([]TagSummary, 0, len(tags))
	for _, tag := range tags {
		summaries = append(summaries, TagSummary{Tag: tag, TaskCount: byTag[tag.ID]})
	}
	return summaries, nil
}

func (s *TagServiceImpl) GetTag(ctx context.Context, actorID, tagID uint) (*models.Tag, error) {
	return findOwnedTag(s.db.WithContext(ctx), actorID, tagID)
}

func (s *TagServiceImpl) CreateTag(ctx context.Context, actorID uint, in TagInput) (*models.Tag, error) {
	if err := validateTagInput(&in); err != nil {
		return nil, err
	}

	tag := models.Tag{UserID: actorID, Name: in.Name, Color: in.Color}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.Conflict(fmt.Sprintf("tag %q already exists", in.Name))
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return &tag, nil
}

func (s *TagServiceImpl) UpdateTag(ctx context.Context, actorID, tagID uint, in TagInput) (*models.Tag, error) {
	if err := validateTagInput(&in); err != nil {
		return nil, err
	}

	var tag *models.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tag, err = findOwnedTag(tx, actorID, tagID)
		if err != nil {
			return err
		}

		tag.Name = in.Name
		tag.Color = in.Color
		if err := tx.Save(tag).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.Conflict(fmt.Sprintf("tag %q already exists", in.Name))
			}
			return fmt.Errorf("update tag: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// DeleteTag removes the tag and its task associations; the tasks stay.
func (s *TagServiceImpl) DeleteTag(ctx context.Context, actorID, tagID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tag, err := findOwnedTag(tx, actorID, tagID)
		if err != nil {
			return err
		}

		if err := tx.Exec("DELETE FROM task_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return fmt.Errorf("delete tag associations: %w", err)
		}
		if err := tx.Delete(tag).Error; err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		return nil
	})
}

func findOwnedTag(db *gorm.DB, actorID, tagID uint) (*models.Tag, error) {
	var tag models.Tag
	if err := db.First(&tag, tagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("load tag: %w", err)
	}
	if tag.UserID != actorID {
		return nil, apperrors.Forbidden("tag belongs to another user")
	}
	return &tag, nil
}

func validateTagInput(in *TagInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.Validation("tag name is required")
	}
	if utf8.RuneCountInString(in.Name) > maxTagNameLength {
		return apperrors.Validation(fmt.Sprintf("tag name must be at most %d characters", maxTagNameLength))
	}

	color, ok := normalizeColor(in.Color, models.DefaultTagColor)
	if !ok {
		return apperrors.Validation("color must look like #rrggbb")
	}
	in.Color = color
	return nil
}

// ParseTagNames splits a comma separated tag field.
func ParseTagNames(raw string) []string {
	return normalizeTagNames(strings.Split(raw, ","))
}

func normalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}

// resolveTags returns the owner's tags with the given names, creating the
// missing ones. Concurrent creators of the same name both end up with the
// single row guarded by the (user_id, name) unique index.
func resolveTags(tx *gorm.DB, ownerID uint, names []string) ([]models.Tag, error) {
	names = normalizeTagNames(names)
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	rows := make([]models.Tag, 0, len(names))
	for _, name := range names {
		if utf8.RuneCountInString(name) > maxTagNameLength {
			return nil, apperrors.Validation(fmt.Sprintf("tag name must be at most %d characters", maxTagNameLength))
		}
		rows = append(rows, models.Tag{UserID: ownerID, Name: name, Color: models.DefaultTagColor})
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("upsert tags: %w", err)
	}

	var existing []models.Tag
	if err := tx.Where("user_id = ? AND name IN ?", ownerID, names).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}

	byName := make(map[string]models.Tag, len(existing))
	for _, tag := range existing {
		byName[tag.Name] = tag
	}
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("tag %q missing after upsert", name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
