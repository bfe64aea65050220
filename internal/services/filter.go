package services

import (
	"strconv"
	"strings"

	"taskshare/internal/apperrors"
	"taskshare/internal/models"

	"gorm.io/gorm"
)

// TaskFilter narrows a task listing by equality. Nil fields match everything.
type TaskFilter struct {
	Status     *models.TaskStatus `json:"status,omitempty"`
	CategoryID *uint              `json:"category_id,omitempty"`
	Priority   *int               `json:"priority,omitempty"`
}

// ParseTaskFilter reads the dashboard query parameters. An empty value or
// "all" leaves that filter unset.
func ParseTaskFilter(status, category, priority string) (TaskFilter, error) {
	var filter TaskFilter

	if v := normalizeFilterValue(status); v != "" {
		s := models.TaskStatus(v)
		if !s.Valid() {
			return TaskFilter{}, apperrors.Validation("invalid status filter: " + status)
		}
		filter.Status = &s
	}

	if v := normalizeFilterValue(category); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return TaskFilter{}, apperrors.Validation("invalid category filter: " + category)
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}

	if v := normalizeFilterValue(priority); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < models.MinPriority || p > models.MaxPriority {
			return TaskFilter{}, apperrors.Validation("invalid priority filter: " + priority)
		}
		filter.Priority = &p
	}

	return filter, nil
}

func normalizeFilterValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return strings.ToLower(v)
}

func (f TaskFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", *f.Priority)
	}
	return q
}

// orderTasks sorts by priority descending, then due date ascending with
// undated tasks last. The id keeps the order stable.
func orderTasks(q *gorm.DB) *gorm.DB {
	return q.Order("priority DESC").
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END").
		Order("due_date ASC").
		Order("id ASC")
}
