package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"taskshare/internal/apperrors"
	"taskshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
	searchLimit          = 10
	minSearchLength      = 2
	calendarDateLayout   = "2006-01-02"
)

type TaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    int
	Status      models.TaskStatus
	CategoryID  *uint
	Tags        []string
}

type TaskStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Overdue   int64 `json:"overdue"`
}

// SharedTask is a task seen by a grantee.
type SharedTask struct {
	Task          models.Task       `json:"task"`
	Permission    models.Permission `json:"permission"`
	SharedAt      time.Time         `json:"shared_at"`
	OwnerUsername string            `json:"owner_username"`
}

// TaskView is a single task as the actor may see it. Shares is only filled
// for the owner.
type TaskView struct {
	Task   *models.Task       `json:"task"`
	Access Access             `json:"access"`
	Shares []models.TaskShare `json:"shares,omitempty"`
}

type TaskService interface {
	ListTasks(ctx context.Context, actorID uint, filter TaskFilter) ([]models.Task, error)
	Stats(ctx context.Context, actorID uint) (TaskStats, error)
	SharedWithMe(ctx context.Context, actorID uint) ([]SharedTask, error)
	GetTask(ctx context.Context, actorID, taskID uint) (*TaskView, error)
	Search(ctx context.Context, actorID uint, query string) ([]models.Task, error)
	Calendar(ctx context.Context, actorID uint) (map[string][]models.Task, error)
	CreateTask(ctx context.Context, actorID uint, in TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, actorID, taskID uint, in TaskInput) (*models.Task, error)
	ToggleTask(ctx context.Context, actorID, taskID uint) (*models.Task, error)
	DeleteTask(ctx context.Context, actorID, taskID uint) error
	QuickAdd(ctx context.Context, actorID uint, title string) (*models.Task, error)
}

type TaskServiceImpl struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskService(db *gorm.DB) *TaskServiceImpl {
	return &TaskServiceImpl{db: db, now: time.Now}
}

// WithClock replaces the time source used for completion stamps and the
// overdue cut-off.
func (s *TaskServiceImpl) WithClock(now func() time.Time) *TaskServiceImpl {
	s.now = now
	return s
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, actorID uint, filter TaskFilter) ([]models.Task, error) {
	q := s.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Category").
		Where("user_id = ?", actorID)

	var tasks []models.Task
	if err := orderTasks(filter.apply(q)).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskServiceImpl) Stats(ctx context.Context, actorID uint) (TaskStats, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Select("id", "status", "due_date").
		Where("user_id = ?", actorID).
		Find(&tasks).Error
	if err != nil {
		return TaskStats{}, fmt.Errorf("task stats: %w", err)
	}

	today := startOfDay(s.now())
	stats := TaskStats{Total: int64(len(tasks))}
	for i := range tasks {
		switch tasks[i].Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusCompleted:
			stats.Completed++
		}
		if tasks[i].IsOverdue(today) {
			stats.Overdue++
		}
	}
	return stats, nil
}

func (s *TaskServiceImpl) SharedWithMe(ctx context.Context, actorID uint) ([]SharedTask, error) {
	var shares []models.TaskShare
	err := s.db.WithContext(ctx).
		Preload("Task").
		Preload("Task.Owner").
		Preload("Task.Tags").
		Preload("Task.Category").
		Where("user_id = ?", actorID).
		Order("shared_at DESC").
		Order("id DESC").
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("list shared tasks: %w", err)
	}

	result := make([]SharedTask, 0, len(shares))
	for _, share := range shares {
		if share.Task == nil {
			continue
		}
		item := SharedTask{
			Task:       *share.Task,
			Permission: share.Permission,
			SharedAt:   share.SharedAt,
		}
		if share.Task.Owner != nil {
			item.OwnerUsername = share.Task.Owner.Username
		}
		item.Task.Owner = nil
		result = append(result, item)
	}
	return result, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, actorID, taskID uint) (*TaskView, error) {
	db := s.db.WithContext(ctx)

	task, decision, err := authorizeTask(db, actorID, taskID, models.PermissionView)
	if err != nil {
		return nil, err
	}

	q := db.Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Category").
		Preload("Owner")
	if decision.Access == AccessOwner {
		q = q.Preload("Shares", func(db *gorm.DB) *gorm.DB { return db.Order("shared_at ASC") }).
			Preload("Shares.User")
	}
	if err := q.First(task, task.ID).Error; err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}

	view := &TaskView{Task: task, Access: decision.Access, Shares: task.Shares}
	task.Shares = nil
	return view, nil
}

func (s *TaskServiceImpl) Search(ctx context.Context, actorID uint, query string) ([]models.Task, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchLength {
		return []models.Task{}, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	tasks := []models.Task{}
	err := orderTasks(s.db.WithContext(ctx).
		Where("user_id = ?", actorID).
		Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern)).
		Limit(searchLimit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	return tasks, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *TaskServiceImpl) Calendar(ctx context.Context, actorID uint) (map[string][]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND due_date IS NOT NULL", actorID).
		Order("due_date ASC").
		Order("priority DESC").
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}

	days := make(map[string][]models.Task)
	for _, task := range tasks {
		day := task.DueDate.UTC().Format(calendarDateLayout)
		days[day] = append(days[day], task)
	}
	return days, nil
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, actorID uint, in TaskInput) (*models.Task, error) {
	if err := validateTaskInput(&in); err != nil {
		return nil, err
	}

	var task models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categoryID, err := ownedCategoryID(tx, actorID, in.CategoryID)
		if err != nil {
			return err
		}

		tags, err := resolveTags(tx, actorID, in.Tags)
		if err != nil {
			return err
		}

		task = models.Task{
			Title:       in.Title,
			Description: in.Description,
			DueDate:     in.DueDate,
			Priority:    in.Priority,
			UserID:      actorID,
			CategoryID:  categoryID,
			Tags:        tags,
		}
		task.SetStatus(in.Status, s.now())

		if err := tx.Omit("Tags.*").Create(&task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, actorID, taskID uint, in TaskInput) (*models.Task, error) {
	keepStatus := in.Status == ""
	if err := validateTaskInput(&in); err != nil {
		return nil, err
	}

	var task *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, _, err = authorizeTask(tx, actorID, taskID, models.PermissionEdit)
		if err != nil {
			return err
		}

		// Categories and tags belong to the task owner, who may not be the
		// actor when editing a shared task.
		categoryID, err := ownedCategoryID(tx, task.UserID, in.CategoryID)
		if err != nil {
			return err
		}
		tags, err := resolveTags(tx, task.UserID, in.Tags)
		if err != nil {
			return err
		}

		task.Title = in.Title
		task.Description = in.Description
		task.DueDate = in.DueDate
		task.Priority = in.Priority
		task.CategoryID = categoryID
		if !keepStatus {
			task.SetStatus(in.Status, s.now())
		}

		if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := replaceTaskTags(tx, task, tags); err != nil {
			return err
		}
		task.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ToggleTask flips between active and completed. Archived tasks are left
// alone.
func (s *TaskServiceImpl) ToggleTask(ctx context.Context, actorID, taskID uint) (*models.Task, error) {
	var task *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, _, err = authorizeTask(tx, actorID, taskID, models.PermissionEdit)
		if err != nil {
			return err
		}

		switch task.Status {
		case models.StatusCompleted:
			task.SetStatus(models.StatusActive, s.now())
		case models.StatusActive:
			task.SetStatus(models.StatusCompleted, s.now())
		default:
			return apperrors.InvalidOperation("archived tasks cannot be toggled")
		}

		if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
			return fmt.Errorf("toggle task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, actorID, taskID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := requireTaskOwner(tx, actorID, taskID)
		if err != nil {
			return err
		}

		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskShare{}).Error; err != nil {
			return fmt.Errorf("delete task shares: %w", err)
		}
		if err := tx.Exec("DELETE FROM task_tags WHERE task_id = ?", task.ID).Error; err != nil {
			return fmt.Errorf("delete task tags: %w", err)
		}
		if err := tx.Delete(task).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

func (s *TaskServiceImpl) QuickAdd(ctx context.Context, actorID uint, title string) (*models.Task, error) {
	return s.CreateTask(ctx, actorID, TaskInput{Title: title})
}

// validateTaskInput trims the input in place and fills defaults.
func validateTaskInput(in *TaskInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.Title == "" {
		return apperrors.Validation("title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLength {
		return apperrors.Validation(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return apperrors.Validation(fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	if in.Priority == 0 {
		in.Priority = models.DefaultPriority
	}
	if in.Priority < models.MinPriority || in.Priority > models.MaxPriority {
		return apperrors.Validation(fmt.Sprintf("priority must be between %d and %d", models.MinPriority, models.MaxPriority))
	}

	if in.Status == "" {
		in.Status = models.StatusActive
	}
	if !in.Status.Valid() {
		return apperrors.Validation("invalid status: " + string(in.Status))
	}

	if in.DueDate != nil {
		due := startOfDay(*in.DueDate)
		in.DueDate = &due
	}
	return nil
}

// ownedCategoryID drops a category that does not exist or belongs to someone
// else.
func ownedCategoryID(tx *gorm.DB, ownerID uint, categoryID *uint) (*uint, error) {
	if categoryID == nil || *categoryID == 0 {
		return nil, nil
	}

	var category models.Category
	err := tx.Select("id").Where("id = ? AND user_id = ?", *categoryID, ownerID).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	id := category.ID
	return &id, nil
}

func replaceTaskTags(tx *gorm.DB, task *models.Task, tags []models.Tag) error {
	assoc := tx.Model(task).Association("Tags")
	var err error
	if len(tags) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(tags)
	}
	if err != nil {
		return fmt.Errorf("replace task tags: %w", err)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
