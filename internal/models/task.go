package models

import (
	"time"
)

type TaskStatus string

const (
	StatusActive    TaskStatus = "active"
	StatusCompleted TaskStatus = "completed"
	StatusArchived  TaskStatus = "archived"
)

const (
	MinPriority     = 1
	MaxPriority     = 4
	DefaultPriority = 2
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

type Task struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"size:100;not null"`
	Description string     `json:"description" gorm:"size:500"`
	DueDate     *time.Time `json:"due_date" gorm:"index"`
	Priority    int        `json:"priority" gorm:"not null;default:2"`
	Status      TaskStatus `json:"status" gorm:"size:20;not null;default:'active';index"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	UserID     uint  `json:"user_id" gorm:"not null;index"`
	CategoryID *uint `json:"category_id" gorm:"index"`

	Owner    *User       `json:"owner,omitempty" gorm:"foreignKey:UserID"`
	Category *Category   `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Tags     []Tag       `json:"tags" gorm:"many2many:task_tags;constraint:OnDelete:CASCADE"`
	Shares   []TaskShare `json:"shares,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// SetStatus applies a status change and keeps CompletedAt non-nil exactly
// while the task is completed. An already completed task keeps its original
// completion time.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	if status == StatusCompleted {
		if t.CompletedAt == nil {
			completed := now
			t.CompletedAt = &completed
		}
	} else {
		t.CompletedAt = nil
	}
	t.Status = status
}

// IsOverdue reports whether an active task is due before the given day.
func (t *Task) IsOverdue(today time.Time) bool {
	return t.Status == StatusActive && t.DueDate != nil && t.DueDate.Before(today)
}

func (t *Task) TagNames() []string {
	names := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		names = append(names, tag.Name)
	}
	return names
}
