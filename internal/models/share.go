package models

import "time"

type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// TaskShare grants a non-owner access to a single task. At most one row
// exists per (task, user) and the owner never appears here.
type TaskShare struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	TaskID     uint       `json:"task_id" gorm:"not null;uniqueIndex:idx_task_shares_task_user"`
	UserID     uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_task_shares_task_user;index"`
	Permission Permission `json:"permission" gorm:"size:10;not null;default:'view'"`
	SharedAt   time.Time  `json:"shared_at" gorm:"not null"`

	Task *Task `json:"task,omitempty" gorm:"foreignKey:TaskID"`
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
