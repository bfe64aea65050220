package models

import "time"

const (
	DefaultCategoryColor = "#6c757d"
	DefaultCategoryIcon  = "folder"
	DefaultTagColor      = "#0d6efd"
)

// Category is a user-scoped label; the name is unique per owner only.
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_categories_user_name"`
	Name      string    `json:"name" gorm:"size:50;not null;uniqueIndex:idx_categories_user_name"`
	Color     string    `json:"color" gorm:"size:7;not null;default:'#6c757d'"`
	Icon      string    `json:"icon" gorm:"size:50;not null;default:'folder'"`
	CreatedAt time.Time `json:"created_at"`

	Tasks []Task `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
}

// Tag is many-to-many with Task through task_tags.
type Tag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_tags_user_name"`
	Name      string    `json:"name" gorm:"size:30;not null;uniqueIndex:idx_tags_user_name"`
	Color     string    `json:"color" gorm:"size:7;not null;default:'#0d6efd'"`
	CreatedAt time.Time `json:"created_at"`
}
