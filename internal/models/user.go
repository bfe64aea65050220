package models

import (
	"time"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:80;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:200;not null"`
	Avatar       *string   `json:"avatar,omitempty" gorm:"size:255"`
	CreatedAt    time.Time `json:"created_at"`

	Tasks      []Task     `json:"tasks,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Categories []Category `json:"categories,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Tags       []Tag      `json:"tags,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
