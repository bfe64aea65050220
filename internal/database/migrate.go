package database

import (
	"fmt"

	"taskshare/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates every table, including the per-user unique
// indexes on category and tag names and the (task_id, user_id) unique index
// on task_shares.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Task{},
		&models.TaskShare{},
	); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	return nil
}
