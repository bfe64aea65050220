package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskshare/internal/apperrors"
	"taskshare/internal/models"

	"gorm.io/gorm"
)

type SharingService interface {
	ShareTask(ctx context.Context, actorID, taskID uint, email string, permission models.Permission) (*models.TaskShare, error)
	RevokeShare(ctx context.Context, actorID, taskID, userID uint) error
	UpdateSharePermission(ctx context.Context, actorID, taskID, userID uint, permission models.Permission) (*models.TaskShare, error)
	ListShares(ctx context.Context, actorID, taskID uint) ([]models.TaskShare, error)
}

type SharingServiceImpl struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSharingService(db *gorm.DB) *SharingServiceImpl {
	return &SharingServiceImpl{db: db, now: time.Now}
}

// ShareTask grants the user registered under email access to the task.
// Sharing with yourself is an InvalidOperation and sharing twice with the
// same user is a Conflict that leaves the first grant untouched.
func (s *SharingServiceImpl) ShareTask(ctx context.Context, actorID, taskID uint, email string, permission models.Permission) (*models.TaskShare, error) {
	if permission == "" {
		permission = models.PermissionView
	}
	if !permission.Valid() {
		return nil, apperrors.Validation("permission must be view or edit")
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}

	var share models.TaskShare
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := requireTaskOwner(tx, actorID, taskID)
		if err != nil {
			return err
		}

		var grantee models.User
		if err := tx.Where("email = ?", email).First(&grantee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("no user with that email")
			}
			return fmt.Errorf("load grantee: %w", err)
		}
		if grantee.ID == task.UserID {
			return apperrors.InvalidOperation("you cannot share a task with yourself")
		}

		share = models.TaskShare{
			TaskID:     task.ID,
			UserID:     grantee.ID,
			Permission: permission,
			SharedAt:   s.now(),
		}
		if err := tx.Create(&share).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.Conflict(fmt.Sprintf("task is already shared with %s", grantee.Username))
			}
			return fmt.Errorf("create share: %w", err)
		}
		share.User = &grantee
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// RevokeShare removes the grant if there is one.
func (s *SharingServiceImpl) RevokeShare(ctx context.Context, actorID, taskID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireTaskOwner(tx, actorID, taskID); err != nil {
			return err
		}
		err := tx.Where("task_id = ? AND user_id = ?", taskID, userID).Delete(&models.TaskShare{}).Error
		if err != nil {
			return fmt.Errorf("revoke share: %w", err)
		}
		return nil
	})
}

func (s *SharingServiceImpl) UpdateSharePermission(ctx context.Context, actorID, taskID, userID uint, permission models.Permission) (*models.TaskShare, error) {
	if !permission.Valid() {
		return nil, apperrors.Validation("permission must be view or edit")
	}

	var share models.TaskShare
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireTaskOwner(tx, actorID, taskID); err != nil {
			return err
		}

		err := tx.Where("task_id = ? AND user_id = ?", taskID, userID).First(&share).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("task is not shared with this user")
		}
		if err != nil {
			return fmt.Errorf("load share: %w", err)
		}

		if err := tx.Model(&share).Update("permission", permission).Error; err != nil {
			return fmt.Errorf("update share: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func (s *SharingServiceImpl) ListShares(ctx context.Context, actorID, taskID uint) ([]models.TaskShare, error) {
	db := s.db.WithContext(ctx)
	if _, err := requireTaskOwner(db, actorID, taskID); err != nil {
		return nil, err
	}

	shares := []models.TaskShare{}
	err := db.Preload("User").
		Where("task_id = ?", taskID).
		Order("shared_at ASC").
		Order("id ASC").
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
