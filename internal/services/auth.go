package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskshare/internal/apperrors"
	"taskshare/internal/models"

	"gorm.io/gorm"
)

type AuthService interface {
	Register(ctx context.Context, req RegistrationRequest) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	DeleteAccount(ctx context.Context, userID uint) error
}

type AuthServiceImpl struct {
	db         *gorm.DB
	bcryptCost int
	// compared against when the username is unknown so both failures cost
	// one bcrypt comparison
	dummyHash string
}

func NewAuthService(db *gorm.DB, bcryptCost int) *AuthServiceImpl {
	dummy, _ := HashPassword("taskshare-dummy-password", bcryptCost)
	return &AuthServiceImpl{db: db, bcryptCost: bcryptCost, dummyHash: dummy}
}

// Login returns apperrors.ErrAuthentication for an unknown username and for a
// wrong password alike.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			VerifyPassword(s.dummyHash, password)
			return nil, apperrors.ErrAuthentication
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !VerifyPassword(user.PasswordHash, password) {
		return nil, apperrors.ErrAuthentication
	}
	return &user, nil
}

func (s *AuthServiceImpl) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// DeleteAccount removes the user with everything they own and every share
// granted to or by them.
func (s *AuthServiceImpl) DeleteAccount(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user not found")
			}
			return fmt.Errorf("load user: %w", err)
		}

		var taskIDs []uint
		if err := tx.Model(&models.Task{}).Where("user_id = ?", user.ID).Pluck("id", &taskIDs).Error; err != nil {
			return fmt.Errorf("load owned tasks: %w", err)
		}

		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskShare{}).Error; err != nil {
				return fmt.Errorf("delete shares of owned tasks: %w", err)
			}
			if err := tx.Exec("DELETE FROM task_tags WHERE task_id IN ?", taskIDs).Error; err != nil {
				return fmt.Errorf("delete task tags: %w", err)
			}
		}

		steps := []struct {
			name  string
			model interface{}
		}{
			{"shares granted to user", &models.TaskShare{}},
			{"tasks", &models.Task{}},
			{"tags", &models.Tag{}},
			{"categories", &models.Category{}},
		}
		for _, step := range steps {
			if err := tx.Where("user_id = ?", user.ID).Delete(step.model).Error; err != nil {
				return fmt.Errorf("delete %s: %w", step.name, err)
			}
		}

		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}
