package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"taskshare/internal/apperrors"
	"taskshare/internal/models"

	"gorm.io/gorm"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 80
	minPasswordLength = 6
)

type RegistrationRequest struct {
	Username        string `form:"username" json:"username" binding:"required,min=3,max=80"`
	Email           string `form:"email" json:"email" binding:"required,email"`
	Password        string `form:"password" json:"password" binding:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" binding:"required,eqfield=Password"`
}

func (req *RegistrationRequest) normalize() error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)

	if n := utf8.RuneCountInString(req.Username); n < minUsernameLength || n > maxUsernameLength {
		return apperrors.Validation(fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	}
	if _, err := mail.ParseAddress(req.Email); err != nil || req.Email == "" {
		return apperrors.Validation("invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return apperrors.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if req.Password != req.ConfirmPassword {
		return apperrors.Validation("passwords do not match")
	}
	return nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, req RegistrationRequest) (*models.User, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	hashedPassword, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("username = ?", req.Username).First(&existing).Error
		if err == nil {
			return apperrors.Conflict("username already taken")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("email = ?", req.Email).First(&existing).Error
		if err == nil {
			return apperrors.Conflict("email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&user).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.Conflict("username or email already registered")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}
