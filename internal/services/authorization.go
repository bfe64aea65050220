package services

import (
	"context"
	"errors"
	"fmt"

	"taskshare/internal/apperrors"
	"taskshare/internal/models"

	"gorm.io/gorm"
)

// Access is the effective permission an actor holds on a task.
type Access string

const (
	AccessNone  Access = "none"
	AccessView  Access = "view"
	AccessEdit  Access = "edit"
	AccessOwner Access = "owner"
)

type AuthorizationDecision struct {
	TaskID   uint              `json:"task_id"`
	ActorID  uint              `json:"actor_id"`
	Required models.Permission `json:"required"`
	Access   Access            `json:"access"`
	Allowed  bool              `json:"allowed"`
	Reason   string            `json:"reason"`
}

// Decide applies the sharing rules to an already loaded task and the actor's
// share row, which is nil when none exists. The owner always passes; anyone
// else needs a row, and edit needs an edit row.
func Decide(task *models.Task, actorID uint, share *models.TaskShare, required models.Permission) AuthorizationDecision {
	decision := AuthorizationDecision{
		TaskID:   task.ID,
		ActorID:  actorID,
		Required: required,
		Access:   AccessNone,
	}

	if task.UserID == actorID {
		decision.Access = AccessOwner
		decision.Allowed = true
		decision.Reason = "owner"
		return decision
	}

	if share == nil || share.TaskID != task.ID || share.UserID != actorID {
		decision.Reason = "task is not shared with user"
		return decision
	}

	switch share.Permission {
	case models.PermissionEdit:
		decision.Access = AccessEdit
	case models.PermissionView:
		decision.Access = AccessView
	default:
		decision.Reason = fmt.Sprintf("unknown share permission %q", share.Permission)
		return decision
	}

	switch required {
	case models.PermissionView:
		decision.Allowed = true
		decision.Reason = "shared"
	case models.PermissionEdit:
		decision.Allowed = share.Permission == models.PermissionEdit
		if decision.Allowed {
			decision.Reason = "shared with edit permission"
		} else {
			decision.Reason = "shared with view permission only"
		}
	default:
		decision.Reason = fmt.Sprintf("unknown required permission %q", required)
	}

	return decision
}

func CanView(task *models.Task, actorID uint, share *models.TaskShare) bool {
	return Decide(task, actorID, share, models.PermissionView).Allowed
}

func CanEdit(task *models.Task, actorID uint, share *models.TaskShare) bool {
	return Decide(task, actorID, share, models.PermissionEdit).Allowed
}

type AuthorizationService interface {
	Authorize(ctx context.Context, actorID, taskID uint, required models.Permission) (*models.Task, *AuthorizationDecision, error)
	RequireOwner(ctx context.Context, actorID, taskID uint) (*models.Task, error)
}

type AuthorizationServiceImpl struct {
	db *gorm.DB
}

func NewAuthorizationService(db *gorm.DB) *AuthorizationServiceImpl {
	return &AuthorizationServiceImpl{db: db}
}

func (s *AuthorizationServiceImpl) Authorize(ctx context.Context, actorID, taskID uint, required models.Permission) (*models.Task, *AuthorizationDecision, error) {
	return authorizeTask(s.db.WithContext(ctx), actorID, taskID, required)
}

func (s *AuthorizationServiceImpl) RequireOwner(ctx context.Context, actorID, taskID uint) (*models.Task, error) {
	return requireTaskOwner(s.db.WithContext(ctx), actorID, taskID)
}

// authorizeTask loads the task and the actor's share row on db, which may be
// an open transaction. A missing task is NotFound and a denial is Forbidden.
func authorizeTask(db *gorm.DB, actorID, taskID uint, required models.Permission) (*models.Task, *AuthorizationDecision, error) {
	task, err := findTask(db, taskID)
	if err != nil {
		return nil, nil, err
	}

	var share *models.TaskShare
	if task.UserID != actorID {
		var row models.TaskShare
		err := db.Where("task_id = ? AND user_id = ?", task.ID, actorID).First(&row).Error
		switch {
		case err == nil:
			share = &row
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil, fmt.Errorf("load share: %w", err)
		}
	}

	decision := Decide(task, actorID, share, required)
	if !decision.Allowed {
		return nil, &decision, apperrors.Forbidden(fmt.Sprintf("you do not have %s access to this task", required))
	}
	return task, &decision, nil
}

// requireTaskOwner guards delete, share, revoke and permission changes, which
// edit access does not grant.
func requireTaskOwner(db *gorm.DB, actorID, taskID uint) (*models.Task, error) {
	task, err := findTask(db, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != actorID {
		return nil, apperrors.Forbidden("only the task owner can do this")
	}
	return task, nil
}

func findTask(db *gorm.DB, taskID uint) (*models.Task, error) {
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("task not found")
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	return &task, nil
}
