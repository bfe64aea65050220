package handlers

import (
	"fmt"
	"net/http"

	"taskshare/internal/models"
	"taskshare/internal/services"

	"github.com/gin-gonic/gin"
)

type SharingHandler struct {
	sharingService services.SharingService
}

type ShareForm struct {
	Email      string `form:"email" json:"email" binding:"required"`
	Permission string `form:"permission" json:"permission" binding:"omitempty,oneof=view edit"`
}

type PermissionForm struct {
	Permission string `form:"permission" json:"permission" binding:"required,oneof=view edit"`
}

func NewSharingHandler(sharingService services.SharingService) *SharingHandler {
	return &SharingHandler{sharingService: sharingService}
}

func sharePath(taskID uint) string {
	return fmt.Sprintf("/task/%d/share", taskID)
}

func (h *SharingHandler) SharePage(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	shares, err := h.sharingService.ListShares(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id":     taskID,
		"shares":      shares,
		"permissions": []models.Permission{models.PermissionView, models.PermissionEdit},
	})
}

func (h *SharingHandler) Share(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var form ShareForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}

	share, err := h.sharingService.ShareTask(c.Request.Context(), userID, taskID, form.Email, models.Permission(form.Permission))
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, sharePath(taskID), http.StatusCreated, share)
}

func (h *SharingHandler) UpdatePermission(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	granteeID, ok := parseID(c, "userId")
	if !ok {
		return
	}

	var form PermissionForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}

	share, err := h.sharingService.UpdateSharePermission(c.Request.Context(), userID, taskID, granteeID, models.Permission(form.Permission))
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, sharePath(taskID), http.StatusOK, share)
}

func (h *SharingHandler) Revoke(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	granteeID, ok := parseID(c, "userId")
	if !ok {
		return
	}

	if err := h.sharingService.RevokeShare(c.Request.Context(), userID, taskID, granteeID); err != nil {
		respondError(c, err)
		return
	}
	finish(c, sharePath(taskID), http.StatusOK, gin.H{"message": "Access revoked"})
}
