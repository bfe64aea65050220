package handlers

import (
	"net/http"

	"taskshare/internal/models"

	"github.com/gin-gonic/gin"
)

type QuickAddRequest struct {
	Title string `json:"title" binding:"required"`
}

type TaskSummary struct {
	ID       uint              `json:"id"`
	Title    string            `json:"title"`
	Status   models.TaskStatus `json:"status"`
	Priority int               `json:"priority"`
}

func (h *TaskHandler) QuickAdd(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req QuickAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.QuickAdd(c.Request.Context(), userID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": task.ID, "title": task.Title})
}

func (h *TaskHandler) Search(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, TaskSummary{ID: t.ID, Title: t.Title, Status: t.Status, Priority: t.Priority})
	}
	c.JSON(http.StatusOK, results)
}
