package handlers

import (
	"net/http"
	"time"

	"taskshare/internal/apperrors"
	"taskshare/internal/middleware"
	"taskshare/internal/models"
	"taskshare/internal/services"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type TaskHandler struct {
	taskService     services.TaskService
	categoryService services.CategoryService
}

// TaskForm is the add/edit form. Tags is a comma separated list and
// DueDate uses YYYY-MM-DD.
type TaskForm struct {
	Title       string `form:"title" json:"title" binding:"required"`
	Description string `form:"description" json:"description"`
	DueDate     string `form:"due_date" json:"due_date"`
	Priority    int    `form:"priority" json:"priority"`
	Status      string `form:"status" json:"status"`
	CategoryID  *uint  `form:"category_id" json:"category_id"`
	Tags        string `form:"tags" json:"tags"`
}

func (f TaskForm) input() (services.TaskInput, error) {
	in := services.TaskInput{
		Title:       f.Title,
		Description: f.Description,
		Priority:    f.Priority,
		Status:      models.TaskStatus(f.Status),
		Tags:        services.ParseTagNames(f.Tags),
	}
	if f.CategoryID != nil && *f.CategoryID != 0 {
		id := *f.CategoryID
		in.CategoryID = &id
	}
	if f.DueDate != "" {
		due, err := time.Parse(dateLayout, f.DueDate)
		if err != nil {
			return in, apperrors.Validation("due date must be formatted as YYYY-MM-DD")
		}
		in.DueDate = &due
	}
	return in, nil
}

func NewTaskHandler(taskService services.TaskService, categoryService services.CategoryService) *TaskHandler {
	return &TaskHandler{taskService: taskService, categoryService: categoryService}
}

func (h *TaskHandler) Dashboard(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	filter, err := services.ParseTaskFilter(c.Query("status"), c.Query("category"), c.Query("priority"))
	if err != nil {
		respondError(c, err)
		return
	}

	tasks, err := h.taskService.ListTasks(ctx, userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := h.taskService.Stats(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	categories, err := h.categoryService.ListCategories(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      tasks,
		"stats":      stats,
		"categories": categories,
		"filter": gin.H{
			"status":   c.DefaultQuery("status", "all"),
			"category": c.DefaultQuery("category", "all"),
			"priority": c.DefaultQuery("priority", "all"),
		},
		"username": c.GetString(middleware.ContextUsernameKey),
	})
}

func (h *TaskHandler) Calendar(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	days, err := h.taskService.Calendar(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

func (h *TaskHandler) AddPage(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	categories, err := h.categoryService.ListCategories(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, formOptions(categories))
}

func (h *TaskHandler) Add(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var form TaskForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}
	in, err := form.input()
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, middleware.DefaultLandingTo, http.StatusCreated, task)
}

func (h *TaskHandler) View(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	view, err := h.taskService.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TaskHandler) EditPage(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	view, err := h.taskService.GetTask(ctx, userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	if view.Access != services.AccessOwner && view.Access != services.AccessEdit {
		respondError(c, apperrors.Forbidden("you do not have permission to edit this task"))
		return
	}

	// a grantee picks from the owner's categories
	categories, err := h.categoryService.ListCategories(ctx, view.Task.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	page := formOptions(categories)
	page["task"] = view.Task
	page["access"] = view.Access
	page["tags"] = view.Task.TagNames()
	c.JSON(http.StatusOK, page)
}

// Edit replaces the task with the submitted form, JSON bodies included:
// omitted fields fall back to their defaults and omitted tags are removed.
// Only an empty status keeps the current one.
func (h *TaskHandler) Edit(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var form TaskForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}
	in, err := form.input()
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), userID, taskID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, middleware.DefaultLandingTo, http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		respondError(c, err)
		return
	}
	finish(c, middleware.DefaultLandingTo, http.StatusOK, gin.H{"message": "Task deleted"})
}

func (h *TaskHandler) Toggle(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.ToggleTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, middleware.DefaultLandingTo, http.StatusOK, task)
}

func (h *TaskHandler) SharedWithMe(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	shared, err := h.taskService.SharedWithMe(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": shared})
}

func formOptions(categories []services.CategorySummary) gin.H {
	return gin.H{
		"categories": categories,
		"priorities": []int{1, 2, 3, 4},
		"statuses":   []models.TaskStatus{models.StatusActive, models.StatusCompleted, models.StatusArchived},
	}
}
