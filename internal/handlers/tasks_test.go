package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"taskshare/internal/apperrors"
	"taskshare/internal/handlers"
	"taskshare/internal/middleware"
	"taskshare/internal/models"
	"taskshare/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) ListTasks(ctx context.Context, actorID uint, filter services.TaskFilter) ([]models.Task, error) {
	args := m.Called(ctx, actorID, filter)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) Stats(ctx context.Context, actorID uint) (services.TaskStats, error) {
	args := m.Called(ctx, actorID)
	return args.Get(0).(services.TaskStats), args.Error(1)
}

func (m *MockTaskService) SharedWithMe(ctx context.Context, actorID uint) ([]services.SharedTask, error) {
	args := m.Called(ctx, actorID)
	shared, _ := args.Get(0).([]services.SharedTask)
	return shared, args.Error(1)
}

func (m *MockTaskService) GetTask(ctx context.Context, actorID, taskID uint) (*services.TaskView, error) {
	args := m.Called(ctx, actorID, taskID)
	view, _ := args.Get(0).(*services.TaskView)
	return view, args.Error(1)
}

func (m *MockTaskService) Search(ctx context.Context, actorID uint, query string) ([]models.Task, error) {
	args := m.Called(ctx, actorID, query)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) Calendar(ctx context.Context, actorID uint) (map[string][]models.Task, error) {
	args := m.Called(ctx, actorID)
	days, _ := args.Get(0).(map[string][]models.Task)
	return days, args.Error(1)
}

func (m *MockTaskService) CreateTask(ctx context.Context, actorID uint, in services.TaskInput) (*models.Task, error) {
	args := m.Called(ctx, actorID, in)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, actorID, taskID uint, in services.TaskInput) (*models.Task, error) {
	args := m.Called(ctx, actorID, taskID, in)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) ToggleTask(ctx context.Context, actorID, taskID uint) (*models.Task, error) {
	args := m.Called(ctx, actorID, taskID)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, actorID, taskID uint) error {
	args := m.Called(ctx, actorID, taskID)
	return args.Error(0)
}

func (m *MockTaskService) QuickAdd(ctx context.Context, actorID uint, title string) (*models.Task, error) {
	args := m.Called(ctx, actorID, title)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

// stubCategoryService returns a fixed list for every owner it is asked about.
type stubCategoryService struct {
	services.CategoryService
	categories []services.CategorySummary
	askedFor   []uint
}

func (s *stubCategoryService) ListCategories(ctx context.Context, actorID uint) ([]services.CategorySummary, error) {
	s.askedFor = append(s.askedFor, actorID)
	return s.categories, nil
}

const testUserID uint = 7

func setupTaskHandler() (*handlers.TaskHandler, *MockTaskService, *stubCategoryService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	mockService := &MockTaskService{}
	categories := &stubCategoryService{categories: []services.CategorySummary{
		{Category: models.Category{ID: 1, UserID: testUserID, Name: "Work"}, TaskCount: 2},
	}}
	handler := handlers.NewTaskHandler(mockService, categories)
	router := gin.New()

	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, testUserID)
		c.Set(middleware.ContextUsernameKey, "alice")
		c.Next()
	})

	return handler, mockService, categories, router
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string, acceptJSON bool) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if acceptJSON {
		req.Header.Set("Accept", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestDashboard_AppliesFilter(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.GET("/dashboard", handler.Dashboard)

	completedOnly := mock.MatchedBy(func(f services.TaskFilter) bool {
		return f.Status != nil && *f.Status == models.StatusCompleted && f.CategoryID == nil && f.Priority == nil
	})
	mockService.On("ListTasks", mock.Anything, testUserID, completedOnly).
		Return([]models.Task{{ID: 1, Title: "Done", Status: models.StatusCompleted}}, nil)
	mockService.On("Stats", mock.Anything, testUserID).
		Return(services.TaskStats{Total: 3, Active: 2, Completed: 1, Overdue: 1}, nil)

	w := get(router, "/dashboard?status=completed&category=all", false)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["tasks"], 1)
	assert.Len(t, body["categories"], 1)
	assert.Equal(t, float64(1), body["stats"].(map[string]any)["overdue"])
	assert.Equal(t, "completed", body["filter"].(map[string]any)["status"])
	assert.Equal(t, "alice", body["username"])
	mockService.AssertExpectations(t)
}

func TestDashboard_InvalidFilter(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.GET("/dashboard", handler.Dashboard)

	w := get(router, "/dashboard?priority=9", false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.KindValidation), decodeBody(t, w)["error"])
	mockService.AssertNotCalled(t, "ListTasks", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdd_FormRedirectsToDashboard(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.POST("/task/add", handler.Add)

	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	expected := mock.MatchedBy(func(in services.TaskInput) bool {
		return in.Title == "Buy milk" &&
			in.Priority == 3 &&
			in.CategoryID == nil &&
			in.DueDate != nil && in.DueDate.Equal(due) &&
			len(in.Tags) == 2 && in.Tags[0] == "home" && in.Tags[1] == "errand"
	})
	mockService.On("CreateTask", mock.Anything, testUserID, expected).
		Return(&models.Task{ID: 10, Title: "Buy milk"}, nil)

	w := postForm(router, "/task/add", url.Values{
		"title":       {"Buy milk"},
		"due_date":    {"2024-03-01"},
		"priority":    {"3"},
		"category_id": {"0"},
		"tags":        {"home, errand, home"},
	})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	mockService.AssertExpectations(t)
}

func TestAdd_JSONReturnsCreatedTask(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.POST("/task/add", handler.Add)

	categoryID := uint(1)
	mockService.On("CreateTask", mock.Anything, testUserID, mock.MatchedBy(func(in services.TaskInput) bool {
		return in.CategoryID != nil && *in.CategoryID == categoryID && in.DueDate == nil
	})).Return(&models.Task{ID: 11, Title: "Report", CategoryID: &categoryID}, nil)

	w := postJSON(router, "/task/add", map[string]any{"title": "Report", "category_id": 1})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(11), decodeBody(t, w)["id"])
}

func TestAdd_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"missing title", url.Values{"description": {"x"}}, "title is required"},
		{"bad due date", url.Values{"title": {"x"}, "due_date": {"03/01/2024"}}, "due date must be formatted as YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockService, _, router := setupTaskHandler()
			router.POST("/task/add", handler.Add)

			w := postForm(router, "/task/add", tt.form)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeBody(t, w)["message"])
			mockService.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAdd_ServiceValidationError(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.POST("/task/add", handler.Add)

	mockService.On("CreateTask", mock.Anything, testUserID, mock.Anything).
		Return(nil, apperrors.Validation("priority must be between 1 and 4"))

	w := postForm(router, "/task/add", url.Values{"title": {"x"}, "priority": {"9"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "priority must be between 1 and 4", decodeBody(t, w)["message"])
}

func TestView(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.GET("/task/:id", handler.View)

	mockService.On("GetTask", mock.Anything, testUserID, uint(5)).
		Return(&services.TaskView{Task: &models.Task{ID: 5, Title: "Shared"}, Access: services.AccessView}, nil)
	mockService.On("GetTask", mock.Anything, testUserID, uint(6)).
		Return(nil, apperrors.NotFound("task not found"))

	w := get(router, "/task/5", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "view", decodeBody(t, w)["access"])

	w = get(router, "/task/6", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.KindNotFound), decodeBody(t, w)["error"])

	w = get(router, "/task/abc", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditPage_RequiresEditAccess(t *testing.T) {
	handler, mockService, categories, router := setupTaskHandler()
	router.GET("/task/edit/:id", handler.EditPage)

	ownerID := uint(99)
	mockService.On("GetTask", mock.Anything, testUserID, uint(1)).
		Return(&services.TaskView{Task: &models.Task{ID: 1, UserID: ownerID}, Access: services.AccessView}, nil)
	mockService.On("GetTask", mock.Anything, testUserID, uint(2)).
		Return(&services.TaskView{
			Task:   &models.Task{ID: 2, UserID: ownerID, Tags: []models.Tag{{Name: "home"}}},
			Access: services.AccessEdit,
		}, nil)

	w := get(router, "/task/edit/1", false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(router, "/task/edit/2", false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, []any{"home"}, body["tags"])
	assert.Equal(t, []uint{ownerID}, categories.askedFor)
}

func TestEdit_ForbiddenForViewer(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.POST("/task/edit/:id", handler.Edit)

	mockService.On("UpdateTask", mock.Anything, testUserID, uint(3), mock.Anything).
		Return(nil, apperrors.Forbidden("you do not have permission to edit this task"))

	w := postForm(router, "/task/edit/3", url.Values{"title": {"Changed"}})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(apperrors.KindForbidden), decodeBody(t, w)["error"])
}

func TestEdit_JSONReplacesWholeTask(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.POST("/task/edit/:id", handler.Edit)

	mockService.On("UpdateTask", mock.Anything, testUserID, uint(3), mock.MatchedBy(func(in services.TaskInput) bool {
		return in.Title == "Renamed" && in.Priority == 0 && in.Description == "" &&
			in.DueDate == nil && in.CategoryID == nil && len(in.Tags) == 0 && in.Status == ""
	})).Return(&models.Task{ID: 3, Title: "Renamed", Priority: models.DefaultPriority}, nil)

	w := postJSON(router, "/task/edit/3", map[string]string{"title": "Renamed"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(models.DefaultPriority), decodeBody(t, w)["priority"])
	mockService.AssertExpectations(t)
}

func TestToggleAndDelete(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.GET("/task/toggle/:id", handler.Toggle)
	router.GET("/task/delete/:id", handler.Delete)

	mockService.On("ToggleTask", mock.Anything, testUserID, uint(4)).
		Return(&models.Task{ID: 4, Status: models.StatusCompleted}, nil)
	mockService.On("DeleteTask", mock.Anything, testUserID, uint(4)).Return(nil)

	w := get(router, "/task/toggle/4", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = get(router, "/task/toggle/4", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeBody(t, w)["status"])

	w = get(router, "/task/delete/4", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	mockService.AssertNumberOfCalls(t, "ToggleTask", 2)
}

func TestUnexpectedErrorIsHidden(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.GET("/calendar", handler.Calendar)

	mockService.On("Calendar", mock.Anything, testUserID).Return(nil, errors.New("disk I/O error"))

	w := get(router, "/calendar", false)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk I/O error")
}

func TestQuickAdd(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.POST("/api/tasks/quick-add", handler.QuickAdd)

	mockService.On("QuickAdd", mock.Anything, testUserID, "Call mom").
		Return(&models.Task{ID: 12, Title: "Call mom", Priority: 2}, nil)

	w := postJSON(router, "/api/tasks/quick-add", map[string]string{"title": "Call mom"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, map[string]any{"id": float64(12), "title": "Call mom"}, decodeBody(t, w))

	w = postJSON(router, "/api/tasks/quick-add", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch(t *testing.T) {
	handler, mockService, _, router := setupTaskHandler()
	router.GET("/api/tasks/search", handler.Search)

	mockService.On("Search", mock.Anything, testUserID, "mi").
		Return([]models.Task{{ID: 1, Title: "Buy milk", Status: models.StatusActive, Priority: 3, Description: "2%"}}, nil)
	mockService.On("Search", mock.Anything, testUserID, "m").Return([]models.Task{}, nil)

	w := get(router, "/api/tasks/search?q=mi", false)
	require.Equal(t, http.StatusOK, w.Code)
	var results []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Equal(t, []map[string]any{{"id": float64(1), "title": "Buy milk", "status": "active", "priority": float64(3)}}, results)

	w = get(router, "/api/tasks/search?q=m", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandlersRequireActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewTaskHandler(&MockTaskService{}, &stubCategoryService{})
	router := gin.New()
	router.GET("/dashboard", handler.Dashboard)

	w := get(router, "/dashboard", false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
