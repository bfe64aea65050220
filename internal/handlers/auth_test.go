package handlers_test

import (
	"context"
	"net/http"
	"net/url"
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

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req services.RegistrationRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockAuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockAuthService) DeleteAccount(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

type fakeSessions struct {
	issued  []uint
	revoked []string
}

func (f *fakeSessions) Issue(user *models.User) (string, time.Time, error) {
	f.issued = append(f.issued, user.ID)
	return "token-" + user.Username, time.Date(2024, 1, 16, 10, 0, 0, 0, time.UTC), nil
}

func (f *fakeSessions) Revoke(ctx context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return nil
}

func (f *fakeSessions) TTL() time.Duration {
	return time.Hour
}

func setupAuthHandler(loggedIn bool) (*handlers.AuthHandler, *MockAuthService, *fakeSessions, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	authService := &MockAuthService{}
	sessions := &fakeSessions{}
	handler := handlers.NewAuthHandler(authService, sessions, handlers.CookieConfig{Name: "session"})
	router := gin.New()

	if loggedIn {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserIDKey, testUserID)
			c.Set(middleware.ContextSessionKey, "current-token")
			c.Next()
		})
	}

	return handler, authService, sessions, router
}

func sessionCookie(w interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

func TestRegister_RedirectsToLogin(t *testing.T) {
	handler, authService, _, router := setupAuthHandler(false)
	router.POST("/register", handler.Register)

	authService.On("Register", mock.Anything, mock.MatchedBy(func(req services.RegistrationRequest) bool {
		return req.Username == "alice" && req.Email == "alice@example.com"
	})).Return(&models.User{ID: 1, Username: "alice", Email: "alice@example.com"}, nil)

	w := postForm(router, "/register", url.Values{
		"username":         {"alice"},
		"email":            {"alice@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	authService.AssertExpectations(t)
}

func TestRegister_ValidationMessages(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			"mismatched passwords",
			url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password": {"secret1"}, "confirm_password": {"secret2"}},
			"passwords do not match",
		},
		{
			"short password",
			url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password": {"abc"}, "confirm_password": {"abc"}},
			"password must be at least 6 characters",
		},
		{
			"bad email",
			url.Values{"username": {"alice"}, "email": {"not-an-email"}, "password": {"secret1"}, "confirm_password": {"secret1"}},
			"invalid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, authService, _, router := setupAuthHandler(false)
			router.POST("/register", handler.Register)

			w := postForm(router, "/register", tt.form)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeBody(t, w)["message"])
			authService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	handler, authService, _, router := setupAuthHandler(false)
	router.POST("/register", handler.Register)

	authService.On("Register", mock.Anything, mock.Anything).Return(nil, apperrors.Conflict("username already taken"))

	w := postForm(router, "/register", url.Values{
		"username":         {"alice"},
		"email":            {"alice@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username already taken", decodeBody(t, w)["message"])
}

func TestLogin_SetsCookieAndFollowsNext(t *testing.T) {
	handler, authService, sessions, router := setupAuthHandler(false)
	router.POST("/login", handler.Login)

	authService.On("Login", mock.Anything, "alice", "secret1").Return(&models.User{ID: 1, Username: "alice"}, nil)

	w := postForm(router, "/login?next=%2Ftask%2F5", url.Values{
		"username": {"alice"},
		"password": {"secret1"},
		"remember": {"true"},
	})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/task/5", w.Header().Get("Location"))
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "token-alice", cookie.Value)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, []uint{1}, sessions.issued)
}

func TestLogin_IgnoresForeignNext(t *testing.T) {
	handler, authService, _, router := setupAuthHandler(false)
	router.POST("/login", handler.Login)

	authService.On("Login", mock.Anything, "alice", "secret1").Return(&models.User{ID: 1, Username: "alice"}, nil)

	w := postForm(router, "/login", url.Values{
		"username": {"alice"},
		"password": {"secret1"},
		"next":     {"https://evil.example.com/"},
	})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, 0, cookie.MaxAge)
}

func TestLogin_Failure(t *testing.T) {
	handler, authService, sessions, router := setupAuthHandler(false)
	router.POST("/login", handler.Login)

	authService.On("Login", mock.Anything, "alice", "wrong").Return(nil, apperrors.ErrAuthentication)

	w := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid username or password", decodeBody(t, w)["message"])
	assert.Nil(t, sessionCookie(w))
	assert.Empty(t, sessions.issued)
}

func TestLogout_RevokesAndClearsCookie(t *testing.T) {
	handler, _, sessions, router := setupAuthHandler(true)
	router.GET("/logout", handler.Logout)

	w := get(router, "/logout", false)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, []string{"current-token"}, sessions.revoked)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "", cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestDeleteAccount_RunsHook(t *testing.T) {
	handler, authService, sessions, router := setupAuthHandler(true)
	var dropped []uint
	handler.OnAccountDeleted(func(ctx context.Context, userID uint) {
		dropped = append(dropped, userID)
	})
	router.POST("/account/delete", handler.DeleteAccount)

	authService.On("DeleteAccount", mock.Anything, testUserID).Return(nil)

	w := postForm(router, "/account/delete", url.Values{})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []uint{testUserID}, dropped)
	assert.Equal(t, []string{"current-token"}, sessions.revoked)
}

func TestLoggedInUserSkipsAuthPages(t *testing.T) {
	handler, _, _, router := setupAuthHandler(true)
	router.GET("/", handler.Index)
	router.GET("/login", handler.LoginPage)

	for _, path := range []string{"/", "/login"} {
		w := get(router, path, false)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"), path)
	}
}
