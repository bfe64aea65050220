package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"taskshare/internal/middleware"
	"taskshare/internal/models"
	"taskshare/internal/services"

	"github.com/gin-gonic/gin"
)

type SessionStore interface {
	Issue(user *models.User) (string, time.Time, error)
	Revoke(ctx context.Context, token string) error
	TTL() time.Duration
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	authService services.AuthService
	sessions    SessionStore
	cookie      CookieConfig
	// called after an account is gone so per-user caches can be dropped
	onAccountDeleted func(ctx context.Context, userID uint)
}

type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	Remember bool   `form:"remember" json:"remember"`
	Next     string `form:"next" json:"next"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewAuthHandler(authService services.AuthService, sessions SessionStore, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, cookie: cookie}
}

func (h *AuthHandler) OnAccountDeleted(fn func(ctx context.Context, userID uint)) *AuthHandler {
	h.onAccountDeleted = fn
	return h
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

func (h *AuthHandler) Index(c *gin.Context) {
	if _, ok := middleware.UserID(c); ok {
		c.Redirect(http.StatusFound, middleware.DefaultLandingTo)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": false,
		"login":         middleware.LoginPath,
		"register":      "/register",
	})
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	if _, ok := middleware.UserID(c); ok {
		c.Redirect(http.StatusFound, middleware.DefaultLandingTo)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fields": []string{"username", "email", "password", "confirm_password"},
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	if _, ok := middleware.UserID(c); ok {
		c.Redirect(http.StatusSeeOther, middleware.DefaultLandingTo)
		return
	}

	var req services.RegistrationRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("auth: registered user %d (%s)", user.ID, user.Username)
	finish(c, middleware.LoginPath, http.StatusCreated, gin.H{
		"message": "Registration successful, you can now log in",
		"user":    toUserResponse(user),
	})
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	if _, ok := middleware.UserID(c); ok {
		c.Redirect(http.StatusFound, middleware.DefaultLandingTo)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fields": []string{"username", "password", "remember"},
		"next":   middleware.SafeRedirectTarget(c.Query("next")),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}

	user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, expiresAt, err := h.sessions.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}

	// without "remember" the cookie dies with the browser session
	maxAge := 0
	if req.Remember {
		maxAge = int(h.sessions.TTL().Seconds())
	}
	middleware.SetSessionCookie(c, h.cookie.Name, token, maxAge, h.cookie.Secure)

	target := middleware.SafeRedirectTarget(req.Next)
	finish(c, target, http.StatusOK, gin.H{
		"user":       toUserResponse(user),
		"expires_at": expiresAt,
		"redirect":   target,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.endSession(c)
	finish(c, "/", http.StatusOK, gin.H{"message": "You have been logged out"})
}

func (h *AuthHandler) Account(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	if h.onAccountDeleted != nil {
		h.onAccountDeleted(c.Request.Context(), userID)
	}

	h.endSession(c)
	log.Printf("auth: deleted account %d", userID)
	finish(c, "/", http.StatusOK, gin.H{"message": "Your account has been deleted"})
}

func (h *AuthHandler) endSession(c *gin.Context) {
	token := c.GetString(middleware.ContextSessionKey)
	if token == "" {
		token, _ = c.Cookie(h.cookie.Name)
	}
	if token != "" {
		if err := h.sessions.Revoke(c.Request.Context(), token); err != nil {
			log.Printf("auth: revoking session failed: %v", err)
		}
	}
	middleware.ClearSessionCookie(c, h.cookie.Name, h.cookie.Secure)
}
