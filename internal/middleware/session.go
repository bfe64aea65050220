package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"taskshare/internal/apperrors"
	"taskshare/internal/models"
	"taskshare/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextSessionKey  = "session_token"

	LoginPath        = "/login"
	DefaultLandingTo = "/dashboard"
)

type SessionParser interface {
	Parse(ctx context.Context, token string) (*services.SessionClaims, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
}

// SessionAuth reads the session cookie and, when it holds a valid session of
// a user that still exists, puts the user id and username into the gin
// context. It never rejects a request; AuthRequired does that.
func SessionAuth(sessions SessionParser, users UserLookup, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, err := sessions.Parse(c.Request.Context(), token)
		if err != nil {
			log.Printf("session: rejected cookie from %s: %v", c.ClientIP(), err)
			ClearSessionCookie(c, cookieName, false)
			c.Next()
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("session: user %d no longer exists, dropping session", claims.UserID)
			ClearSessionCookie(c, cookieName, false)
			c.Next()
			return
		}
		if err != nil {
			log.Printf("session: failed to load user %d: %v", claims.UserID, err)
			c.Next()
			return
		}

		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUsernameKey, user.Username)
		c.Set(ContextSessionKey, token)
		c.Next()
	}
}

// AuthRequired stops anonymous requests. JSON API routes get a 401, page
// routes are redirected to the login page with the requested path in next.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); ok {
			c.Next()
			return
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "authentication_required",
				"message": "Please log in to access this resource",
			})
			return
		}

		target := LoginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

func SetSessionCookie(c *gin.Context, name, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, token, maxAge, "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, name string, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", secure, true)
}

// SafeRedirectTarget accepts only paths on this site. Anything else,
// including scheme-relative "//host" URLs, falls back to the dashboard.
func SafeRedirectTarget(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return DefaultLandingTo
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultLandingTo
	}
	return next
}
