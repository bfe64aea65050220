package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"taskshare/internal/apperrors"
	"taskshare/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func respondError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	if status == http.StatusInternalServerError {
		log.Printf("handler: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{
			"error":   string(apperrors.KindInternal),
			"message": "Something went wrong, please try again",
		})
		return
	}
	c.JSON(status, gin.H{
		"error":   string(apperrors.KindOf(err)),
		"message": err.Error(),
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   string(apperrors.KindValidation),
		"message": bindingMessage(err),
	})
}

// bindingMessage turns validator errors into a sentence naming the first
// offending form field.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request format"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "eqfield":
		return "passwords do not match"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperrors.Validation(fmt.Sprintf("invalid %s", param)))
		return 0, false
	}
	return uint(id), true
}

func actorID(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_required",
			"message": "Please log in to access this resource",
		})
		return 0, false
	}
	return id, true
}

// prefersJSON is true for API style clients; browsers posting forms get
// redirects instead.
func prefersJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}

// finish ends a mutating request: a 303 to location for form clients, or the
// payload with status for JSON clients.
func finish(c *gin.Context, location string, status int, payload any) {
	if prefersJSON(c) {
		c.JSON(status, payload)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}
