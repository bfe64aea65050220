package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"taskshare/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// RecoveryWithLog turns a panic into the same 500 body the handlers send,
// tagged with the request id so the logged stack can be found again.
func RecoveryWithLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := c.GetString(ContextRequestIDKey)
				log.Printf("panic recovered: %s %s request_id=%s user_id=%d: %v\n%s",
					c.Request.Method, c.Request.URL.Path, requestID, c.GetUint(ContextUserIDKey), r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      string(apperrors.KindInternal),
					"message":    "Something went wrong, please try again",
					"request_id": requestID,
				})
			}
		}()
		c.Next()
	}
}
