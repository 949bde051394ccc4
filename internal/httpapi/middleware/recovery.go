package middleware

import (
	"log/slog"
	"net/http"

	"github.com/edustack/edustack/internal/common"
	"github.com/gin-gonic/gin"
)

// Recovery turns panics into the standard error envelope instead of gin's
// default plain-text response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic recovered", "path", c.Request.URL.Path, "panic", r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
