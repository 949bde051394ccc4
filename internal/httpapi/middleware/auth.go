package middleware

import (
	"net/http"
	"strings"

	"github.com/edustack/edustack/internal/auth"
	"github.com/edustack/edustack/internal/common"
	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key carrying the authenticated user id.
const UserIDKey = "user_id"

// AuthRequired validates the bearer token and stores the user id on the
// context. Every persistence call downstream requires it.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		userID, err := auth.ParseJWT(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
