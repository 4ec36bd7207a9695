package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pixelmart-backend/internal/shared/server/respond"
)

// Admin requires a bearer token equal to the configured admin secret.
func Admin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin access not configured", nil)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if !strings.HasPrefix(authHeader, "Bearer ") || token == "" {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin token required", nil)
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin token rejected", nil)
			return
		}

		c.Next()
	}
}
