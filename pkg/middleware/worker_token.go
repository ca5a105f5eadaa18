package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WorkerToken guards the internal re-entry endpoint with a shared secret.
// An empty token disables the check (local single-process deployments).
func WorkerToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-Worker-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid worker token"})
			return
		}
		c.Next()
	}
}
