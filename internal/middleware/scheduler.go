package middleware

import (
	"crypto/subtle" // Constant-time secret comparison
	"net/http"      // HTTP status codes
	"strings"       // Bearer prefix handling

	"github.com/gin-gonic/gin" // Gin web framework
)

// SchedulerSecretMiddleware guards the job trigger endpoints with a shared
// secret, presented either as a bearer credential or a query parameter
// (cron services differ in what they can send). An empty configured secret
// rejects everything rather than opening the destructive routes.
func SchedulerSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.Query("secret") // Query parameter form
		if presented == "" {
			// Bearer header form
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				presented = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		if secret == "" || !secureCompare(presented, secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
