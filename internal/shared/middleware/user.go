package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDQuery is the query parameter carrying the caller identity.
	UserIDQuery = "userId"
	// UserIDKey is the gin context key holding the resolved caller identity.
	UserIDKey = "user_id"
)

// UserID resolves the caller identity from the userId query parameter,
// falling back to defaultID. There is no authentication.
func UserID(defaultID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.Query(UserIDQuery))
		if userID == "" {
			userID = defaultID
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID returns the identity resolved by UserID, or "" when the
// middleware did not run.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
