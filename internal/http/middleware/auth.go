package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edurotich/smartplanner/domain"
)

const sessionCookie = "session-token"

// SessionMiddleware creates session authentication middleware. It accepts
// the session token from the session cookie or an Authorization Bearer
// header, resolves it to a user, and slides the session expiry forward.
func SessionMiddleware(authSvc domain.AuthService) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		info, err := authSvc.ValidateSession(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Session validation failed"})
			c.Abort()
			return
		}
		if info == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired"})
			c.Abort()
			return
		}

		// Sliding expiry. A failed refresh never blocks the request.
		if _, err := authSvc.RefreshSession(c.Request.Context(), token); err != nil {
			log.Printf("Session refresh failed for user %d: %v", info.User.ID, err)
		}

		c.Set("user_id", info.User.ID)
		c.Set("user_phone", info.User.Phone)
		c.Set("session_token", token)

		c.Next()
	})
}

func extractToken(c *gin.Context) string {
	if token, err := c.Cookie(sessionCookie); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
