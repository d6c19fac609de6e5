package handlers

import "github.com/gin-gonic/gin"

// CurrentUserID reads the authenticated user's ID set by the session middleware.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// SessionToken reads the raw session token set by the session middleware.
// Falls back to the cookie for routes outside the authenticated group.
func SessionToken(c *gin.Context) string {
	if v, ok := c.Get("session_token"); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	if token, err := c.Cookie(SessionCookie); err == nil {
		return token
	}
	return ""
}
