package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sproutbook/internal/auth"
	"sproutbook/internal/backup"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "sproutbook_session"

// RequestLogger logs one line per request.
func RequestLogger(logger backup.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// RequireSession rejects requests without a valid session cookie.
func RequireSession(sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || !sessions.Valid(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
