package middleware

import (
	"net/http"
	"strings"

	ctxlog "github.com/ErlanBelekov/magic-link-auth/internal/log"
	"github.com/ErlanBelekov/magic-link-auth/internal/session"
	"github.com/gin-gonic/gin"
)

const errUnauthorized = "Unauthorized"

// Auth validates a Bearer session JWT and sets "userID" and "email" in the
// gin context. The user id also goes on the request context for logging.
func Auth(signer *session.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		id, err := signer.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set("userID", id.UserID)
		c.Set("email", id.Email)
		c.Request = c.Request.WithContext(ctxlog.WithUserID(c.Request.Context(), id.UserID))
		c.Next()
	}
}
