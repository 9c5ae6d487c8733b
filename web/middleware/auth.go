package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"spinwheel/web/db"
	"spinwheel/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userKey = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*db.User, error)
}

// RequireAuth resolves the bearer token to an active user and stores it on
// the context for handlers.
func RequireAuth(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if errors.Is(err, services.ErrUnauthorized) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, token failed"})
			return
		}
		if err != nil {
			log.Error("authenticate", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user set by RequireAuth.
func CurrentUser(c *gin.Context) *db.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*db.User)
	return u
}
