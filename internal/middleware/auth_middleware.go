package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/services"
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Authenticator resolves a bearer token to the identity of a live session
type Authenticator interface {
	Authenticate(token string) (*models.User, error)
}

// JWTAuthMiddleware rejects requests without a valid bearer token backed by
// an open session and stores the session's user in the context.
func JWTAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const BearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, BearerSchema) {
			abortUnauthenticated(c, "Authorization header must start with Bearer ")
			return
		}

		user, err := auth.Authenticate(strings.TrimSpace(authHeader[len(BearerSchema):]))
		if err != nil {
			slog.Warn("JWTAuthMiddleware: authentication failed", "error", err, "path", c.FullPath())
			abortUnauthenticated(c, "Invalid or expired session")
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// RequireRole lets through only actors with the given role
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortUnauthenticated(c, "Authentication required")
			return
		}
		if user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "This action requires the " + strings.ToLower(string(role)) + " role",
				"kind":  services.KindForbidden,
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated actor set by JWTAuthMiddleware
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "kind": services.KindNotAuthenticated})
}
