package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/pkg/response"
)

// ContextUser is the gin context key holding the authenticated models.UserPublic.
const ContextUser = "user"

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (models.UserPublic, error)
}

// Auth returns a middleware that requires a valid bearer token and stores the
// caller in the context.
func Auth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}
		user, err := a.CurrentUser(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the caller stored by Auth.
func CurrentUser(c *gin.Context) (models.UserPublic, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return models.UserPublic{}, false
	}
	u, ok := v.(models.UserPublic)
	return u, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
