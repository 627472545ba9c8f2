package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

type UserContext struct {
	UserID int64
	Role   string
}

type contextKey struct{}

const ginUserKey = "auth.user"

func WithUser(ctx context.Context, u UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the user the auth middleware attached to ctx.
func FromContext(ctx context.Context) (UserContext, bool) {
	u, ok := ctx.Value(contextKey{}).(UserContext)
	return u, ok
}

// GetUserID reads the acting user from a gin request; 0 when unauthenticated.
func GetUserID(c *gin.Context) int64 {
	if v, ok := c.Get(ginUserKey); ok {
		if u, ok := v.(UserContext); ok {
			return u.UserID
		}
	}
	return 0
}

func setUser(c *gin.Context, u UserContext) {
	c.Set(ginUserKey, u)
	c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
}
