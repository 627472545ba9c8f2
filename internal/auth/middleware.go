package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type MiddlewareConfig struct {
	SecretKey string
	// AllowAnonymous lets requests without a token through as SystemUserID.
	AllowAnonymous bool
	SystemUserID   int64
}

// Middleware authenticates "Authorization: Bearer <token>" requests.
func Middleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if cfg.AllowAnonymous {
				setUser(c, UserContext{UserID: cfg.SystemUserID, Role: "system"})
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header must start with Bearer"})
			return
		}

		claims, err := ValidateToken(cfg.SecretKey, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		setUser(c, UserContext{UserID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, ok := c.Get(ginUserKey); ok {
			if u, ok := v.(UserContext); ok {
				for _, r := range roles {
					if u.Role == r {
						c.Next()
						return
					}
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You do not have permission to access this resource"})
	}
}
