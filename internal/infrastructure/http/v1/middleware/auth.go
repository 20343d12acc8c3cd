package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"authcore/internal/core/apperror"
	appctx "authcore/internal/core/context"
)

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.PrincipalContext, error)
}

// Auth middleware validates JWT tokens and populates the principal context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		principal, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		ctx := appctx.WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)

		c.Set("principal_id", principal.PrincipalID)

		c.Next()
	}
}

// OptionalAuth validates token if present, but doesn't require it.
// Requests without a valid token proceed as the anonymous principal.
func OptionalAuth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.Next()
			return
		}

		principal, err := validator.ValidateToken(parts[1])
		if err == nil && principal != nil {
			ctx := appctx.WithPrincipal(c.Request.Context(), principal)
			c.Request = c.Request.WithContext(ctx)
			c.Set("principal_id", principal.PrincipalID)
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
