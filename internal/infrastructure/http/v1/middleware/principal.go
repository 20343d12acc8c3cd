package middleware

import (
	"github.com/gin-gonic/gin"

	"authcore/internal/core/apperror"
	appctx "authcore/internal/core/context"
	"authcore/internal/core/id"
	"authcore/internal/domain/access"
)

const (
	principalKey = "access_principal"
	sessionKey   = "access_session"
)

// PrincipalLoader resolves the authenticated principal against the database
// and opens a per-request authorization session.
//
// Token claims identify the caller but are never trusted for authorization
// state; the persisted record decides admin, active and locked. Requests
// without a token proceed as the anonymous principal.
//
// Must run AFTER Auth or OptionalAuth.
func PrincipalLoader(principals access.PrincipalRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		principal := access.AnonymousPrincipal()
		if pc := appctx.GetPrincipal(ctx); pc != nil {
			principalID, err := id.Parse(pc.PrincipalID)
			if err != nil {
				_ = c.Error(apperror.NewUnauthorized("invalid token subject"))
				c.Abort()
				return
			}

			loaded, err := principals.GetByID(ctx, principalID)
			if err != nil {
				_ = c.Error(apperror.NewUnauthorized("unknown principal"))
				c.Abort()
				return
			}
			if !loaded.Active {
				_ = c.Error(apperror.NewForbidden("account is disabled"))
				c.Abort()
				return
			}
			principal = loaded
		}

		c.Set(principalKey, principal)
		c.Set(sessionKey, access.NewSession(principal.ID))

		c.Next()
	}
}

// CurrentPrincipal returns the principal loaded by PrincipalLoader.
func CurrentPrincipal(c *gin.Context) *access.Principal {
	if v, exists := c.Get(principalKey); exists {
		if p, ok := v.(*access.Principal); ok {
			return p
		}
	}
	return nil
}

// CurrentSession returns the authorization session of the request.
func CurrentSession(c *gin.Context) *access.Session {
	if v, exists := c.Get(sessionKey); exists {
		if s, ok := v.(*access.Session); ok {
			return s
		}
	}
	return nil
}
