package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authcore/internal/core/apperror"
	appctx "authcore/internal/core/context"
	"authcore/internal/core/id"
	"authcore/internal/domain/access"
	"authcore/internal/domain/auth"
	"authcore/internal/infrastructure/http/v1/dto"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service    *auth.Service
	principals access.PrincipalRepository
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service, principals access.PrincipalRepository) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
		principals:  principals,
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, principal, err := h.service.Login(ctx, req.ToCredentials())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Tokens:    dto.FromTokenPair(tokens),
		Principal: dto.FromPrincipal(principal),
	})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RefreshTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, err := h.service.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTokenPair(tokens))
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	principalID, err := h.requirePrincipalID(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Logout(ctx, principalID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	principalID, err := h.requirePrincipalID(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	principal, err := h.principals.GetByID(ctx, principalID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromPrincipal(principal))
}

func (h *AuthHandler) requirePrincipalID(c *gin.Context) (id.ID, error) {
	pc := appctx.GetPrincipal(c.Request.Context())
	if pc == nil {
		return id.Nil(), apperror.NewUnauthorized("not authenticated")
	}

	principalID, err := id.Parse(pc.PrincipalID)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid principal id")
	}
	return principalID, nil
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	// Public routes (no auth required)
	public.POST("/login", h.Login)
	public.POST("/refresh", h.Refresh)

	// Protected routes (auth required)
	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.Me)
}
