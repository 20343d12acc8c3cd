// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"authcore/internal/domain/access"
	"authcore/internal/domain/auth"
	"authcore/internal/infrastructure/http/v1/handlers"
	"authcore/internal/infrastructure/http/v1/middleware"
	"authcore/internal/infrastructure/storage/postgres"
	"authcore/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints.
	AuthService *auth.Service

	// Catalog is the permission catalog.
	Catalog *access.Catalog

	// Evaluator answers permission checks.
	Evaluator *access.GrantEvaluator

	// Shares manages work package shares.
	Shares *access.ShareService

	// Repositories for loading evaluation scope objects.
	Principals   access.PrincipalRepository
	Roles        access.RoleRepository
	Projects     access.ProjectRepository
	WorkPackages access.WorkPackageRepository

	// IdempotencyStore enables idempotent mutations when set.
	IdempotencyStore *postgres.IdempotencyStore

	// Audit records share mutations when set.
	Audit *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()
	guard := middleware.NewAccessGuard(cfg.Evaluator, cfg.Projects, cfg.WorkPackages)

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg, baseHandler)
		registerAuthzRoutes(v1, cfg, baseHandler)
		registerShareRoutes(v1, cfg, baseHandler, guard)
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig, base *handlers.BaseHandler) {
	if cfg.AuthService == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(base, cfg.AuthService, cfg.Principals)

	// Public auth endpoints (no JWT required)
	publicAuth := rg.Group("/auth")

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerAuthzRoutes registers permission evaluation endpoints.
//
// Checks accept anonymous callers: an unauthenticated request is evaluated
// as the anonymous principal, which public projects may still grant.
func registerAuthzRoutes(rg *gin.RouterGroup, cfg RouterConfig, base *handlers.BaseHandler) {
	authzHandler := handlers.NewAuthzHandler(
		base, cfg.Catalog, cfg.Evaluator, cfg.Roles, cfg.Projects, cfg.WorkPackages,
	)

	authz := rg.Group("")
	authz.Use(middleware.OptionalAuth(cfg.JWTValidator))
	authz.Use(middleware.PrincipalLoader(cfg.Principals))
	{
		authz.POST("/authz/check", authzHandler.Check)
		authz.POST("/authz/check-any", authzHandler.CheckAny)
		authz.GET("/authz/permissions", authzHandler.GrantedPermissions)
		authz.GET("/permissions", authzHandler.ListPermissions)
		authz.GET("/roles", authzHandler.ListRoles)
	}
}

// registerShareRoutes registers work package share endpoints.
func registerShareRoutes(rg *gin.RouterGroup, cfg RouterConfig, base *handlers.BaseHandler, guard *middleware.AccessGuard) {
	sharesHandler := handlers.NewSharesHandler(
		base, cfg.Shares, cfg.Principals, cfg.Roles, cfg.Audit, cfg.Logger,
	)

	shares := rg.Group("/work-packages/:wpId/shares")
	shares.Use(middleware.Auth(cfg.JWTValidator))
	shares.Use(middleware.PrincipalLoader(cfg.Principals))
	if cfg.IdempotencyStore != nil {
		shares.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}
	{
		shares.GET("", guard.RequireWorkPackage("view_work_packages", "wpId"), sharesHandler.List)

		mutate := guard.RequireWorkPackage("share_work_packages", "wpId")
		shares.GET("/history", mutate, sharesHandler.History)
		shares.POST("/users", mutate, sharesHandler.GrantUser)
		shares.DELETE("/users/:principalId", mutate, sharesHandler.RevokeUser)
		shares.POST("/groups", mutate, sharesHandler.GrantGroup)
		shares.PUT("/groups", mutate, sharesHandler.ChangeGroupRole)
		shares.DELETE("/groups/:principalId", mutate, sharesHandler.RevokeGroup)
	}
}
