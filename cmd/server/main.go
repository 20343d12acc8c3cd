// Package main is the entry point for the authcore API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authcore/internal/domain/access"
	"authcore/internal/domain/auth"
	v1 "authcore/internal/infrastructure/http/v1"
	"authcore/internal/infrastructure/storage/postgres"
	"authcore/internal/infrastructure/storage/postgres/access_repo"
	"authcore/internal/infrastructure/storage/postgres/auth_repo"
	"authcore/pkg/logger"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting authcore server")

	// --- Database connection ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalw("failed to ping database", "error", err)
	}
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	principalRepo := access_repo.NewPrincipalRepo(txManager)
	roleRepo := access_repo.NewRoleRepo(txManager)
	membershipRepo := access_repo.NewMembershipRepo(txManager)
	projectRepo := access_repo.NewProjectRepo(txManager)
	workPackageRepo := access_repo.NewWorkPackageRepo(txManager)

	// --- Access domain ---
	catalog := access.DefaultCatalog()

	shareService := access.NewShareService(principalRepo, roleRepo, membershipRepo, txManager)
	shareService.SetNotifier(postgres.NewOutboxPublisher(txManager))

	resolver := access.NewRoleResolver(roleRepo, membershipRepo, shareService)
	evaluator := access.NewGrantEvaluator(catalog, resolver)

	// --- JWT and auth ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	authService := auth.NewService(
		auth_repo.NewCredentialRepo(txManager),
		auth_repo.NewTokenRepo(txManager),
		principalRepo,
		jwtService,
		auth.DefaultServiceConfig(),
	)

	// --- Idempotency ---
	var idempotencyStore *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "true") == "true" {
		idempotencyStore = postgres.NewIdempotencyStore(pool, txManager, 10*time.Minute)
	}

	// --- Audit ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		Logger:           log,
		JWTValidator:     jwtService,
		AuthService:      authService,
		Catalog:          catalog,
		Evaluator:        evaluator,
		Shares:           shareService,
		Principals:       principalRepo,
		Roles:            roleRepo,
		Projects:         projectRepo,
		WorkPackages:     workPackageRepo,
		IdempotencyStore: idempotencyStore,
		Audit:            auditService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
