// Package main is the entry point for the authcore background worker.
// It relays outbox events and prunes expired tokens and idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"authcore/internal/infrastructure/storage/postgres"
	"authcore/internal/infrastructure/storage/postgres/auth_repo"
	"authcore/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting authcore worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	worker := NewWorker(pool, txManager, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker drives the outbox relay and periodic cleanup jobs.
type Worker struct {
	relay       *postgres.OutboxRelay
	tokens      *auth_repo.TokenRepo
	idempotency *postgres.IdempotencyStore
	log         *logger.Logger
}

func NewWorker(pool *postgres.Pool, txManager *postgres.TxManager, log *logger.Logger) *Worker {
	return &Worker{
		relay:       postgres.NewOutboxRelay(pool.Unwrap(), 100, NewLogHandler(log)),
		tokens:      auth_repo.NewTokenRepo(txManager),
		idempotency: postgres.NewIdempotencyStore(pool, txManager, 24*time.Hour),
		log:         log.WithComponent("worker"),
	}
}

// Run polls the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := w.relay.ProcessBatch(ctx)
			if err != nil {
				w.log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				w.log.Debugw("processed outbox batch", "count", processed)
			}

		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("move to DLQ failed", "error", err)
	} else if moved > 0 {
		w.log.Warnw("moved poisoned outbox messages to DLQ", "count", moved)
	}

	if removed, err := w.tokens.CleanupExpiredTokens(ctx); err != nil {
		w.log.Errorw("token cleanup failed", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up expired refresh tokens", "count", removed)
	}

	if removed, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}

// LogHandler delivers outbox events to the log stream. Deployments with a
// broker replace it with a publishing handler; the relay semantics
// (at-least-once, retry with backoff) stay the same.
type LogHandler struct {
	log *logger.Logger
}

func NewLogHandler(log *logger.Logger) *LogHandler {
	return &LogHandler{log: log.WithComponent("outbox")}
}

// Handle processes a single outbox message.
func (h *LogHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	h.log.Infow("event dispatched",
		"message_id", msg.ID,
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
	)
	return nil
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
