package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/config"
	queueAdapter "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/queue/adapter"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/task"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// The worker drains the messaging queue: offline-notification tasks produced
// by the fan-out dispatcher when a recipient had no live session.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.Load()
	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := queueAdapter.NewAsynqServerFromEnv()
	if err != nil {
		logger.Fatal("failed to start queue server", zap.Error(err))
	}

	// No push gateway wired yet; the handler logs and acks.
	task.RegisterNotifyOfflineTask(srv, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("messaging worker running")
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
