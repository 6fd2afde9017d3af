package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	v1 "github.com/GamerOZE123/unigramm1-sub000/cmd/api/router/v1"
	"github.com/GamerOZE123/unigramm1-sub000/internal/identity"
	cacheAdapter "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/adapter"
	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/config"
	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/database"
	queueAdapter "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/queue/adapter"
	qport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/queue/port"
	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/realtime"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/fanout"
	httpHandler "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/presentation/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := database.NewPoolFromEnv(ctx)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Cache and queue are optional: the core degrades to direct reads and
	// no offline notifications when redis is absent.
	var cache cacheport.Cache
	if c, err := cacheAdapter.NewRedisAdapter(); err != nil {
		logger.Warn("redis unavailable, inbox cache disabled", zap.Error(err))
	} else {
		cache = c
		defer func() { _ = c.Close() }()
	}

	var queue qport.Client
	if q, err := queueAdapter.NewAsynqClientFromEnv(); err != nil {
		logger.Warn("queue unavailable, offline notifications disabled", zap.Error(err))
	} else {
		queue = q
		defer func() { _ = q.Close() }()
	}

	router := realtime.NewRouter(logger)
	defer router.Close()
	notifier := fanout.NewDispatcher(router, queue, logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1.RegisterRoutes(r, cfg.JWTSecret, httpHandler.Deps{
		Pool:     pool,
		Cache:    cache,
		Router:   router,
		Notifier: notifier,
		Users:    identity.NewPgUserDirectory(pool),
		Log:      logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("messaging api listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
