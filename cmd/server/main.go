package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/scheduler"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/payment/kakaopay"
	"github.com/ikkim/storefront-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const limiterCleanupInterval = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Log.Level
	if logLevel == "" {
		logLevel = "info"
		if cfg.Server.Environment == "development" {
			logLevel = "debug"
		}
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Log.Format == "console",
	})

	logger.Info("Starting Storefront Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := db.Seed(&cfg.Seed); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	deps := app.Deps{
		DB:        db.GetDB(),
		Config:    cfg,
		Publisher: newPublisher(cfg),
	}

	// Redis backs the cache, token blacklist and popular searches; the API
	// runs without them when it is disabled or unreachable.
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Continuing without Redis", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			deps.Store = redis.NewStore(redis.GetClient())
			defer redis.Close()
		}
	}

	if cfg.S3.Bucket != "" {
		deps.Presigner = storage.NewS3Storage(storage.S3Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			BaseURL:         cfg.S3.BaseURL,
		})
	}

	if cfg.Payment.SecretKey != "" {
		gateway, err := kakaopay.NewClient(kakaopay.Config{
			SecretKey:   cfg.Payment.SecretKey,
			CID:         cfg.Payment.CID,
			BaseURL:     cfg.Payment.BaseURL,
			ApprovalURL: cfg.Payment.ApprovalURL,
			FailURL:     cfg.Payment.FailURL,
			CancelURL:   cfg.Payment.CancelURL,
		})
		if err != nil {
			logger.Fatal("Invalid payment configuration", err)
		}
		deps.Gateway = gateway
	}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Registry = registry
	}

	server, err := app.NewServer(deps)
	if err != nil {
		logger.Fatal("Failed to build server", err)
	}

	go server.Hub.Run()
	defer server.Hub.Stop()

	stop := make(chan struct{})
	defer close(stop)
	server.Router.StartLimiterCleanup(limiterCleanupInterval, stop)

	// cart sweeping and token purging run even with recommendations off
	scheduled := scheduler.Jobs{
		Carts:  server.Carts,
		Resets: server.PasswordResets,
	}
	if cfg.Recommendation.Enabled {
		scheduled.Recommendations = server.Recommendations
	}
	jobs := scheduler.New(scheduler.Config{
		RecommendationSpec: cfg.Recommendation.Schedule,
		CartSweepSpec:      cfg.Recommendation.CartSweepCron,
		CartMaxIdle:        cfg.Recommendation.CartMaxIdle,
		ResetPurgeSpec:     cfg.Recommendation.ResetPurgeCron,
	}, scheduled)
	if err := jobs.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", err)
	}
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           server.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	if err := deps.Publisher.Close(); err != nil {
		logger.Error("Failed to close broker publisher", err)
	}
	logger.Info("Server stopped successfully")
}

// newPublisher connects to RabbitMQ when enabled. Orders and password resets
// still go through without it; only the downstream message is lost.
func newPublisher(cfg *config.Config) events.Publisher {
	if !cfg.RabbitMQ.Enabled {
		return events.NoopPublisher{}
	}
	publisher, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, events.Queues{
		Orders:        cfg.RabbitMQ.OrderQueue,
		Notifications: cfg.RabbitMQ.NotificationQueue,
	})
	if err != nil {
		logger.Warn("RabbitMQ unavailable, broker messages disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return events.NoopPublisher{}
	}
	return publisher
}
