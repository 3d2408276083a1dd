// Package main runs the email delivery worker: it drains the Redis email queue
// through the configured provider and records every attempt in email_logs.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crowdstack/backend/config"
	"github.com/crowdstack/backend/internal/emaillogs"
	"github.com/crowdstack/backend/internal/worker"
	"github.com/crowdstack/backend/pkg/database"
	"github.com/crowdstack/backend/pkg/email"
	"github.com/crowdstack/backend/pkg/queue"
	"github.com/crowdstack/backend/pkg/redis"
)

func main() {
	logger := newLogger().Named("worker")
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Pool(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.RedisOptions(), logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sender, err := email.New(ctx, cfg.Mail(), logger)
	if err != nil {
		logger.Fatal("email sender", zap.Error(err))
	}

	processor := worker.NewEmailProcessor(sender, emaillogs.NewRepository(pool), queue.NewQueue(rdb.Client, logger), logger)
	logger.Info("worker started", zap.String("provider", cfg.Email.Provider))

	// Blocks until a signal cancels ctx and every loop has finished its current job.
	processor.RunPool(ctx, cfg.Email.Concurrency)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
