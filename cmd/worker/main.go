// Package main runs the standalone recording processing worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/notifications"
	"github.com/meetscribe/backend/internal/pipeline"
	"github.com/meetscribe/backend/internal/recordings"
	"github.com/meetscribe/backend/internal/summarization"
	"github.com/meetscribe/backend/internal/transcription"
	"github.com/meetscribe/backend/pkg/database"
	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/redis"
	"github.com/meetscribe/backend/pkg/storage"
)

// staleProcessingAge marks recordings stuck in processing, e.g. after a crash
// mid-pipeline. They are only reported, never reconciled automatically.
const staleProcessingAge = time.Hour

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required for the standalone worker")
	}
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		RecordingsBucket:     cfg.AWS.RecordingsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	transcriber := transcription.NewClient(transcription.Config{
		BaseURL: cfg.Transcription.BaseURL,
		APIKey:  cfg.Transcription.APIKey,
		Model:   cfg.Transcription.Model,
		Timeout: time.Duration(cfg.Transcription.TimeoutSec) * time.Second,
	}, logger)
	summarizer, err := summarization.NewClient(ctx, summarization.Config{
		APIKey: cfg.Summarization.APIKey,
		Model:  cfg.Summarization.Model,
	}, logger)
	if err != nil {
		logger.Fatal("summarizer", zap.Error(err))
	}

	recRepo := recordings.NewRepository(pool)
	processor := pipeline.NewProcessor(recRepo, s3Client, transcriber, summarizer, pipeline.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		RetryDelay:  cfg.Pipeline.RetryDelay(),
	}, logger)

	if cfg.Notifications.ExpoPushEnabled {
		deviceRepo := notifications.NewDeviceRepository(pool)
		processor.SetNotifier(notifications.NewExpoNotifier(deviceRepo, cfg.Notifications.ExpoPushURL, logger))
	}

	if n, err := recRepo.CountStaleProcessing(ctx, staleProcessingAge); err == nil && n > 0 {
		logger.Warn("recordings stuck in processing", zap.Int("count", n), zap.Duration("older_than", staleProcessingAge))
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	worker := pipeline.NewWorker(processor, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
