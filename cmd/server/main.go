// Package main runs the meeting recording HTTP server. When Redis is
// configured it also runs the processing worker in-process; otherwise uploads
// are processed on detached goroutines.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/middleware"
	"github.com/meetscribe/backend/internal/notifications"
	"github.com/meetscribe/backend/internal/pipeline"
	"github.com/meetscribe/backend/internal/recordings"
	"github.com/meetscribe/backend/internal/summarization"
	"github.com/meetscribe/backend/internal/transcription"
	"github.com/meetscribe/backend/pkg/database"
	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/redis"
	"github.com/meetscribe/backend/pkg/response"
	"github.com/meetscribe/backend/pkg/storage"
)

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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

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

	deviceRepo := notifications.NewDeviceRepository(pool)
	if cfg.Notifications.ExpoPushEnabled {
		processor.SetNotifier(notifications.NewExpoNotifier(deviceRepo, cfg.Notifications.ExpoPushURL, logger))
		logger.Info("push notifications enabled")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Redis configured: schedule through the queue and consume it in-process.
	// Otherwise fall back to detached goroutines per upload.
	var scheduler pipeline.Scheduler
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		jobQueue := queue.NewQueue(rdb.Client, logger)
		scheduler = pipeline.NewQueueScheduler(jobQueue)
		go pipeline.NewWorker(processor, jobQueue, logger).Run(workerCtx)
		logger.Info("pipeline worker started")
	} else {
		scheduler = pipeline.NewGoScheduler(processor, logger)
		logger.Warn("REDIS_ADDR empty, processing uploads in-process")
	}

	recordingHandler := recordings.NewHandler(recRepo, s3Client, scheduler, logger)
	deviceHandler := notifications.NewHandler(deviceRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	router.POST("/recordings/upload", recordingHandler.Upload)
	router.GET("/recordings", recordingHandler.List)
	router.GET("/recordings/:id", recordingHandler.GetByID)
	router.GET("/recordings/:id/download-url", recordingHandler.GenerateDownloadURL)
	router.DELETE("/recordings/:id", recordingHandler.Delete)

	router.POST("/devices", deviceHandler.RegisterDevice)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
