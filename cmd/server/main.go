// Package main runs the video sharing HTTP server with WebSocket notifications and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vidshare/backend/config"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/realtime"
	"github.com/vidshare/backend/internal/uploads"
	"github.com/vidshare/backend/internal/videos"
	"github.com/vidshare/backend/pkg/database"
	"github.com/vidshare/backend/pkg/redis"
	"github.com/vidshare/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: int32(cfg.Database.MaxConns)}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := realtime.NewMetrics(promReg)

	registry := realtime.NewRegistry()
	metrics.TrackRegistry(registry)
	broadcaster := realtime.NewBroadcaster(registry, logger, metrics)

	stopRelay := func() {}
	if cfg.Redis.RelayEnabled {
		rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		relay := realtime.NewRedisRelay(rdb, logger)
		cancel, err := relay.Subscribe(ctx, func(msg []byte) { broadcaster.Broadcast(msg) })
		if err != nil {
			logger.Fatal("redis relay", zap.Error(err))
		}
		stopRelay = cancel
		broadcaster.SetRelay(relay)
	}

	var blobs *storage.S3
	if cfg.AWS.Bucket != "" {
		blobs, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.Bucket,
			Endpoint:        cfg.AWS.Endpoint,
			PublicBaseURL:   cfg.AWS.PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			blobs = nil
		}
	} else {
		logger.Warn("S3_BUCKET not set, uploads disabled")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireMinutes)
	authService := auth.NewService(auth.NewRepository(pool), jwtService, logger)
	videoService := videos.NewService(videos.NewPostgresRepository(pool), broadcaster, logger)
	wsHandler := realtime.NewHandler(registry, broadcaster, realtime.Options{
		SendBuffer:      cfg.Realtime.SendBuffer,
		WriteTimeout:    cfg.Realtime.WriteTimeout,
		PongWait:        cfg.Realtime.PongWait,
		MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
	}, logger, metrics)

	deps := routerDeps{
		logger:      logger,
		corsOrigins: cfg.Server.CORSAllowedOrigins,
		db:          pool,
		gatherer:    promReg,
		auth:        authService,
		users:       auth.NewHandler(authService),
		videos:      videos.NewHandler(videoService, nil),
		ws:          wsHandler,
		limiter:     middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst),
	}
	if blobs != nil {
		deps.videos = videos.NewHandler(videoService, blobs.URL)
		deps.uploads = uploads.NewHandler(blobs, logger)
	}
	router := newRouter(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.Bool("redis_relay", cfg.Redis.RelayEnabled))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopRelay()
	registry.CloseAll()
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
