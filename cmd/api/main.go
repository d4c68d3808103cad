// Package main はAPIサーバーのエントリーポイントです。
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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/pdf-extractor/internal/config"
	"github.com/yourusername/pdf-extractor/internal/jobs"
	"github.com/yourusername/pdf-extractor/internal/logging"
	"github.com/yourusername/pdf-extractor/internal/metrics"
	"github.com/yourusername/pdf-extractor/internal/pdf"
	"github.com/yourusername/pdf-extractor/internal/storage"
)

const (
	serviceName    = "pdf-extractor-api"
	serviceVersion = "0.2.0"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger, err := logging.Init(logging.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.LogPretty,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	// 期限切れファイルの定期削除
	var policy storage.EvictionPolicy = storage.KeepAll{}
	if cfg.FileTTLEnabled() {
		policy = storage.TTLPolicy{TTL: time.Duration(cfg.FileTTLMinutes) * time.Minute}
	}
	sweeper := storage.NewSweeper(store, policy, logger.With().Str("component", "sweeper").Logger())
	if err := sweeper.Start(cfg.StoreSweepSchedule); err != nil {
		return err
	}
	defer sweeper.Stop()

	pdfService, err := pdf.NewService(cfg, store, logger.With().Str("component", "pdf").Logger())
	if err != nil {
		return err
	}

	var manager *jobs.Manager
	if cfg.AsyncEnabled {
		manager, err = setupJobs(cfg, pdfService, logger.With().Str("component", "jobs").Logger())
		if err != nil {
			return fmt.Errorf("failed to setup jobs: %w", err)
		}
		manager.StartWorkers()
		defer func() {
			if err := manager.Shutdown(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("job manager shutdown failed")
			}
		}()
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(logger))
	if cfg.MetricsEnabled {
		metrics.Init()
		router.Use(metrics.GinMiddleware())
	}
	router.MaxMultipartMemory = 32 << 20

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	// ダウンロード時にファイル名とページ数を読めるように公開
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Job-Id", "X-Page-Count"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, store, pdfService, manager)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("mode", cfg.GinMode).Str("storage", cfg.StorageBackend).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		return storage.NewS3(ctx, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return storage.NewLocal(cfg.UploadDir)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// setupRoutes はルーティングを設定します。manager が nil の場合は同期処理のみです。
func setupRoutes(router *gin.Engine, cfg *config.Config, store storage.Store, svc *pdf.Service, manager *jobs.Manager) {
	router.GET("/health", handleHealth)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	opts := pdf.HandlerOptions{}
	if manager != nil {
		opts = pdf.HandlerOptions{
			Scheduler:           manager,
			AsyncThresholdBytes: cfg.AsyncThresholdBytes,
			AsyncThresholdPages: cfg.AsyncThresholdPages,
		}
		router.GET("/jobs/:id", jobStatusHandler(manager))
	}

	api := router.Group("/api")
	{
		api.POST("/upload", pdf.UploadHandler(svc, opts))
		api.POST("/inspect", pdf.InspectHandler(svc))
		api.GET("/:filename", pdf.FileHandler(store))
	}
}
