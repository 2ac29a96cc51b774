package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/lecturehub/lecturehub-api/internal/handler"
	"github.com/lecturehub/lecturehub-api/internal/repository"
	"github.com/lecturehub/lecturehub-api/internal/service"
	"github.com/lecturehub/lecturehub-api/pkg/cache"
	"github.com/lecturehub/lecturehub-api/pkg/config"
	"github.com/lecturehub/lecturehub-api/pkg/database"
	"github.com/lecturehub/lecturehub-api/pkg/logger"
	"github.com/lecturehub/lecturehub-api/pkg/storage"
)

// @title LectureHub API
// @version 1.0.0
// @description Role-based lecture video, notice and playlist platform
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
	} else {
		redisClient = client
	}

	mediaStore, err := storage.NewMediaStore(cfg.Media.StorageDir, cfg.Media.PublicBaseURL)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	playlistRepo := repository.NewPlaylistRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	accessSvc := service.NewAccessService()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lecturehub-api",
	})

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, cacheRepo, logr, service.NotificationConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		UnreadTTL:  cfg.Cache.UnreadTTL,
	})
	notificationSvc.SetMetrics(metricsSvc)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	userSvc := service.NewUserService(userRepo, notificationSvc, logr)
	videoSvc := service.NewVideoService(videoRepo, userRepo, mediaStore, accessSvc, notificationSvc, cacheRepo, validate, logr, service.VideoConfig{
		UploadTimeout:    cfg.Media.UploadTimeout,
		MaxFileSizeBytes: cfg.Media.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Media.AllowedMIMEs,
		CacheTTL:         cfg.Cache.VideoCacheTTL,
	})
	noticeSvc := service.NewNoticeService(noticeRepo, mediaStore, accessSvc, notificationSvc, validate, logr)
	playlistSvc := service.NewPlaylistService(playlistRepo, accessSvc, validate, logr)
	engagementSvc := service.NewEngagementService(engagementRepo, videoRepo, noticeRepo, playlistRepo, accessSvc, notificationSvc, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, videoRepo, noticeRepo, playlistRepo, accessSvc, notificationSvc, validate, logr)
	reportSvc := service.NewReportService(reportRepo, commentRepo, userRepo, notificationSvc, validate, logr)

	router := handler.NewRouter(handler.RouterDeps{
		Config:        cfg,
		Logger:        logr,
		AuthService:   authSvc,
		Users:         userRepo,
		Metrics:       metricsSvc,
		Auth:          handler.NewAuthHandler(authSvc),
		User:          handler.NewUserHandler(userSvc),
		Video:         handler.NewVideoHandler(videoSvc, signer),
		Notice:        handler.NewNoticeHandler(noticeSvc),
		Playlist:      handler.NewPlaylistHandler(playlistSvc),
		Engagement:    handler.NewEngagementHandler(engagementSvc),
		Comment:       handler.NewCommentHandler(commentSvc),
		Report:        handler.NewReportHandler(reportSvc),
		Notification:  handler.NewNotificationHandler(notificationSvc),
		Media:         handler.NewMediaHandler(mediaStore, signer),
		MetricsRoutes: handler.NewMetricsHandler(metricsSvc, notificationSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
