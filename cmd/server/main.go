package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mdobak/go-xerrors"

	"github.com/jengzang/practice-backend-go/internal/analysis"
	"github.com/jengzang/practice-backend-go/internal/api"
	"github.com/jengzang/practice-backend-go/internal/config"
	"github.com/jengzang/practice-backend-go/internal/database"
	"github.com/jengzang/practice-backend-go/internal/handler"
	"github.com/jengzang/practice-backend-go/internal/logging"
	"github.com/jengzang/practice-backend-go/internal/middleware"
	"github.com/jengzang/practice-backend-go/internal/remote"
	"github.com/jengzang/practice-backend-go/internal/repository"
	"github.com/jengzang/practice-backend-go/internal/service"
)

func main() {
	// 加载配置
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db := database.New(database.Config{Path: cfg.DBPath})
	defer db.Close()

	identity := repository.NewIdentityRepository(db)
	userID, err := identity.Ensure(ctx)
	if err != nil {
		err := xerrors.New(err)
		logger.ErrorContext(ctx, "failed to initialize local store", slog.String("path", db.Path()), slog.Any("error", err))
		os.Exit(1)
	}
	logger.InfoContext(ctx, "device identity ready", slog.String("user_id", userID), slog.String("db_path", db.Path()))

	// 远程后端（可选）
	var backend remote.Backend
	if cfg.RemoteEnabled() {
		sb, err := remote.NewSupabaseBackend(remote.Config{URL: cfg.SupabaseURL, Key: cfg.SupabaseKey})
		if err != nil {
			err := xerrors.New(err)
			logger.ErrorContext(ctx, "remote backend unavailable, running offline", slog.Any("error", err))
		} else {
			backend = sb
		}
	}

	sessions := repository.NewSessionRepository(db)
	syncSvc := service.NewSyncService(sessions, identity, backend, service.SyncConfig{
		Nickname:    cfg.ProfileNickname,
		Instrument:  cfg.ProfileInstrument,
		PushTimeout: cfg.SyncPushTimeout,
		MaxRetries:  cfg.SyncMaxRetries,
	})
	authSvc := service.NewAuthService(identity, cfg.JWTSecret, cfg.PairingCode)
	engine := analysis.NewEngine(analysis.EngineConfig{
		DefaultRatio: cfg.DefaultTargetRatio,
		MaxDuration:  cfg.AnalysisMaxDuration,
	}, nil)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)
	}

	// 初始化路由
	router := api.SetupRouter(api.Handlers{
		Analysis:    handler.NewAnalysisHandler(service.NewAnalysisService(engine), cfg.MaxUploadBytes),
		Sessions:    handler.NewSessionHandler(service.NewSessionService(sessions)),
		Sync:        handler.NewSyncHandler(syncSvc),
		Auth:        handler.NewAuthHandler(authSvc),
		Verifier:    authSvc,
		RateLimiter: limiter,
	})

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		syncSvc.Run(ctx, cfg.SyncInterval)
	}()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Port), slog.Bool("sync_enabled", syncSvc.Enabled()))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err := xerrors.New(err)
			logger.Error("server error", slog.Any("error", err))
		}
		stop()
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
	}
	<-syncDone
}
