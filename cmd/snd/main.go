package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/snd-erp/snd-erp/internal/app"
	"github.com/snd-erp/snd-erp/internal/auth"
	"github.com/snd-erp/snd-erp/internal/authz"
	jobmetrics "github.com/snd-erp/snd-erp/internal/jobs"
	"github.com/snd-erp/snd-erp/internal/observability"
	"github.com/snd-erp/snd-erp/internal/platform/cache"
	"github.com/snd-erp/snd-erp/internal/platform/db"
	"github.com/snd-erp/snd-erp/internal/roles"
	"github.com/snd-erp/snd-erp/internal/shared"
	"github.com/snd-erp/snd-erp/internal/users"
	"github.com/snd-erp/snd-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "snd_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()
	authzMetrics := observability.NewAuthzMetrics(metrics.Registerer())

	auditLogger := shared.NewAuditLogger(dbpool)

	authzStore := authz.NewPGStore(dbpool)
	authzCache := authz.NewCache(cfg.AuthzCacheTTL)
	evaluator := authz.NewEvaluator(authzStore, authzCache, authzMetrics, logger)
	authzMiddleware := authz.Middleware{Evaluator: evaluator, Logger: logger}
	authzHandler := authz.NewHandler(logger, evaluator, auditLogger, authzMiddleware)

	// The permission cache is process-local, so the warmup loop runs here
	// against the serving evaluator rather than in the worker.
	warmupJob := jobs.NewAuthzWarmupJob(evaluator, dbpool, logger, jobmetrics.NewMetrics(metrics.Registerer()))
	go warmupJob.Start(ctx, cfg.AuthzCacheTTL)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, evaluator, sessionManager, csrfManager)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, evaluator, auditLogger, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, authzMiddleware)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, evaluator, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, authzMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AuthzHandler:   authzHandler,
		RolesHandler:   rolesHandler,
		UsersHandler:   usersHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
