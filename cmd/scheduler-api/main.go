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

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/veritas-edu/class-scheduler/api/swagger"
	"github.com/veritas-edu/class-scheduler/internal/handler"
	"github.com/veritas-edu/class-scheduler/internal/middleware"
	"github.com/veritas-edu/class-scheduler/internal/repository"
	"github.com/veritas-edu/class-scheduler/internal/service"
	"github.com/veritas-edu/class-scheduler/pkg/cache"
	"github.com/veritas-edu/class-scheduler/pkg/config"
	"github.com/veritas-edu/class-scheduler/pkg/database"
	"github.com/veritas-edu/class-scheduler/pkg/jobs"
	"github.com/veritas-edu/class-scheduler/pkg/logger"
	corsmiddleware "github.com/veritas-edu/class-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/veritas-edu/class-scheduler/pkg/middleware/requestid"
	"github.com/veritas-edu/class-scheduler/pkg/storage"
)

// @title Class Scheduler API
// @version 1.0.0
// @description Constraint based weekly class scheduling service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.RunMigrations(db, logr); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Scheduler.CacheTTL, logr, false)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.CacheTTL, logr, true)
	}

	rosterRepo := repository.NewRosterRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	rosterSvc := service.NewRosterService(rosterRepo, cacheSvc, nil, logr, cfg.Roster.MaxClasses, cfg.Scheduler.CacheTTL)
	scheduleSvc := service.NewScheduleService(scheduleRepo, rosterRepo, cacheSvc, metricsSvc, nil, logr, service.ScheduleServiceConfig{
		AllowExtended:       cfg.Scheduler.AllowExtendedPeriods,
		ChapelCapacity:      cfg.Scheduler.ChapelCapacity,
		MaxUnplacedFraction: cfg.Scheduler.MaxUnplacedFraction,
		GenerateTimeout:     cfg.Scheduler.GenerateTimeout,
		CacheTTL:            cfg.Scheduler.CacheTTL,
	})

	// Synchronous renders read straight from the database, so the export
	// service is always on; job plumbing additionally needs the export
	// directory and signing secret.
	var store *storage.LocalStorage
	var signer *storage.SignedURLSigner
	if cfg.Exports.Enabled {
		store, err = storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer = storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	}
	exportSvc := service.NewExportService(scheduleRepo, rosterRepo, store, signer, metricsSvc, service.ExportServiceConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	var exportJobSvc *service.ExportJobService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		worker := service.NewExportWorker(exportJobRepo, exportSvc, metricsSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue(service.ExportJobType, worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportJobSvc = service.NewExportJobService(exportJobRepo, scheduleRepo, exportQueue, exportSvc, nil, logr, service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if exportQueue != nil {
		exportQueue.Start(ctx)
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	rosterHandler := handler.NewRosterHandler(rosterSvc, cfg.Roster.MaxUploadBytes)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	exportHandler := handler.NewExportHandler(exportSvc, exportJobSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/roster/import", rosterHandler.Import)
		api.GET("/roster/classes", rosterHandler.Classes)
		api.GET("/rosters", rosterHandler.List)
		api.PATCH("/rosters/:id/classes/:classId", rosterHandler.UpdateClass)
		api.DELETE("/rosters/:id", rosterHandler.Delete)

		api.POST("/schedules/generate", scheduleHandler.Generate)
		api.GET("/schedules", scheduleHandler.List)
		api.GET("/schedules/:id", scheduleHandler.Get)
		api.POST("/schedules/:id/publish", scheduleHandler.Publish)
		api.DELETE("/schedules/:id", scheduleHandler.Delete)
		api.POST("/schedules/:id/moves", scheduleHandler.Move)
		api.GET("/schedules/:id/valid-slots", scheduleHandler.ValidSlots)
		api.GET("/schedules/:id/export", exportHandler.Download)

		if exportJobSvc != nil {
			api.POST("/schedules/:id/exports", exportHandler.CreateJob)
			api.GET("/exports/:id", exportHandler.JobStatus)
			api.GET("/exports/download/:token", exportHandler.DownloadByToken)
		}
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

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
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
