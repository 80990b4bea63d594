package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/simlok-id/simlok-api/api/swagger"
	"github.com/simlok-id/simlok-api/internal/handler"
	internalmiddleware "github.com/simlok-id/simlok-api/internal/middleware"
	"github.com/simlok-id/simlok-api/internal/models"
	"github.com/simlok-id/simlok-api/internal/realtime"
	"github.com/simlok-id/simlok-api/internal/repository"
	"github.com/simlok-id/simlok-api/internal/service"
	"github.com/simlok-id/simlok-api/pkg/cache"
	"github.com/simlok-id/simlok-api/pkg/config"
	"github.com/simlok-id/simlok-api/pkg/database"
	"github.com/simlok-id/simlok-api/pkg/export"
	"github.com/simlok-id/simlok-api/pkg/jobs"
	"github.com/simlok-id/simlok-api/pkg/logger"
	corsmiddleware "github.com/simlok-id/simlok-api/pkg/middleware/cors"
	reqidmiddleware "github.com/simlok-id/simlok-api/pkg/middleware/requestid"
	"github.com/simlok-id/simlok-api/pkg/qrtoken"
	"github.com/simlok-id/simlok-api/pkg/storage"
)

// @title SIMLOK API
// @version 1.0.0
// @description Work permit submission, review, approval and gate verification service
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Stats caching is an optimisation, not a dependency.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init file storage", "error", err)
	}

	validate := validator.New()
	qrSigner := qrtoken.NewSigner(cfg.QRToken.Secret, cfg.QRToken.TTL)
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	scanRepo := repository.NewScanRepository(db)

	queueCfg := jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	}
	auditQueue := jobs.NewQueue("audit", repository.AuditHandler(userRepo), queueCfg)
	auditQueue.Start(ctx)
	defer auditQueue.Stop()
	auditWriter := repository.NewAuditQueue(userRepo, auditQueue, logr)

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Stats.CacheTTL, logr, true)
	}

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "simlok-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)

	var broadcaster *realtime.AsyncHub
	var wsHandler *handler.WSHandler
	if cfg.Realtime.Enabled {
		hub := realtime.NewHub(logr)
		broadcastQueue := jobs.NewQueue("broadcast", jobs.DispatchHandler, queueCfg)
		broadcastQueue.Start(ctx)
		defer broadcastQueue.Stop()
		broadcaster = realtime.NewAsyncHub(hub, broadcastQueue, logr)
		wsHandler = handler.NewWSHandler(hub, logr)
	}

	submissionOpts := []service.SubmissionServiceOption{
		service.WithSubmissionMetrics(metricsService),
	}
	scanOpts := []service.ScanServiceOption{
		service.WithScanMetrics(metricsService),
	}
	if cacheService != nil {
		submissionOpts = append(submissionOpts, service.WithSubmissionCache(cacheService))
	}
	if broadcaster != nil {
		submissionOpts = append(submissionOpts, service.WithSubmissionBroadcaster(broadcaster))
		scanOpts = append(scanOpts, service.WithScanBroadcaster(broadcaster))
	}

	submissionService := service.NewSubmissionService(submissionRepo, workerRepo, auditWriter, qrSigner, validate, logr, submissionOpts...)
	workerService := service.NewWorkerService(workerRepo, submissionRepo, auditWriter, validate, logr, service.WithWorkerFiles(store))
	scanService := service.NewScanService(scanRepo, submissionRepo, auditWriter, qrSigner, validate, logr, scanOpts...)

	var documentService *service.DocumentService
	if cfg.Documents.Enabled {
		documentService = service.NewDocumentService(submissionRepo, workerRepo, export.NewPermitRenderer(), cfg.Documents.CityLabel, logr)
	}

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	var submissionHandler *handler.SubmissionHandler
	if documentService != nil {
		submissionHandler = handler.NewSubmissionHandler(submissionService, documentService)
	} else {
		submissionHandler = handler.NewSubmissionHandler(submissionService, nil)
	}
	workerHandler := handler.NewWorkerHandler(workerService)
	scanHandler := handler.NewScanHandler(scanService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		status := gin.H{"status": "ready"}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				status["redis"] = err.Error()
			}
		}
		c.JSON(http.StatusOK, status)
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("", internalmiddleware.JWT(authService))
		authed.GET("/me", authHandler.Me)
		authed.POST("/change-password", authHandler.ChangePassword)
	}

	admins := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	backOffice := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer, models.RoleApprover)
	submitters := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleVendor)
	participants := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer, models.RoleApprover, models.RoleVendor)
	viewers := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer, models.RoleApprover, models.RoleVendor, models.RoleVerifier)
	editors := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer, models.RoleVendor)
	rosterAdmins := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer)

	users := api.Group("/users", internalmiddleware.JWT(authService))
	{
		users.GET("", admins, userHandler.List)
		users.GET("/:id", internalmiddleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), "SELF"), userHandler.Get)
		users.POST("", admins, userHandler.Create)
		users.PUT("/:id", admins, userHandler.Update)
		users.DELETE("/:id", admins, userHandler.Delete)
	}

	submissions := api.Group("/submissions", internalmiddleware.JWT(authService))
	{
		submissions.POST("", submitters, submissionHandler.Create)
		submissions.GET("", viewers, submissionHandler.List)
		submissions.GET("/:id", viewers, submissionHandler.Get)
		submissions.PATCH("/:id", editors, submissionHandler.Update)
		submissions.PUT("/:id", editors, submissionHandler.Update)
		submissions.DELETE("/:id", submitters, submissionHandler.Delete)
		approvers := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleApprover)
		submissions.PATCH("/:id/review", rosterAdmins, submissionHandler.Review)
		submissions.PATCH("/:id/approval", approvers, submissionHandler.Finalize)
		// Aliases kept for clients built against the pre-PATCH routes.
		submissions.POST("/:id/review", rosterAdmins, submissionHandler.Review)
		submissions.POST("/:id/finalize", approvers, submissionHandler.Finalize)
		submissions.GET("/:id/pdf", participants, internalmiddleware.Audit(auditWriter, models.AuditActionPermitDownload, "submissions"), submissionHandler.PDF)

		submissions.POST("/:id/workers", editors, workerHandler.Add)
		submissions.GET("/:id/workers", participants, workerHandler.List)
		submissions.DELETE("/:id/workers/:workerId", rosterAdmins, workerHandler.Remove)

		submissions.GET("/:id/scans", viewers, scanHandler.History)
	}

	scans := api.Group("/scans", internalmiddleware.JWT(authService))
	{
		gate := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleVerifier)
		scans.POST("", gate, scanHandler.Verify)
		scans.POST("/verify", gate, scanHandler.Verify)
	}

	if cfg.Stats.Enabled {
		statsService := service.NewStatsService(submissionRepo, cacheService, cfg.Stats.CacheTTL, logr)
		statsHandler := handler.NewStatsHandler(statsService)
		api.GET("/stats/dashboard", internalmiddleware.JWT(authService), backOffice, statsHandler.Dashboard)
		// Alias kept for dashboards built against the legacy path.
		api.GET("/dashboard/stats", internalmiddleware.JWT(authService), backOffice, statsHandler.Dashboard)
	}

	if wsHandler != nil {
		api.GET("/ws", internalmiddleware.JWT(authService), wsHandler.Subscribe)
	}

	if cfg.Storage.CleanupInterval > 0 {
		go runStorageCleanup(ctx, store, cfg.Storage.CleanupInterval, cfg.Storage.OrphanTTL, logr)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

// runStorageCleanup prunes orphaned roster photos and supporting
// documents that outlived their submissions.
func runStorageCleanup(ctx context.Context, store *storage.LocalStorage, interval, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOlderThan(ttl)
			if err != nil {
				logr.Sugar().Warnw("storage cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("storage cleanup removed orphaned files", "count", len(removed))
			}
		}
	}
}
