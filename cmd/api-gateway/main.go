package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ondemand-reports-api/api/swagger"
	"github.com/noah-isme/ondemand-reports-api/internal/handler"
	"github.com/noah-isme/ondemand-reports-api/internal/middleware"
	"github.com/noah-isme/ondemand-reports-api/internal/models"
	"github.com/noah-isme/ondemand-reports-api/internal/repository"
	"github.com/noah-isme/ondemand-reports-api/internal/service"
	"github.com/noah-isme/ondemand-reports-api/pkg/cache"
	"github.com/noah-isme/ondemand-reports-api/pkg/config"
	"github.com/noah-isme/ondemand-reports-api/pkg/database"
	"github.com/noah-isme/ondemand-reports-api/pkg/jobs"
	"github.com/noah-isme/ondemand-reports-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ondemand-reports-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ondemand-reports-api/pkg/middleware/requestid"
	"github.com/noah-isme/ondemand-reports-api/pkg/ondemand"
	"github.com/noah-isme/ondemand-reports-api/pkg/storage"
)

// @title On-Demand Reports API
// @version 1.0.0
// @description Lists, requests and re-downloads on-demand batch reports.
// @BasePath /api/v1
// @schemes http
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()
	catalog, err := service.NewMessageCatalog(cfg.Reports.Locale, nil)
	if err != nil {
		logr.Fatal("failed to build message catalog", zap.Error(err))
	}

	upstream := ondemand.NewClient(ondemand.Config{
		BaseURL: cfg.Reports.UpstreamBaseURL,
		Token:   cfg.Reports.UpstreamToken,
		Timeout: cfg.Reports.UpstreamTimeout,
		Retries: cfg.Reports.UpstreamRetries,
		Logger:  logr.Named("ondemand"),
	})

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Reports.NotifyChannel, logr)
	defer cacheRepo.Close() //nolint:errcheck

	checks := map[string]handler.Pinger{}
	notifier := service.MultiNotifier{service.NewLogNotifier(logr)}
	var guard service.InFlightGuard = service.NewMemoryInFlightGuard()
	if redisClient != nil {
		guard = cacheRepo
		checks["redis"] = cacheRepo

		worker := service.NewNotificationWorker(cacheRepo)
		queue := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.NotifyWorkers,
			MaxRetries: 3,
			RetryDelay: time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		notifier = append(notifier, service.NewQueueNotifier(queue, logr))
	} else {
		logr.Info("redis disabled, using in-process in-flight guard")
	}

	rule := service.EndDateRuleInert
	if cfg.Reports.EnforceBatchEndDate {
		rule = service.EndDateRuleEnforced
	}

	opener := service.NewSignedLinkOpener(
		storage.NewSignedURLSigner(cfg.Reports.OpenLinkSecret, cfg.Reports.OpenLinkTTL),
		cfg.APIPrefix+"/report-links",
	)

	deps := service.ReportListDeps{
		Upstream:    upstream,
		Evaluator:   service.NewEligibilityEvaluator(rule),
		Notifier:    notifier,
		Catalog:     catalog,
		Guard:       guard,
		Opener:      opener,
		Metrics:     metricsSvc,
		Logger:      logr,
		MaxListSize: cfg.Reports.MaxListSize,
		InFlightTTL: cfg.Reports.InFlightTTL,
	}

	var audits *repository.SubmissionAuditRepository
	if cfg.Reports.AuditEnabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		audits = repository.NewSubmissionAuditRepository(db)
		deps.Audit = audits
		checks["postgres"] = handler.PingFunc(db.PingContext)
	}

	reportTypes := service.ReportTypesFromConfig(cfg.Reports.Types)
	registry := service.NewPanelRegistry(deps, cfg.Reports.PanelTTL)
	authSvc := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	reportHandler := handler.NewReportHandler(registry, reportTypes, opener, nil)
	if audits != nil {
		reportHandler = handler.NewReportHandler(registry, reportTypes, opener, audits)
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/report-links/:token", reportHandler.Open)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc), middleware.RequireRoles(service.RolesFromConfig(cfg.Reports.AllowedRoles)...))
	secured.GET("/report-types", reportHandler.Types)
	secured.GET("/reports/:tag", reportHandler.List)
	secured.POST("/reports/:tag/requests", reportHandler.Submit)
	secured.POST("/reports/:tag/requests/:requestId/download", reportHandler.RetryDownload)
	secured.GET("/reports/:tag/audits", middleware.RequireRoles(models.RoleAdmin), reportHandler.Audits)
	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
