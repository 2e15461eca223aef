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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-risk-api/api/swagger"
	"github.com/noah-isme/sma-risk-api/internal/handler"
	"github.com/noah-isme/sma-risk-api/internal/middleware"
	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/repository"
	"github.com/noah-isme/sma-risk-api/internal/service"
	"github.com/noah-isme/sma-risk-api/pkg/cache"
	"github.com/noah-isme/sma-risk-api/pkg/config"
	"github.com/noah-isme/sma-risk-api/pkg/database"
	"github.com/noah-isme/sma-risk-api/pkg/firestore"
	"github.com/noah-isme/sma-risk-api/pkg/jobs"
	"github.com/noah-isme/sma-risk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-risk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-risk-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-risk-api/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// @title SMA Risk API
// @version 1.0.0
// @description Academic and behavioural risk scoring for students
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	readiness := []handler.ReadinessCheck{{Name: "postgres", Check: db.PingContext}}

	screeningRepo := repository.NewScreeningRepository(db)
	source, closeSource := snapshotSource(ctx, cfg, db, screeningRepo, logr)
	defer closeSource()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo *repository.CacheRepository
	if redisClient, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, risk cache disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		readiness = append(readiness, handler.ReadinessCheck{Name: "redis", Check: cacheRepo.Ping})
	}
	var cacheStore service.CacheRepository
	if cacheRepo != nil {
		cacheStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Risk.CacheTTL, logr, cacheRepo != nil)

	riskSvc := service.NewRiskService(
		source,
		repository.NewAssessmentRepository(db),
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.RiskServiceConfig{
			SourceName:     cfg.Risk.Source,
			CacheTTL:       cfg.Risk.CacheTTL,
			HistoryEnabled: cfg.Risk.HistoryEnabled,
			Keywords:       cfg.Risk.BehaviorKeywords,
		},
	)
	screeningSvc := service.NewScreeningService(source, screeningRepo, riskSvc, validate, logr)

	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	riskHandler := handler.NewRiskHandler(riskSvc)
	screeningHandler := handler.NewScreeningHandler(screeningSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness...)

	var reportHandler *handler.ReportHandler
	var queue *jobs.Queue
	if cfg.Reports.Enabled {
		reportHandler, queue = setupReports(ctx, cfg, db, riskSvc, metricsSvc, validate, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if reportHandler != nil {
		api.GET("/export/:token", reportHandler.DownloadReport)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	readers := secured.Group("")
	readers.Use(middleware.RequireRoles(models.RiskReaders...))
	readers.GET("/groups/:groupId/partials/:partialId/risk", riskHandler.GroupRisk)
	readers.GET("/groups/:groupId/partials/:partialId/students/:studentId/risk", riskHandler.StudentRisk)
	readers.GET("/groups/:groupId/partials/:partialId/students/:studentId/referral", riskHandler.StudentReferral)
	readers.POST("/risk/analyze", riskHandler.Analyze)
	readers.POST("/risk/irc", riskHandler.IRC)
	if reportHandler != nil {
		readers.POST("/reports", reportHandler.GenerateReport)
		readers.GET("/reports/:id", reportHandler.ReportStatus)
	}

	secured.GET("/students/:studentId/risk/history",
		middleware.RequireRolesOrSelf("studentId", models.RiskReaders...), riskHandler.History)

	admins := secured.Group("")
	admins.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	admins.POST("/screenings", screeningHandler.Create)
	admins.GET("/metrics/system", metricsHandler.System)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "source", cfg.Risk.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
}

// snapshotBackend scores groups and resolves student enrolment from the same store.
type snapshotBackend interface {
	service.SnapshotSource
	service.StudentGroupResolver
}

// snapshotSource picks the snapshot loader named by RISK_SOURCE. Screenings are always stored
// in postgres, so the firestore loader merges them back in.
func snapshotSource(ctx context.Context, cfg *config.Config, db *sqlx.DB, screenings *repository.ScreeningRepository, logr *zap.Logger) (snapshotBackend, func()) {
	if cfg.Risk.Source != config.SourceFirestore {
		return repository.NewSnapshotRepository(db, logr), func() {}
	}
	client, err := firestore.NewClient(ctx, cfg.Firestore)
	if err != nil {
		logr.Fatal("failed to connect to firestore", zap.Error(err))
	}
	return repository.NewFirestoreSnapshotRepository(client, screenings, logr), func() { _ = client.Close() }
}

func setupReports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	riskSvc *service.RiskService,
	metricsSvc *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) (*handler.ReportHandler, *jobs.Queue) {
	localStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(riskSvc, localStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	reportRepo := repository.NewReportRepository(db)
	worker := service.NewReportWorker(reportRepo, exportSvc, metricsSvc, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
		OnDrop:     worker.MarkFailed,
	})
	queue.Start(ctx)

	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	return handler.NewReportHandler(reportSvc), queue
}
