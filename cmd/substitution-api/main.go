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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-substitution-api/api/swagger"
	"github.com/noah-isme/sma-substitution-api/internal/handler"
	"github.com/noah-isme/sma-substitution-api/internal/middleware"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	"github.com/noah-isme/sma-substitution-api/pkg/cache"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	"github.com/noah-isme/sma-substitution-api/pkg/database"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
	"github.com/noah-isme/sma-substitution-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-substitution-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-substitution-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-substitution-api/pkg/seed"
)

// @title SMA Substitution API
// @version 1.0.0
// @description Timetable substitute-teacher and absence workflow service
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	validate := validator.New()

	data, err := seed.Load(cfg.Timetable.SeedFile)
	if err != nil {
		return err
	}
	store, err := repository.NewTimetableStore(data.Timetable, models.Weekdays, data.PeriodsPerDay)
	if err != nil {
		return err
	}
	teachers, err := repository.NewTeacherDirectory(data.Teachers)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, export cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "substitution:")
	defer cacheRepo.Close() //nolint:errcheck
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Redis.CacheTTL, logr, redisClient != nil)

	var audit *repository.AuditRepository
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect audit database: %w", err)
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			return err
		}
		audit = repository.NewAuditRepository(db)
		checks["postgres"] = db.PingContext
	}

	notifications := service.NewNotificationService(repository.NewNotificationRepository(), auditSink(audit), metrics, logr)
	directory := service.NewDirectoryService(teachers, data.SubjectDepartments, data.DepartmentHeads, logr)
	availability := service.NewAvailabilityService(store, teachers, cfg.Availability.Scope, logr)
	selector := newSelector(cfg.Selector, store, metrics, logr)

	absences := service.NewAbsenceService(
		repository.NewAbsenceRepository(),
		store,
		availability,
		selector,
		notifications,
		directory,
		absenceAuditSink(audit),
		metrics,
		validate,
		logr,
		service.AbsenceOptions{Cutoff: cfg.Absence.ReportCutoff, Location: cfg.Timetable.Location()},
	)
	timetable := service.NewTimetableService(store, directory, notifications, cacheSvc, validate, logr)
	auth := service.NewAuthService(validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	if cfg.Absence.AutoResolve {
		worker := service.NewResolutionWorker(absences, logr)
		queue := jobs.NewQueue("absence-resolution", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Absence.Workers,
			MaxRetries: cfg.Absence.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		worker.SetQueue(queue)
		absences.SetDispatcher(worker)

		sweeper := service.NewPendingSweeper(cfg.Absence.SweepSchedule, 0, cfg.Timetable.Location(), absences, worker, logr)
		if err := sweeper.Start(); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	router := newRouter(cfg, logr, routes{
		metrics:       handler.NewMetricsHandler(metrics, checks),
		timetable:     handler.NewTimetableHandler(timetable),
		absences:      handler.NewAbsenceHandler(absences),
		directory:     handler.NewDirectoryHandler(directory, availability),
		notifications: handler.NewNotificationHandler(notifications),
		auth:          handler.NewAuthHandler(auth),
		validator:     auth,
		observer:      metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
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

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSelector(cfg config.SelectorConfig, store *repository.TimetableStore, metrics *service.MetricsService, logr *zap.Logger) *service.SubstituteSelector {
	deterministic := service.NewDeterministicRanker(store)
	var primary service.Ranker = deterministic
	if cfg.Mode == config.SelectorRemote && cfg.URL != "" {
		primary = service.NewRemoteRanker(cfg.URL, cfg.APIKey, cfg.Timeout, logr)
	}
	return service.NewSubstituteSelector(primary, deterministic, service.SelectorOptions{
		Timeout:  cfg.Timeout,
		Fallback: cfg.Fallback,
		Metrics:  metrics,
		Logger:   logr,
	})
}

// A nil *AuditRepository must not reach the services as a non-nil interface.
func auditSink(audit *repository.AuditRepository) interface {
	RecordNotification(ctx context.Context, n models.Notification) error
} {
	if audit == nil {
		return nil
	}
	return audit
}

func absenceAuditSink(audit *repository.AuditRepository) interface {
	RecordAbsence(ctx context.Context, req models.AbsenceRequest) error
} {
	if audit == nil {
		return nil
	}
	return audit
}

type routes struct {
	metrics       *handler.MetricsHandler
	timetable     *handler.TimetableHandler
	absences      *handler.AbsenceHandler
	directory     *handler.DirectoryHandler
	notifications *handler.NotificationHandler
	auth          *handler.AuthHandler
	validator     middleware.TokenValidator
	observer      middleware.RequestObserver
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(h.observer))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		r.POST(cfg.APIPrefix+"/auth/dev-token", h.auth.IssueToken)
	}

	const (
		admin   = models.RoleAdmin
		hod     = models.RoleHOD
		teacher = models.RoleTeacher
		student = models.RoleStudent
	)
	api := r.Group(cfg.APIPrefix, middleware.JWT(h.validator))

	api.GET("/timetable", h.timetable.Get)
	api.GET("/timetable/export", middleware.RequireRoles(admin, hod), h.timetable.Export)
	api.PUT("/timetable/:day/:period", middleware.RequireRoles(admin), h.timetable.UpdateSlot)
	api.GET("/reference", h.timetable.Reference)

	api.GET("/teachers", middleware.RequireRoles(admin, hod, teacher), h.directory.Teachers)
	api.GET("/availability", middleware.RequireRoles(admin, hod, teacher), h.directory.Availability)

	absences := api.Group("/absences")
	absences.POST("", middleware.RequireRoles(admin, hod), h.absences.Report)
	absences.POST("/tomorrow", middleware.RequireRoles(teacher), h.absences.ReportTomorrow)
	absences.GET("", middleware.RequireRoles(admin, hod, teacher), h.absences.List)
	absences.GET("/:id", middleware.RequireRoles(admin, hod, teacher), h.absences.Get)
	absences.POST("/:id/resolve", middleware.RequireRoles(admin, hod), h.absences.Resolve)

	api.GET("/notifications", middleware.RequireRoles(admin, hod, teacher, student), h.notifications.List)
	api.GET("/stats", middleware.RequireRoles(admin), h.metrics.Stats)

	return r
}
