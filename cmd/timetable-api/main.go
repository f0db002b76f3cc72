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

	_ "github.com/campus-adp/timetable-api/api/swagger"
	"github.com/campus-adp/timetable-api/internal/delivery"
	"github.com/campus-adp/timetable-api/internal/handler"
	"github.com/campus-adp/timetable-api/internal/middleware"
	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/internal/repository"
	"github.com/campus-adp/timetable-api/internal/service"
	"github.com/campus-adp/timetable-api/pkg/cache"
	"github.com/campus-adp/timetable-api/pkg/config"
	"github.com/campus-adp/timetable-api/pkg/database"
	"github.com/campus-adp/timetable-api/pkg/export"
	"github.com/campus-adp/timetable-api/pkg/logger"
	corsmiddleware "github.com/campus-adp/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-adp/timetable-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Timetable scheduling and notification fan-out service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, unread counters uncached", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	txRunner := repository.NewTxRunner(db)
	sessionRepo := repository.NewSessionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	cohortRepo := repository.NewCohortRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	unreadCache := repository.NewUnreadCache(redisClient, cfg.Notifications.UnreadCacheTTL, logr)

	// Delivery dispatcher.
	dispatcher := delivery.NewDispatcher(delivery.NewLogDeliverer(logr), delivery.Config{
		Workers:    cfg.Delivery.Workers,
		BufferSize: cfg.Delivery.BufferSize,
		MaxRetries: cfg.Delivery.MaxRetries,
		RetryDelay: cfg.Delivery.RetryDelay,
		Logger:     logr,
	})
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	metricsSvc := service.NewMetricsService(dispatcher.Depth)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, unreadCache, metricsSvc, validate, logr)
	resolver := service.NewRecipientResolver(userRepo)
	sessionSvc := service.NewSessionService(service.SessionServiceDeps{
		Tx:            txRunner,
		Sessions:      sessionRepo,
		Assignments:   assignmentRepo,
		Resolver:      resolver,
		Notifications: notificationSvc,
		Users:         userRepo,
		Subjects:      subjectRepo,
		Rooms:         roomRepo,
		Cohorts:       cohortRepo,
		Availability:  availabilityRepo,
		Dispatcher:    dispatcher,
		Invalidator:   notificationSvc,
		Metrics:       metricsSvc,
	}, validate, logr)
	cohortSvc := service.NewCohortService(cohortRepo, validate, logr)
	catalogSvc := service.NewCatalogService(subjectRepo, roomRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, userRepo, validate, logr)
	exportSvc := service.NewExportService(sessionRepo, export.NewCSVRenderer(), export.NewPDFRenderer(), logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	cohortHandler := handler.NewCohortHandler(cohortSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		authed := api.Group("")
		authed.Use(middleware.JWT(authSvc))
		{
			authed.GET("/auth/me", authHandler.Me)

			authed.GET("/sessions", sessionHandler.List)
			authed.GET("/sessions/cohort", sessionHandler.ListForCohort)
			authed.GET("/sessions/:id", sessionHandler.Get)

			authed.GET("/notifications", notificationHandler.List)
			authed.GET("/notifications/unread-count", notificationHandler.UnreadCount)
			authed.POST("/notifications/:id/read", notificationHandler.MarkRead)

			authed.GET("/programs", cohortHandler.ListPrograms)
			authed.GET("/levels", cohortHandler.ListLevels)
			authed.GET("/groups", cohortHandler.ListGroups)

			authed.GET("/subjects", catalogHandler.ListSubjects)
			authed.GET("/subjects/:id", catalogHandler.GetSubject)
			authed.GET("/rooms", catalogHandler.ListRooms)

			authed.GET("/instructors/:id/availability", availabilityHandler.ListByInstructor)
			authed.POST("/availability", availabilityHandler.Create)

			authed.GET("/export/timetable", exportHandler.Timetable)

			admin := authed.Group("")
			admin.Use(middleware.RequireRoles(models.RoleAdmin))
			{
				admin.POST("/sessions", sessionHandler.Create)
				admin.PUT("/sessions/:id", sessionHandler.Update)
				admin.DELETE("/sessions/:id", sessionHandler.Cancel)

				admin.POST("/notifications/broadcast", notificationHandler.Broadcast)
				admin.DELETE("/notifications/broadcast/:id", notificationHandler.DeleteBroadcast)

				admin.POST("/programs", cohortHandler.CreateProgram)
				admin.DELETE("/programs/:id", cohortHandler.DeleteProgram)
				admin.POST("/levels", cohortHandler.CreateLevel)
				admin.DELETE("/levels/:id", cohortHandler.DeleteLevel)
				admin.POST("/groups", cohortHandler.CreateGroup)
				admin.DELETE("/groups/:id", cohortHandler.DeleteGroup)

				admin.POST("/subjects", catalogHandler.CreateSubject)
				admin.POST("/rooms", catalogHandler.CreateRoom)

				admin.DELETE("/availability/:id", availabilityHandler.Delete)
			}
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
