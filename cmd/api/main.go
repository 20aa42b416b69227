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

	_ "github.com/vidyalay/vidyalay-api/api/swagger"
	"github.com/vidyalay/vidyalay-api/internal/handler"
	"github.com/vidyalay/vidyalay-api/internal/middleware"
	"github.com/vidyalay/vidyalay-api/internal/models"
	"github.com/vidyalay/vidyalay-api/internal/repository"
	"github.com/vidyalay/vidyalay-api/internal/service"
	"github.com/vidyalay/vidyalay-api/pkg/cache"
	"github.com/vidyalay/vidyalay-api/pkg/config"
	"github.com/vidyalay/vidyalay-api/pkg/database"
	"github.com/vidyalay/vidyalay-api/pkg/logger"
	corsmiddleware "github.com/vidyalay/vidyalay-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vidyalay/vidyalay-api/pkg/middleware/requestid"
	"github.com/vidyalay/vidyalay-api/pkg/sms"
)

// @title Vidyalay API
// @version 1.0.0
// @description School attendance, ranking and dashboard service
// @BasePath /api
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
	defer db.Close()

	metricsService := service.NewMetricsService()

	// Redis is optional; without it dashboards are computed on every request.
	var cacheService *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheService = service.NewCacheService(nil, metricsService, cfg.Dashboard.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	}

	attendanceRepo := repository.NewAttendanceRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	userRepo := repository.NewUserRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	smsSender := sms.NewFromConfig(cfg.SMS, logr)
	notificationService := service.NewNotificationService(smsSender, cfg.Notifications, cfg.SMS.CountryCode, metricsService, logr)
	notificationService.Start(ctx)
	defer notificationService.Stop()

	validate := validator.New()
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, classRepo, notificationService, validate, metricsService, logr)
	statsService := service.NewStatsService(attendanceRepo, studentRepo, logr)
	rankingService := service.NewRankingService(statsService, studentRepo, classRepo, schoolRepo, cfg.Ranking.TopLimit, logr)
	dashboardService := service.NewDashboardService(statsService, studentRepo, classRepo, schoolRepo, cacheService, service.DashboardServiceConfig{
		CacheTTL:  cfg.Dashboard.CacheTTL,
		TrendDays: cfg.Dashboard.TrendDays,
	}, logr)
	rosterService := service.NewRosterService(studentRepo, classRepo, logr)
	authService := service.NewAuthService(userRepo, service.AuthServiceConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	}, logr)

	attendanceHandler := handler.NewAttendanceHandler(attendanceService, rankingService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	rosterHandler := handler.NewRosterHandler(rosterService)
	authHandler := handler.NewAuthHandler(authService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	authed.GET("/auth/me", authHandler.Me)

	authed.POST("/attendance/mark", middleware.RequireRoles(models.RoleTeacher), attendanceHandler.Mark)
	authed.GET("/attendance", attendanceHandler.List)
	authed.GET("/attendance/export", middleware.RequireRoles(models.RoleTeacher, models.RolePrincipal), attendanceHandler.Export)
	authed.POST("/attendance/update/class-top", middleware.RequireRoles(models.RoleTeacher, models.RolePrincipal), attendanceHandler.UpdateClassTop)
	authed.POST("/attendance/update/school-top", middleware.RequireRoles(models.RolePrincipal), attendanceHandler.UpdateSchoolTop)

	authed.GET("/principal/dashboard", middleware.RequireRoles(models.RolePrincipal), dashboardHandler.Principal)
	authed.GET("/teacher/dashboard", middleware.RequireRoles(models.RoleTeacher), dashboardHandler.Teacher)

	authed.GET("/classes/:id/students", middleware.RequireRoles(models.RoleTeacher, models.RolePrincipal), rosterHandler.ClassStudents)
	authed.GET("/schools/:id/classes", middleware.RequireRoles(models.RolePrincipal), rosterHandler.SchoolClasses)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
