package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/san-edu/registrar-api/api/swagger"
	"github.com/san-edu/registrar-api/internal/handler"
	"github.com/san-edu/registrar-api/internal/middleware"
	"github.com/san-edu/registrar-api/internal/repository"
	"github.com/san-edu/registrar-api/internal/schedule"
	"github.com/san-edu/registrar-api/internal/service"
	"github.com/san-edu/registrar-api/pkg/cache"
	"github.com/san-edu/registrar-api/pkg/config"
	"github.com/san-edu/registrar-api/pkg/database"
	"github.com/san-edu/registrar-api/pkg/logger"
	corsmiddleware "github.com/san-edu/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/san-edu/registrar-api/pkg/middleware/requestid"
)

// @title Registrar API
// @version 1.0.0
// @description Course registration service
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	cacheSvc := service.NewCacheService(nil, metricsSvc, cfg.Catalog.CacheTTL, logr, false)
	if cfg.Catalog.CacheEnabled {
		redisClient, redisErr := cache.NewRedis(cfg.Redis)
		if redisErr != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(redisErr))
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, true)
		}
	}

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	advisingRepo := repository.NewAdvisingRepository(db)

	validate := validator.New()
	normalizer := schedule.NewNormalizer(schedule.DefaultRules(), logr)
	scheduleValidator := schedule.NewValidator(normalizer)

	registrationSvc := service.NewRegistrationService(db, courseRepo, enrollmentRepo, scheduleValidator, cfg.Registration, validate, logr)
	catalogSvc := service.NewCatalogService(courseRepo, cacheSvc, logr)
	advisingSvc := service.NewAdvisingService(advisingRepo, enrollmentRepo, validate, logr)
	exportSvc := service.NewScheduleExportService(enrollmentRepo, normalizer, logr)
	authSvc := service.NewAuthService(cfg.JWT, logr)

	registrationHandler := handler.NewRegistrationHandler(registrationSvc, metricsSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	advisingHandler := handler.NewAdvisingHandler(advisingSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	systemHandler := handler.NewSystemHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.GET("/courses", catalogHandler.List)
		api.GET("/courses/:id", catalogHandler.Get)
		api.PUT("/courses/:id/capacity", middleware.RequireRole("admin", "registrar"), catalogHandler.UpdateCapacity)

		api.POST("/students/:id/registrations", registrationHandler.Register)
		api.POST("/students/:id/registrations/validate", registrationHandler.Validate)
		api.DELETE("/students/:id/registrations/:courseId", registrationHandler.Drop)
		api.DELETE("/students/:id/registrations", registrationHandler.DropSemester)

		if cfg.Advising.Enabled {
			api.GET("/students/:id/advising-access", advisingHandler.CheckAccess)
			api.GET("/advising-windows", advisingHandler.ListWindows)
			api.POST("/advising-windows", middleware.RequireRole("admin", "registrar"), advisingHandler.CreateWindow)
			api.DELETE("/advising-windows/:id", middleware.RequireRole("admin", "registrar"), advisingHandler.DeleteWindow)
		}

		if cfg.Exports.Enabled {
			api.GET("/students/:id/schedule/export", exportHandler.Export)
		}

		api.GET("/status", middleware.RequireRole("admin", "registrar"), systemHandler.Status)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
