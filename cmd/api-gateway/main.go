package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edutrack/gradebook-api/api/swagger"
	"github.com/edutrack/gradebook-api/internal/handler"
	"github.com/edutrack/gradebook-api/internal/middleware"
	"github.com/edutrack/gradebook-api/internal/models"
	"github.com/edutrack/gradebook-api/internal/repository"
	"github.com/edutrack/gradebook-api/internal/service"
	"github.com/edutrack/gradebook-api/pkg/cache"
	"github.com/edutrack/gradebook-api/pkg/config"
	"github.com/edutrack/gradebook-api/pkg/database"
	"github.com/edutrack/gradebook-api/pkg/logger"
	corsmiddleware "github.com/edutrack/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edutrack/gradebook-api/pkg/middleware/requestid"
)

// @title Gradebook API
// @version 1.0.0
// @description Multi-tenant assessment scoring and gradebook service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	scaleRepo := repository.NewGradeScaleRepository(db)
	overrideRepo := repository.NewGradeOverrideRepository(db)

	notifier := service.NewLogNotifier(logr)
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, redisClient, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	assessmentSvc := service.NewAssessmentService(assessmentRepo, validate, logr, notifier)
	scoreSvc := service.NewScoreService(scoreRepo, assessmentRepo, validate, logr, cfg.Grading.HistoryReason)
	scaleSvc := service.NewGradeScaleService(scaleRepo, redisClient, cfg.Grading.ScaleCacheTTL, validate, logr)
	overrideSvc := service.NewGradeOverrideService(overrideRepo, validate, logr, notifier)
	gradeSvc := service.NewGradeService(assessmentRepo, scoreRepo, overrideRepo, scaleSvc, logr)
	exportSvc := service.NewExportService(gradeSvc, cfg.Exports.PDFTitle, cfg.Exports.MaxGridRows, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	assessmentHandler := handler.NewAssessmentHandler(assessmentSvc)
	scoreHandler := handler.NewScoreHandler(scoreSvc)
	gradebookHandler := handler.NewGradebookHandler(gradeSvc, exportSvc)
	scaleHandler := handler.NewGradeScaleHandler(scaleSvc)
	overrideHandler := handler.NewGradeOverrideHandler(overrideSvc)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.JWT(authSvc))
	api.Use(middleware.Tenant())
	{
		assessments := api.Group("/assessments")
		{
			assessments.GET("", assessmentHandler.List)
			assessments.POST("", assessmentHandler.Create)
			assessments.DELETE("/bulk", middleware.RBAC(models.RoleAdmin), assessmentHandler.BulkDelete)
			assessments.GET("/:id", assessmentHandler.Get)
			assessments.PUT("/:id", assessmentHandler.Update)
			assessments.PUT("/:id/publish", assessmentHandler.Publish)
			assessments.POST("/:id/components", assessmentHandler.AddComponent)
			assessments.DELETE("/:id/components/:componentId", assessmentHandler.RemoveComponent)
			assessments.POST("/:id/duplicate", assessmentHandler.Duplicate)
			assessments.POST("/:id/copy", assessmentHandler.CopyToClass)

			assessments.GET("/:id/scores", scoreHandler.List)
			assessments.POST("/:id/scores", scoreHandler.Record)
			assessments.POST("/:id/scores/bulk", scoreHandler.RecordBatch)
			assessments.GET("/:id/scores/:studentId/history", scoreHandler.History)
			assessments.GET("/:id/distribution", gradebookHandler.Distribution)
		}

		gradebook := api.Group("/gradebook")
		{
			gradebook.GET("/grid", gradebookHandler.Grid)
			gradebook.GET("/grid/export/csv", gradebookHandler.ExportCSV)
			gradebook.GET("/grid/export/pdf", gradebookHandler.ExportPDF)
			gradebook.GET("/students/:studentId/final", gradebookHandler.FinalGrade)
		}

		scales := api.Group("/grade-scales")
		{
			scales.GET("", scaleHandler.List)
			scales.POST("", middleware.RBAC(models.RoleAdmin), scaleHandler.Create)
			scales.GET("/:id", scaleHandler.Get)
			scales.PUT("/:id", middleware.RBAC(models.RoleAdmin), scaleHandler.Update)
			scales.PUT("/:id/default", middleware.RBAC(models.RoleAdmin), scaleHandler.SetDefault)
			scales.DELETE("/:id", middleware.RBAC(models.RoleAdmin), scaleHandler.Delete)
		}

		overrides := api.Group("/grade-overrides")
		{
			overrides.POST("", overrideHandler.Create)
			overrides.GET("/pending", overrideHandler.ListPending)
			overrides.GET("/:id", overrideHandler.Get)
			overrides.PUT("/:id/approve", middleware.RBAC(models.RoleAdmin), overrideHandler.Approve)
			overrides.DELETE("/:id", overrideHandler.Delete)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
