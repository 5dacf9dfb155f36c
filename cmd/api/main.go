package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/oXide0/simplicity/api/swagger"
	"github.com/oXide0/simplicity/internal/handler"
	internalmiddleware "github.com/oXide0/simplicity/internal/middleware"
	"github.com/oXide0/simplicity/internal/realtime"
	"github.com/oXide0/simplicity/internal/repository"
	"github.com/oXide0/simplicity/internal/seed"
	"github.com/oXide0/simplicity/internal/service"
	"github.com/oXide0/simplicity/pkg/config"
	"github.com/oXide0/simplicity/pkg/database"
	"github.com/oXide0/simplicity/pkg/logger"
	corsmiddleware "github.com/oXide0/simplicity/pkg/middleware/cors"
	reqidmiddleware "github.com/oXide0/simplicity/pkg/middleware/requestid"
)

// @title Simplicity Announcements API
// @version 1.0.0
// @description CRUD API for company announcements with real-time create notifications
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	if cfg.Seed.OnStart {
		if err := seed.Run(ctx, db, logr); err != nil {
			logr.Sugar().Fatalw("failed to seed database", "error", err)
		}
	}

	metricsSvc := service.NewMetricsService()

	hub := realtime.NewHub(logr, metricsSvc, realtime.Options{
		WriteTimeout:   cfg.Websocket.WriteTimeout,
		PongTimeout:    cfg.Websocket.PongTimeout,
		SendBufferSize: cfg.Websocket.SendBufferSize,
	})
	go hub.Run(ctx)

	validate := validator.New()
	announcementSvc := service.NewAnnouncementService(repository.NewAnnouncementRepository(db), validate, logr)
	categorySvc := service.NewCategoryService(repository.NewCategoryRepository(db))

	announcementHandler := handler.NewAnnouncementHandler(announcementSvc, hub, logr)
	categoryHandler := handler.NewCategoryHandler(categorySvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

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

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.GET("/ws", realtime.Handler(hub, logr))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/announcements", announcementHandler.List)
		api.GET("/announcements/:id", announcementHandler.Get)
		api.POST("/announcements", announcementHandler.Create)
		api.PUT("/announcements/:id", announcementHandler.Update)
		api.DELETE("/announcements/:id", announcementHandler.Delete)
		api.GET("/categories", categoryHandler.List)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
