// Package main runs the event platform HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatherly/backend/config"
	"github.com/gatherly/backend/internal/categories"
	"github.com/gatherly/backend/internal/compilations"
	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/requests"
	"github.com/gatherly/backend/internal/stats"
	"github.com/gatherly/backend/internal/users"
	"github.com/gatherly/backend/pkg/database"
	"github.com/gatherly/backend/pkg/redis"
	"github.com/gatherly/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	viewsCache := rdb.Client
	if cfg.Stats.CacheTTLSec <= 0 {
		viewsCache = nil
	}
	statsClient := stats.NewClient(
		cfg.Stats.BaseURL,
		cfg.Stats.AppName,
		time.Duration(cfg.Stats.TimeoutSec)*time.Second,
		viewsCache,
		time.Duration(cfg.Stats.CacheTTLSec)*time.Second,
		logger,
	)

	userRepo := users.NewRepository(pool)
	userHandler := users.NewHandler(userRepo, logger)

	categoryRepo := categories.NewRepository(pool)
	categoryHandler := categories.NewHandler(categoryRepo, logger)

	requestRepo := requests.NewRepository(pool)
	requestService := requests.NewService(requestRepo, logger)
	requestHandler := requests.NewHandler(requestService, logger)

	eventRepo := events.NewRepository(pool)
	eventService := events.NewService(eventRepo, categoryRepo, userRepo, requestRepo, statsClient, logger)
	eventHandler := events.NewHandler(eventService, statsClient, logger)

	compilationRepo := compilations.NewRepository(pool)
	compilationHandler := compilations.NewHandler(compilationRepo, eventService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public
	router.GET("/events", eventHandler.PublicList)
	router.GET("/events/:eventId", eventHandler.PublicGet)
	router.GET("/categories", categoryHandler.List)
	router.GET("/categories/:catId", categoryHandler.Get)
	router.GET("/compilations", compilationHandler.List)
	router.GET("/compilations/:compId", compilationHandler.Get)

	// Owner and requester operations
	userGroup := router.Group("/users/:userId")
	{
		userGroup.POST("/events", eventHandler.Create)
		userGroup.GET("/events", eventHandler.ListOwn)
		userGroup.GET("/events/:eventId", eventHandler.GetOwn)
		userGroup.PATCH("/events/:eventId", eventHandler.UpdateOwn)
		userGroup.GET("/events/:eventId/requests", requestHandler.ListForEvent)
		userGroup.PATCH("/events/:eventId/requests", requestHandler.ChangeStatus)

		userGroup.POST("/requests", requestHandler.Create)
		userGroup.GET("/requests", requestHandler.List)
		userGroup.PATCH("/requests/:requestId/cancel", requestHandler.Cancel)
	}

	// Admin
	admin := router.Group("/admin")
	{
		admin.POST("/users", userHandler.Create)
		admin.GET("/users", userHandler.List)
		admin.DELETE("/users/:userId", userHandler.Delete)

		admin.POST("/categories", categoryHandler.Create)
		admin.PATCH("/categories/:catId", categoryHandler.Update)
		admin.DELETE("/categories/:catId", categoryHandler.Delete)

		admin.GET("/events", eventHandler.AdminSearch)
		admin.PATCH("/events/:eventId", eventHandler.AdminUpdate)

		admin.POST("/compilations", compilationHandler.Create)
		admin.PATCH("/compilations/:compId", compilationHandler.Update)
		admin.DELETE("/compilations/:compId", compilationHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
