package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ielts-practice/reading-service/internal/cache"
	"github.com/ielts-practice/reading-service/internal/config"
	"github.com/ielts-practice/reading-service/internal/handlers"
	"github.com/ielts-practice/reading-service/internal/repositories/postgres"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
	"github.com/ielts-practice/reading-service/internal/validator"
	"github.com/ielts-practice/reading-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.IsDevelopment() {
		logger = utils.NewDevelopmentLogger()
	} else {
		logger = utils.NewDefaultLogger()
	}
	slogLogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pkg.MigrateDatabase(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	var cacheService cache.CacheService = cache.NoopCache{}
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, running without cache", "error", err)
	} else {
		cacheService = cache.NewRedisCache(redisClient, slogLogger)
		defer redisClient.Close()
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogLogger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	v := validator.New()

	passageService := services.NewPassageService(repo, slogLogger, v)
	questionService := services.NewQuestionService(repo, slogLogger, v)
	testService := services.NewTestService(repo, slogLogger, v, cacheService)
	attemptService := services.NewAttemptService(repo, slogLogger, v, publisher)
	importExportService := services.NewImportExportService(repo, slogLogger, v, publisher)
	userService := services.NewUserService(repo, slogLogger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(utils.ContextLogger(logger))

	handlerManager := handlers.NewHandlerManager(
		passageService,
		questionService,
		testService,
		attemptService,
		importExportService,
		userService,
		handlers.NewCasdoorClient(cfg),
		logger,
	)
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
