package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/ielts-practice/reading-service/internal/config"
	"github.com/ielts-practice/reading-service/internal/repositories/postgres"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
	"github.com/ielts-practice/reading-service/internal/validator"
	"github.com/ielts-practice/reading-service/pkg"
)

// Regrades every completed attempt from its stored raw answers. Run after
// question edits or scoring changes so historical results match what the
// current definitions would award.
func main() {
	batchSize := flag.Int("batch-size", 100, "attempts loaded per database round trip")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewDefaultLogger()
	slogLogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogLogger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	attemptService := services.NewAttemptService(repo, slogLogger, validator.New(), publisher)

	result, err := attemptService.RecalculateScores(context.Background(), *batchSize)
	if err != nil {
		logger.Error("Recalculation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Recalculation finished",
		"processed", result.Processed,
		"updated", result.Updated,
		"failed", result.Failed,
		"duration", result.Duration.String())
}
