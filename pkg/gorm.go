package pkg

import (
	"fmt"

	"github.com/ielts-practice/reading-service/internal/config"
	"github.com/ielts-practice/reading-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	} else {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// MigrateDatabase creates or updates the schema for every persisted model.
func MigrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ReadingPassage{},
		&models.Question{},
		&models.Test{},
		&models.TestPool{},
		&models.UserAttempt{},
		&models.User{},
	)
}
