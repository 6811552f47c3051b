package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"gorm.io/gorm"
)

type userService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewUserService(repo repositories.Repository, logger *slog.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger,
	}
}

// Sync refreshes the local mirror of an identity-provider account. Called
// on every authenticated request, so it never fails the request; a
// database hiccup only loses one login timestamp.
func (s *userService) Sync(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return NewValidationError("id", "user id is required", user.ID)
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now()
	user.LastLoginAt = &now

	if err := s.repo.User().Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to sync user: %w", err)
	}
	return nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
