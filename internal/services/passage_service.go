package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/validator"
	"gorm.io/gorm"
)

type passageService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewPassageService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) PassageService {
	return &passageService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *passageService) Create(ctx context.Context, req *CreatePassageRequest, creatorID string) (*models.ReadingPassage, error) {
	s.logger.Info("Creating reading passage", "title", req.Title, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	passage := &models.ReadingPassage{
		Title:     req.Title,
		Content:   req.Content,
		CreatedBy: creatorID,
	}

	if err := s.repo.Passage().Create(ctx, passage); err != nil {
		return nil, fmt.Errorf("failed to create passage: %w", err)
	}

	return passage, nil
}

func (s *passageService) GetByID(ctx context.Context, id uint) (*models.ReadingPassage, error) {
	passage, err := s.repo.Passage().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPassageNotFound
		}
		return nil, fmt.Errorf("failed to get passage: %w", err)
	}
	return passage, nil
}

func (s *passageService) GetByIDWithQuestions(ctx context.Context, id uint) (*models.ReadingPassage, error) {
	passage, err := s.repo.Passage().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPassageNotFound
		}
		return nil, fmt.Errorf("failed to get passage: %w", err)
	}
	return passage, nil
}

func (s *passageService) Update(ctx context.Context, id uint, req *UpdatePassageRequest, userID string) (*models.ReadingPassage, error) {
	s.logger.Info("Updating reading passage", "passage_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	passage, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		passage.Title = *req.Title
	}
	if req.Content != nil {
		passage.Content = *req.Content
	}

	if err := s.repo.Passage().Update(ctx, passage); err != nil {
		return nil, fmt.Errorf("failed to update passage: %w", err)
	}

	return passage, nil
}

func (s *passageService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting reading passage", "passage_id", id, "user_id", userID)

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	questions, err := s.repo.Question().GetByPassage(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check passage questions: %w", err)
	}
	if len(questions) > 0 {
		return ErrPassageNotDeletable
	}

	return s.repo.Passage().Delete(ctx, id)
}

func (s *passageService) List(ctx context.Context, filters repositories.PassageFilters) ([]*models.ReadingPassage, int64, error) {
	return s.repo.Passage().List(ctx, filters)
}
