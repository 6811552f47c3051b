package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*models.Question, error) {
	s.logger.Info("Creating question", "kind", req.Kind, "passage_id", req.PassageID, "creator_id", creatorID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.repo.Passage().GetByID(ctx, req.PassageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPassageNotFound
		}
		return nil, fmt.Errorf("failed to get passage: %w", err)
	}

	question := s.buildQuestion(req, creatorID)
	if err := s.prepareAndValidate(question); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	return question, nil
}

func (s *questionService) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *CreateQuestionRequest, userID string) (*models.Question, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	question := s.buildQuestion(req, existing.CreatedBy)
	question.ID = existing.ID
	question.CreatedAt = existing.CreatedAt
	if err := s.prepareAndValidate(question); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	return question, nil
}

func (s *questionService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	referenced, err := s.repo.Test().ReferencesQuestion(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check question usage: %w", err)
	}
	if referenced {
		return ErrQuestionNotDeletable
	}

	return s.repo.Question().Delete(ctx, id)
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	return s.repo.Question().List(ctx, filters)
}

func (s *questionService) GetByPassage(ctx context.Context, passageID uint) ([]*models.Question, error) {
	return s.repo.Question().GetByPassage(ctx, passageID)
}

// KindCounts reports how many questions exist per kind, for the authoring
// dashboard.
func (s *questionService) KindCounts(ctx context.Context) (map[models.QuestionKind]int, error) {
	counts, err := s.repo.Question().CountByKind(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions by kind: %w", err)
	}
	return counts, nil
}

// buildQuestion maps the authored request onto the model.
func (s *questionService) buildQuestion(req *CreateQuestionRequest, creatorID string) *models.Question {
	question := &models.Question{
		PassageID:         req.PassageID,
		Title:             req.Title,
		Kind:              req.Kind,
		Text:              req.Text,
		Options:           datatypes.NewJSONSlice(req.Options),
		AcceptableAnswers: datatypes.NewJSONSlice(req.AcceptableAnswers),
		BlankOptions:      datatypes.NewJSONSlice(req.BlankOptions),
		OneWordAnswers:    datatypes.NewJSONSlice(req.OneWordAnswers),
		WordLimits:        datatypes.NewJSONSlice(req.WordLimits),
		BlankNumbers:      datatypes.NewJSONSlice(req.BlankNumbers),
		WordLimit:         req.WordLimit,
		Score:             req.Score,
		Order:             req.Order,
		CreatedBy:         creatorID,
	}
	if req.MatchingOptions != nil {
		question.MatchingOptions = datatypes.NewJSONType(*req.MatchingOptions)
	}
	if len(req.CorrectAnswer) > 0 {
		question.CorrectAnswer = datatypes.JSON(req.CorrectAnswer)
	}
	return question
}

// prepareAndValidate builds the canonical correct answer and runs the
// kind-specific authoring gate. Nothing reaches storage without passing it.
func (s *questionService) prepareAndValidate(question *models.Question) error {
	if err := question.BuildCorrectAnswer(); err != nil {
		return fmt.Errorf("failed to build correct answer: %w", err)
	}
	if errs := s.validator.Question().ValidateQuestion(question); len(errs) > 0 {
		return errs
	}
	return nil
}
