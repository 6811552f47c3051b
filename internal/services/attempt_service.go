package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ielts-practice/reading-service/internal/events"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/scoring"
	"github.com/ielts-practice/reading-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// Start creates an in-progress attempt for the user, or resumes the
// existing one when the user already has an open attempt on the test.
func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, userID string) (*models.UserAttempt, error) {
	s.logger.Info("Starting attempt", "test_id", req.TestID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test, err := s.repo.Test().GetByID(ctx, req.TestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !test.Active {
		return nil, ErrTestNotActive
	}

	existing, err := s.repo.Attempt().GetActiveAttempt(ctx, userID, req.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}
	if existing != nil {
		s.logger.Info("Resuming active attempt", "attempt_id", existing.ID, "user_id", userID)
		return existing, nil
	}

	timeLimit, err := resolveTimeLimit(test, req.TimeLimitMinutes)
	if err != nil {
		return nil, err
	}

	attempt := &models.UserAttempt{
		UserID:             userID,
		TestID:             test.ID,
		TotalPossibleScore: test.TotalScore,
		Status:             models.AttemptInProgress,
		StartedAt:          time.Now(),
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.publishEvent(ctx, events.NewAttemptStartedEvent(attempt.ID, test.ID, test.Title, userID, attempt.StartedAt, timeLimit))

	return attempt, nil
}

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*models.UserAttempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithTest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptAccessDenied
	}
	return attempt, nil
}

// Submit grades the submitted answers against the test's current question
// definitions, persists the completed attempt, and returns the full result.
func (s *attemptService) Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, userID string) (*AttemptResult, error) {
	s.logger.Info("Submitting attempt", "attempt_id", attemptID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	attempt, err := s.GetByID(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	test, err := s.repo.Test().GetByID(ctx, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	graded, err := s.gradeAnswers(ctx, test, req.Answers)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	attempt.Answers = datatypes.NewJSONSlice(graded.answers)
	attempt.Score = graded.totals.TotalScore
	attempt.TotalPossibleScore = graded.totals.TotalPossibleScore
	attempt.PercentageScore = graded.totals.PercentageScore
	attempt.IELTSScore = graded.ielts.Band
	attempt.IELTSScore40 = graded.ielts.Score40
	attempt.TimeSpentSeconds = req.TimeSpentSeconds
	attempt.Status = models.AttemptCompleted
	attempt.CompletedAt = &now

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to save attempt: %w", err)
	}

	s.publishEvent(ctx, events.NewAttemptCompletedEvent(events.AttemptCompletedEvent{
		AttemptID:       attempt.ID,
		TestID:          test.ID,
		TestTitle:       test.Title,
		UserID:          userID,
		CompletedAt:     now,
		Score:           attempt.Score,
		TotalPossible:   attempt.TotalPossibleScore,
		PercentageScore: attempt.PercentageScore,
		IELTSBand:       attempt.IELTSScore,
		TimeSpent:       attempt.TimeSpentSeconds,
	}))

	s.logger.Info("Attempt completed",
		"attempt_id", attempt.ID,
		"score", attempt.Score,
		"total_possible", attempt.TotalPossibleScore,
		"ielts_band", attempt.IELTSScore)

	result := graded.toResult(test.ID, now)
	result.AttemptID = attempt.ID
	return result, nil
}

// SubmitGuest grades a submission against an active test without creating
// any attempt record. The result is identical to an authenticated
// submission except that no attempt ID is assigned.
func (s *attemptService) SubmitGuest(ctx context.Context, req *GuestSubmitRequest) (*AttemptResult, error) {
	s.logger.Info("Grading guest submission", "test_id", req.TestID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test, err := s.repo.Test().GetByID(ctx, req.TestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !test.Active {
		return nil, ErrTestNotActive
	}

	graded, err := s.gradeAnswers(ctx, test, req.Answers)
	if err != nil {
		return nil, err
	}

	return graded.toResult(test.ID, time.Now()), nil
}

func (s *attemptService) Abandon(ctx context.Context, attemptID uint, userID string) error {
	s.logger.Info("Abandoning attempt", "attempt_id", attemptID, "user_id", userID)

	attempt, err := s.GetByID(ctx, attemptID, userID)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}

	attempt.Status = models.AttemptAbandoned
	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to abandon attempt: %w", err)
	}
	return nil
}

func (s *attemptService) GetHistory(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.UserAttempt, int64, error) {
	return s.repo.Attempt().GetByUser(ctx, userID, filters)
}

func (s *attemptService) GetUserStats(ctx context.Context, userID string) (*repositories.UserAttemptStats, error) {
	stats, err := s.repo.Attempt().GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}

// RecalculateScores regrades completed attempts from their stored raw
// answers, in ID order, batchSize at a time. Attempts whose scores change
// (question edits, scoring fixes) are updated; the rest are left untouched.
func (s *attemptService) RecalculateScores(ctx context.Context, batchSize int) (*RecalculateResult, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	s.logger.Info("Starting score recalculation", "batch_size", batchSize)
	start := time.Now()
	result := &RecalculateResult{}

	var cursor uint
	for {
		batch, err := s.repo.Attempt().GetCompletedBatch(ctx, cursor, batchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load attempt batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, attempt := range batch {
			cursor = attempt.ID
			result.Processed++

			changed, err := s.regradeAttempt(ctx, attempt)
			if err != nil {
				result.Failed++
				s.logger.Error("Failed to regrade attempt", "attempt_id", attempt.ID, "error", err)
				continue
			}
			if changed {
				if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
					result.Failed++
					s.logger.Error("Failed to save regraded attempt", "attempt_id", attempt.ID, "error", err)
					continue
				}
				result.Updated++
			}
		}

		if len(batch) < batchSize {
			break
		}
	}

	result.Duration = time.Since(start)

	s.publishEvent(ctx, events.NewScoresRecalculatedEvent(events.ScoresRecalculatedEvent{
		Processed:    result.Processed,
		Updated:      result.Updated,
		Failed:       result.Failed,
		FinishedAt:   time.Now(),
		DurationSecs: result.Duration.Seconds(),
	}))

	s.logger.Info("Score recalculation finished",
		"processed", result.Processed,
		"updated", result.Updated,
		"failed", result.Failed,
		"duration", result.Duration)

	return result, nil
}

// regradeAttempt rescores one attempt in place from its stored raw answers.
// It reports whether any persisted field changed.
func (s *attemptService) regradeAttempt(ctx context.Context, attempt *models.UserAttempt) (bool, error) {
	test, err := s.repo.Test().GetByID(ctx, attempt.TestID)
	if err != nil {
		return false, fmt.Errorf("failed to get test %d: %w", attempt.TestID, err)
	}

	questions, err := s.repo.Question().GetByIDs(ctx, test.QuestionIDs())
	if err != nil {
		return false, fmt.Errorf("failed to get questions: %w", err)
	}
	byID := questionsByID(questions)

	changed := false
	results := make([]scoring.QuestionResult, 0, len(questions))
	seen := make(map[uint]bool, len(attempt.Answers))

	for i := range attempt.Answers {
		ans := &attempt.Answers[i]
		q, ok := byID[ans.QuestionID]
		if !ok {
			// Question was deleted from the test; the stored answer no
			// longer counts toward the score.
			if ans.IsCorrect || ans.Score != 0 {
				ans.IsCorrect = false
				ans.Score = 0
				changed = true
			}
			continue
		}
		seen[ans.QuestionID] = true

		r := scoring.ScoreQuestion(q, scoring.DecodeRaw(ans.UserAnswer))
		if r.IsCorrect != ans.IsCorrect || r.EarnedScore != ans.Score {
			ans.IsCorrect = r.IsCorrect
			ans.Score = r.EarnedScore
			changed = true
		}
		results = append(results, scoring.QuestionResult{
			QuestionID:  q.ID,
			IsCorrect:   r.IsCorrect,
			EarnedScore: r.EarnedScore,
			MaxScore:    q.Score,
		})
	}

	// Unanswered questions still count toward the possible score.
	for _, q := range questions {
		if !seen[q.ID] {
			results = append(results, scoring.QuestionResult{QuestionID: q.ID, MaxScore: q.Score})
		}
	}

	totals := scoring.AggregateScores(results)
	ielts := scoring.ConvertToIELTS(totals.TotalScore, totals.TotalPossibleScore)

	if attempt.Score != totals.TotalScore ||
		attempt.TotalPossibleScore != totals.TotalPossibleScore ||
		attempt.PercentageScore != totals.PercentageScore ||
		attempt.IELTSScore != ielts.Band ||
		attempt.IELTSScore40 != ielts.Score40 {
		attempt.Score = totals.TotalScore
		attempt.TotalPossibleScore = totals.TotalPossibleScore
		attempt.PercentageScore = totals.PercentageScore
		attempt.IELTSScore = ielts.Band
		attempt.IELTSScore40 = ielts.Score40
		changed = true
	}

	return changed, nil
}

// gradedSubmission is the outcome of grading one set of submitted answers.
type gradedSubmission struct {
	answers []models.AttemptAnswer
	results []QuestionResult
	totals  scoring.AttemptTotals
	ielts   scoring.IELTSResult
}

func (g *gradedSubmission) toResult(testID uint, completedAt time.Time) *AttemptResult {
	return &AttemptResult{
		TestID:             testID,
		Results:            g.results,
		Score:              g.totals.TotalScore,
		TotalPossibleScore: g.totals.TotalPossibleScore,
		PercentageScore:    g.totals.PercentageScore,
		CorrectCount:       g.totals.CorrectCount,
		IELTS:              g.ielts,
		CompletedAt:        completedAt,
	}
}

// gradeAnswers scores each submitted answer against its question and
// aggregates the totals. Every question on the test contributes to the
// possible score whether or not it was answered; answers to questions not
// on the test are ignored.
func (s *attemptService) gradeAnswers(ctx context.Context, test *models.Test, answers []SubmittedAnswer) (*gradedSubmission, error) {
	questions, err := s.repo.Question().GetByIDs(ctx, test.QuestionIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	byID := questionsByID(questions)

	graded := &gradedSubmission{
		answers: make([]models.AttemptAnswer, 0, len(answers)),
		results: make([]QuestionResult, 0, len(questions)),
	}
	scored := make([]scoring.QuestionResult, 0, len(questions))
	seen := make(map[uint]bool, len(answers))

	for _, sub := range answers {
		q, ok := byID[sub.QuestionID]
		if !ok || seen[sub.QuestionID] {
			continue
		}
		seen[sub.QuestionID] = true

		r := scoring.ScoreQuestion(q, scoring.DecodeRaw(sub.Answer))

		graded.answers = append(graded.answers, models.AttemptAnswer{
			QuestionID: sub.QuestionID,
			UserAnswer: datatypes.JSON(sub.Answer),
			IsCorrect:  r.IsCorrect,
			Score:      r.EarnedScore,
		})
		scored = append(scored, scoring.QuestionResult{
			QuestionID:  q.ID,
			IsCorrect:   r.IsCorrect,
			EarnedScore: r.EarnedScore,
			MaxScore:    q.Score,
		})
		graded.results = append(graded.results, QuestionResult{
			QuestionID:  q.ID,
			IsCorrect:   r.IsCorrect,
			EarnedScore: r.EarnedScore,
			MaxScore:    q.Score,
		})
	}

	for _, q := range questions {
		if !seen[q.ID] {
			scored = append(scored, scoring.QuestionResult{QuestionID: q.ID, MaxScore: q.Score})
			graded.results = append(graded.results, QuestionResult{QuestionID: q.ID, MaxScore: q.Score})
		}
	}

	graded.totals = scoring.AggregateScores(scored)
	graded.ielts = scoring.ConvertToIELTS(graded.totals.TotalScore, graded.totals.TotalPossibleScore)
	return graded, nil
}

// resolveTimeLimit picks the effective time limit in minutes for a new
// attempt. 0 means unlimited and is only allowed when the test permits it;
// custom limits require AllowCustomTime.
func resolveTimeLimit(test *models.Test, requested *int) (int, error) {
	if requested == nil {
		return test.TimeLimit, nil
	}
	if *requested == 0 {
		if !test.AllowNoTimeLimit {
			return 0, NewValidationError("time_limit_minutes", "test does not allow unlimited time", *requested)
		}
		return 0, nil
	}
	if !test.AllowCustomTime {
		return 0, NewValidationError("time_limit_minutes", "test does not allow a custom time limit", *requested)
	}
	return *requested, nil
}

func questionsByID(questions []*models.Question) map[uint]*models.Question {
	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return byID
}

// publishEvent publishes best-effort; a broker outage never fails the
// user-facing operation.
func (s *attemptService) publishEvent(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
