package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ielts-practice/reading-service/internal/events"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAttemptServiceForTest(repo *MockRepository) (AttemptService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher(newTestLogger())
	svc := NewAttemptService(repo, newTestLogger(), validator.New(), publisher)
	return svc, publisher
}

func singleChoiceQuestion(id uint, correct string, score float64) *models.Question {
	return &models.Question{
		ID:            id,
		PassageID:     1,
		Kind:          models.SingleChoice,
		Text:          "Which option does the writer support?",
		Options:       datatypes.NewJSONSlice([]string{"a", "b", "c", "d"}),
		CorrectAnswer: datatypes.JSON(`"` + correct + `"`),
		Score:         score,
		Order:         int(id),
	}
}

func tfngQuestion(id uint, correct string, score float64) *models.Question {
	return &models.Question{
		ID:            id,
		PassageID:     1,
		Kind:          models.TrueFalseNotGiven,
		Text:          "The study covered three continents.",
		CorrectAnswer: datatypes.JSON(`"` + correct + `"`),
		Score:         score,
		Order:         int(id),
	}
}

func activeTest(id uint, questionIDs []uint, totalScore float64) *models.Test {
	return &models.Test{
		ID:         id,
		Title:      "Academic Reading Practice",
		TimeLimit:  60,
		Passages:   datatypes.NewJSONSlice([]models.TestPassage{{PassageID: 1, QuestionIDs: questionIDs}}),
		TotalScore: totalScore,
		Active:     true,
		CreatedBy:  "teacher-1",
	}
}

func TestAttemptService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("creates new attempt", func(t *testing.T) {
		repo := NewMockRepository()
		svc, publisher := newAttemptServiceForTest(repo)

		test := activeTest(1, []uint{10, 11}, 2)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.attempt.On("GetActiveAttempt", ctx, "user-1", uint(1)).Return(nil, nil)
		repo.attempt.On("Create", ctx, mock.AnythingOfType("*models.UserAttempt")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.UserAttempt).ID = 42
			}).Return(nil)

		attempt, err := svc.Start(ctx, &StartAttemptRequest{TestID: 1}, "user-1")

		require.NoError(t, err)
		assert.Equal(t, uint(42), attempt.ID)
		assert.Equal(t, "user-1", attempt.UserID)
		assert.Equal(t, models.AttemptInProgress, attempt.Status)
		assert.Equal(t, float64(2), attempt.TotalPossibleScore)
		assert.False(t, attempt.StartedAt.IsZero())

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventAttemptStarted, published[0].Type)
		repo.attempt.AssertExpectations(t)
	})

	t.Run("resumes existing active attempt", func(t *testing.T) {
		repo := NewMockRepository()
		svc, publisher := newAttemptServiceForTest(repo)

		test := activeTest(1, []uint{10}, 1)
		existing := &models.UserAttempt{ID: 7, UserID: "user-1", TestID: 1, Status: models.AttemptInProgress}
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.attempt.On("GetActiveAttempt", ctx, "user-1", uint(1)).Return(existing, nil)

		attempt, err := svc.Start(ctx, &StartAttemptRequest{TestID: 1}, "user-1")

		require.NoError(t, err)
		assert.Equal(t, uint(7), attempt.ID)
		assert.Empty(t, publisher.GetPublishedEvents())
		repo.attempt.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("test not found", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		repo.test.On("GetByID", ctx, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.Start(ctx, &StartAttemptRequest{TestID: 99}, "user-1")
		assert.ErrorIs(t, err, ErrTestNotFound)
	})

	t.Run("inactive test", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		test := activeTest(1, []uint{10}, 1)
		test.Active = false
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)

		_, err := svc.Start(ctx, &StartAttemptRequest{TestID: 1}, "user-1")
		assert.ErrorIs(t, err, ErrTestNotActive)
	})

	t.Run("unlimited time rejected when not allowed", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		test := activeTest(1, []uint{10}, 1)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.attempt.On("GetActiveAttempt", ctx, "user-1", uint(1)).Return(nil, nil)

		zero := 0
		_, err := svc.Start(ctx, &StartAttemptRequest{TestID: 1, TimeLimitMinutes: &zero}, "user-1")
		assert.True(t, IsValidation(err))
	})

	t.Run("custom time rejected when not allowed", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		test := activeTest(1, []uint{10}, 1)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.attempt.On("GetActiveAttempt", ctx, "user-1", uint(1)).Return(nil, nil)

		custom := 45
		_, err := svc.Start(ctx, &StartAttemptRequest{TestID: 1, TimeLimitMinutes: &custom}, "user-1")
		assert.True(t, IsValidation(err))
	})

	t.Run("custom time allowed when test permits it", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		test := activeTest(1, []uint{10}, 1)
		test.AllowCustomTime = true
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.attempt.On("GetActiveAttempt", ctx, "user-1", uint(1)).Return(nil, nil)
		repo.attempt.On("Create", ctx, mock.AnythingOfType("*models.UserAttempt")).Return(nil)

		custom := 45
		_, err := svc.Start(ctx, &StartAttemptRequest{TestID: 1, TimeLimitMinutes: &custom}, "user-1")
		assert.NoError(t, err)
	})
}

func TestAttemptService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("grades and completes the attempt", func(t *testing.T) {
		repo := NewMockRepository()
		svc, publisher := newAttemptServiceForTest(repo)

		questions := []*models.Question{
			singleChoiceQuestion(10, "b", 1),
			tfngQuestion(11, models.AnswerTrue, 1),
			singleChoiceQuestion(12, "a", 1),
		}
		test := activeTest(1, []uint{10, 11, 12}, 3)
		attempt := &models.UserAttempt{
			ID:        42,
			UserID:    "user-1",
			TestID:    1,
			Status:    models.AttemptInProgress,
			StartedAt: time.Now().Add(-30 * time.Minute),
		}

		repo.attempt.On("GetByIDWithTest", ctx, uint(42)).Return(attempt, nil)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.question.On("GetByIDs", ctx, []uint{10, 11, 12}).Return(questions, nil)
		repo.attempt.On("Update", ctx, attempt).Return(nil)

		// Correct choice, wrong true/false, question 12 left unanswered.
		req := &SubmitAttemptRequest{
			Answers: []SubmittedAnswer{
				{QuestionID: 10, Answer: json.RawMessage(`"b"`)},
				{QuestionID: 11, Answer: json.RawMessage(`"false"`)},
			},
			TimeSpentSeconds: 1800,
		}

		result, err := svc.Submit(ctx, 42, req, "user-1")

		require.NoError(t, err)
		assert.Equal(t, uint(42), result.AttemptID)
		assert.Equal(t, float64(1), result.Score)
		assert.Equal(t, float64(3), result.TotalPossibleScore)
		assert.Equal(t, 1, result.CorrectCount)
		assert.Len(t, result.Results, 3)

		assert.Equal(t, models.AttemptCompleted, attempt.Status)
		assert.Equal(t, float64(1), attempt.Score)
		assert.Equal(t, float64(3), attempt.TotalPossibleScore)
		assert.Equal(t, 1800, attempt.TimeSpentSeconds)
		require.NotNil(t, attempt.CompletedAt)
		require.Len(t, attempt.Answers, 2)
		assert.True(t, attempt.Answers[0].IsCorrect)
		assert.False(t, attempt.Answers[1].IsCorrect)
		assert.Equal(t, json.RawMessage(`"false"`), json.RawMessage(attempt.Answers[1].UserAnswer))

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventAttemptCompleted, published[0].Type)
	})

	t.Run("rejects another user's attempt", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		attempt := &models.UserAttempt{ID: 42, UserID: "user-1", TestID: 1, Status: models.AttemptInProgress}
		repo.attempt.On("GetByIDWithTest", ctx, uint(42)).Return(attempt, nil)

		_, err := svc.Submit(ctx, 42, &SubmitAttemptRequest{Answers: []SubmittedAnswer{}}, "user-2")
		assert.ErrorIs(t, err, ErrAttemptAccessDenied)
	})

	t.Run("rejects a completed attempt", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		attempt := &models.UserAttempt{ID: 42, UserID: "user-1", TestID: 1, Status: models.AttemptCompleted}
		repo.attempt.On("GetByIDWithTest", ctx, uint(42)).Return(attempt, nil)

		_, err := svc.Submit(ctx, 42, &SubmitAttemptRequest{Answers: []SubmittedAnswer{}}, "user-1")
		assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
	})

	t.Run("ignores answers to questions not on the test", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		questions := []*models.Question{singleChoiceQuestion(10, "b", 1)}
		test := activeTest(1, []uint{10}, 1)
		attempt := &models.UserAttempt{ID: 42, UserID: "user-1", TestID: 1, Status: models.AttemptInProgress}

		repo.attempt.On("GetByIDWithTest", ctx, uint(42)).Return(attempt, nil)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.question.On("GetByIDs", ctx, []uint{10}).Return(questions, nil)
		repo.attempt.On("Update", ctx, attempt).Return(nil)

		req := &SubmitAttemptRequest{
			Answers: []SubmittedAnswer{
				{QuestionID: 10, Answer: json.RawMessage(`"b"`)},
				{QuestionID: 999, Answer: json.RawMessage(`"b"`)},
			},
		}

		result, err := svc.Submit(ctx, 42, req, "user-1")

		require.NoError(t, err)
		assert.Len(t, result.Results, 1)
		assert.Equal(t, float64(1), result.Score)
		assert.Len(t, attempt.Answers, 1)
	})
}

func TestAttemptService_SubmitGuest(t *testing.T) {
	ctx := context.Background()

	t.Run("grades without persisting anything", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		questions := []*models.Question{
			singleChoiceQuestion(10, "b", 1),
			tfngQuestion(11, models.AnswerNotGiven, 1),
		}
		test := activeTest(1, []uint{10, 11}, 2)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.question.On("GetByIDs", ctx, []uint{10, 11}).Return(questions, nil)

		req := &GuestSubmitRequest{
			TestID: 1,
			Answers: []SubmittedAnswer{
				{QuestionID: 10, Answer: json.RawMessage(`"b"`)},
				{QuestionID: 11, Answer: json.RawMessage(`"not given"`)},
			},
		}

		result, err := svc.SubmitGuest(ctx, req)

		require.NoError(t, err)
		assert.Zero(t, result.AttemptID)
		assert.Equal(t, float64(2), result.Score)
		assert.Equal(t, 2, result.CorrectCount)
		assert.Equal(t, 9.0, result.IELTS.Band)
		repo.attempt.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		repo.attempt.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("rejects inactive test", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		test := activeTest(1, []uint{10}, 1)
		test.Active = false
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)

		_, err := svc.SubmitGuest(ctx, &GuestSubmitRequest{TestID: 1, Answers: []SubmittedAnswer{}})
		assert.ErrorIs(t, err, ErrTestNotActive)
	})
}

func TestAttemptService_Abandon(t *testing.T) {
	ctx := context.Background()

	t.Run("abandons an in-progress attempt", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		attempt := &models.UserAttempt{ID: 42, UserID: "user-1", TestID: 1, Status: models.AttemptInProgress}
		repo.attempt.On("GetByIDWithTest", ctx, uint(42)).Return(attempt, nil)
		repo.attempt.On("Update", ctx, attempt).Return(nil)

		err := svc.Abandon(ctx, 42, "user-1")

		require.NoError(t, err)
		assert.Equal(t, models.AttemptAbandoned, attempt.Status)
	})

	t.Run("rejects a completed attempt", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		attempt := &models.UserAttempt{ID: 42, UserID: "user-1", TestID: 1, Status: models.AttemptCompleted}
		repo.attempt.On("GetByIDWithTest", ctx, uint(42)).Return(attempt, nil)

		err := svc.Abandon(ctx, 42, "user-1")
		assert.ErrorIs(t, err, ErrAttemptNotActive)
	})
}

func TestAttemptService_RecalculateScores(t *testing.T) {
	ctx := context.Background()

	completedAttempt := func(id uint, answers []models.AttemptAnswer, score, possible float64) *models.UserAttempt {
		totals := score / possible * 100
		return &models.UserAttempt{
			ID:                 id,
			UserID:             "user-1",
			TestID:             1,
			Answers:            datatypes.NewJSONSlice(answers),
			Score:              score,
			TotalPossibleScore: possible,
			PercentageScore:    totals,
			Status:             models.AttemptCompleted,
		}
	}

	t.Run("updates attempts whose scores changed", func(t *testing.T) {
		repo := NewMockRepository()
		svc, publisher := newAttemptServiceForTest(repo)

		// Stored as wrong, but the current correct answer now matches the
		// user's stored raw answer.
		questions := []*models.Question{singleChoiceQuestion(10, "b", 1)}
		test := activeTest(1, []uint{10}, 1)
		stale := completedAttempt(1, []models.AttemptAnswer{
			{QuestionID: 10, UserAnswer: datatypes.JSON(`"b"`), IsCorrect: false, Score: 0},
		}, 0, 1)

		repo.attempt.On("GetCompletedBatch", ctx, uint(0), 100).Return([]*models.UserAttempt{stale}, nil)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.question.On("GetByIDs", ctx, []uint{10}).Return(questions, nil)
		repo.attempt.On("Update", ctx, stale).Return(nil)

		result, err := svc.RecalculateScores(ctx, 100)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 0, result.Failed)

		assert.True(t, stale.Answers[0].IsCorrect)
		assert.Equal(t, float64(1), stale.Score)
		assert.Equal(t, float64(100), stale.PercentageScore)
		assert.Equal(t, 9.0, stale.IELTSScore)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventScoresRecalculated, published[0].Type)
	})

	t.Run("leaves unchanged attempts alone", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		questions := []*models.Question{singleChoiceQuestion(10, "b", 1)}
		test := activeTest(1, []uint{10}, 1)
		current := completedAttempt(1, []models.AttemptAnswer{
			{QuestionID: 10, UserAnswer: datatypes.JSON(`"b"`), IsCorrect: true, Score: 1},
		}, 1, 1)
		current.IELTSScore = 9.0
		current.IELTSScore40 = 40

		repo.attempt.On("GetCompletedBatch", ctx, uint(0), 100).Return([]*models.UserAttempt{current}, nil)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.question.On("GetByIDs", ctx, []uint{10}).Return(questions, nil)

		result, err := svc.RecalculateScores(ctx, 100)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 0, result.Updated)
		repo.attempt.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("zeroes answers for deleted questions", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		// Question 11 was removed from the test; its stored credit is revoked.
		questions := []*models.Question{singleChoiceQuestion(10, "b", 1)}
		test := activeTest(1, []uint{10}, 1)
		stale := completedAttempt(1, []models.AttemptAnswer{
			{QuestionID: 10, UserAnswer: datatypes.JSON(`"b"`), IsCorrect: true, Score: 1},
			{QuestionID: 11, UserAnswer: datatypes.JSON(`"true"`), IsCorrect: true, Score: 1},
		}, 2, 2)

		repo.attempt.On("GetCompletedBatch", ctx, uint(0), 100).Return([]*models.UserAttempt{stale}, nil)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.question.On("GetByIDs", ctx, []uint{10}).Return(questions, nil)
		repo.attempt.On("Update", ctx, stale).Return(nil)

		result, err := svc.RecalculateScores(ctx, 100)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.False(t, stale.Answers[1].IsCorrect)
		assert.Zero(t, stale.Answers[1].Score)
		assert.Equal(t, float64(1), stale.Score)
		assert.Equal(t, float64(1), stale.TotalPossibleScore)
	})

	t.Run("walks batches with the ID cursor", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		questions := []*models.Question{singleChoiceQuestion(10, "b", 1)}
		test := activeTest(1, []uint{10}, 1)
		answers := []models.AttemptAnswer{
			{QuestionID: 10, UserAnswer: datatypes.JSON(`"b"`), IsCorrect: true, Score: 1},
		}
		first := completedAttempt(1, answers, 1, 1)
		first.IELTSScore, first.IELTSScore40 = 9.0, 40
		second := completedAttempt(2, answers, 1, 1)
		second.IELTSScore, second.IELTSScore40 = 9.0, 40

		repo.attempt.On("GetCompletedBatch", ctx, uint(0), 1).Return([]*models.UserAttempt{first}, nil)
		repo.attempt.On("GetCompletedBatch", ctx, uint(1), 1).Return([]*models.UserAttempt{second}, nil)
		repo.attempt.On("GetCompletedBatch", ctx, uint(2), 1).Return([]*models.UserAttempt{}, nil)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.question.On("GetByIDs", ctx, []uint{10}).Return(questions, nil)

		result, err := svc.RecalculateScores(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		repo.attempt.AssertExpectations(t)
	})

	t.Run("counts regrade failures without stopping", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newAttemptServiceForTest(repo)

		broken := completedAttempt(1, nil, 0, 1)
		broken.TestID = 9
		repo.attempt.On("GetCompletedBatch", ctx, uint(0), 100).Return([]*models.UserAttempt{broken}, nil)
		repo.test.On("GetByID", ctx, uint(9)).Return(nil, gorm.ErrRecordNotFound)

		result, err := svc.RecalculateScores(ctx, 100)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 0, result.Updated)
	})
}
