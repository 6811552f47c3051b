package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/ielts-practice/reading-service/internal/events"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newImportExportServiceForTest(repo *MockRepository) (ImportExportService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher(newTestLogger())
	svc := NewImportExportService(repo, newTestLogger(), validator.New(), publisher)
	return svc, publisher
}

func TestImportExportService_ImportQuestionsFromCSV(t *testing.T) {
	ctx := context.Background()
	passage := &models.ReadingPassage{ID: 1, Title: "The Meaning of Volunteering"}

	t.Run("imports valid rows in one batch", func(t *testing.T) {
		repo := NewMockRepository()
		svc, publisher := newImportExportServiceForTest(repo)

		csvData := strings.Join([]string{
			"passage_id,kind,text,options,correct_answer,acceptable_answers,score,order",
			`1,single_choice,Which claim does the writer make?,a|b|c|d,b,,1,1`,
			`1,true_false_not_given,The trial ran for a decade.,,TRUE,,1,2`,
			`1,short_answer,What fuels the reaction?,,,"sunlight|solar energy",2,3`,
		}, "\n")

		repo.passage.On("GetByID", ctx, uint(1)).Return(passage, nil).Once()
		repo.question.On("CreateBatch", ctx, mock.AnythingOfType("[]*models.Question")).
			Run(func(args mock.Arguments) {
				for i, q := range args.Get(1).([]*models.Question) {
					q.ID = uint(i + 100)
				}
			}).Return(nil)

		summary, err := svc.ImportQuestionsFromCSV(ctx, strings.NewReader(csvData), "teacher-1")

		require.NoError(t, err)
		assert.Equal(t, 3, summary.TotalRows)
		assert.Equal(t, 3, summary.SuccessCount)
		assert.Equal(t, 0, summary.ErrorCount)
		assert.Equal(t, []uint{100, 101, 102}, summary.CreatedQuestions)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventQuestionsImported, published[0].Type)
	})

	t.Run("reports bad rows without saving them", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newImportExportServiceForTest(repo)

		csvData := strings.Join([]string{
			"passage_id,kind,text,correct_answer",
			"1,essay,Some question text,x",
			"99,true_false_not_given,The trial ran for a decade.,true",
		}, "\n")

		repo.passage.On("GetByID", ctx, uint(99)).Return(nil, gorm.ErrRecordNotFound).Once()

		summary, err := svc.ImportQuestionsFromCSV(ctx, strings.NewReader(csvData), "teacher-1")

		require.NoError(t, err)
		assert.Equal(t, 0, summary.SuccessCount)
		assert.Equal(t, 2, summary.ErrorCount)
		require.Len(t, summary.Errors, 2)
		assert.Equal(t, 2, summary.Errors[0].Row)
		assert.Equal(t, "kind", summary.Errors[0].Column)
		assert.Equal(t, "passage_id", summary.Errors[1].Column)
		repo.question.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})

	t.Run("rejects a file without the required columns", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newImportExportServiceForTest(repo)

		csvData := "kind,text\nsingle_choice,Which claim?"

		_, err := svc.ImportQuestionsFromCSV(ctx, strings.NewReader(csvData), "teacher-1")
		assert.True(t, IsValidation(err))
	})

	t.Run("rejects answers failing the authoring gate", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newImportExportServiceForTest(repo)

		// Correct answer "e" is not among the options.
		csvData := strings.Join([]string{
			"passage_id,kind,text,options,correct_answer",
			"1,single_choice,Which claim does the writer make?,a|b|c|d,e",
		}, "\n")

		repo.passage.On("GetByID", ctx, uint(1)).Return(passage, nil).Once()

		summary, err := svc.ImportQuestionsFromCSV(ctx, strings.NewReader(csvData), "teacher-1")

		require.NoError(t, err)
		assert.Equal(t, 1, summary.ErrorCount)
		require.NotEmpty(t, summary.Errors)
		assert.Equal(t, "correct_answer", summary.Errors[0].Column)
	})
}

func TestImportExportService_ImportQuestionsFromFile(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unsupported extensions", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newImportExportServiceForTest(repo)

		_, err := svc.ImportQuestionsFromFile(ctx, nil, "questions.txt", "teacher-1")
		assert.True(t, IsValidation(err))
	})
}

func TestImportExportService_ExportQuestionsToCSV(t *testing.T) {
	ctx := context.Background()

	repo := NewMockRepository()
	svc, _ := newImportExportServiceForTest(repo)

	q := singleChoiceQuestion(10, "b", 1)
	q.Title = "Main claim"
	repo.question.On("GetByIDs", ctx, []uint{10}).Return([]*models.Question{q}, nil)

	data, err := svc.ExportQuestionsToCSV(ctx, []uint{10})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeaders, records[0])

	row := records[1]
	assert.Equal(t, "1", row[0])
	assert.Equal(t, "single_choice", row[1])
	assert.Equal(t, "Main claim", row[2])
	assert.Equal(t, "a|b|c|d", row[4])
	assert.Equal(t, `"b"`, row[11])
}

func TestImportExportService_ExportTestResults(t *testing.T) {
	ctx := context.Background()

	t.Run("only the creator may export", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newImportExportServiceForTest(repo)

		test := activeTest(1, []uint{10}, 1)
		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)

		_, err := svc.ExportTestResults(ctx, 1, "someone-else")
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("writes one row per attempt", func(t *testing.T) {
		repo := NewMockRepository()
		svc, _ := newImportExportServiceForTest(repo)

		test := activeTest(1, []uint{10}, 1)
		attempts := []*models.UserAttempt{
			{
				ID: 1, UserID: "user-1", TestID: 1,
				Score: 1, TotalPossibleScore: 1, PercentageScore: 100,
				IELTSScore: 9.0, IELTSScore40: 40,
				Status:  models.AttemptCompleted,
				Answers: datatypes.NewJSONSlice([]models.AttemptAnswer{}),
			},
			{ID: 2, UserID: "user-2", TestID: 1, Status: models.AttemptInProgress},
		}

		repo.test.On("GetByID", ctx, uint(1)).Return(test, nil)
		repo.attempt.On("List", ctx, mock.AnythingOfType("repositories.AttemptFilters")).
			Return(attempts, int64(2), nil)

		data, err := svc.ExportTestResults(ctx, 1, "teacher-1")
		require.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Results")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Attempt ID", rows[0][0])
		assert.Equal(t, "user-1", rows[1][1])
		assert.Equal(t, "completed", rows[1][2])
	})
}

// Verifies the exported shape of every answer-bearing column survives a
// round trip through the file format.
func TestImportExportService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	passage := &models.ReadingPassage{ID: 1, Title: "The Meaning of Volunteering"}

	repo := NewMockRepository()
	svc, _ := newImportExportServiceForTest(repo)

	original := &models.Question{
		ID:             10,
		PassageID:      1,
		Kind:           models.FillBlankOneWordEach,
		Text:           "Complete the summary with one word each.",
		OneWordAnswers: datatypes.NewJSONSlice([]string{"sunlight,light", "water"}),
		WordLimits:     datatypes.NewJSONSlice([]int{1, 1}),
		CorrectAnswer:  datatypes.JSON(`["sunlight,light","water"]`),
		Score:          2,
		Order:          1,
	}
	repo.question.On("GetByIDs", ctx, []uint{10}).Return([]*models.Question{original}, nil)
	repo.passage.On("GetByID", ctx, uint(1)).Return(passage, nil)

	var imported []*models.Question
	repo.question.On("CreateBatch", ctx, mock.AnythingOfType("[]*models.Question")).
		Run(func(args mock.Arguments) {
			imported = args.Get(1).([]*models.Question)
		}).Return(nil)

	data, err := svc.ExportQuestionsToCSV(ctx, []uint{10})
	require.NoError(t, err)

	summary, err := svc.ImportQuestionsFromCSV(ctx, bytes.NewReader(data), "teacher-1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)
	require.Len(t, imported, 1)

	got := imported[0]
	assert.Equal(t, original.Kind, got.Kind)
	assert.Equal(t, []string{"sunlight,light", "water"}, []string(got.OneWordAnswers))
	assert.Equal(t, []int{1, 1}, []int(got.WordLimits))
	assert.JSONEq(t, string(original.CorrectAnswer), string(got.CorrectAnswer))
}
