package services

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"time"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/scoring"
)

// ===== USER SERVICE =====

// UserService maintains the local mirror of identity-provider accounts.
type UserService interface {
	Sync(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ===== PASSAGE SERVICE =====

type PassageService interface {
	Create(ctx context.Context, req *CreatePassageRequest, creatorID string) (*models.ReadingPassage, error)
	GetByID(ctx context.Context, id uint) (*models.ReadingPassage, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.ReadingPassage, error)
	Update(ctx context.Context, id uint, req *UpdatePassageRequest, userID string) (*models.ReadingPassage, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, filters repositories.PassageFilters) ([]*models.ReadingPassage, int64, error)
}

type CreatePassageRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=200"`
	Content string `json:"content" validate:"required"`
}

type UpdatePassageRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string `json:"content" validate:"omitempty,min=1"`
}

// ===== QUESTION SERVICE =====

type QuestionService interface {
	Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, id uint, req *CreateQuestionRequest, userID string) (*models.Question, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error)
	GetByPassage(ctx context.Context, passageID uint) ([]*models.Question, error)
	KindCounts(ctx context.Context) (map[models.QuestionKind]int, error)
}

// CreateQuestionRequest carries every authored field; which ones are
// required depends on the kind and is enforced by the question validator
// after the canonical correct answer is built.
type CreateQuestionRequest struct {
	PassageID uint                `json:"passage_id" validate:"required"`
	Title     string              `json:"title" validate:"max=200"`
	Kind      models.QuestionKind `json:"kind" validate:"required,question_kind"`
	Text      string              `json:"text" validate:"required"`

	Options           []string                `json:"options"`
	AcceptableAnswers []string                `json:"acceptable_answers"`
	BlankOptions      []string                `json:"blank_options"`
	OneWordAnswers    []string                `json:"one_word_answers"`
	WordLimits        []int                   `json:"word_limits"`
	BlankNumbers      []int                   `json:"blank_numbers"`
	MatchingOptions   *models.MatchingOptions `json:"matching_options"`
	WordLimit         int                     `json:"word_limit" validate:"min=0"`

	CorrectAnswer json.RawMessage `json:"correct_answer"`

	Score float64 `json:"score" validate:"gt=0"`
	Order int     `json:"order" validate:"min=1"`
}

// ===== TEST SERVICE =====

type TestService interface {
	Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error)
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*TestWithQuestions, error)
	Update(ctx context.Context, id uint, req *UpdateTestRequest, userID string) (*models.Test, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error)
	SetActive(ctx context.Context, id uint, active bool, userID string) error
	GetStats(ctx context.Context, id uint) (*repositories.TestStats, error)

	// Pools
	CreatePool(ctx context.Context, req *CreateTestPoolRequest, creatorID string) (*models.TestPool, error)
	GetPool(ctx context.Context, id uint) (*models.TestPool, error)
	ListPools(ctx context.Context, limit, offset int) ([]*models.TestPool, int64, error)
	DeletePool(ctx context.Context, id uint, userID string) error
	// PickFromPool returns a random eligible test from the pool.
	PickFromPool(ctx context.Context, poolID uint) (*models.Test, error)
}

type CreateTestRequest struct {
	Title              string               `json:"title" validate:"required,min=1,max=200"`
	Description        *string              `json:"description" validate:"omitempty,max=1000"`
	QuestionKindFilter models.QuestionKind  `json:"question_kind_filter" validate:"omitempty,question_kind"`
	TimeLimit          int                  `json:"time_limit" validate:"min=0,max=300"`
	AllowCustomTime    bool                 `json:"allow_custom_time"`
	AllowNoTimeLimit   bool                 `json:"allow_no_time_limit"`
	Passages           []models.TestPassage `json:"passages" validate:"required,min=1"`
	Active             bool                 `json:"active"`
}

type UpdateTestRequest struct {
	Title              *string              `json:"title" validate:"omitempty,min=1,max=200"`
	Description        *string              `json:"description" validate:"omitempty,max=1000"`
	QuestionKindFilter *models.QuestionKind `json:"question_kind_filter" validate:"omitempty,question_kind"`
	TimeLimit          *int                 `json:"time_limit" validate:"omitempty,min=0,max=300"`
	AllowCustomTime    *bool                `json:"allow_custom_time"`
	AllowNoTimeLimit   *bool                `json:"allow_no_time_limit"`
	Passages           []models.TestPassage `json:"passages"`
	Active             *bool                `json:"active"`
}

type CreateTestPoolRequest struct {
	Name     string                   `json:"name" validate:"required,min=1,max=200"`
	TestIDs  []uint                   `json:"test_ids"`
	Criteria *models.TestPoolCriteria `json:"criteria"`
}

// TestWithQuestions is a test plus its resolved passages and questions,
// with correct answers stripped for delivery to test-takers.
type TestWithQuestions struct {
	Test     *models.Test          `json:"test"`
	Passages []*PassageWithContent `json:"passages"`
}

type PassageWithContent struct {
	Passage   *models.ReadingPassage `json:"passage"`
	Questions []*models.Question     `json:"questions"`
}

// ===== ATTEMPT SERVICE =====

type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, userID string) (*models.UserAttempt, error)
	GetByID(ctx context.Context, id uint, userID string) (*models.UserAttempt, error)
	Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, userID string) (*AttemptResult, error)
	SubmitGuest(ctx context.Context, req *GuestSubmitRequest) (*AttemptResult, error)
	Abandon(ctx context.Context, attemptID uint, userID string) error
	GetHistory(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.UserAttempt, int64, error)
	GetUserStats(ctx context.Context, userID string) (*repositories.UserAttemptStats, error)

	// RecalculateScores regrades every completed attempt from its stored
	// raw answers and the current question definitions.
	RecalculateScores(ctx context.Context, batchSize int) (*RecalculateResult, error)
}

type StartAttemptRequest struct {
	TestID           uint `json:"test_id" validate:"required"`
	TimeLimitMinutes *int `json:"time_limit_minutes" validate:"omitempty,min=0,max=300"`
}

type SubmittedAnswer struct {
	QuestionID uint            `json:"question_id" validate:"required"`
	Answer     json.RawMessage `json:"answer"`
}

type SubmitAttemptRequest struct {
	Answers          []SubmittedAnswer `json:"answers" validate:"required"`
	TimeSpentSeconds int               `json:"time_spent_seconds" validate:"min=0"`
}

type GuestSubmitRequest struct {
	TestID           uint              `json:"test_id" validate:"required"`
	Answers          []SubmittedAnswer `json:"answers" validate:"required"`
	TimeSpentSeconds int               `json:"time_spent_seconds" validate:"min=0"`
}

// QuestionResult is one graded answer as returned to the client.
type QuestionResult struct {
	QuestionID  uint    `json:"question_id"`
	IsCorrect   bool    `json:"is_correct"`
	EarnedScore float64 `json:"earned_score"`
	MaxScore    float64 `json:"max_score"`
}

// AttemptResult is the full grading outcome for a submission.
type AttemptResult struct {
	AttemptID          uint                `json:"attempt_id,omitempty"`
	TestID             uint                `json:"test_id"`
	Results            []QuestionResult    `json:"results"`
	Score              float64             `json:"score"`
	TotalPossibleScore float64             `json:"total_possible_score"`
	PercentageScore    float64             `json:"percentage_score"`
	CorrectCount       int                 `json:"correct_count"`
	IELTS              scoring.IELTSResult `json:"ielts"`
	CompletedAt        time.Time           `json:"completed_at"`
}

// RecalculateResult summarizes a batch rescore run.
type RecalculateResult struct {
	Processed int           `json:"processed"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// ===== IMPORT/EXPORT SERVICE =====

type ImportExportService interface {
	ImportQuestionsFromFile(ctx context.Context, file multipart.File, filename string, creatorID string) (*models.ImportSummary, error)
	ImportQuestionsFromCSV(ctx context.Context, reader io.Reader, creatorID string) (*models.ImportSummary, error)
	ImportQuestionsFromExcel(ctx context.Context, reader io.Reader, creatorID string) (*models.ImportSummary, error)

	ExportQuestionsToCSV(ctx context.Context, questionIDs []uint) ([]byte, error)
	ExportQuestionsToExcel(ctx context.Context, questionIDs []uint) ([]byte, error)
	ExportTestResults(ctx context.Context, testID uint, userID string) ([]byte, error)
}
