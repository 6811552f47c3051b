package repositories

import (
	"context"
	"time"

	"github.com/ielts-practice/reading-service/internal/models"
)

// Repository aggregates every entity repository behind one dependency the
// services take. WithTransaction runs fn against a repository bound to a
// single database transaction; returning an error rolls it back.
type Repository interface {
	Question() QuestionRepository
	Passage() PassageRepository
	Test() TestRepository
	TestPool() TestPoolRepository
	Attempt() AttemptRepository
	User() UserRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
}

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Kind      *models.QuestionKind `json:"kind"`
	PassageID *uint                `json:"passage_id"`
	CreatedBy *string              `json:"created_by"`
	Search    string               `json:"search"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "order", "kind"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type PassageFilters struct {
	CreatedBy *string `json:"created_by"`
	Search    string  `json:"search"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

type TestFilters struct {
	Active    *bool                `json:"active"`
	Kind      *models.QuestionKind `json:"kind"`
	CreatedBy *string              `json:"created_by"`
	Search    string               `json:"search"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`
	SortOrder string               `json:"sort_order"`
}

type AttemptFilters struct {
	Status    models.AttemptStatus `json:"status"`
	UserID    *string              `json:"user_id"`
	TestID    *uint                `json:"test_id"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`
	SortOrder string               `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type TestStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	AverageScore      float64 `json:"average_score"`
	AverageBand       float64 `json:"average_band"`
	AverageTimeSpent  int     `json:"average_time_spent"`
	QuestionCount     int     `json:"question_count"`
	TotalScore        float64 `json:"total_score"`
}

type UserAttemptStats struct {
	TotalAttempts     int                          `json:"total_attempts"`
	CompletedAttempts int                          `json:"completed_attempts"`
	AverageScore      float64                      `json:"average_score"`
	BestBand          float64                      `json:"best_band"`
	TotalTimeSpent    int                          `json:"total_time_spent"`
	StatusBreakdown   map[models.AttemptStatus]int `json:"status_breakdown"`
}

// ===== ENTITY REPOSITORIES =====

// QuestionRepository persists authored questions.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)
	GetByPassage(ctx context.Context, passageID uint) ([]*models.Question, error)
	CountByKind(ctx context.Context) (map[models.QuestionKind]int, error)
}

// PassageRepository persists reading passages.
type PassageRepository interface {
	Create(ctx context.Context, passage *models.ReadingPassage) error
	GetByID(ctx context.Context, id uint) (*models.ReadingPassage, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.ReadingPassage, error)
	Update(ctx context.Context, passage *models.ReadingPassage) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filters PassageFilters) ([]*models.ReadingPassage, int64, error)
}

// TestRepository persists assembled tests.
type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filters TestFilters) ([]*models.Test, int64, error)
	GetActive(ctx context.Context, filters TestFilters) ([]*models.Test, int64, error)
	ReferencesQuestion(ctx context.Context, questionID uint) (bool, error)
	GetStats(ctx context.Context, testID uint) (*TestStats, error)
}

// TestPoolRepository persists test pools for random selection.
type TestPoolRepository interface {
	Create(ctx context.Context, pool *models.TestPool) error
	GetByID(ctx context.Context, id uint) (*models.TestPool, error)
	Update(ctx context.Context, pool *models.TestPool) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, limit, offset int) ([]*models.TestPool, int64, error)
}

// AttemptRepository persists user attempts and their graded answers.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.UserAttempt) error
	GetByID(ctx context.Context, id uint) (*models.UserAttempt, error)
	GetByIDWithTest(ctx context.Context, id uint) (*models.UserAttempt, error)
	Update(ctx context.Context, attempt *models.UserAttempt) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filters AttemptFilters) ([]*models.UserAttempt, int64, error)
	GetByUser(ctx context.Context, userID string, filters AttemptFilters) ([]*models.UserAttempt, int64, error)
	GetActiveAttempt(ctx context.Context, userID string, testID uint) (*models.UserAttempt, error)
	CountByTest(ctx context.Context, testID uint) (int64, error)

	// GetCompletedBatch pages through completed attempts by ascending ID for
	// batch rescoring; afterID carries the cursor between calls.
	GetCompletedBatch(ctx context.Context, afterID uint, limit int) ([]*models.UserAttempt, error)

	GetUserStats(ctx context.Context, userID string) (*UserAttemptStats, error)
}

// UserRepository holds the minimal user mirror this service needs. Upsert
// refreshes the mirrored record on every authenticated request, so it must
// tolerate concurrent writers.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}
