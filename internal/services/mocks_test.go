package services

import (
	"context"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockRepository aggregates the entity repository mocks behind the
// repositories.Repository interface.
type MockRepository struct {
	mock.Mock
	question *MockQuestionRepository
	passage  *MockPassageRepository
	test     *MockTestRepository
	testPool *MockTestPoolRepository
	attempt  *MockAttemptRepository
	user     *MockUserRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		question: new(MockQuestionRepository),
		passage:  new(MockPassageRepository),
		test:     new(MockTestRepository),
		testPool: new(MockTestPoolRepository),
		attempt:  new(MockAttemptRepository),
		user:     new(MockUserRepository),
	}
}

func (m *MockRepository) Question() repositories.QuestionRepository { return m.question }
func (m *MockRepository) Passage() repositories.PassageRepository   { return m.passage }
func (m *MockRepository) Test() repositories.TestRepository         { return m.test }
func (m *MockRepository) TestPool() repositories.TestPoolRepository { return m.testPool }
func (m *MockRepository) Attempt() repositories.AttemptRepository   { return m.attempt }
func (m *MockRepository) User() repositories.UserRepository         { return m.user }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

// ===== QUESTION =====

type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(ctx context.Context, question *models.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) CreateBatch(ctx context.Context, questions []*models.Question) error {
	args := m.Called(ctx, questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) Update(ctx context.Context, question *models.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestionRepository) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Question), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuestionRepository) GetByPassage(ctx context.Context, passageID uint) ([]*models.Question, error) {
	args := m.Called(ctx, passageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) CountByKind(ctx context.Context) (map[models.QuestionKind]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[models.QuestionKind]int), args.Error(1)
}

// ===== PASSAGE =====

type MockPassageRepository struct {
	mock.Mock
}

func (m *MockPassageRepository) Create(ctx context.Context, passage *models.ReadingPassage) error {
	args := m.Called(ctx, passage)
	return args.Error(0)
}

func (m *MockPassageRepository) GetByID(ctx context.Context, id uint) (*models.ReadingPassage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReadingPassage), args.Error(1)
}

func (m *MockPassageRepository) GetByIDWithQuestions(ctx context.Context, id uint) (*models.ReadingPassage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReadingPassage), args.Error(1)
}

func (m *MockPassageRepository) Update(ctx context.Context, passage *models.ReadingPassage) error {
	args := m.Called(ctx, passage)
	return args.Error(0)
}

func (m *MockPassageRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPassageRepository) List(ctx context.Context, filters repositories.PassageFilters) ([]*models.ReadingPassage, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.ReadingPassage), args.Get(1).(int64), args.Error(2)
}

// ===== TEST =====

type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Create(ctx context.Context, test *models.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) Update(ctx context.Context, test *models.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTestRepository) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Test), args.Get(1).(int64), args.Error(2)
}

func (m *MockTestRepository) GetActive(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Test), args.Get(1).(int64), args.Error(2)
}

func (m *MockTestRepository) ReferencesQuestion(ctx context.Context, questionID uint) (bool, error) {
	args := m.Called(ctx, questionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTestRepository) GetStats(ctx context.Context, testID uint) (*repositories.TestStats, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.TestStats), args.Error(1)
}

// ===== TEST POOL =====

type MockTestPoolRepository struct {
	mock.Mock
}

func (m *MockTestPoolRepository) Create(ctx context.Context, pool *models.TestPool) error {
	args := m.Called(ctx, pool)
	return args.Error(0)
}

func (m *MockTestPoolRepository) GetByID(ctx context.Context, id uint) (*models.TestPool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestPool), args.Error(1)
}

func (m *MockTestPoolRepository) Update(ctx context.Context, pool *models.TestPool) error {
	args := m.Called(ctx, pool)
	return args.Error(0)
}

func (m *MockTestPoolRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTestPoolRepository) List(ctx context.Context, limit, offset int) ([]*models.TestPool, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.TestPool), args.Get(1).(int64), args.Error(2)
}

// ===== ATTEMPT =====

type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.UserAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uint) (*models.UserAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByIDWithTest(ctx context.Context, id uint) (*models.UserAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAttempt), args.Error(1)
}

func (m *MockAttemptRepository) Update(ctx context.Context, attempt *models.UserAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAttemptRepository) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.UserAttempt, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.UserAttempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepository) GetByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.UserAttempt, int64, error) {
	args := m.Called(ctx, userID, filters)
	return args.Get(0).([]*models.UserAttempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepository) GetActiveAttempt(ctx context.Context, userID string, testID uint) (*models.UserAttempt, error) {
	args := m.Called(ctx, userID, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAttempt), args.Error(1)
}

func (m *MockAttemptRepository) CountByTest(ctx context.Context, testID uint) (int64, error) {
	args := m.Called(ctx, testID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) GetCompletedBatch(ctx context.Context, afterID uint, limit int) ([]*models.UserAttempt, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetUserStats(ctx context.Context, userID string) (*repositories.UserAttemptStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.UserAttemptStats), args.Error(1)
}

// ===== USER =====

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
