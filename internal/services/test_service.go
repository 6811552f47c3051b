package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ielts-practice/reading-service/internal/cache"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testCacheTTL = 10 * time.Minute

type testService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	cache     cache.CacheService
}

func NewTestService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, cacheService cache.CacheService) TestService {
	if cacheService == nil {
		cacheService = cache.NoopCache{}
	}
	return &testService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cacheService,
	}
}

func testCacheKey(id uint) string {
	return fmt.Sprintf("test:full:%d", id)
}

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error) {
	s.logger.Info("Creating test", "title", req.Title, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test := &models.Test{
		Title:              req.Title,
		Description:        req.Description,
		QuestionKindFilter: req.QuestionKindFilter,
		TimeLimit:          req.TimeLimit,
		AllowCustomTime:    req.AllowCustomTime,
		AllowNoTimeLimit:   req.AllowNoTimeLimit,
		Passages:           datatypes.NewJSONSlice(req.Passages),
		Active:             req.Active,
		CreatedBy:          creatorID,
	}
	if test.TimeLimit == 0 && !test.AllowNoTimeLimit {
		test.TimeLimit = 60
	}

	if err := s.resolveTotalScore(ctx, test); err != nil {
		return nil, err
	}

	if err := s.repo.Test().Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	return test, nil
}

func (s *testService) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

// GetByIDWithQuestions resolves the test's passages and questions for
// delivery. Correct answers and authored answer fields are stripped so a
// test-taker response never leaks them.
func (s *testService) GetByIDWithQuestions(ctx context.Context, id uint) (*TestWithQuestions, error) {
	var cached TestWithQuestions
	if err := s.cache.Get(ctx, testCacheKey(id), &cached); err == nil {
		return &cached, nil
	}

	test, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &TestWithQuestions{Test: test}
	for _, tp := range test.Passages {
		passage, err := s.repo.Passage().GetByID(ctx, tp.PassageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get passage %d: %w", tp.PassageID, err)
		}

		questions, err := s.repo.Question().GetByIDs(ctx, tp.QuestionIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get questions: %w", err)
		}
		for _, q := range questions {
			stripAnswers(q)
		}

		result.Passages = append(result.Passages, &PassageWithContent{
			Passage:   passage,
			Questions: questions,
		})
	}

	if err := s.cache.Set(ctx, testCacheKey(id), result, testCacheTTL); err != nil {
		s.logger.Warn("Failed to cache test", "test_id", id, "error", err)
	}

	return result, nil
}

func (s *testService) Update(ctx context.Context, id uint, req *UpdateTestRequest, userID string) (*models.Test, error) {
	s.logger.Info("Updating test", "test_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = req.Description
	}
	if req.QuestionKindFilter != nil {
		test.QuestionKindFilter = *req.QuestionKindFilter
	}
	if req.TimeLimit != nil {
		test.TimeLimit = *req.TimeLimit
	}
	if req.AllowCustomTime != nil {
		test.AllowCustomTime = *req.AllowCustomTime
	}
	if req.AllowNoTimeLimit != nil {
		test.AllowNoTimeLimit = *req.AllowNoTimeLimit
	}
	if req.Passages != nil {
		test.Passages = datatypes.NewJSONSlice(req.Passages)
		if err := s.resolveTotalScore(ctx, test); err != nil {
			return nil, err
		}
	}
	if req.Active != nil {
		test.Active = *req.Active
	}

	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to update test: %w", err)
	}
	s.invalidate(ctx, id)

	return test, nil
}

func (s *testService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting test", "test_id", id, "user_id", userID)

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	attempts, err := s.repo.Attempt().CountByTest(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if attempts > 0 {
		return ErrTestNotDeletable
	}

	if err := s.repo.Test().Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *testService) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	return s.repo.Test().List(ctx, filters)
}

func (s *testService) SetActive(ctx context.Context, id uint, active bool, userID string) error {
	test, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	test.Active = active
	if err := s.repo.Test().Update(ctx, test); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *testService) invalidate(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, testCacheKey(id)); err != nil {
		s.logger.Warn("Failed to invalidate test cache", "test_id", id, "error", err)
	}
}

func (s *testService) GetStats(ctx context.Context, id uint) (*repositories.TestStats, error) {
	stats, err := s.repo.Test().GetStats(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test stats: %w", err)
	}
	return stats, nil
}

// ===== POOLS =====

func (s *testService) CreatePool(ctx context.Context, req *CreateTestPoolRequest, creatorID string) (*models.TestPool, error) {
	s.logger.Info("Creating test pool", "name", req.Name, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	pool := &models.TestPool{
		Name:      req.Name,
		TestIDs:   datatypes.NewJSONSlice(req.TestIDs),
		CreatedBy: creatorID,
	}
	if req.Criteria != nil {
		pool.Criteria = datatypes.NewJSONType(*req.Criteria)
	}

	if err := s.repo.TestPool().Create(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to create test pool: %w", err)
	}

	return pool, nil
}

func (s *testService) GetPool(ctx context.Context, id uint) (*models.TestPool, error) {
	pool, err := s.repo.TestPool().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestPoolNotFound
		}
		return nil, fmt.Errorf("failed to get test pool: %w", err)
	}
	return pool, nil
}

func (s *testService) ListPools(ctx context.Context, limit, offset int) ([]*models.TestPool, int64, error) {
	return s.repo.TestPool().List(ctx, limit, offset)
}

func (s *testService) DeletePool(ctx context.Context, id uint, userID string) error {
	if _, err := s.GetPool(ctx, id); err != nil {
		return err
	}
	return s.repo.TestPool().Delete(ctx, id)
}

// PickFromPool draws one random active test from the pool's explicit test
// list. Inactive and deleted tests are skipped rather than failing the
// draw. A pool with no fixed list draws by its criteria instead.
func (s *testService) PickFromPool(ctx context.Context, poolID uint) (*models.Test, error) {
	pool, err := s.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}

	if len(pool.TestIDs) == 0 {
		return s.pickByCriteria(ctx, pool)
	}

	ids := make([]uint, len(pool.TestIDs))
	copy(ids, pool.TestIDs)
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	for _, id := range ids {
		test, err := s.repo.Test().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get test %d: %w", id, err)
		}
		if test.Active {
			return test, nil
		}
	}

	return nil, ErrTestPoolEmpty
}

// pickByCriteria draws a random active test matching the pool's criteria:
// passage count, question count, and allowed kind filters, each ignored
// when unset.
func (s *testService) pickByCriteria(ctx context.Context, pool *models.TestPool) (*models.Test, error) {
	criteria := pool.Criteria.Data()

	tests, _, err := s.repo.Test().GetActive(ctx, repositories.TestFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list active tests: %w", err)
	}

	var candidates []*models.Test
	for _, test := range tests {
		if criteria.PassageCount > 0 && len(test.Passages) != criteria.PassageCount {
			continue
		}
		if criteria.QuestionCount > 0 && len(test.QuestionIDs()) != criteria.QuestionCount {
			continue
		}
		if len(criteria.QuestionKinds) > 0 && !kindAllowed(test.QuestionKindFilter, criteria.QuestionKinds) {
			continue
		}
		candidates = append(candidates, test)
	}

	if len(candidates) == 0 {
		return nil, ErrTestPoolEmpty
	}
	return candidates[rand.Intn(len(candidates))], nil
}

func kindAllowed(kind models.QuestionKind, allowed []models.QuestionKind) bool {
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}

// resolveTotalScore verifies every referenced question exists (and matches
// the kind filter when set) and recomputes the test's total score.
func (s *testService) resolveTotalScore(ctx context.Context, test *models.Test) error {
	ids := test.QuestionIDs()
	if len(ids) == 0 {
		return ErrTestEmpty
	}

	questions, err := s.repo.Question().GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve test questions: %w", err)
	}

	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	var total float64
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return NewValidationError("passages", fmt.Sprintf("question %d does not exist", id), id)
		}
		if test.QuestionKindFilter != "" && q.Kind != test.QuestionKindFilter {
			return NewValidationError("passages", fmt.Sprintf("question %d has kind %s, test is restricted to %s", id, q.Kind, test.QuestionKindFilter), id)
		}
		total += q.Score
	}

	test.TotalScore = total
	return nil
}

// stripAnswers clears every field that would reveal the correct answer.
func stripAnswers(q *models.Question) {
	q.CorrectAnswer = nil
	q.AcceptableAnswers = nil
	q.OneWordAnswers = nil
}
