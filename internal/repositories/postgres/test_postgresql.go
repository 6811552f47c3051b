package postgres

import (
	"context"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"gorm.io/gorm"
)

type TestPostgreSQL struct {
	db *gorm.DB
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &TestPostgreSQL{db: db}
}

func (t TestPostgreSQL) Create(ctx context.Context, test *models.Test) error {
	return t.db.WithContext(ctx).Create(test).Error
}

func (t TestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	var test models.Test
	if err := t.db.WithContext(ctx).First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (t TestPostgreSQL) Update(ctx context.Context, test *models.Test) error {
	return t.db.WithContext(ctx).Save(test).Error
}

func (t TestPostgreSQL) Delete(ctx context.Context, id uint) error {
	return t.db.WithContext(ctx).Delete(&models.Test{}, id).Error
}

func (t TestPostgreSQL) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	var tests []*models.Test
	var total int64

	query := t.db.WithContext(ctx).Model(&models.Test{})
	query = t.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "created_at")

	if err := query.Find(&tests).Error; err != nil {
		return nil, 0, err
	}

	return tests, total, nil
}

func (t TestPostgreSQL) GetActive(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	active := true
	filters.Active = &active
	return t.List(ctx, filters)
}

// ReferencesQuestion reports whether any test's passage list still carries
// the question. Passages are stored as jsonb, so the check walks the
// question_ids arrays inside them.
func (t TestPostgreSQL) ReferencesQuestion(ctx context.Context, questionID uint) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).
		Model(&models.Test{}).
		Where(`EXISTS (
			SELECT 1 FROM jsonb_array_elements(passages) AS p,
			              jsonb_array_elements(p->'question_ids') AS qid
			WHERE qid::bigint = ?
		)`, questionID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t TestPostgreSQL) GetStats(ctx context.Context, testID uint) (*repositories.TestStats, error) {
	test, err := t.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}

	stats := &repositories.TestStats{
		QuestionCount: len(test.QuestionIDs()),
		TotalScore:    test.TotalScore,
	}

	row := struct {
		Total     int
		Completed int
		AvgScore  float64
		AvgBand   float64
		AvgTime   float64
	}{}
	err = t.db.WithContext(ctx).
		Model(&models.UserAttempt{}).
		Select(`COUNT(*) as total,
			COUNT(*) FILTER (WHERE status = ?) as completed,
			COALESCE(AVG(percentage_score) FILTER (WHERE status = ?), 0) as avg_score,
			COALESCE(AVG(ielts_score) FILTER (WHERE status = ?), 0) as avg_band,
			COALESCE(AVG(time_spent_seconds) FILTER (WHERE status = ?), 0) as avg_time`,
			models.AttemptCompleted, models.AttemptCompleted, models.AttemptCompleted, models.AttemptCompleted).
		Where("test_id = ?", testID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats.TotalAttempts = row.Total
	stats.CompletedAttempts = row.Completed
	stats.AverageScore = row.AvgScore
	stats.AverageBand = row.AvgBand
	stats.AverageTimeSpent = int(row.AvgTime)
	return stats, nil
}

func (t TestPostgreSQL) applyFilters(query *gorm.DB, filters repositories.TestFilters) *gorm.DB {
	if filters.Active != nil {
		query = query.Where("active = ?", *filters.Active)
	}
	if filters.Kind != nil {
		query = query.Where("question_kind_filter = ?", *filters.Kind)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Search != "" {
		query = query.Where("title ILIKE ?", "%"+filters.Search+"%")
	}
	return query
}
