package postgres

import (
	"context"
	"errors"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) Create(ctx context.Context, attempt *models.UserAttempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.UserAttempt, error) {
	var attempt models.UserAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByIDWithTest(ctx context.Context, id uint) (*models.UserAttempt, error) {
	var attempt models.UserAttempt
	if err := a.db.WithContext(ctx).
		Preload("Test").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) Update(ctx context.Context, attempt *models.UserAttempt) error {
	return a.db.WithContext(ctx).Save(attempt).Error
}

func (a AttemptPostgreSQL) Delete(ctx context.Context, id uint) error {
	return a.db.WithContext(ctx).Delete(&models.UserAttempt{}, id).Error
}

func (a AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.UserAttempt, int64, error) {
	var attempts []*models.UserAttempt
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.UserAttempt{})
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "started_at")

	if err := query.Preload("Test").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a AttemptPostgreSQL) GetByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.UserAttempt, int64, error) {
	filters.UserID = &userID
	return a.List(ctx, filters)
}

func (a AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, userID string, testID uint) (*models.UserAttempt, error) {
	var attempt models.UserAttempt
	if err := a.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, models.AttemptInProgress).
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) CountByTest(ctx context.Context, testID uint) (int64, error) {
	var count int64
	if err := a.db.WithContext(ctx).
		Model(&models.UserAttempt{}).
		Where("test_id = ?", testID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (a AttemptPostgreSQL) GetCompletedBatch(ctx context.Context, afterID uint, limit int) ([]*models.UserAttempt, error) {
	var attempts []*models.UserAttempt
	if limit <= 0 {
		limit = 100
	}
	if err := a.db.WithContext(ctx).
		Where("status = ? AND id > ?", models.AttemptCompleted, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a AttemptPostgreSQL) GetUserStats(ctx context.Context, userID string) (*repositories.UserAttemptStats, error) {
	row := struct {
		Total     int
		Completed int
		AvgScore  float64
		BestBand  float64
		TotalTime int
	}{}
	err := a.db.WithContext(ctx).
		Model(&models.UserAttempt{}).
		Select(`COUNT(*) as total,
			COUNT(*) FILTER (WHERE status = ?) as completed,
			COALESCE(AVG(percentage_score) FILTER (WHERE status = ?), 0) as avg_score,
			COALESCE(MAX(ielts_score) FILTER (WHERE status = ?), 0) as best_band,
			COALESCE(SUM(time_spent_seconds), 0) as total_time`,
			models.AttemptCompleted, models.AttemptCompleted, models.AttemptCompleted).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &repositories.UserAttemptStats{
		TotalAttempts:     row.Total,
		CompletedAttempts: row.Completed,
		AverageScore:      row.AvgScore,
		BestBand:          row.BestBand,
		TotalTimeSpent:    row.TotalTime,
		StatusBreakdown:   make(map[models.AttemptStatus]int),
	}

	var breakdown []struct {
		Status models.AttemptStatus
		Count  int
	}
	if err := a.db.WithContext(ctx).
		Model(&models.UserAttempt{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&breakdown).Error; err != nil {
		return nil, err
	}
	for _, b := range breakdown {
		stats.StatusBreakdown[b.Status] = b.Count
	}

	return stats, nil
}

func (a AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.TestID != nil {
		query = query.Where("test_id = ?", *filters.TestID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}
