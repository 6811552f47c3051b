package postgres

import (
	"context"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	return q.db.WithContext(ctx).Create(question).Error
}

func (q QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return q.db.WithContext(ctx).Create(questions).Error
}

func (q QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	var questions []*models.Question
	if len(ids) == 0 {
		return questions, nil
	}
	if err := q.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	return q.db.WithContext(ctx).Save(question).Error
}

func (q QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	return q.db.WithContext(ctx).Delete(&models.Question{}, id).Error
}

func (q QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	var questions []*models.Question
	var total int64

	// apply filter first
	query := q.db.WithContext(ctx).Model(&models.Question{})
	query = q.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "created_at")

	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, err
	}

	return questions, total, nil
}

func (q QuestionPostgreSQL) GetByPassage(ctx context.Context, passageID uint) ([]*models.Question, error) {
	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Where("passage_id = ?", passageID).
		Order(`"order" ASC`).
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q QuestionPostgreSQL) CountByKind(ctx context.Context) (map[models.QuestionKind]int, error) {
	var rows []struct {
		Kind  models.QuestionKind
		Count int
	}
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("kind, COUNT(*) as count").
		Group("kind").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.QuestionKind]int, len(rows))
	for _, row := range rows {
		counts[row.Kind] = row.Count
	}
	return counts, nil
}

func (q QuestionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.QuestionFilters) *gorm.DB {
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	if filters.PassageID != nil {
		query = query.Where("passage_id = ?", *filters.PassageID)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Search != "" {
		query = query.Where("text ILIKE ? OR title ILIKE ?", "%"+filters.Search+"%", "%"+filters.Search+"%")
	}
	return query
}
