package postgres

import (
	"context"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"gorm.io/gorm"
)

type PassagePostgreSQL struct {
	db *gorm.DB
}

func NewPassagePostgreSQL(db *gorm.DB) repositories.PassageRepository {
	return &PassagePostgreSQL{db: db}
}

func (p PassagePostgreSQL) Create(ctx context.Context, passage *models.ReadingPassage) error {
	return p.db.WithContext(ctx).Create(passage).Error
}

func (p PassagePostgreSQL) GetByID(ctx context.Context, id uint) (*models.ReadingPassage, error) {
	var passage models.ReadingPassage
	if err := p.db.WithContext(ctx).First(&passage, id).Error; err != nil {
		return nil, err
	}
	return &passage, nil
}

func (p PassagePostgreSQL) GetByIDWithQuestions(ctx context.Context, id uint) (*models.ReadingPassage, error) {
	var passage models.ReadingPassage
	if err := p.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		First(&passage, id).Error; err != nil {
		return nil, err
	}
	passage.QuestionCount = len(passage.Questions)
	return &passage, nil
}

func (p PassagePostgreSQL) Update(ctx context.Context, passage *models.ReadingPassage) error {
	return p.db.WithContext(ctx).Save(passage).Error
}

func (p PassagePostgreSQL) Delete(ctx context.Context, id uint) error {
	return p.db.WithContext(ctx).Delete(&models.ReadingPassage{}, id).Error
}

func (p PassagePostgreSQL) List(ctx context.Context, filters repositories.PassageFilters) ([]*models.ReadingPassage, int64, error) {
	var passages []*models.ReadingPassage
	var total int64

	query := p.db.WithContext(ctx).Model(&models.ReadingPassage{})
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Search != "" {
		query = query.Where("title ILIKE ? OR content ILIKE ?", "%"+filters.Search+"%", "%"+filters.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "created_at")

	if err := query.Find(&passages).Error; err != nil {
		return nil, 0, err
	}

	return passages, total, nil
}
