package postgres

import (
	"context"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"gorm.io/gorm"
)

type TestPoolPostgreSQL struct {
	db *gorm.DB
}

func NewTestPoolPostgreSQL(db *gorm.DB) repositories.TestPoolRepository {
	return &TestPoolPostgreSQL{db: db}
}

func (p TestPoolPostgreSQL) Create(ctx context.Context, pool *models.TestPool) error {
	return p.db.WithContext(ctx).Create(pool).Error
}

func (p TestPoolPostgreSQL) GetByID(ctx context.Context, id uint) (*models.TestPool, error) {
	var pool models.TestPool
	if err := p.db.WithContext(ctx).First(&pool, id).Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

func (p TestPoolPostgreSQL) Update(ctx context.Context, pool *models.TestPool) error {
	return p.db.WithContext(ctx).Save(pool).Error
}

func (p TestPoolPostgreSQL) Delete(ctx context.Context, id uint) error {
	return p.db.WithContext(ctx).Delete(&models.TestPool{}, id).Error
}

func (p TestPoolPostgreSQL) List(ctx context.Context, limit, offset int) ([]*models.TestPool, int64, error) {
	var pools []*models.TestPool
	var total int64

	query := p.db.WithContext(ctx).Model(&models.TestPool{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, limit, offset, "", "", "created_at")

	if err := query.Find(&pools).Error; err != nil {
		return nil, 0, err
	}

	return pools, total, nil
}
