package postgres

import (
	"context"

	"github.com/ielts-practice/reading-service/internal/repositories"
	"gorm.io/gorm"
)

// Repository is the PostgreSQL-backed aggregate of every entity repository.
type Repository struct {
	db       *gorm.DB
	question repositories.QuestionRepository
	passage  repositories.PassageRepository
	test     repositories.TestRepository
	testPool repositories.TestPoolRepository
	attempt  repositories.AttemptRepository
	user     repositories.UserRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:       db,
		question: NewQuestionPostgreSQL(db),
		passage:  NewPassagePostgreSQL(db),
		test:     NewTestPostgreSQL(db),
		testPool: NewTestPoolPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
		user:     NewUserPostgreSQL(db),
	}
}

func (r *Repository) Question() repositories.QuestionRepository { return r.question }
func (r *Repository) Passage() repositories.PassageRepository   { return r.passage }
func (r *Repository) Test() repositories.TestRepository         { return r.test }
func (r *Repository) TestPool() repositories.TestPoolRepository { return r.testPool }
func (r *Repository) Attempt() repositories.AttemptRepository   { return r.attempt }
func (r *Repository) User() repositories.UserRepository         { return r.user }

// WithTransaction runs fn against a repository whose every operation is
// bound to one transaction. fn returning an error rolls everything back.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
