package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/lingocrowd/contribution_control/internal/contribution"
	"github.com/lingocrowd/contribution_control/internal/task"
	"github.com/lingocrowd/contribution_control/internal/validation"
)

// Repositories is the set of stores bound to one connection or transaction.
type Repositories struct {
	Tasks         task.Repository
	Contributions contribution.Repository
	Validations   validation.Repository
}

type Store interface {
	Repositories() Repositories
	// Transaction runs fn in a single database transaction. Any error returned
	// by fn rolls back every write made through the given repositories.
	Transaction(ctx context.Context, fn func(r Repositories) error) error
	// Chunk runs fn in a transaction where each item can be rolled back on its
	// own through the Savepoint handle.
	Chunk(ctx context.Context, fn func(r Repositories, sp Savepoint) error) error
}

// ErrSavepoint means the chunk transaction itself is broken and must be abandoned.
var ErrSavepoint = errors.New("savepoint failed")

// Savepoint isolates one item inside a chunk transaction.
type Savepoint interface {
	Run(name string, fn func() error) error
}

type gormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func bind(db *gorm.DB) Repositories {
	return Repositories{
		Tasks:         task.NewRepository(db),
		Contributions: contribution.NewRepository(db),
		Validations:   validation.NewRepository(db),
	}
}

func (s *gormStore) Repositories() Repositories {
	return bind(s.db)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(r Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx))
	})
}

func (s *gormStore) Chunk(ctx context.Context, fn func(r Repositories, sp Savepoint) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx), gormSavepoint{tx: tx})
	})
}

type gormSavepoint struct {
	tx *gorm.DB
}

func (s gormSavepoint) Run(name string, fn func() error) error {
	if err := s.tx.SavePoint(name).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrSavepoint, err)
	}
	if err := fn(); err != nil {
		if rbErr := s.tx.RollbackTo(name).Error; rbErr != nil {
			return fmt.Errorf("%w: %v", ErrSavepoint, rbErr)
		}
		return err
	}
	return nil
}

// AutoMigrate creates or updates the schema of every store.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&task.Project{},
		&task.Task{},
		&contribution.Contribution{},
		&validation.Validation{},
	)
}
