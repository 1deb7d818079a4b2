package postgres

import (
	"context"

	"github.com/viralforge/academic-records/internal/ports"
	"gorm.io/gorm"
)

// UnitOfWork runs each use case inside one database transaction.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, repositoriesFor(tx))
	})
}

func repositoriesFor(tx *gorm.DB) ports.Repositories {
	return ports.Repositories{
		Users:       &userRepository{db: tx},
		Courses:     &courseRepository{db: tx},
		Enrollments: &enrollmentRepository{db: tx},
		Grades:      &gradeRepository{db: tx},
		Outbox:      &outboxRepository{db: tx},
	}
}

// NewOutboxRepository returns the relay side of the outbox for the worker.
func NewOutboxRepository(db *gorm.DB) ports.OutboxRepository {
	return &outboxRepository{db: db}
}
