package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
)

// UserRepository owns identity rows, including the student profile.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetBySchoolID(ctx context.Context, schoolID string) (domain.User, error)
	List(ctx context.Context, role domain.Role) ([]domain.User, error)
	// Update persists full name, email and password hash. Role never changes.
	Update(ctx context.Context, user domain.User) (domain.User, error)
	SetGPA(ctx context.Context, studentID uuid.UUID, gpa *float64, at time.Time) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type CourseRepository interface {
	Create(ctx context.Context, course domain.Course) (domain.Course, error)
	GetByID(ctx context.Context, courseID uuid.UUID) (domain.Course, error)
	GetByTitle(ctx context.Context, title string) (domain.Course, error)
	GetByTeacher(ctx context.Context, teacherID uuid.UUID) (domain.Course, error)
	List(ctx context.Context) ([]domain.Course, error)
	Update(ctx context.Context, course domain.Course) (domain.Course, error)
	Delete(ctx context.Context, courseID uuid.UUID) error
}

// EnrollmentRepository owns the student-course relation rows only.
type EnrollmentRepository interface {
	// Insert fails with domain.ErrAlreadyEnrolled when the pair exists.
	Insert(ctx context.Context, studentID, courseID uuid.UUID, at time.Time) error
	// Delete fails with domain.ErrNotEnrolled when the pair is absent.
	Delete(ctx context.Context, studentID, courseID uuid.UUID) error
	Exists(ctx context.Context, studentID, courseID uuid.UUID) (bool, error)
	CoursesOf(ctx context.Context, studentID uuid.UUID) ([]domain.Course, error)
	StudentsOf(ctx context.Context, courseID uuid.UUID) ([]domain.User, error)
}

// GradeRepository owns grade rows keyed by (student, course).
type GradeRepository interface {
	// Insert fails with domain.ErrAlreadyGraded when the key exists.
	Insert(ctx context.Context, grade domain.Grade) error
	Get(ctx context.Context, studentID, courseID uuid.UUID) (domain.Grade, error)
	Update(ctx context.Context, grade domain.Grade) error
	// Delete fails with domain.ErrNotFound when no grade exists.
	Delete(ctx context.Context, studentID, courseID uuid.UUID) error
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.Grade, error)
}

// OutboxEvent is written in the same transaction as the state change it describes.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

type OutboxWriter interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
}

// OutboxRepository is the relay side used by the worker.
type OutboxRepository interface {
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// Repositories is the set of repositories bound to one transaction.
type Repositories struct {
	Users       UserRepository
	Courses     CourseRepository
	Enrollments EnrollmentRepository
	Grades      GradeRepository
	Outbox      OutboxWriter
}

// UnitOfWork runs fn inside a single transaction. Any error returned by fn
// rolls back every write made through repos.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
