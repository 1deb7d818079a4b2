package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID       uuid.UUID     `gorm:"column:user_id;type:uuid;primaryKey"`
	FullName     string        `gorm:"column:full_name"`
	Email        string        `gorm:"column:email"`
	PasswordHash string        `gorm:"column:password_hash"`
	Role         string        `gorm:"column:role"`
	CreatedAt    time.Time     `gorm:"column:created_at"`
	UpdatedAt    time.Time     `gorm:"column:updated_at"`
	Student      *studentModel `gorm:"foreignKey:UserID;references:UserID"`
}

func (userModel) TableName() string { return "users" }

type studentModel struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	SchoolID  string    `gorm:"column:school_id"`
	GPA       *float64  `gorm:"column:gpa"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (studentModel) TableName() string { return "students" }

type courseModel struct {
	CourseID   uuid.UUID  `gorm:"column:course_id;type:uuid;primaryKey"`
	Title      string     `gorm:"column:title"`
	Code       string     `gorm:"column:code"`
	CreditUnit int        `gorm:"column:credit_unit"`
	TeacherID  *uuid.UUID `gorm:"column:teacher_id;type:uuid"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (courseModel) TableName() string { return "courses" }

type enrollmentModel struct {
	StudentID  uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey"`
	CourseID   uuid.UUID `gorm:"column:course_id;type:uuid;primaryKey"`
	EnrolledAt time.Time `gorm:"column:enrolled_at"`
}

func (enrollmentModel) TableName() string { return "enrollments" }

type gradeModel struct {
	StudentID   uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey"`
	CourseID    uuid.UUID `gorm:"column:course_id;type:uuid;primaryKey"`
	Score       float64   `gorm:"column:score"`
	LetterGrade string    `gorm:"column:letter_grade"`
	GradedAt    time.Time `gorm:"column:graded_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (gradeModel) TableName() string { return "grades" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "records_outbox" }
