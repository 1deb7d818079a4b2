package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/viralforge/academic-records/internal/domain"
	"github.com/viralforge/academic-records/internal/ports"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// constraintErrors maps named constraints from the embedded schema to the
// domain error a violation means.
var constraintErrors = map[string]error{
	"users_email_key":        fmt.Errorf("%w: email already registered", domain.ErrConflict),
	"students_school_id_key": fmt.Errorf("%w: school id already issued", domain.ErrConflict),
	"courses_title_key":      fmt.Errorf("%w: course title already exists", domain.ErrConflict),
	"courses_code_key":       fmt.Errorf("%w: course code already exists", domain.ErrConflict),
	"courses_teacher_id_key": fmt.Errorf("%w: teacher already assigned to a course", domain.ErrConflict),
	"enrollments_pkey":       domain.ErrAlreadyEnrolled,
	"grades_pkey":            domain.ErrAlreadyGraded,
	"grades_enrollment_fkey": domain.ErrNotRegistered,
}

// mapWriteError turns constraint violations into domain errors. Anything
// else is returned unchanged and surfaces as an infrastructure failure.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return mapped
		}
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return err
}

func toDomainUser(row userModel) domain.User {
	user := domain.User{
		UserID:       row.UserID,
		FullName:     row.FullName,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         domain.Role(row.Role),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Student != nil {
		user.Student = &domain.StudentProfile{
			SchoolID: row.Student.SchoolID,
			GPA:      row.Student.GPA,
		}
	}
	return user
}

func toDomainCourse(row courseModel) domain.Course {
	return domain.Course{
		CourseID:   row.CourseID,
		Title:      row.Title,
		Code:       row.Code,
		CreditUnit: row.CreditUnit,
		TeacherID:  row.TeacherID,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func fromDomainCourse(course domain.Course) courseModel {
	return courseModel{
		CourseID:   course.CourseID,
		Title:      course.Title,
		Code:       course.Code,
		CreditUnit: course.CreditUnit,
		TeacherID:  course.TeacherID,
		CreatedAt:  course.CreatedAt,
		UpdatedAt:  course.UpdatedAt,
	}
}

func toDomainGrade(row gradeModel) domain.Grade {
	return domain.Grade{
		StudentID: row.StudentID,
		CourseID:  row.CourseID,
		Score:     row.Score,
		Letter:    domain.LetterGrade(row.LetterGrade),
		GradedAt:  row.GradedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func fromDomainGrade(grade domain.Grade) gradeModel {
	return gradeModel{
		StudentID:   grade.StudentID,
		CourseID:    grade.CourseID,
		Score:       grade.Score,
		LetterGrade: string(grade.Letter),
		GradedAt:    grade.GradedAt,
		UpdatedAt:   grade.UpdatedAt,
	}
}

func toOutboxRecord(row outboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       row.OutboxID,
		EventType:      row.EventType,
		PartitionKey:   row.PartitionKey,
		Payload:        []byte(row.Payload),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		PublishedAt:    row.PublishedAt,
		LastErrorAt:    row.LastErrorAt,
		ClaimToken:     row.ClaimToken,
		ClaimUntil:     row.ClaimUntil,
		DeadLetteredAt: row.DeadLetteredAt,
	}
}
