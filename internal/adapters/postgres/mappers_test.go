package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/viralforge/academic-records/internal/domain"
	"gorm.io/gorm"
)

func TestMapWriteError(t *testing.T) {
	t.Parallel()

	infra := errors.New("connection reset")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "duplicate email", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, want: domain.ErrConflict},
		{name: "duplicate school id", err: &pgconn.PgError{Code: "23505", ConstraintName: "students_school_id_key"}, want: domain.ErrConflict},
		{name: "double grading", err: &pgconn.PgError{Code: "23505", ConstraintName: "grades_pkey"}, want: domain.ErrAlreadyGraded},
		{name: "double enrollment", err: &pgconn.PgError{Code: "23505", ConstraintName: "enrollments_pkey"}, want: domain.ErrAlreadyEnrolled},
		{name: "grade without enrollment", err: &pgconn.PgError{Code: "23503", ConstraintName: "grades_enrollment_fkey"}, want: domain.ErrNotRegistered},
		{name: "teacher owns a course", err: &pgconn.PgError{Code: "23505", ConstraintName: "courses_teacher_id_key"}, want: domain.ErrConflict},
		{name: "unknown unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "other_key"}, want: domain.ErrConflict},
		{name: "wrapped", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "grades_pkey"}), want: domain.ErrAlreadyGraded},
		{name: "translated duplicate", err: gorm.ErrDuplicatedKey, want: domain.ErrConflict},
		{name: "infrastructure", err: infra, want: infra},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := mapWriteError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("mapWriteError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}

	if mapWriteError(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	if errors.Is(mapWriteError(infra), domain.ErrConflict) {
		t.Fatalf("infrastructure errors must not become domain errors")
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	if err := notFound(gorm.ErrRecordNotFound, "course"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	other := errors.New("timeout")
	if err := notFound(other, "course"); !errors.Is(err, other) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected passthrough, got %v", err)
	}
}
