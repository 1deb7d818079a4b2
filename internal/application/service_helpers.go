package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
	"github.com/viralforge/academic-records/internal/ports"
)

const serviceName = "academic-records"

func appLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "application",
		"layer", "application",
	)
}

// normalizeEmail canonicalizes and validates email format before persistence/comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

func normalizeSchoolID(schoolID string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(schoolID))
	if trimmed == "" {
		return "", fmt.Errorf("%w: school_id is required", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// loadStudent resolves a user id that must belong to a student.
func loadStudent(ctx context.Context, repos ports.Repositories, studentID uuid.UUID) (domain.User, error) {
	user, err := repos.Users.GetByID(ctx, studentID)
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsStudent() {
		return domain.User{}, fmt.Errorf("%w: student %s", domain.ErrNotFound, studentID)
	}
	return user, nil
}

func loadStudentBySchoolID(ctx context.Context, repos ports.Repositories, schoolID string) (domain.User, error) {
	normalized, err := normalizeSchoolID(schoolID)
	if err != nil {
		return domain.User{}, err
	}
	user, err := repos.Users.GetBySchoolID(ctx, normalized)
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsStudent() {
		return domain.User{}, fmt.Errorf("%w: student %s", domain.ErrNotFound, normalized)
	}
	return user, nil
}

func loadCourseByTitle(ctx context.Context, repos ports.Repositories, title string) (domain.Course, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return domain.Course{}, fmt.Errorf("%w: course title is required", domain.ErrInvalidInput)
	}
	return repos.Courses.GetByTitle(ctx, trimmed)
}
