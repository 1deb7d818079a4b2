package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role tags an identity. It is fixed at creation and never mutated.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// ParseRole accepts the canonical role names case-insensitively.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

// User is the single identity entity for admins, teachers and students.
// Role-specific capabilities hang off it; only students carry a profile today,
// teacher course ownership lives on Course.TeacherID.
type User struct {
	UserID       uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	Student      *StudentProfile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StudentProfile holds the student-only fields.
type StudentProfile struct {
	SchoolID string
	// GPA stays nil until the first successful computation.
	GPA *float64
}

func (u User) IsStudent() bool { return u.Role == RoleStudent && u.Student != nil }

// SchoolID returns the student's school id or "" for other roles.
func (u User) SchoolID() string {
	if u.Student == nil {
		return ""
	}
	return u.Student.SchoolID
}

// NormalizeFullName collapses whitespace and requires a first and last name.
func NormalizeFullName(fullName string) (string, error) {
	parts := strings.Fields(fullName)
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: provide a first name and a last name", ErrInvalidInput)
	}
	return strings.Join(parts, " "), nil
}
