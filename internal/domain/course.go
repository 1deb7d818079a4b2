package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxCourseCodeLength = 6

// Course is a catalog entry. A course may be unassigned (TeacherID nil).
type Course struct {
	CourseID   uuid.UUID
	Title      string
	Code       string
	CreditUnit int
	TeacherID  *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaughtBy reports whether the course is assigned to the given teacher.
func (c Course) TaughtBy(teacherID uuid.UUID) bool {
	return c.TeacherID != nil && *c.TeacherID == teacherID
}

// NormalizeCourse validates catalog fields in place and applies the credit unit default.
func NormalizeCourse(c *Course) error {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return fmt.Errorf("%w: course title is required", ErrInvalidInput)
	}
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return fmt.Errorf("%w: course code is required", ErrInvalidInput)
	}
	if len(c.Code) > maxCourseCodeLength {
		return fmt.Errorf("%w: course code must be at most %d characters", ErrInvalidInput, maxCourseCodeLength)
	}
	if c.CreditUnit == 0 {
		c.CreditUnit = 1
	}
	if c.CreditUnit < 0 {
		return fmt.Errorf("%w: credit unit must be positive", ErrInvalidInput)
	}
	return nil
}
