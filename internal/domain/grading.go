package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// LetterGrade is the coarse A-F band derived from a numeric score.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeF LetterGrade = "F"
)

// Grade is keyed by the (student, course) pair; there is no surrogate id.
type Grade struct {
	StudentID uuid.UUID
	CourseID  uuid.UUID
	Score     float64
	Letter    LetterGrade
	GradedAt  time.Time
	UpdatedAt time.Time
}

// ValidateScore rejects values that cannot be bucketed. The 0-100 range is
// expected but not enforced.
func ValidateScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return fmt.Errorf("%w: score must be a finite number", ErrInvalidInput)
	}
	return nil
}

// LetterFor maps a score to its band after rounding half to even:
// [70,100] A, [55,70) B, [40,55) C, [30,40) D, below 30 F.
// Rounded scores above 100 stay A and negative scores stay F.
func LetterFor(score float64) LetterGrade {
	rounded := math.RoundToEven(score)
	switch {
	case rounded >= 70:
		return GradeA
	case rounded >= 55:
		return GradeB
	case rounded >= 40:
		return GradeC
	case rounded >= 30:
		return GradeD
	default:
		return GradeF
	}
}

// Points returns the grade point for the letter.
func (l LetterGrade) Points() float64 {
	switch l {
	case GradeA:
		return 4.0
	case GradeB:
		return 3.0
	case GradeC:
		return 2.0
	case GradeD:
		return 1.0
	default:
		return 0.0
	}
}

// ComputeGPA returns the credit-weighted grade point average over every
// enrolled course, rounded to two decimals. A course without a grade aborts
// the computation with ErrIncompleteRecord. No courses yields nil.
func ComputeGPA(courses []Course, grades map[uuid.UUID]Grade) (*float64, error) {
	if len(courses) == 0 {
		return nil, nil
	}
	var totalPoints float64
	var totalCredits int
	for _, course := range courses {
		grade, ok := grades[course.CourseID]
		if !ok {
			return nil, fmt.Errorf("%w: no grade for course %q", ErrIncompleteRecord, course.Title)
		}
		totalPoints += grade.Letter.Points() * float64(course.CreditUnit)
		totalCredits += course.CreditUnit
	}
	if totalCredits <= 0 {
		return nil, fmt.Errorf("%w: enrolled courses carry no credit units", ErrIncompleteRecord)
	}
	gpa := math.Round(totalPoints/float64(totalCredits)*100) / 100
	return &gpa, nil
}
