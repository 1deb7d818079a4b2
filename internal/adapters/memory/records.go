package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
)

type enrollmentRepository struct {
	st *state
}

func (r *enrollmentRepository) Insert(_ context.Context, studentID, courseID uuid.UUID, at time.Time) error {
	key := pairKey{studentID: studentID, courseID: courseID}
	if _, ok := r.st.enrollments[key]; ok {
		return domain.ErrAlreadyEnrolled
	}
	if _, ok := r.st.users[studentID]; !ok {
		return fmt.Errorf("%w: student %s", domain.ErrNotFound, studentID)
	}
	if _, ok := r.st.courses[courseID]; !ok {
		return fmt.Errorf("%w: course %s", domain.ErrNotFound, courseID)
	}
	r.st.enrollments[key] = at
	return nil
}

func (r *enrollmentRepository) Delete(_ context.Context, studentID, courseID uuid.UUID) error {
	key := pairKey{studentID: studentID, courseID: courseID}
	if _, ok := r.st.enrollments[key]; !ok {
		return domain.ErrNotEnrolled
	}
	delete(r.st.enrollments, key)
	return nil
}

func (r *enrollmentRepository) Exists(_ context.Context, studentID, courseID uuid.UUID) (bool, error) {
	_, ok := r.st.enrollments[pairKey{studentID: studentID, courseID: courseID}]
	return ok, nil
}

func (r *enrollmentRepository) CoursesOf(_ context.Context, studentID uuid.UUID) ([]domain.Course, error) {
	out := make([]domain.Course, 0)
	for key := range r.st.enrollments {
		if key.studentID != studentID {
			continue
		}
		if course, ok := r.st.courses[key.courseID]; ok {
			out = append(out, cloneCourse(course))
		}
	}
	sortCourses(out)
	return out, nil
}

func (r *enrollmentRepository) StudentsOf(_ context.Context, courseID uuid.UUID) ([]domain.User, error) {
	out := make([]domain.User, 0)
	for key := range r.st.enrollments {
		if key.courseID != courseID {
			continue
		}
		if user, ok := r.st.users[key.studentID]; ok {
			out = append(out, cloneUser(user))
		}
	}
	sortUsers(out)
	return out, nil
}

type gradeRepository struct {
	st *state
}

func (r *gradeRepository) Insert(_ context.Context, grade domain.Grade) error {
	key := pairKey{studentID: grade.StudentID, courseID: grade.CourseID}
	if _, ok := r.st.grades[key]; ok {
		return domain.ErrAlreadyGraded
	}
	r.st.grades[key] = grade
	return nil
}

func (r *gradeRepository) Get(_ context.Context, studentID, courseID uuid.UUID) (domain.Grade, error) {
	grade, ok := r.st.grades[pairKey{studentID: studentID, courseID: courseID}]
	if !ok {
		return domain.Grade{}, fmt.Errorf("%w: grade", domain.ErrNotFound)
	}
	return grade, nil
}

func (r *gradeRepository) Update(_ context.Context, grade domain.Grade) error {
	key := pairKey{studentID: grade.StudentID, courseID: grade.CourseID}
	current, ok := r.st.grades[key]
	if !ok {
		return fmt.Errorf("%w: grade", domain.ErrNotFound)
	}
	grade.GradedAt = current.GradedAt
	r.st.grades[key] = grade
	return nil
}

func (r *gradeRepository) Delete(_ context.Context, studentID, courseID uuid.UUID) error {
	key := pairKey{studentID: studentID, courseID: courseID}
	if _, ok := r.st.grades[key]; !ok {
		return fmt.Errorf("%w: grade", domain.ErrNotFound)
	}
	delete(r.st.grades, key)
	return nil
}

func (r *gradeRepository) ListByStudent(_ context.Context, studentID uuid.UUID) ([]domain.Grade, error) {
	out := make([]domain.Grade, 0)
	for key, grade := range r.st.grades {
		if key.studentID == studentID {
			out = append(out, grade)
		}
	}
	return out, nil
}
