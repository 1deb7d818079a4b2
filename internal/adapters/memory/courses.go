package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
)

type courseRepository struct {
	st *state
}

func (r *courseRepository) Create(_ context.Context, course domain.Course) (domain.Course, error) {
	if _, ok := r.st.courses[course.CourseID]; ok {
		return domain.Course{}, fmt.Errorf("%w: course id already exists", domain.ErrConflict)
	}
	if err := r.checkUnique(course); err != nil {
		return domain.Course{}, err
	}
	r.index(course)
	return cloneCourse(course), nil
}

func (r *courseRepository) GetByID(_ context.Context, courseID uuid.UUID) (domain.Course, error) {
	course, ok := r.st.courses[courseID]
	if !ok {
		return domain.Course{}, fmt.Errorf("%w: course %s", domain.ErrNotFound, courseID)
	}
	return cloneCourse(course), nil
}

func (r *courseRepository) GetByTitle(ctx context.Context, title string) (domain.Course, error) {
	id, ok := r.st.byTitle[title]
	if !ok {
		return domain.Course{}, fmt.Errorf("%w: course %q", domain.ErrNotFound, title)
	}
	return r.GetByID(ctx, id)
}

func (r *courseRepository) GetByTeacher(ctx context.Context, teacherID uuid.UUID) (domain.Course, error) {
	id, ok := r.st.byTeacher[teacherID]
	if !ok {
		return domain.Course{}, fmt.Errorf("%w: no course for teacher %s", domain.ErrNotFound, teacherID)
	}
	return r.GetByID(ctx, id)
}

func (r *courseRepository) List(_ context.Context) ([]domain.Course, error) {
	out := make([]domain.Course, 0, len(r.st.courses))
	for _, course := range r.st.courses {
		out = append(out, cloneCourse(course))
	}
	sortCourses(out)
	return out, nil
}

func (r *courseRepository) Update(_ context.Context, course domain.Course) (domain.Course, error) {
	current, ok := r.st.courses[course.CourseID]
	if !ok {
		return domain.Course{}, fmt.Errorf("%w: course %s", domain.ErrNotFound, course.CourseID)
	}
	if err := r.checkUnique(course); err != nil {
		return domain.Course{}, err
	}
	r.unindex(current)
	course.CreatedAt = current.CreatedAt
	r.index(course)
	return cloneCourse(course), nil
}

// Delete cascades the course's enrollments and grades.
func (r *courseRepository) Delete(_ context.Context, courseID uuid.UUID) error {
	course, ok := r.st.courses[courseID]
	if !ok {
		return fmt.Errorf("%w: course %s", domain.ErrNotFound, courseID)
	}
	r.unindex(course)
	for key := range r.st.enrollments {
		if key.courseID == courseID {
			delete(r.st.enrollments, key)
		}
	}
	for key := range r.st.grades {
		if key.courseID == courseID {
			delete(r.st.grades, key)
		}
	}
	return nil
}

// checkUnique enforces the title, code and teacher unique indexes, ignoring
// the row being updated.
func (r *courseRepository) checkUnique(course domain.Course) error {
	if id, ok := r.st.byTitle[course.Title]; ok && id != course.CourseID {
		return fmt.Errorf("%w: course title %q already exists", domain.ErrConflict, course.Title)
	}
	if id, ok := r.st.byCode[course.Code]; ok && id != course.CourseID {
		return fmt.Errorf("%w: course code %q already exists", domain.ErrConflict, course.Code)
	}
	if course.TeacherID != nil {
		if id, ok := r.st.byTeacher[*course.TeacherID]; ok && id != course.CourseID {
			return fmt.Errorf("%w: teacher already assigned to a course", domain.ErrConflict)
		}
	}
	return nil
}

func (r *courseRepository) index(course domain.Course) {
	r.st.courses[course.CourseID] = cloneCourse(course)
	r.st.byTitle[course.Title] = course.CourseID
	r.st.byCode[course.Code] = course.CourseID
	if course.TeacherID != nil {
		r.st.byTeacher[*course.TeacherID] = course.CourseID
	}
}

func (r *courseRepository) unindex(course domain.Course) {
	delete(r.st.courses, course.CourseID)
	delete(r.st.byTitle, course.Title)
	delete(r.st.byCode, course.Code)
	if course.TeacherID != nil {
		delete(r.st.byTeacher, *course.TeacherID)
	}
}

func sortCourses(courses []domain.Course) {
	sort.Slice(courses, func(i, j int) bool { return courses[i].Title < courses[j].Title })
}
