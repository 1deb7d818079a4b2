package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
	"gorm.io/gorm"
)

type courseRepository struct {
	db *gorm.DB
}

func (r *courseRepository) Create(ctx context.Context, course domain.Course) (domain.Course, error) {
	row := fromDomainCourse(course)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Course{}, mapWriteError(err)
	}
	return toDomainCourse(row), nil
}

func (r *courseRepository) GetByID(ctx context.Context, courseID uuid.UUID) (domain.Course, error) {
	return r.take(ctx, "course "+courseID.String(), "course_id = ?", courseID)
}

func (r *courseRepository) GetByTitle(ctx context.Context, title string) (domain.Course, error) {
	return r.take(ctx, fmt.Sprintf("course %q", title), "title = ?", title)
}

func (r *courseRepository) GetByTeacher(ctx context.Context, teacherID uuid.UUID) (domain.Course, error) {
	return r.take(ctx, "course for teacher "+teacherID.String(), "teacher_id = ?", teacherID)
}

func (r *courseRepository) take(ctx context.Context, what, query string, args ...any) (domain.Course, error) {
	var row courseModel
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&row).Error; err != nil {
		return domain.Course{}, notFound(err, what)
	}
	return toDomainCourse(row), nil
}

func (r *courseRepository) List(ctx context.Context) ([]domain.Course, error) {
	var rows []courseModel
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCourses(rows), nil
}

func (r *courseRepository) Update(ctx context.Context, course domain.Course) (domain.Course, error) {
	res := r.db.WithContext(ctx).
		Model(&courseModel{}).
		Where("course_id = ?", course.CourseID).
		Updates(map[string]any{
			"title":       course.Title,
			"code":        course.Code,
			"credit_unit": course.CreditUnit,
			"teacher_id":  course.TeacherID,
			"updated_at":  course.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Course{}, mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Course{}, fmt.Errorf("%w: course %s", domain.ErrNotFound, course.CourseID)
	}
	return r.GetByID(ctx, course.CourseID)
}

// Delete relies on the schema's cascades for enrollments and grades.
func (r *courseRepository) Delete(ctx context.Context, courseID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("course_id = ?", courseID).Delete(&courseModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: course %s", domain.ErrNotFound, courseID)
	}
	return nil
}

func toDomainCourses(rows []courseModel) []domain.Course {
	out := make([]domain.Course, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainCourse(row))
	}
	return out
}
