package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
	"gorm.io/gorm"
)

type enrollmentRepository struct {
	db *gorm.DB
}

func (r *enrollmentRepository) Insert(ctx context.Context, studentID, courseID uuid.UUID, at time.Time) error {
	row := enrollmentModel{StudentID: studentID, CourseID: courseID, EnrolledAt: at}
	return mapWriteError(r.db.WithContext(ctx).Create(&row).Error)
}

func (r *enrollmentRepository) Delete(ctx context.Context, studentID, courseID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&enrollmentModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotEnrolled
	}
	return nil
}

func (r *enrollmentRepository) Exists(ctx context.Context, studentID, courseID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&enrollmentModel{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *enrollmentRepository) CoursesOf(ctx context.Context, studentID uuid.UUID) ([]domain.Course, error) {
	var rows []courseModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.course_id = courses.course_id").
		Where("enrollments.student_id = ?", studentID).
		Order("courses.title ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCourses(rows), nil
}

func (r *enrollmentRepository) StudentsOf(ctx context.Context, courseID uuid.UUID) ([]domain.User, error) {
	var rows []userModel
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Joins("JOIN enrollments ON enrollments.student_id = users.user_id").
		Where("enrollments.course_id = ?", courseID).
		Order("users.full_name ASC, users.user_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainUser(row))
	}
	return out, nil
}

type gradeRepository struct {
	db *gorm.DB
}

func (r *gradeRepository) Insert(ctx context.Context, grade domain.Grade) error {
	row := fromDomainGrade(grade)
	return mapWriteError(r.db.WithContext(ctx).Create(&row).Error)
}

func (r *gradeRepository) Get(ctx context.Context, studentID, courseID uuid.UUID) (domain.Grade, error) {
	var row gradeModel
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Take(&row).Error; err != nil {
		return domain.Grade{}, notFound(err, "grade")
	}
	return toDomainGrade(row), nil
}

func (r *gradeRepository) Update(ctx context.Context, grade domain.Grade) error {
	res := r.db.WithContext(ctx).
		Model(&gradeModel{}).
		Where("student_id = ? AND course_id = ?", grade.StudentID, grade.CourseID).
		Updates(map[string]any{
			"score":        grade.Score,
			"letter_grade": string(grade.Letter),
			"updated_at":   grade.UpdatedAt,
		})
	if res.Error != nil {
		return mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: grade", domain.ErrNotFound)
	}
	return nil
}

func (r *gradeRepository) Delete(ctx context.Context, studentID, courseID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&gradeModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: grade", domain.ErrNotFound)
	}
	return nil
}

func (r *gradeRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.Grade, error) {
	var rows []gradeModel
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Grade, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainGrade(row))
	}
	return out, nil
}
