package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := userModel{
		UserID:       user.UserID,
		FullName:     user.FullName,
		Email:        strings.ToLower(user.Email),
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return domain.User{}, mapWriteError(err)
	}
	if user.Student != nil {
		student := studentModel{
			UserID:    user.UserID,
			SchoolID:  user.Student.SchoolID,
			GPA:       user.Student.GPA,
			UpdatedAt: user.UpdatedAt,
		}
		if err := r.db.WithContext(ctx).Create(&student).Error; err != nil {
			return domain.User{}, mapWriteError(err)
		}
		row.Student = &student
	}
	return toDomainUser(row), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).Preload("Student").Where("user_id = ?", userID).Take(&row).Error; err != nil {
		return domain.User{}, notFound(err, "user "+userID.String())
	}
	return toDomainUser(row), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&row).Error; err != nil {
		return domain.User{}, notFound(err, "email")
	}
	return toDomainUser(row), nil
}

func (r *userRepository) GetBySchoolID(ctx context.Context, schoolID string) (domain.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Joins("JOIN students ON students.user_id = users.user_id").
		Where("students.school_id = ?", strings.TrimSpace(schoolID)).
		Take(&row).Error; err != nil {
		return domain.User{}, notFound(err, "school id "+schoolID)
	}
	return toDomainUser(row), nil
}

func (r *userRepository) List(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var rows []userModel
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("role = ?", string(role)).
		Order("full_name ASC, user_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainUser(row))
	}
	return out, nil
}

func (r *userRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", user.UserID).
		Updates(map[string]any{
			"full_name":     user.FullName,
			"email":         strings.ToLower(user.Email),
			"password_hash": user.PasswordHash,
			"updated_at":    user.UpdatedAt,
		})
	if res.Error != nil {
		return domain.User{}, mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.User{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, user.UserID)
	}
	return r.GetByID(ctx, user.UserID)
}

func (r *userRepository) SetGPA(ctx context.Context, studentID uuid.UUID, gpa *float64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&studentModel{}).
		Where("user_id = ?", studentID).
		Updates(map[string]any{
			"gpa":        gpa,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: student %s", domain.ErrNotFound, studentID)
	}
	return nil
}

// Delete relies on the schema's cascades for the student profile,
// enrollments and grades, and on SET NULL for an owned course.
func (r *userRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&userModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return nil
}
