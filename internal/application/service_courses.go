package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/authz"
	"github.com/viralforge/academic-records/internal/domain"
	"github.com/viralforge/academic-records/internal/ports"
)

// CreateCourse adds a catalog entry, optionally assigned to a teacher. Admin only.
func (s *Service) CreateCourse(ctx context.Context, actor domain.Claims, req CourseRequest) (CourseView, error) {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return CourseView{}, err
	}
	now := s.nowFn()
	course := domain.Course{
		CourseID:   uuid.New(),
		Title:      req.Title,
		Code:       req.Code,
		CreditUnit: req.CreditUnit,
		TeacherID:  req.TeacherID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := domain.NormalizeCourse(&course); err != nil {
		return CourseView{}, err
	}

	var created domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := checkTeacherAssignment(ctx, repos, course); err != nil {
			return err
		}
		var err error
		created, err = repos.Courses.Create(ctx, course)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, repos, eventTypeCourseCreated, created.CourseID.String(), coursePayload(created))
	})
	if err != nil {
		return CourseView{}, err
	}
	return toCourseView(created), nil
}

// GetCourse is open to any authenticated caller.
func (s *Service) GetCourse(ctx context.Context, actor domain.Claims, courseID uuid.UUID) (CourseView, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin, domain.RoleTeacher, domain.RoleStudent); err != nil {
		return CourseView{}, err
	}
	var course domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		course, err = repos.Courses.GetByID(ctx, courseID)
		return err
	})
	if err != nil {
		return CourseView{}, err
	}
	return toCourseView(course), nil
}

func (s *Service) ListCourses(ctx context.Context, actor domain.Claims) ([]CourseView, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin, domain.RoleTeacher, domain.RoleStudent); err != nil {
		return nil, err
	}
	var courses []domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		courses, err = repos.Courses.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCourseViews(courses), nil
}

// UpdateCourse edits catalog fields and the teacher assignment. Admin only.
func (s *Service) UpdateCourse(ctx context.Context, actor domain.Claims, courseID uuid.UUID, req UpdateCourseRequest) (CourseView, error) {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return CourseView{}, err
	}
	if req.UnassignTeacher && req.TeacherID != nil {
		return CourseView{}, fmt.Errorf("%w: teacher_id and unassign_teacher are mutually exclusive", domain.ErrInvalidInput)
	}

	var updated domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		course, err := repos.Courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		if req.Title != nil {
			course.Title = *req.Title
		}
		if req.Code != nil {
			course.Code = *req.Code
		}
		if req.CreditUnit != nil {
			if *req.CreditUnit <= 0 {
				return fmt.Errorf("%w: credit unit must be positive", domain.ErrInvalidInput)
			}
			course.CreditUnit = *req.CreditUnit
		}
		switch {
		case req.UnassignTeacher:
			course.TeacherID = nil
		case req.TeacherID != nil:
			teacherID := *req.TeacherID
			course.TeacherID = &teacherID
		}
		if err := domain.NormalizeCourse(&course); err != nil {
			return err
		}
		if err := checkTeacherAssignment(ctx, repos, course); err != nil {
			return err
		}
		course.UpdatedAt = s.nowFn()
		updated, err = repos.Courses.Update(ctx, course)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, repos, eventTypeCourseUpdated, updated.CourseID.String(), coursePayload(updated))
	})
	if err != nil {
		return CourseView{}, err
	}
	return toCourseView(updated), nil
}

// DeleteCourse removes a course with its enrollments and grades. Every
// affected student's GPA is cleared because its basis changed. Admin only.
func (s *Service) DeleteCourse(ctx context.Context, actor domain.Claims, courseID uuid.UUID) error {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		course, err := repos.Courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		students, err := repos.Enrollments.StudentsOf(ctx, courseID)
		if err != nil {
			return fmt.Errorf("list enrolled students: %w", err)
		}
		if err := repos.Courses.Delete(ctx, courseID); err != nil {
			return err
		}
		now := s.nowFn()
		for _, student := range students {
			if err := repos.Users.SetGPA(ctx, student.UserID, nil, now); err != nil {
				return fmt.Errorf("clear gpa: %w", err)
			}
		}
		return s.enqueue(ctx, repos, eventTypeCourseDeleted, courseID.String(), map[string]any{
			"course_id":         courseID.String(),
			"title":             course.Title,
			"affected_students": len(students),
		})
	})
}

// TeacherCourse returns the course assigned to a teacher, to that teacher or an admin.
func (s *Service) TeacherCourse(ctx context.Context, actor domain.Claims, teacherID uuid.UUID) (CourseView, error) {
	if err := authz.RequireSelfOrAdmin(actor, teacherID); err != nil {
		return CourseView{}, err
	}
	var course domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := loadRole(ctx, repos, domain.RoleTeacher, teacherID); err != nil {
			return err
		}
		var err error
		course, err = repos.Courses.GetByTeacher(ctx, teacherID)
		return err
	})
	if err != nil {
		return CourseView{}, err
	}
	return toCourseView(course), nil
}

// checkTeacherAssignment enforces that teacher_id names a TEACHER who owns no
// other course. The unique index on teacher_id still arbitrates races.
func checkTeacherAssignment(ctx context.Context, repos ports.Repositories, course domain.Course) error {
	if course.TeacherID == nil {
		return nil
	}
	teacher, err := repos.Users.GetByID(ctx, *course.TeacherID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: teacher %s does not exist", domain.ErrInvalidInput, *course.TeacherID)
		}
		return err
	}
	if teacher.Role != domain.RoleTeacher {
		return fmt.Errorf("%w: user %s is not a teacher", domain.ErrInvalidInput, teacher.UserID)
	}
	owned, err := repos.Courses.GetByTeacher(ctx, teacher.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case owned.CourseID != course.CourseID:
		return fmt.Errorf("%w: teacher already assigned to %q", domain.ErrConflict, owned.Title)
	}
	return nil
}

func coursePayload(course domain.Course) map[string]any {
	payload := map[string]any{
		"course_id":   course.CourseID.String(),
		"title":       course.Title,
		"code":        course.Code,
		"credit_unit": course.CreditUnit,
	}
	if course.TeacherID != nil {
		payload["teacher_id"] = course.TeacherID.String()
	}
	return payload
}
