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

// Register enrolls a student, identified by school id, in one course.
func (s *Service) Register(ctx context.Context, actor domain.Claims, schoolID, courseTitle string) (CourseView, error) {
	student, err := s.enrollingStudent(ctx, actor, schoolID)
	if err != nil {
		return CourseView{}, err
	}
	return s.registerOne(ctx, student, courseTitle)
}

// RegisterBatch enrolls a student in several courses. Every title runs in
// its own transaction, so a missing course or a duplicate enrollment is
// reported for that item and the rest still commit. Authorization and
// infrastructure failures abort the remaining items.
func (s *Service) RegisterBatch(ctx context.Context, actor domain.Claims, req EnrollmentRequest) ([]EnrollmentOutcome, error) {
	if len(req.CourseTitles) == 0 {
		return nil, fmt.Errorf("%w: course_titles must not be empty", domain.ErrInvalidInput)
	}
	student, err := s.enrollingStudent(ctx, actor, req.SchoolID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]EnrollmentOutcome, 0, len(req.CourseTitles))
	for _, title := range req.CourseTitles {
		_, err := s.registerOne(ctx, student, title)
		switch {
		case err == nil:
			outcomes = append(outcomes, EnrollmentOutcome{CourseTitle: title, Status: EnrollmentRegistered})
		case isItemFailure(err):
			outcomes = append(outcomes, EnrollmentOutcome{
				CourseTitle: title,
				Status:      EnrollmentFailed,
				Error:       err.Error(),
				Err:         err,
			})
		default:
			return outcomes, err
		}
	}

	appLogger().InfoContext(ctx, "batch registration processed",
		"operation", "register_batch",
		"outcome", "success",
		"student_id", student.UserID.String(),
		"items", len(outcomes),
	)
	return outcomes, nil
}

func isItemFailure(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrAlreadyEnrolled) ||
		errors.Is(err, domain.ErrInvalidInput)
}

// enrollingStudent resolves the school id and checks the caller is that
// student or an admin.
func (s *Service) enrollingStudent(ctx context.Context, actor domain.Claims, schoolID string) (domain.User, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin, domain.RoleStudent); err != nil {
		return domain.User{}, err
	}
	var student domain.User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		student, err = loadStudentBySchoolID(ctx, repos, schoolID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	if err := authz.RequireSelfOrAdmin(actor, student.UserID); err != nil {
		return domain.User{}, err
	}
	return student, nil
}

func (s *Service) registerOne(ctx context.Context, student domain.User, courseTitle string) (CourseView, error) {
	var course domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		course, err = loadCourseByTitle(ctx, repos, courseTitle)
		if err != nil {
			return err
		}
		if err := repos.Enrollments.Insert(ctx, student.UserID, course.CourseID, s.nowFn()); err != nil {
			return err
		}
		return s.enqueue(ctx, repos, eventTypeEnrollmentRegistered, student.UserID.String(), map[string]any{
			"student_id": student.UserID.String(),
			"school_id":  student.SchoolID(),
			"course_id":  course.CourseID.String(),
		})
	})
	if err != nil {
		return CourseView{}, err
	}
	return toCourseView(course), nil
}

// Unregister removes an enrollment together with its grade and clears the
// student's GPA.
func (s *Service) Unregister(ctx context.Context, actor domain.Claims, req UnenrollRequest) error {
	student, err := s.enrollingStudent(ctx, actor, req.SchoolID)
	if err != nil {
		return err
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		course, err := loadCourseByTitle(ctx, repos, req.CourseTitle)
		if err != nil {
			return err
		}
		if err := repos.Enrollments.Delete(ctx, student.UserID, course.CourseID); err != nil {
			return err
		}
		gradeRemoved := true
		if err := repos.Grades.Delete(ctx, student.UserID, course.CourseID); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("delete grade: %w", err)
			}
			gradeRemoved = false
		}
		if err := repos.Users.SetGPA(ctx, student.UserID, nil, s.nowFn()); err != nil {
			return fmt.Errorf("clear gpa: %w", err)
		}
		return s.enqueue(ctx, repos, eventTypeEnrollmentUnregistered, student.UserID.String(), map[string]any{
			"student_id":    student.UserID.String(),
			"course_id":     course.CourseID.String(),
			"grade_removed": gradeRemoved,
		})
	})
}

// CoursesOf lists a student's enrolled courses to that student or an admin.
func (s *Service) CoursesOf(ctx context.Context, actor domain.Claims, studentID uuid.UUID) ([]CourseView, error) {
	if err := authz.RequireSelfOrAdmin(actor, studentID); err != nil {
		return nil, err
	}
	var courses []domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := loadStudent(ctx, repos, studentID); err != nil {
			return err
		}
		var err error
		courses, err = repos.Enrollments.CoursesOf(ctx, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCourseViews(courses), nil
}

// StudentsOf lists a course's students to its teacher or an admin.
func (s *Service) StudentsOf(ctx context.Context, actor domain.Claims, courseID uuid.UUID) ([]UserView, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin, domain.RoleTeacher); err != nil {
		return nil, err
	}
	var students []domain.User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		course, err := repos.Courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		if err := authz.RequireCourseTeacherOrAdmin(actor, course); err != nil {
			return err
		}
		students, err = repos.Enrollments.StudentsOf(ctx, courseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toUserViews(students), nil
}
