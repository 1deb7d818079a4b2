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

// AssignGrade records the first grade for an enrolled (student, course) pair.
// A second assignment fails with ErrAlreadyGraded and leaves the stored
// score untouched.
func (s *Service) AssignGrade(ctx context.Context, actor domain.Claims, studentID, courseID uuid.UUID, score float64) (GradeView, error) {
	if err := domain.ValidateScore(score); err != nil {
		return GradeView{}, err
	}
	var view GradeView
	err := s.withGradingScope(ctx, actor, studentID, courseID, func(ctx context.Context, repos ports.Repositories, student domain.User, course domain.Course) error {
		enrolled, err := repos.Enrollments.Exists(ctx, studentID, courseID)
		if err != nil {
			return fmt.Errorf("check enrollment: %w", err)
		}
		if !enrolled {
			return fmt.Errorf("%w: %s in %q", domain.ErrNotRegistered, student.SchoolID(), course.Title)
		}
		now := s.nowFn()
		grade := domain.Grade{
			StudentID: studentID,
			CourseID:  courseID,
			Score:     score,
			Letter:    domain.LetterFor(score),
			GradedAt:  now,
			UpdatedAt: now,
		}
		if err := repos.Grades.Insert(ctx, grade); err != nil {
			return err
		}
		if _, err := s.refreshGPA(ctx, repos, studentID, true); err != nil {
			return err
		}
		view = toGradeView(student, course, grade)
		return s.enqueue(ctx, repos, eventTypeGradeAssigned, studentID.String(), gradePayload(grade, actor))
	})
	if err != nil {
		return GradeView{}, err
	}
	return view, nil
}

// UpdateGrade replaces the score of an existing grade and re-derives its letter.
func (s *Service) UpdateGrade(ctx context.Context, actor domain.Claims, studentID, courseID uuid.UUID, score float64) (GradeView, error) {
	if err := domain.ValidateScore(score); err != nil {
		return GradeView{}, err
	}
	var view GradeView
	err := s.withGradingScope(ctx, actor, studentID, courseID, func(ctx context.Context, repos ports.Repositories, student domain.User, course domain.Course) error {
		grade, err := repos.Grades.Get(ctx, studentID, courseID)
		if err != nil {
			return err
		}
		grade.Score = score
		grade.Letter = domain.LetterFor(score)
		grade.UpdatedAt = s.nowFn()
		if err := repos.Grades.Update(ctx, grade); err != nil {
			return err
		}
		if _, err := s.refreshGPA(ctx, repos, studentID, true); err != nil {
			return err
		}
		view = toGradeView(student, course, grade)
		return s.enqueue(ctx, repos, eventTypeGradeUpdated, studentID.String(), gradePayload(grade, actor))
	})
	if err != nil {
		return GradeView{}, err
	}
	return view, nil
}

// DeleteGrade removes a grade and clears the student's GPA in the same
// transaction. The pair goes back to enrolled.
func (s *Service) DeleteGrade(ctx context.Context, actor domain.Claims, studentID, courseID uuid.UUID) error {
	return s.withGradingScope(ctx, actor, studentID, courseID, func(ctx context.Context, repos ports.Repositories, student domain.User, course domain.Course) error {
		if err := repos.Grades.Delete(ctx, studentID, courseID); err != nil {
			return err
		}
		if err := repos.Users.SetGPA(ctx, studentID, nil, s.nowFn()); err != nil {
			return fmt.Errorf("clear gpa: %w", err)
		}
		return s.enqueue(ctx, repos, eventTypeGradeDeleted, studentID.String(), map[string]any{
			"student_id": studentID.String(),
			"course_id":  courseID.String(),
			"actor_id":   actor.SubjectID.String(),
		})
	})
}

func (s *Service) GetGrade(ctx context.Context, actor domain.Claims, studentID, courseID uuid.UUID) (GradeView, error) {
	var view GradeView
	err := s.withGradingScope(ctx, actor, studentID, courseID, func(ctx context.Context, repos ports.Repositories, student domain.User, course domain.Course) error {
		grade, err := repos.Grades.Get(ctx, studentID, courseID)
		if err != nil {
			return err
		}
		view = toGradeView(student, course, grade)
		return nil
	})
	if err != nil {
		return GradeView{}, err
	}
	return view, nil
}

// withGradingScope loads the course, checks the caller teaches it (or is an
// admin), loads the student and runs fn in the same transaction.
func (s *Service) withGradingScope(
	ctx context.Context,
	actor domain.Claims,
	studentID, courseID uuid.UUID,
	fn func(ctx context.Context, repos ports.Repositories, student domain.User, course domain.Course) error,
) error {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin, domain.RoleTeacher); err != nil {
		return err
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		course, err := repos.Courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		if err := authz.RequireCourseTeacherOrAdmin(actor, course); err != nil {
			return err
		}
		student, err := loadStudent(ctx, repos, studentID)
		if err != nil {
			return err
		}
		return fn(ctx, repos, student, course)
	})
}

// RecomputeGPA recomputes and persists a student's GPA. An ungraded
// enrolled course fails with ErrIncompleteRecord and nothing is written.
func (s *Service) RecomputeGPA(ctx context.Context, actor domain.Claims, studentID uuid.UUID) (*float64, error) {
	if err := authz.RequireSelfOrAdmin(actor, studentID); err != nil {
		return nil, err
	}
	var gpa *float64
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := loadStudent(ctx, repos, studentID); err != nil {
			return err
		}
		var err error
		gpa, err = s.refreshGPA(ctx, repos, studentID, false)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, repos, eventTypeGPARecomputed, studentID.String(), gpaPayload(studentID, gpa))
	})
	if err != nil {
		return nil, err
	}
	return gpa, nil
}

// Result returns every enrolled course with its score and letter plus the
// freshly computed GPA.
func (s *Service) Result(ctx context.Context, actor domain.Claims, studentID uuid.UUID) (ResultView, error) {
	if err := authz.RequireSelfOrAdmin(actor, studentID); err != nil {
		return ResultView{}, err
	}
	var result ResultView
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		student, err := loadStudent(ctx, repos, studentID)
		if err != nil {
			return err
		}
		courses, grades, err := academicRecord(ctx, repos, studentID)
		if err != nil {
			return err
		}
		gpa, err := domain.ComputeGPA(courses, grades)
		if err != nil {
			return err
		}
		if err := repos.Users.SetGPA(ctx, studentID, gpa, s.nowFn()); err != nil {
			return fmt.Errorf("persist gpa: %w", err)
		}

		entries := make([]ResultEntry, 0, len(courses))
		for _, course := range courses {
			grade := grades[course.CourseID]
			entries = append(entries, ResultEntry{
				CourseID:    course.CourseID,
				CourseTitle: course.Title,
				CreditUnit:  course.CreditUnit,
				Score:       grade.Score,
				LetterGrade: string(grade.Letter),
			})
		}
		result = ResultView{
			StudentID: student.UserID,
			SchoolID:  student.SchoolID(),
			FullName:  student.FullName,
			Courses:   entries,
			GPA:       gpa,
		}
		return nil
	})
	if err != nil {
		return ResultView{}, err
	}
	return result, nil
}

// refreshGPA recomputes and stores the GPA. With tolerateIncomplete an
// ungraded course stores a null GPA instead of failing.
func (s *Service) refreshGPA(ctx context.Context, repos ports.Repositories, studentID uuid.UUID, tolerateIncomplete bool) (*float64, error) {
	courses, grades, err := academicRecord(ctx, repos, studentID)
	if err != nil {
		return nil, err
	}
	gpa, err := domain.ComputeGPA(courses, grades)
	if err != nil {
		if !tolerateIncomplete || !errors.Is(err, domain.ErrIncompleteRecord) {
			return nil, err
		}
		gpa = nil
	}
	if err := repos.Users.SetGPA(ctx, studentID, gpa, s.nowFn()); err != nil {
		return nil, fmt.Errorf("persist gpa: %w", err)
	}
	return gpa, nil
}

func academicRecord(ctx context.Context, repos ports.Repositories, studentID uuid.UUID) ([]domain.Course, map[uuid.UUID]domain.Grade, error) {
	courses, err := repos.Enrollments.CoursesOf(ctx, studentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	list, err := repos.Grades.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list grades: %w", err)
	}
	grades := make(map[uuid.UUID]domain.Grade, len(list))
	for _, grade := range list {
		grades[grade.CourseID] = grade
	}
	return courses, grades, nil
}

func gradePayload(grade domain.Grade, actor domain.Claims) map[string]any {
	return map[string]any{
		"student_id":   grade.StudentID.String(),
		"course_id":    grade.CourseID.String(),
		"score":        grade.Score,
		"letter_grade": string(grade.Letter),
		"actor_id":     actor.SubjectID.String(),
	}
}

func gpaPayload(studentID uuid.UUID, gpa *float64) map[string]any {
	payload := map[string]any{"student_id": studentID.String(), "gpa": nil}
	if gpa != nil {
		payload["gpa"] = *gpa
	}
	return payload
}
