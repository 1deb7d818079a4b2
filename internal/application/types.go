package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
)

type Config struct {
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	FailedLoginThreshold   int
	LockoutDuration        time.Duration
	DefaultStudentPassword string
	DefaultTeacherPassword string
	AllowAdminSignup       bool
}

type CreateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	// Password is optional for admin-created students and teachers; the
	// configured default applies when it is empty.
	Password string `json:"password,omitempty"`
}

type SignUpAdminRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// LoginRequest accepts either the explicit email/school_id fields or a
// single identifier; an identifier containing "@" is treated as an email.
type LoginRequest struct {
	Identifier string `json:"identifier,omitempty"`
	Email      string `json:"email,omitempty"`
	SchoolID   string `json:"school_id,omitempty"`
	Password   string `json:"password"`
}

type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type CourseRequest struct {
	Title      string     `json:"title"`
	Code       string     `json:"code"`
	CreditUnit int        `json:"credit_unit"`
	TeacherID  *uuid.UUID `json:"teacher_id,omitempty"`
}

type UpdateCourseRequest struct {
	Title           *string    `json:"title,omitempty"`
	Code            *string    `json:"code,omitempty"`
	CreditUnit      *int       `json:"credit_unit,omitempty"`
	TeacherID       *uuid.UUID `json:"teacher_id,omitempty"`
	UnassignTeacher bool       `json:"unassign_teacher,omitempty"`
}

type EnrollmentRequest struct {
	SchoolID     string   `json:"school_id"`
	CourseTitles []string `json:"course_titles"`
}

type UnenrollRequest struct {
	SchoolID    string `json:"school_id"`
	CourseTitle string `json:"course_title"`
}

const (
	EnrollmentRegistered = "registered"
	EnrollmentFailed     = "failed"
)

// EnrollmentOutcome reports one item of a batch registration.
type EnrollmentOutcome struct {
	CourseTitle string `json:"course_title"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	Err         error  `json:"-"`
}

type UserView struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	SchoolID  string    `json:"school_id,omitempty"`
	GPA       *float64  `json:"gpa,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CourseView struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Code       string     `json:"code"`
	CreditUnit int        `json:"credit_unit"`
	TeacherID  *uuid.UUID `json:"teacher_id,omitempty"`
}

type GradeView struct {
	StudentID       uuid.UUID `json:"student_id"`
	StudentFullName string    `json:"student_full_name"`
	CourseID        uuid.UUID `json:"course_id"`
	CourseTitle     string    `json:"course_title"`
	Score           float64   `json:"score"`
	LetterGrade     string    `json:"letter_grade"`
}

type ResultEntry struct {
	CourseID    uuid.UUID `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	CreditUnit  int       `json:"credit_unit"`
	Score       float64   `json:"score"`
	LetterGrade string    `json:"letter_grade"`
}

type ResultView struct {
	StudentID uuid.UUID     `json:"student_id"`
	SchoolID  string        `json:"school_id"`
	FullName  string        `json:"full_name"`
	Courses   []ResultEntry `json:"courses"`
	GPA       *float64      `json:"gpa"`
}

func toUserView(u domain.User) UserView {
	view := UserView{
		ID:        u.UserID,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
	if u.Student != nil {
		view.SchoolID = u.Student.SchoolID
		view.GPA = u.Student.GPA
	}
	return view
}

func toUserViews(users []domain.User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	return out
}

func toCourseView(c domain.Course) CourseView {
	return CourseView{
		ID:         c.CourseID,
		Title:      c.Title,
		Code:       c.Code,
		CreditUnit: c.CreditUnit,
		TeacherID:  c.TeacherID,
	}
}

func toCourseViews(courses []domain.Course) []CourseView {
	out := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		out = append(out, toCourseView(c))
	}
	return out
}

func toGradeView(student domain.User, course domain.Course, grade domain.Grade) GradeView {
	return GradeView{
		StudentID:       student.UserID,
		StudentFullName: student.FullName,
		CourseID:        course.CourseID,
		CourseTitle:     course.Title,
		Score:           grade.Score,
		LetterGrade:     string(grade.Letter),
	}
}
