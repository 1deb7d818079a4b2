package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
)

type userRepository struct {
	st *state
}

func (r *userRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	if _, ok := r.st.users[user.UserID]; ok {
		return domain.User{}, fmt.Errorf("%w: user id already exists", domain.ErrConflict)
	}
	email := strings.ToLower(user.Email)
	if _, ok := r.st.byEmail[email]; ok {
		return domain.User{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	}
	schoolID := user.SchoolID()
	if schoolID != "" {
		if _, ok := r.st.bySchoolID[schoolID]; ok {
			return domain.User{}, fmt.Errorf("%w: school id already issued", domain.ErrConflict)
		}
		r.st.bySchoolID[schoolID] = user.UserID
	}
	r.st.users[user.UserID] = cloneUser(user)
	r.st.byEmail[email] = user.UserID
	return cloneUser(user), nil
}

func (r *userRepository) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	user, ok := r.st.users[userID]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return cloneUser(user), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	id, ok := r.st.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: email", domain.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) GetBySchoolID(ctx context.Context, schoolID string) (domain.User, error) {
	id, ok := r.st.bySchoolID[strings.TrimSpace(schoolID)]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: school id %s", domain.ErrNotFound, schoolID)
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) List(_ context.Context, role domain.Role) ([]domain.User, error) {
	out := make([]domain.User, 0)
	for _, user := range r.st.users {
		if user.Role == role {
			out = append(out, cloneUser(user))
		}
	}
	sortUsers(out)
	return out, nil
}

func (r *userRepository) Update(_ context.Context, user domain.User) (domain.User, error) {
	current, ok := r.st.users[user.UserID]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, user.UserID)
	}
	oldEmail := strings.ToLower(current.Email)
	newEmail := strings.ToLower(user.Email)
	if newEmail != oldEmail {
		if _, taken := r.st.byEmail[newEmail]; taken {
			return domain.User{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		delete(r.st.byEmail, oldEmail)
		r.st.byEmail[newEmail] = user.UserID
	}
	current.FullName = user.FullName
	current.Email = user.Email
	current.PasswordHash = user.PasswordHash
	current.UpdatedAt = user.UpdatedAt
	r.st.users[user.UserID] = current
	return cloneUser(current), nil
}

func (r *userRepository) SetGPA(_ context.Context, studentID uuid.UUID, gpa *float64, at time.Time) error {
	user, ok := r.st.users[studentID]
	if !ok || user.Student == nil {
		return fmt.Errorf("%w: student %s", domain.ErrNotFound, studentID)
	}
	profile := *user.Student
	profile.GPA = nil
	if gpa != nil {
		value := *gpa
		profile.GPA = &value
	}
	user.Student = &profile
	user.UpdatedAt = at
	r.st.users[studentID] = user
	return nil
}

// Delete mirrors the relational cascade: a student's enrollments and grades
// go with it and a teacher's course becomes unassigned.
func (r *userRepository) Delete(_ context.Context, userID uuid.UUID) error {
	user, ok := r.st.users[userID]
	if !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	delete(r.st.users, userID)
	delete(r.st.byEmail, strings.ToLower(user.Email))
	if schoolID := user.SchoolID(); schoolID != "" {
		delete(r.st.bySchoolID, schoolID)
	}
	for key := range r.st.enrollments {
		if key.studentID == userID {
			delete(r.st.enrollments, key)
		}
	}
	for key := range r.st.grades {
		if key.studentID == userID {
			delete(r.st.grades, key)
		}
	}
	if courseID, ok := r.st.byTeacher[userID]; ok {
		course := r.st.courses[courseID]
		course.TeacherID = nil
		r.st.courses[courseID] = course
		delete(r.st.byTeacher, userID)
	}
	return nil
}

func sortUsers(users []domain.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName != users[j].FullName {
			return users[i].FullName < users[j].FullName
		}
		return users[i].UserID.String() < users[j].UserID.String()
	})
}
