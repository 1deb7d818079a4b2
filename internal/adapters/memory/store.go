package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
	"github.com/viralforge/academic-records/internal/ports"
)

type pairKey struct {
	studentID uuid.UUID
	courseID  uuid.UUID
}

// state is one consistent copy of every table. Transactions work on a clone
// and swap it in on commit.
type state struct {
	users       map[uuid.UUID]domain.User
	byEmail     map[string]uuid.UUID
	bySchoolID  map[string]uuid.UUID
	courses     map[uuid.UUID]domain.Course
	byTitle     map[string]uuid.UUID
	byCode      map[string]uuid.UUID
	byTeacher   map[uuid.UUID]uuid.UUID
	enrollments map[pairKey]time.Time
	grades      map[pairKey]domain.Grade
	outbox      []ports.OutboxRecord
}

func newState() *state {
	return &state{
		users:       map[uuid.UUID]domain.User{},
		byEmail:     map[string]uuid.UUID{},
		bySchoolID:  map[string]uuid.UUID{},
		courses:     map[uuid.UUID]domain.Course{},
		byTitle:     map[string]uuid.UUID{},
		byCode:      map[string]uuid.UUID{},
		byTeacher:   map[uuid.UUID]uuid.UUID{},
		enrollments: map[pairKey]time.Time{},
		grades:      map[pairKey]domain.Grade{},
		outbox:      []ports.OutboxRecord{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.users {
		out.users[k] = cloneUser(v)
	}
	for k, v := range s.byEmail {
		out.byEmail[k] = v
	}
	for k, v := range s.bySchoolID {
		out.bySchoolID[k] = v
	}
	for k, v := range s.courses {
		out.courses[k] = cloneCourse(v)
	}
	for k, v := range s.byTitle {
		out.byTitle[k] = v
	}
	for k, v := range s.byCode {
		out.byCode[k] = v
	}
	for k, v := range s.byTeacher {
		out.byTeacher[k] = v
	}
	for k, v := range s.enrollments {
		out.enrollments[k] = v
	}
	for k, v := range s.grades {
		out.grades[k] = v
	}
	out.outbox = append(out.outbox, s.outbox...)
	return out
}

func cloneUser(u domain.User) domain.User {
	if u.Student != nil {
		profile := *u.Student
		if profile.GPA != nil {
			gpa := *profile.GPA
			profile.GPA = &gpa
		}
		u.Student = &profile
	}
	return u
}

func cloneCourse(c domain.Course) domain.Course {
	if c.TeacherID != nil {
		id := *c.TeacherID
		c.TeacherID = &id
	}
	return c
}

// Store is the in-process record store used for local development and tests.
// One store-wide mutex serializes transactions.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// WithinTx runs fn against a private copy of the store. The copy replaces the
// live state only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(ctx, working.repositories()); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *state) repositories() ports.Repositories {
	return ports.Repositories{
		Users:       &userRepository{st: s},
		Courses:     &courseRepository{st: s},
		Enrollments: &enrollmentRepository{st: s},
		Grades:      &gradeRepository{st: s},
		Outbox:      &outboxWriter{st: s},
	}
}
