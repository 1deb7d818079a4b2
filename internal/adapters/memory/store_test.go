package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
	"github.com/viralforge/academic-records/internal/ports"
)

func seedStudent(t *testing.T, repos ports.Repositories, name, email, schoolID string) domain.User {
	t.Helper()
	user, err := repos.Users.Create(context.Background(), domain.User{
		UserID:   uuid.New(),
		FullName: name,
		Email:    email,
		Role:     domain.RoleStudent,
		Student:  &domain.StudentProfile{SchoolID: schoolID},
	})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return user
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		seedStudent(t, repos, "Ada Lovelace", "ada@example.com", "ADA1/2024")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		_, err := repos.Users.GetByEmail(ctx, "ada@example.com")
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected rolled back user to be absent, got %v", err)
	}
}

func TestUniqueIndexes(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	err := store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		seedStudent(t, repos, "Ada Lovelace", "ada@example.com", "ADA1/2024")
		_, err := repos.Users.Create(ctx, domain.User{UserID: uuid.New(), FullName: "Ada Byron", Email: "ADA@example.com", Role: domain.RoleTeacher})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected email conflict, got %v", err)
		}

		first := domain.Course{CourseID: uuid.New(), Title: "Algebra", Code: "MTH101", CreditUnit: 3}
		if _, err := repos.Courses.Create(ctx, first); err != nil {
			return err
		}
		_, err = repos.Courses.Create(ctx, domain.Course{CourseID: uuid.New(), Title: "Algebra", Code: "MTH102", CreditUnit: 3})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected title conflict, got %v", err)
		}
		_, err = repos.Courses.Create(ctx, domain.Course{CourseID: uuid.New(), Title: "Geometry", Code: "MTH101", CreditUnit: 3})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected code conflict, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	err := store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		teacher, err := repos.Users.Create(ctx, domain.User{UserID: uuid.New(), FullName: "Alan Turing", Email: "alan@example.com", Role: domain.RoleTeacher})
		if err != nil {
			return err
		}
		course, err := repos.Courses.Create(ctx, domain.Course{CourseID: uuid.New(), Title: "Logic", Code: "LOG101", CreditUnit: 2, TeacherID: &teacher.UserID})
		if err != nil {
			return err
		}
		student := seedStudent(t, repos, "Ada Lovelace", "ada@example.com", "ADA1/2024")
		if err := repos.Enrollments.Insert(ctx, student.UserID, course.CourseID, time.Now()); err != nil {
			return err
		}
		if err := repos.Enrollments.Insert(ctx, student.UserID, course.CourseID, time.Now()); !errors.Is(err, domain.ErrAlreadyEnrolled) {
			t.Fatalf("expected already enrolled, got %v", err)
		}
		if err := repos.Grades.Insert(ctx, domain.Grade{StudentID: student.UserID, CourseID: course.CourseID, Score: 80, Letter: domain.GradeA}); err != nil {
			return err
		}
		if err := repos.Grades.Insert(ctx, domain.Grade{StudentID: student.UserID, CourseID: course.CourseID, Score: 10, Letter: domain.GradeF}); !errors.Is(err, domain.ErrAlreadyGraded) {
			t.Fatalf("expected already graded, got %v", err)
		}

		if err := repos.Users.Delete(ctx, teacher.UserID); err != nil {
			return err
		}
		unassigned, err := repos.Courses.GetByID(ctx, course.CourseID)
		if err != nil {
			return err
		}
		if unassigned.TeacherID != nil {
			t.Fatalf("expected course to be unassigned after teacher delete")
		}

		if err := repos.Users.Delete(ctx, student.UserID); err != nil {
			return err
		}
		students, err := repos.Enrollments.StudentsOf(ctx, course.CourseID)
		if err != nil {
			return err
		}
		if len(students) != 0 {
			t.Fatalf("expected enrollments removed with student, got %d", len(students))
		}
		if _, err := repos.Grades.Get(ctx, student.UserID, course.CourseID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected grade removed with student, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestOutboxRelayClaimsCommittedEventsOnly(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	enqueue := func(eventType string, fail bool) {
		_ = store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
			if err := repos.Outbox.Enqueue(ctx, ports.OutboxEvent{EventID: uuid.New(), EventType: eventType, Payload: []byte(`{}`), OccurredAt: time.Now()}); err != nil {
				return err
			}
			if fail {
				return errors.New("rollback")
			}
			return nil
		})
	}
	enqueue("course.created", false)
	enqueue("course.deleted", true)

	relay := store.Outbox()
	records, err := relay.ClaimUnpublished(ctx, 10, "claim-1", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(records) != 1 || records[0].EventType != "course.created" {
		t.Fatalf("expected only the committed event, got %+v", records)
	}
	if again, _ := relay.ClaimUnpublished(ctx, 10, "claim-2", time.Now().Add(time.Minute)); len(again) != 0 {
		t.Fatalf("claimed record must not be handed out twice, got %d", len(again))
	}
	if err := relay.MarkPublished(ctx, records[0].OutboxID, "claim-1", time.Now()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
}

func TestRevocationStoreConcurrentUse(t *testing.T) {
	t.Parallel()

	store := NewRevocationStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour))
			_, _ = store.IsRevoked(ctx, "jti-1")
		}()
	}
	wg.Wait()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected jti-1 revoked, got %v, %v", revoked, err)
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatalf("unexpected revocation of jti-2")
	}
}

func TestLockoutStore(t *testing.T) {
	t.Parallel()

	store := NewLockoutStore()
	ctx := context.Background()
	now := time.Now().UTC()
	for i := 0; i < 2; i++ {
		state, _ := store.RecordFailure(ctx, "login:ada", now, 3, time.Minute)
		if state.LockedUntil != nil {
			t.Fatalf("locked too early at attempt %d", i+1)
		}
	}
	state, _ := store.RecordFailure(ctx, "login:ada", now, 3, time.Minute)
	if state.LockedUntil == nil {
		t.Fatalf("expected lockout at threshold")
	}
	_ = store.Clear(ctx, "login:ada")
	if state, _ := store.Get(ctx, "login:ada"); state.FailedCount != 0 {
		t.Fatalf("expected cleared state, got %+v", state)
	}
}
