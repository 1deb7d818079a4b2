package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/adapters/memory"
	"github.com/viralforge/academic-records/internal/adapters/security"
	"github.com/viralforge/academic-records/internal/application"
	"github.com/viralforge/academic-records/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultStudentPassword = "password123"
	defaultTeacherPassword = "teacherpass1"
	adminPassword          = "AdminPass123"
)

var (
	signerOnce   sync.Once
	sharedSigner *security.JWTSigner
	signerErr    error
)

func testSigner(t *testing.T) *security.JWTSigner {
	t.Helper()
	signerOnce.Do(func() {
		sharedSigner, signerErr = security.NewEphemeralJWTSigner("test-key", "academic-records")
	})
	if signerErr != nil {
		t.Fatalf("signer: %v", signerErr)
	}
	return sharedSigner
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type fixture struct {
	service     *application.Service
	revocations *memory.RevocationStore
	clock       *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Now().UTC()}
	revocations := memory.NewRevocationStore()
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			AccessTokenTTL:         30 * time.Minute,
			RefreshTokenTTL:        7 * 24 * time.Hour,
			FailedLoginThreshold:   3,
			LockoutDuration:        15 * time.Minute,
			DefaultStudentPassword: defaultStudentPassword,
			DefaultTeacherPassword: defaultTeacherPassword,
			AllowAdminSignup:       true,
		},
		UnitOfWork:  memory.NewStore(),
		Revocations: revocations,
		Lockouts:    memory.NewLockoutStore(),
		Hasher:      security.NewBcryptHasher(bcrypt.MinCost),
		TokenSigner: testSigner(t),
		Now:         clock.Now,
	})
	return &fixture{service: service, revocations: revocations, clock: clock}
}

func (f *fixture) claimsFor(t *testing.T, pair application.TokenPair) domain.Claims {
	t.Helper()
	claims, err := f.service.VerifyAccess(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	return claims
}

func (f *fixture) admin(t *testing.T) domain.Claims {
	t.Helper()
	ctx := context.Background()
	email := uuid.NewString()[:8] + "@admin.example.com"
	if _, err := f.service.SignUpAdmin(ctx, domain.Claims{}, application.SignUpAdminRequest{
		FullName:        "Grace Hopper",
		Email:           email,
		Password:        adminPassword,
		ConfirmPassword: adminPassword,
	}); err != nil {
		t.Fatalf("sign up admin: %v", err)
	}
	pair, err := f.service.Login(ctx, application.LoginRequest{Email: email, Password: adminPassword})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	return f.claimsFor(t, pair)
}

func (f *fixture) teacher(t *testing.T, admin domain.Claims, name, email string) (application.UserView, domain.Claims) {
	t.Helper()
	ctx := context.Background()
	view, err := f.service.CreateTeacher(ctx, admin, application.CreateUserRequest{FullName: name, Email: email})
	if err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	pair, err := f.service.Login(ctx, application.LoginRequest{Email: email, Password: defaultTeacherPassword})
	if err != nil {
		t.Fatalf("teacher login: %v", err)
	}
	return view, f.claimsFor(t, pair)
}

func (f *fixture) student(t *testing.T, admin domain.Claims, name, email string) (application.UserView, domain.Claims) {
	t.Helper()
	ctx := context.Background()
	view, err := f.service.CreateStudent(ctx, admin, application.CreateUserRequest{FullName: name, Email: email})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	pair, err := f.service.Login(ctx, application.LoginRequest{SchoolID: view.SchoolID, Password: defaultStudentPassword})
	if err != nil {
		t.Fatalf("student login: %v", err)
	}
	return view, f.claimsFor(t, pair)
}

func (f *fixture) course(t *testing.T, admin domain.Claims, title, code string, credits int, teacherID *uuid.UUID) application.CourseView {
	t.Helper()
	view, err := f.service.CreateCourse(context.Background(), admin, application.CourseRequest{
		Title:      title,
		Code:       code,
		CreditUnit: credits,
		TeacherID:  teacherID,
	})
	if err != nil {
		t.Fatalf("create course %s: %v", title, err)
	}
	return view
}

func (f *fixture) enroll(t *testing.T, actor domain.Claims, schoolID string, titles ...string) {
	t.Helper()
	for _, title := range titles {
		if _, err := f.service.Register(context.Background(), actor, schoolID, title); err != nil {
			t.Fatalf("register %s: %v", title, err)
		}
	}
}

func TestDuplicateEmailIsConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()

	if _, err := f.service.CreateTeacher(ctx, admin, application.CreateUserRequest{FullName: "Alan Turing", Email: "alan@example.com"}); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	_, err := f.service.CreateStudent(ctx, admin, application.CreateUserRequest{FullName: "Alan Other", Email: "ALAN@example.com"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStudentIdentity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()

	view, claims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	expected, err := domain.DeriveSchoolID("Ada Lovelace", f.clock.Now().Year())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if view.SchoolID != expected {
		t.Fatalf("expected school id %s, got %s", expected, view.SchoolID)
	}
	if claims.Role != domain.RoleStudent || claims.SubjectID != view.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, err = f.service.Login(ctx, application.LoginRequest{Email: "ada@example.com", Password: defaultStudentPassword})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("students must not log in by email, got %v", err)
	}
	_, err = f.service.Login(ctx, application.LoginRequest{SchoolID: view.SchoolID, Password: "wrongpass1"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	if _, err := f.service.CreateStudent(ctx, claims, application.CreateUserRequest{FullName: "Eve Intruder", Email: "eve@example.com"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("student must not create students, got %v", err)
	}
}

func TestAssignGradesAndResult(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")

	cases := []struct {
		title  string
		code   string
		score  float64
		letter string
	}{
		{title: "Analysis", code: "MTH201", score: 98.5, letter: "A"},
		{title: "Biology", code: "BIO101", score: 40.5, letter: "C"},
		{title: "Chemistry", code: "CHM101", score: 72, letter: "A"},
		{title: "Drawing", code: "ART101", score: 25, letter: "F"},
	}
	for _, tc := range cases {
		course := f.course(t, admin, tc.title, tc.code, 3, nil)
		f.enroll(t, studentClaims, student.SchoolID, tc.title)
		grade, err := f.service.AssignGrade(ctx, admin, student.ID, course.ID, tc.score)
		if err != nil {
			t.Fatalf("assign %s: %v", tc.title, err)
		}
		if grade.LetterGrade != tc.letter {
			t.Fatalf("%s: expected %s, got %s", tc.title, tc.letter, grade.LetterGrade)
		}
	}

	result, err := f.service.Result(ctx, studentClaims, student.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(result.Courses) != len(cases) {
		t.Fatalf("expected %d result entries, got %d", len(cases), len(result.Courses))
	}
	for i, entry := range result.Courses {
		if entry.Score != cases[i].score || entry.LetterGrade != cases[i].letter {
			t.Fatalf("entry %d mismatch: %+v", i, entry)
		}
	}
	if result.GPA == nil || *result.GPA != 2.5 {
		t.Fatalf("expected gpa 2.5, got %v", result.GPA)
	}
}

func TestRecomputeGPAWeightedByCredits(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	heavy := f.course(t, admin, "Physics", "PHY101", 3, nil)
	light := f.course(t, admin, "Music", "MUS101", 1, nil)
	f.enroll(t, studentClaims, student.SchoolID, "Physics", "Music")

	if _, err := f.service.AssignGrade(ctx, admin, student.ID, heavy.ID, 85); err != nil {
		t.Fatalf("assign physics: %v", err)
	}
	if _, err := f.service.AssignGrade(ctx, admin, student.ID, light.ID, 45); err != nil {
		t.Fatalf("assign music: %v", err)
	}
	gpa, err := f.service.RecomputeGPA(ctx, studentClaims, student.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if gpa == nil || *gpa != 3.5 {
		t.Fatalf("expected 3.50, got %v", gpa)
	}

	stored, err := f.service.GetUser(ctx, admin, domain.RoleStudent, student.ID)
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if stored.GPA == nil || *stored.GPA != 3.5 {
		t.Fatalf("expected persisted gpa 3.50, got %v", stored.GPA)
	}
}

func TestIncompleteRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	graded := f.course(t, admin, "Physics", "PHY101", 3, nil)
	f.course(t, admin, "Music", "MUS101", 1, nil)
	f.enroll(t, studentClaims, student.SchoolID, "Physics", "Music")

	if _, err := f.service.AssignGrade(ctx, admin, student.ID, graded.ID, 85); err != nil {
		t.Fatalf("grade write must succeed with an incomplete record: %v", err)
	}
	if _, err := f.service.Result(ctx, studentClaims, student.ID); !errors.Is(err, domain.ErrIncompleteRecord) {
		t.Fatalf("expected incomplete record from result, got %v", err)
	}
	if _, err := f.service.RecomputeGPA(ctx, admin, student.ID); !errors.Is(err, domain.ErrIncompleteRecord) {
		t.Fatalf("expected incomplete record from recompute, got %v", err)
	}
	stored, err := f.service.GetUser(ctx, admin, domain.RoleStudent, student.ID)
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if stored.GPA != nil {
		t.Fatalf("expected null gpa, got %v", *stored.GPA)
	}
}

func TestDoubleGradingKeepsFirstScore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	teacher, teacherClaims := f.teacher(t, admin, "Alan Turing", "alan@example.com")
	course := f.course(t, admin, "Logic", "LOG101", 2, &teacher.ID)
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	f.enroll(t, studentClaims, student.SchoolID, "Logic")

	if _, err := f.service.AssignGrade(ctx, teacherClaims, student.ID, course.ID, 66); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	_, err := f.service.AssignGrade(ctx, teacherClaims, student.ID, course.ID, 12)
	if !errors.Is(err, domain.ErrAlreadyGraded) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected already graded conflict, got %v", err)
	}
	grade, err := f.service.GetGrade(ctx, teacherClaims, student.ID, course.ID)
	if err != nil {
		t.Fatalf("get grade: %v", err)
	}
	if grade.Score != 66 || grade.LetterGrade != "B" {
		t.Fatalf("expected original grade to survive, got %+v", grade)
	}
}

func TestConcurrentAssignGradeSingleWinner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	course := f.course(t, admin, "Logic", "LOG101", 2, nil)
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	f.enroll(t, studentClaims, student.SchoolID, "Logic")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(score float64) {
			defer wg.Done()
			_, err := f.service.AssignGrade(ctx, admin, student.ID, course.ID, score)
			errs <- err
		}(float64(50 + i))
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAlreadyGraded):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestGradingAuthorization(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	owner, _ := f.teacher(t, admin, "Alan Turing", "alan@example.com")
	_, impostor := f.teacher(t, admin, "Barbara Liskov", "barbara@example.com")
	course := f.course(t, admin, "Logic", "LOG101", 2, &owner.ID)
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	f.enroll(t, studentClaims, student.SchoolID, "Logic")

	if _, err := f.service.AssignGrade(ctx, impostor, student.ID, course.ID, 80); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owning teacher, got %v", err)
	}
	if _, err := f.service.AssignGrade(ctx, studentClaims, student.ID, course.ID, 100); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for student, got %v", err)
	}
	if _, err := f.service.StudentsOf(ctx, impostor, course.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden roster for non-owning teacher, got %v", err)
	}
}

func TestAssignWithoutRegistration(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	course := f.course(t, admin, "Logic", "LOG101", 2, nil)
	student, _ := f.student(t, admin, "Ada Lovelace", "ada@example.com")

	_, err := f.service.AssignGrade(context.Background(), admin, student.ID, course.ID, 80)
	if !errors.Is(err, domain.ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}
}

func TestUpdateAndDeleteGrade(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	course := f.course(t, admin, "Logic", "LOG101", 2, nil)
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	f.enroll(t, studentClaims, student.SchoolID, "Logic")

	if _, err := f.service.UpdateGrade(ctx, admin, student.ID, course.ID, 50); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found before assignment, got %v", err)
	}
	if _, err := f.service.AssignGrade(ctx, admin, student.ID, course.ID, 35); err != nil {
		t.Fatalf("assign: %v", err)
	}
	updated, err := f.service.UpdateGrade(ctx, admin, student.ID, course.ID, 71)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LetterGrade != "A" {
		t.Fatalf("expected A after update, got %s", updated.LetterGrade)
	}
	stored, _ := f.service.GetUser(ctx, admin, domain.RoleStudent, student.ID)
	if stored.GPA == nil || *stored.GPA != 4 {
		t.Fatalf("expected gpa 4 after update, got %v", stored.GPA)
	}

	if err := f.service.DeleteGrade(ctx, admin, student.ID, course.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	stored, _ = f.service.GetUser(ctx, admin, domain.RoleStudent, student.ID)
	if stored.GPA != nil {
		t.Fatalf("expected gpa cleared after delete, got %v", *stored.GPA)
	}
	if _, err := f.service.AssignGrade(ctx, admin, student.ID, course.ID, 60); err != nil {
		t.Fatalf("pair should be gradeable again after delete: %v", err)
	}
}

func TestTokenLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	_, _ = f.teacher(t, admin, "Alan Turing", "alan@example.com")

	pair, err := f.service.Login(ctx, application.LoginRequest{Identifier: "alan@example.com", Password: defaultTeacherPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.service.Refresh(ctx, pair.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
	refreshed, err := f.service.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := f.service.VerifyAccess(ctx, refreshed.AccessToken); err != nil {
		t.Fatalf("refreshed access token should verify: %v", err)
	}
	if _, err := f.service.VerifyAccess(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("refresh token must not pass as access token, got %v", err)
	}

	if err := f.service.Revoke(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := f.service.Revoke(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second revoke must be a no-op: %v", err)
	}
	if _, err := f.service.Verify(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated after revoke, got %v", err)
	}
	if _, err := f.service.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token after revoke, got %v", err)
	}
	if _, err := f.service.VerifyAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("revoking the refresh token must not revoke the access token: %v", err)
	}
}

func TestExpiredRefreshToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.admin(t)
	ctx := context.Background()
	now := f.clock.Now()

	f.clock.Set(now.Add(-8 * 24 * time.Hour))
	admin2 := "old@admin.example.com"
	if _, err := f.service.SignUpAdmin(ctx, domain.Claims{}, application.SignUpAdminRequest{
		FullName: "Old Admin", Email: admin2, Password: adminPassword, ConfirmPassword: adminPassword,
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	pair, err := f.service.Login(ctx, application.LoginRequest{Email: admin2, Password: adminPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	f.clock.Set(now)

	if _, err := f.service.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token for expired refresh token, got %v", err)
	}
}

func TestIssueTokensRequiresExistingSubject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()

	if _, err := f.service.IssueTokens(ctx, uuid.New(), domain.RoleAdmin); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for unknown subject, got %v", err)
	}
	if _, err := f.service.IssueTokens(ctx, admin.SubjectID, domain.RoleStudent); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for role mismatch, got %v", err)
	}
	pair, err := f.service.IssueTokens(ctx, admin.SubjectID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.ExpiresIn != int64((30*time.Minute).Seconds()) {
		t.Fatalf("unexpected pair %+v", pair)
	}
}

func TestLoginLockout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	f.teacher(t, admin, "Alan Turing", "alan@example.com")

	for i := 0; i < 2; i++ {
		if _, err := f.service.Login(ctx, application.LoginRequest{Email: "alan@example.com", Password: "wrongpass1"}); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, err)
		}
	}
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "alan@example.com", Password: "wrongpass1"}); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected lockout at threshold, got %v", err)
	}
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "alan@example.com", Password: defaultTeacherPassword}); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("correct password must stay locked out, got %v", err)
	}
}

func TestRegisterBatchIsolatesItems(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	f.course(t, admin, "Logic", "LOG101", 2, nil)
	f.course(t, admin, "Music", "MUS101", 1, nil)
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	f.enroll(t, studentClaims, student.SchoolID, "Music")

	outcomes, err := f.service.RegisterBatch(ctx, studentClaims, application.EnrollmentRequest{
		SchoolID:     student.SchoolID,
		CourseTitles: []string{"Logic", "Astrology", "Music"},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Status != application.EnrollmentRegistered {
		t.Fatalf("expected Logic registered, got %+v", outcomes[0])
	}
	if outcomes[1].Status != application.EnrollmentFailed || !errors.Is(outcomes[1].Err, domain.ErrNotFound) {
		t.Fatalf("expected Astrology not found, got %+v", outcomes[1])
	}
	if outcomes[2].Status != application.EnrollmentFailed || !errors.Is(outcomes[2].Err, domain.ErrAlreadyEnrolled) {
		t.Fatalf("expected Music already enrolled, got %+v", outcomes[2])
	}

	courses, err := f.service.CoursesOf(ctx, studentClaims, student.ID)
	if err != nil {
		t.Fatalf("courses of: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 enrolled courses, got %d", len(courses))
	}
}

func TestEnrollmentOwnership(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	f.course(t, admin, "Logic", "LOG101", 2, nil)
	victim, _ := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	_, other := f.student(t, admin, "Charles Babbage", "charles@example.com")

	if _, err := f.service.Register(ctx, other, victim.SchoolID, "Logic"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for another student, got %v", err)
	}
	if _, err := f.service.CoursesOf(ctx, other, victim.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden listing, got %v", err)
	}
	if _, err := f.service.Register(ctx, admin, victim.SchoolID, "Logic"); err != nil {
		t.Fatalf("admin register: %v", err)
	}
	if _, err := f.service.Register(ctx, admin, victim.SchoolID, "Logic"); !errors.Is(err, domain.ErrAlreadyEnrolled) {
		t.Fatalf("expected already enrolled, got %v", err)
	}
}

func TestUnregisterRemovesGrade(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	course := f.course(t, admin, "Logic", "LOG101", 2, nil)
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")
	f.enroll(t, studentClaims, student.SchoolID, "Logic")
	if _, err := f.service.AssignGrade(ctx, admin, student.ID, course.ID, 90); err != nil {
		t.Fatalf("assign: %v", err)
	}

	req := application.UnenrollRequest{SchoolID: student.SchoolID, CourseTitle: "Logic"}
	if err := f.service.Unregister(ctx, studentClaims, req); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if err := f.service.Unregister(ctx, studentClaims, req); !errors.Is(err, domain.ErrNotEnrolled) {
		t.Fatalf("expected not enrolled, got %v", err)
	}
	if _, err := f.service.GetGrade(ctx, admin, student.ID, course.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected grade removed, got %v", err)
	}
	stored, _ := f.service.GetUser(ctx, admin, domain.RoleStudent, student.ID)
	if stored.GPA != nil {
		t.Fatalf("expected gpa cleared, got %v", *stored.GPA)
	}

	f.enroll(t, studentClaims, student.SchoolID, "Logic")
	if _, err := f.service.AssignGrade(ctx, admin, student.ID, course.ID, 20); err != nil {
		t.Fatalf("re-enrolled pair should start ungraded: %v", err)
	}
}

func TestCourseCatalog(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	teacher, teacherClaims := f.teacher(t, admin, "Alan Turing", "alan@example.com")
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")

	logic := f.course(t, admin, "Logic", "log101", 0, &teacher.ID)
	if logic.Code != "LOG101" || logic.CreditUnit != 1 {
		t.Fatalf("expected normalized course, got %+v", logic)
	}
	if _, err := f.service.CreateCourse(ctx, admin, application.CourseRequest{Title: "Logic II", Code: "LOG102", TeacherID: &teacher.ID}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("teacher may own one course, got %v", err)
	}
	if _, err := f.service.CreateCourse(ctx, admin, application.CourseRequest{Title: "Logic", Code: "LOG103"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate title conflict, got %v", err)
	}
	if _, err := f.service.CreateCourse(ctx, admin, application.CourseRequest{Title: "Poetry", Code: "POE101", TeacherID: &student.ID}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for non-teacher assignment, got %v", err)
	}
	if _, err := f.service.CreateCourse(ctx, teacherClaims, application.CourseRequest{Title: "Poetry", Code: "POE101"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden course creation, got %v", err)
	}

	owned, err := f.service.TeacherCourse(ctx, teacherClaims, teacher.ID)
	if err != nil || owned.ID != logic.ID {
		t.Fatalf("expected teacher course, got %+v, %v", owned, err)
	}
	listed, err := f.service.ListCourses(ctx, studentClaims)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one course for any caller, got %d, %v", len(listed), err)
	}

	f.enroll(t, studentClaims, student.SchoolID, "Logic")
	if _, err := f.service.AssignGrade(ctx, teacherClaims, student.ID, logic.ID, 80); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.service.DeleteCourse(ctx, admin, logic.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}
	courses, _ := f.service.CoursesOf(ctx, studentClaims, student.ID)
	if len(courses) != 0 {
		t.Fatalf("expected enrollment cascade, got %d", len(courses))
	}
	stored, _ := f.service.GetUser(ctx, admin, domain.RoleStudent, student.ID)
	if stored.GPA != nil {
		t.Fatalf("expected gpa cleared after course delete")
	}
	if _, err := f.service.TeacherCourse(ctx, teacherClaims, teacher.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no course for teacher, got %v", err)
	}
}

func TestDeleteTeacherUnassignsCourse(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	teacher, _ := f.teacher(t, admin, "Alan Turing", "alan@example.com")
	course := f.course(t, admin, "Logic", "LOG101", 2, &teacher.ID)

	if err := f.service.DeleteUser(ctx, admin, domain.RoleStudent, teacher.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("role mismatch must be not found, got %v", err)
	}
	if err := f.service.DeleteUser(ctx, admin, domain.RoleTeacher, teacher.ID); err != nil {
		t.Fatalf("delete teacher: %v", err)
	}
	view, err := f.service.GetCourse(ctx, admin, course.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if view.TeacherID != nil {
		t.Fatalf("expected unassigned course")
	}
	if err := f.service.DeleteUser(ctx, admin, domain.RoleAdmin, admin.SubjectID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("admin must not delete itself, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	student, studentClaims := f.student(t, admin, "Ada Lovelace", "ada@example.com")

	err := f.service.ChangePassword(ctx, studentClaims, application.ChangePasswordRequest{CurrentPassword: "nope12345", NewPassword: "BrandNew123"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := f.service.ChangePassword(ctx, studentClaims, application.ChangePasswordRequest{CurrentPassword: defaultStudentPassword, NewPassword: "BrandNew123"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.service.Login(ctx, application.LoginRequest{SchoolID: student.SchoolID, Password: "BrandNew123"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
