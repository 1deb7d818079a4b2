package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/authz"
	"github.com/viralforge/academic-records/internal/domain"
	"github.com/viralforge/academic-records/internal/ports"
)

// CreateStudent registers a student and derives its school id. Admin only.
func (s *Service) CreateStudent(ctx context.Context, actor domain.Claims, req CreateUserRequest) (UserView, error) {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return UserView{}, err
	}
	if strings.TrimSpace(req.Password) == "" {
		req.Password = s.cfg.DefaultStudentPassword
	}
	return s.createUser(ctx, domain.RoleStudent, req)
}

// CreateTeacher registers a teacher. Admin only.
func (s *Service) CreateTeacher(ctx context.Context, actor domain.Claims, req CreateUserRequest) (UserView, error) {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return UserView{}, err
	}
	if strings.TrimSpace(req.Password) == "" {
		req.Password = s.cfg.DefaultTeacherPassword
	}
	return s.createUser(ctx, domain.RoleTeacher, req)
}

// CreateAdmin registers another administrator. Admin only.
func (s *Service) CreateAdmin(ctx context.Context, actor domain.Claims, req CreateUserRequest) (UserView, error) {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return UserView{}, err
	}
	return s.createUser(ctx, domain.RoleAdmin, req)
}

// SignUpAdmin is the self-service admin registration. It is open only while
// AllowAdminSignup is set; otherwise the caller must already be an admin.
func (s *Service) SignUpAdmin(ctx context.Context, actor domain.Claims, req SignUpAdminRequest) (UserView, error) {
	if !s.cfg.AllowAdminSignup {
		if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
			return UserView{}, err
		}
	}
	if req.ConfirmPassword == "" || req.Password != req.ConfirmPassword {
		return UserView{}, fmt.Errorf("%w: password and confirm_password must match", domain.ErrInvalidInput)
	}
	return s.createUser(ctx, domain.RoleAdmin, CreateUserRequest{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
}

func (s *Service) createUser(ctx context.Context, role domain.Role, req CreateUserRequest) (UserView, error) {
	fullName, err := domain.NormalizeFullName(req.FullName)
	if err != nil {
		return UserView{}, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserView{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return UserView{}, err
	}
	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return UserView{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	user := domain.User{
		UserID:       uuid.New(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if role == domain.RoleStudent {
		schoolID, err := domain.DeriveSchoolID(fullName, now.Year())
		if err != nil {
			return UserView{}, err
		}
		user.Student = &domain.StudentProfile{SchoolID: schoolID}
	}

	var created domain.User
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		created, err = repos.Users.Create(ctx, user)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, repos, createdEventType(role), created.UserID.String(), map[string]any{
			"user_id":   created.UserID.String(),
			"role":      string(role),
			"school_id": created.SchoolID(),
		})
	})
	if err != nil {
		return UserView{}, err
	}
	return toUserView(created), nil
}

func createdEventType(role domain.Role) string {
	switch role {
	case domain.RoleStudent:
		return eventTypeStudentCreated
	case domain.RoleTeacher:
		return eventTypeTeacherCreated
	default:
		return eventTypeAdminCreated
	}
}

// Authenticate resolves an identifier and password to claims without issuing
// tokens. Emails resolve admins and teachers; school ids resolve students.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (domain.Claims, error) {
	user, err := s.authenticate(ctx, identifier, password)
	if err != nil {
		return domain.Claims{}, err
	}
	return domain.Claims{SubjectID: user.UserID, Role: user.Role}, nil
}

func (s *Service) authenticate(ctx context.Context, identifier, password string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: provide a school id or email address and a password", domain.ErrInvalidInput)
	}

	lockKey := "login:" + strings.ToLower(identifier)
	if s.lockouts != nil {
		state, err := s.lockouts.Get(ctx, lockKey)
		if err == nil && state.LockedUntil != nil && state.LockedUntil.After(s.nowFn()) {
			appLogger().WarnContext(ctx, "account lockout active",
				"operation", "authenticate",
				"outcome", "blocked",
				"locked_until", state.LockedUntil,
			)
			return domain.User{}, domain.ErrAccountLocked
		}
	}

	var user domain.User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		user, err = lookupIdentity(ctx, repos, identifier)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			return domain.User{}, s.recordLoginFailure(ctx, lockKey)
		}
		return domain.User{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.User{}, s.recordLoginFailure(ctx, lockKey)
	}

	if s.lockouts != nil {
		_ = s.lockouts.Clear(ctx, lockKey)
	}
	return user, nil
}

func lookupIdentity(ctx context.Context, repos ports.Repositories, identifier string) (domain.User, error) {
	if strings.Contains(identifier, "@") {
		email, err := normalizeEmail(identifier)
		if err != nil {
			return domain.User{}, err
		}
		user, err := repos.Users.GetByEmail(ctx, email)
		if err != nil {
			return domain.User{}, err
		}
		// Students sign in with their school id.
		if user.Role == domain.RoleStudent {
			return domain.User{}, domain.ErrNotFound
		}
		return user, nil
	}
	return loadStudentBySchoolID(ctx, repos, identifier)
}

// recordLoginFailure updates lockout state and returns the error to surface.
func (s *Service) recordLoginFailure(ctx context.Context, lockKey string) error {
	if s.lockouts == nil || s.cfg.FailedLoginThreshold <= 0 {
		return domain.ErrInvalidCredentials
	}
	now := s.nowFn()
	state, err := s.lockouts.RecordFailure(ctx, lockKey, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
	if err != nil {
		appLogger().WarnContext(ctx, "lockout state unavailable",
			"operation", "authenticate",
			"outcome", "warning",
			"error", err,
		)
		return domain.ErrInvalidCredentials
	}
	if state.LockedUntil != nil && state.LockedUntil.After(now) {
		appLogger().WarnContext(ctx, "account lockout triggered",
			"operation", "authenticate",
			"outcome", "blocked",
			"failed_count", state.FailedCount,
			"locked_until", state.LockedUntil,
		)
		return domain.ErrAccountLocked
	}
	return domain.ErrInvalidCredentials
}

// ChangePassword replaces the caller's own password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor domain.Claims, req ChangePasswordRequest) error {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin, domain.RoleTeacher, domain.RoleStudent); err != nil {
		return err
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		user, err := repos.Users.GetByID(ctx, actor.SubjectID)
		if err != nil {
			return err
		}
		if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
			return domain.ErrInvalidCredentials
		}
		hash, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		user.UpdatedAt = s.nowFn()
		_, err = repos.Users.Update(ctx, user)
		return err
	})
}

// GetUser returns one identity of the given role to its owner or an admin.
func (s *Service) GetUser(ctx context.Context, actor domain.Claims, role domain.Role, userID uuid.UUID) (UserView, error) {
	if err := authz.RequireSelfOrAdmin(actor, userID); err != nil {
		return UserView{}, err
	}
	var user domain.User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		user, err = loadRole(ctx, repos, role, userID)
		return err
	})
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

// ListUsers lists every identity of a role. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor domain.Claims, role domain.Role) ([]UserView, error) {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	var users []domain.User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		users, err = repos.Users.List(ctx, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toUserViews(users), nil
}

// UpdateUser edits name and email. The school id is not re-derived. Admin only.
func (s *Service) UpdateUser(ctx context.Context, actor domain.Claims, role domain.Role, userID uuid.UUID, req UpdateUserRequest) (UserView, error) {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return UserView{}, err
	}
	var updated domain.User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		user, err := loadRole(ctx, repos, role, userID)
		if err != nil {
			return err
		}
		if req.FullName != nil {
			name, err := domain.NormalizeFullName(*req.FullName)
			if err != nil {
				return err
			}
			user.FullName = name
		}
		if req.Email != nil {
			email, err := normalizeEmail(*req.Email)
			if err != nil {
				return err
			}
			user.Email = email
		}
		user.UpdatedAt = s.nowFn()
		updated, err = repos.Users.Update(ctx, user)
		return err
	})
	if err != nil {
		return UserView{}, err
	}
	return toUserView(updated), nil
}

// DeleteUser removes an identity permanently. Enrollments and grades of a
// student go with it; a teacher's course becomes unassigned. Admin only.
func (s *Service) DeleteUser(ctx context.Context, actor domain.Claims, role domain.Role, userID uuid.UUID) error {
	if err := authz.RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if role == domain.RoleAdmin && actor.SubjectID == userID {
		return fmt.Errorf("%w: admins cannot delete their own account", domain.ErrInvalidInput)
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := loadRole(ctx, repos, role, userID); err != nil {
			return err
		}
		if err := repos.Users.Delete(ctx, userID); err != nil {
			return err
		}
		return s.enqueue(ctx, repos, eventTypeUserDeleted, userID.String(), map[string]any{
			"user_id": userID.String(),
			"role":    string(role),
		})
	})
}

func loadRole(ctx context.Context, repos ports.Repositories, role domain.Role, userID uuid.UUID) (domain.User, error) {
	user, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Role != role {
		return domain.User{}, fmt.Errorf("%w: %s %s", domain.ErrNotFound, strings.ToLower(string(role)), userID)
	}
	return user, nil
}
