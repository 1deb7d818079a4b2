// Package authz holds the authorization rules evaluated against verified
// token claims. Every rule is a pure function: it reads the claims and the
// resource reference it is given and never loads state on its own.
package authz

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
)

// RequireRole passes iff the caller holds exactly role.
func RequireRole(claims domain.Claims, role domain.Role) error {
	if err := requireVerified(claims); err != nil {
		return err
	}
	if claims.Role != role {
		return fmt.Errorf("%w: %s access only", domain.ErrForbidden, role)
	}
	return nil
}

// RequireAnyRole passes iff the caller's role is one of roles.
func RequireAnyRole(claims domain.Claims, roles ...domain.Role) error {
	if err := requireVerified(claims); err != nil {
		return err
	}
	for _, role := range roles {
		if claims.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s not permitted", domain.ErrForbidden, claims.Role)
}

// RequireSelfOrAdmin passes for the owner of the resource or any admin.
func RequireSelfOrAdmin(claims domain.Claims, ownerID uuid.UUID) error {
	if err := requireVerified(claims); err != nil {
		return err
	}
	if claims.Role == domain.RoleAdmin || (ownerID != uuid.Nil && claims.SubjectID == ownerID) {
		return nil
	}
	return fmt.Errorf("%w: you don't have access to this resource", domain.ErrForbidden)
}

// RequireCourseTeacherOrAdmin passes for the course's assigned teacher or any
// admin. An unassigned course admits admins only.
func RequireCourseTeacherOrAdmin(claims domain.Claims, course domain.Course) error {
	if err := requireVerified(claims); err != nil {
		return err
	}
	if claims.Role == domain.RoleAdmin {
		return nil
	}
	if claims.Role == domain.RoleTeacher && course.TaughtBy(claims.SubjectID) {
		return nil
	}
	return fmt.Errorf("%w: only the course teacher can perform this action", domain.ErrForbidden)
}

func requireVerified(claims domain.Claims) error {
	if claims.IsZero() || !claims.Role.Valid() {
		return fmt.Errorf("%w: missing verified claims", domain.ErrUnauthenticated)
	}
	return nil
}
