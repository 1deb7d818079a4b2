package domain_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/viralforge/academic-records/internal/domain"
)

var schoolIDPattern = regexp.MustCompile(`^[A-Z]+[0-9]+/[0-9]{4}$`)

func TestDeriveSchoolID(t *testing.T) {
	t.Parallel()

	first, err := domain.DeriveSchoolID("Ada Lovelace", 2024)
	if err != nil {
		t.Fatalf("derive school id: %v", err)
	}
	if !schoolIDPattern.MatchString(first) {
		t.Fatalf("unexpected school id format: %s", first)
	}

	second, err := domain.DeriveSchoolID("  Ada   Lovelace ", 2024)
	if err != nil {
		t.Fatalf("derive school id again: %v", err)
	}
	if first != second {
		t.Fatalf("derivation should be stable: %s != %s", first, second)
	}

	nextYear, err := domain.DeriveSchoolID("Ada Lovelace", 2025)
	if err != nil {
		t.Fatalf("derive school id next year: %v", err)
	}
	if nextYear == first {
		t.Fatalf("year must be part of the school id")
	}

	if _, err := domain.DeriveSchoolID("Ada", 2024); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for single-token name, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		password  string
		wantError bool
	}{
		{name: "valid", password: "StrongPass123", wantError: false},
		{name: "default student password", password: "password123", wantError: false},
		{name: "too short", password: "Ab1", wantError: true},
		{name: "no digit", password: "OnlyLetters", wantError: true},
		{name: "no letter", password: "1234567890", wantError: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := domain.ValidatePassword(tc.password)
			if tc.wantError && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantError && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	role, err := domain.ParseRole(" teacher ")
	if err != nil || role != domain.RoleTeacher {
		t.Fatalf("expected TEACHER, got %q, %v", role, err)
	}
	if _, err := domain.ParseRole("STAFF"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown role, got %v", err)
	}
}

func TestAlreadyGradedIsConflict(t *testing.T) {
	t.Parallel()

	if !errors.Is(domain.ErrAlreadyGraded, domain.ErrConflict) {
		t.Fatalf("already graded must match conflict")
	}
	if !errors.Is(domain.ErrInvalidCredentials, domain.ErrUnauthenticated) {
		t.Fatalf("invalid credentials must match unauthenticated")
	}
}
