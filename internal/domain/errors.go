package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthenticated covers missing, malformed, expired or revoked tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials hides whether the identifier or the password failed.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	// ErrInvalidToken is returned by refresh when the presented token cannot mint a new access token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden means the caller is authenticated but lacks the role or ownership required.
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	// ErrAlreadyGraded is a Conflict on the (student, course) grade key.
	ErrAlreadyGraded   = fmt.Errorf("%w: student already graded for course", ErrConflict)
	ErrAlreadyEnrolled = errors.New("student already enrolled for course")
	ErrNotEnrolled     = errors.New("student not enrolled for course")
	// ErrNotRegistered is the grading precondition failure: no enrollment for the pair.
	ErrNotRegistered = errors.New("student not registered for course")
	// ErrIncompleteRecord aborts GPA computation when an enrolled course has no grade.
	ErrIncompleteRecord = errors.New("incomplete academic record")
	ErrAccountLocked    = errors.New("account locked")
)
