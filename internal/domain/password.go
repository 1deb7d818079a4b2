package domain

import (
	"fmt"
	"unicode"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

// ValidatePassword enforces the account password policy. The upper bound is
// bcrypt's input limit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be <= %d characters", ErrInvalidInput, maxPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password must include a letter and a digit", ErrInvalidInput)
	}
	return nil
}
