package domain

import (
	"fmt"
	"hash/fnv"
	"strings"
)

const schoolIDModulus = 1_000_000

// DeriveSchoolID builds "<FIRST NAME UPPER><hash mod 1e6>/<year>".
// The result is stable for a (fullName, year) pair but may collide; the
// unique index on students.school_id turns a collision into ErrConflict.
func DeriveSchoolID(fullName string, year int) (string, error) {
	normalized, err := NormalizeFullName(fullName)
	if err != nil {
		return "", err
	}
	if year <= 0 {
		return "", fmt.Errorf("%w: year must be positive", ErrInvalidInput)
	}
	prefix := strings.ToUpper(strings.Fields(normalized)[0])

	h := fnv.New32a()
	_, _ = h.Write([]byte(normalized))
	num := h.Sum32() % schoolIDModulus

	return fmt.Sprintf("%s%d/%d", prefix, num, year), nil
}
