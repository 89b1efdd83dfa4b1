package validation

import (
	"errors"
	"unicode"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt ignores anything longer
)

// ValidatePassword requires 6 to 72 bytes with at least one lowercase letter,
// one uppercase letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	if len(password) > maxPasswordLength {
		return errors.New("password must be at most 72 bytes")
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLower || !hasUpper || !hasDigit {
		return errors.New("password must contain at least one lowercase letter, one uppercase letter, and one number")
	}
	return nil
}
