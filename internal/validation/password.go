package validation

import "errors"

// bcrypt silently truncates passwords longer than 72 bytes
const MaxPasswordLength = 72

// ValidatePassword rejects passwords bcrypt cannot hash in full.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}

	if len(password) > MaxPasswordLength {
		return errors.New("password must not exceed 72 bytes")
	}

	return nil
}
