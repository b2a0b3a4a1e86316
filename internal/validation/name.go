package validation

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ValidateName validates display name
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("name is required")
	}

	if len(trimmed) > 100 {
		return errors.New("name is too long (max 100 characters)")
	}

	return nil
}

// NormalizeName composes the name to NFC and collapses runs of whitespace,
// so visually identical names from different clients are stored identically.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}
