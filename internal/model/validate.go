package model

import (
	"regexp"

	"github.com/tallyhq/tally/internal/common"
)

var (
	// Alphanumeric, spaces, and common punctuation.
	safeStringRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,&'"()/#*$]+$`)
	// Alphanumeric and hyphens, for UUIDs and provider IDs.
	validIDRegex = regexp.MustCompile(`^[a-zA-Z0-9\-]+$`)
)

func isSafeString(value string) bool {
	return safeStringRegex.MatchString(value)
}

func isValidID(value string) bool {
	return validIDRegex.MatchString(value)
}

func newValidationError(problems []string) error {
	return common.NewValidationError(problems...)
}
