// Package identifier normalizes and validates platform IDs arriving from
// untrusted surfaces (command arguments, API paths). Platform IDs are
// numeric snowflake strings; anything else is rejected before it reaches
// the engine.
package identifier

import (
	"strings"

	dErrors "warden/pkg/domain-errors"
)

const (
	minIDLength = 15
	maxIDLength = 22
)

// Normalize strips the decorations chat clients wrap around IDs:
// mention markup (<@123>, <@!123>), surrounding whitespace, and backticks.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "`")
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
		s = strings.TrimPrefix(s, "!")
	}
	return s
}

// Validate checks that s is a plausible platform ID. Returns the
// normalized ID or a CodeInvalidInput error.
func Validate(raw string) (string, error) {
	s := Normalize(raw)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "participant ID cannot be empty")
	}
	if len(s) < minIDLength || len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "participant ID has invalid length")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "participant ID must be numeric")
		}
	}
	return s, nil
}
