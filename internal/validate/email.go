// Package validate provides input validation helpers shared by the HTTP
// handlers.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

// Email validation errors.
var (
	ErrEmptyEmail   = errors.New("email is empty")
	ErrEmailTooLong = errors.New("email exceeds length limits")
	ErrInvalidEmail = errors.New("invalid email format")
)

// emailPattern matches the common email formats. Stricter validation happens
// at the SMTP level.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email validates an email address format.
// Returns the normalized (lowercased, trimmed) email and an error if invalid.
func Email(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" {
		return "", ErrEmptyEmail
	}

	// RFC 5321 length limits: 254 total, 64 for the local part.
	if len(email) > 254 {
		return "", ErrEmailTooLong
	}

	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}

	local, _, _ := strings.Cut(email, "@")
	if len(local) > 64 {
		return "", ErrEmailTooLong
	}

	return email, nil
}
