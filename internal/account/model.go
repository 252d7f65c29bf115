// Package account manages user accounts, their credentials and role
// membership.
package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Status display strings, as exchanged with clients.
const (
	StatusActive   = "활성화"
	StatusInactive = "비활성화"
)

// User is an account row. PasswordHash is the bcrypt digest of the password
// and never leaves the server.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Name         string
	Email        string
	Active       bool
	Superuser    bool
	Roles        []string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// StatusDisplay returns the user's status in display form.
func (u *User) StatusDisplay() string {
	if u.Active {
		return StatusActive
	}
	return StatusInactive
}

// ParseStatus maps a display string to the active flag. The second return
// value reports whether the input was recognized.
func ParseStatus(s string) (active bool, ok bool) {
	switch s {
	case StatusActive:
		return true, true
	case StatusInactive:
		return false, true
	}
	return false, false
}

// HashPassword derives a bcrypt hash from a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
