package model

import (
	"time"
)

// User roles. Assigned at signup and immutable afterwards.
const (
	RolePatient      = "patient"
	RoleAdmin        = "admin"
	RolePractitioner = "practitioner"
)

// User status constants
const (
	UserStatusActive = "active"
	UserStatusLocked = "locked"
)

// User represents a system user
type User struct {
	Base
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	Role             string     `json:"role" db:"role"`
	Status           string     `json:"status" db:"status"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	LoginAttempts    int        `json:"-" db:"login_attempts"`
	LastLoginAttempt *time.Time `json:"-" db:"last_login_attempt"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// ValidRole reports whether role is one of the three enumerated roles.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleAdmin, RolePractitioner:
		return true
	}
	return false
}
