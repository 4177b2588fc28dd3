package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// UserRole represents a user's role in the system
type UserRole string

const (
	RoleAttendee UserRole = "attendee"
	RoleStaff    UserRole = "staff"
	RoleAdmin    UserRole = "admin"
)

// User represents a registered user.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

var userEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validate validates the user data.
func (u *User) Validate() error {
	if !userEmailRegex.MatchString(u.Email) {
		return errors.New("email format is invalid")
	}

	if strings.TrimSpace(u.Name) == "" {
		return errors.New("name is required")
	}

	switch u.Role {
	case RoleAttendee, RoleStaff, RoleAdmin:
	default:
		return errors.New("invalid user role")
	}

	return nil
}

// IsStaff returns true for staff and admin users.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}
