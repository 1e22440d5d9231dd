// Package models defines the staff user account.
package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"memberd/internal/authz"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
)

// User is a staff account. PasswordHash never serializes.
type User struct {
	ID           id.UserID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// New validates and builds an active user with a freshly hashed password.
func New(userID id.UserID, username, email, password, role string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username is required")
	}
	if len(username) > 50 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username must be 50 characters or less")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	if !authz.KnownRole(role) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown role "+role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return &User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CheckPassword compares the candidate against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CanDeactivate checks the transition to inactive.
func (u *User) CanDeactivate() error {
	if !u.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "user is already inactive")
	}
	return nil
}

// ApplyDeactivation disables login for the account.
func (u *User) ApplyDeactivation(now time.Time) {
	u.Active = false
	u.UpdatedAt = now
}
