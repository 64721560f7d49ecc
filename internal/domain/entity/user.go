// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the core entity in the system, representing a unique "person" or "account".
type User struct {
	ID              uuid.UUID  // The Global Unique Identifier (GUID) for the user.
	Email           string     // Unique, stored normalized (see NormalizeEmail).
	Name            string     // The user's display name.
	Role            Role       // Authorization role, RoleUser unless toggled.
	PasswordHash    string     // bcrypt hash; empty for accounts created through OAuth only.
	EmailVerifiedAt *time.Time // Set once the email address has been confirmed.
	CreatedAt       time.Time  // Timestamp of when this user account was created.
	UpdatedAt       time.Time  // Timestamp of the last modification to this user's data.
}

// UserIdentity is the minimal pair carried by a session.
type UserIdentity struct {
	ID   uuid.UUID
	Role Role
}

// Identity returns the session identity of the user.
func (u *User) Identity() UserIdentity {
	return UserIdentity{ID: u.ID, Role: u.Role}
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsEmailVerified reports whether the email address has been confirmed.
func (u *User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// NormalizeEmail lowercases and trims an email address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
