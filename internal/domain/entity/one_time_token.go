package entity

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose scopes a one-time token to a single flow.
type TokenPurpose string

const (
	TokenPurposePasswordReset     TokenPurpose = "password_reset"
	TokenPurposeEmailVerification TokenPurpose = "email_verification"
)

// OneTimeToken is a single-use, time-bounded secret delivered by email.
// The raw value is never stored, only its hash.
type OneTimeToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   TokenPurpose
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token can no longer be redeemed at now.
func (t *OneTimeToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
