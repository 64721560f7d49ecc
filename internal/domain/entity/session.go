package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod records how a session was established.
type AuthMethod string

const (
	AuthMethodPassword     AuthMethod = "password"
	AuthMethodGoogle       AuthMethod = "google"
	AuthMethodGitHub       AuthMethod = "github"
	AuthMethodGoogleOneTap AuthMethod = "google_one_tap"
)

// AuthMethodForProvider maps an OAuth provider to the method recorded on its sessions.
func AuthMethodForProvider(p ProviderType) AuthMethod {
	switch p {
	case ProviderGoogle:
		return AuthMethodGoogle
	case ProviderGitHub:
		return AuthMethodGitHub
	default:
		return AuthMethod(p)
	}
}

// Session is a server-tracked proof of authentication. Only the hash of the
// cookie token is stored.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	Role      Role // Role at issuance; re-issued when the user's role changes.
	Method    AuthMethod
	Device    DeviceType
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the session is no longer usable at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Identity returns the identity the session was issued for.
func (s *Session) Identity() UserIdentity {
	return UserIdentity{ID: s.UserID, Role: s.Role}
}
