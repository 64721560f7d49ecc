package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnknownProvider is returned for provider names outside the supported set.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// ProviderType identifies an external identity provider.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderGitHub ProviderType = "github"
)

// Providers lists every supported provider in display order.
var Providers = []ProviderType{ProviderGoogle, ProviderGitHub}

// ParseProvider validates a provider name taken from a URL.
func ParseProvider(s string) (ProviderType, error) {
	switch p := ProviderType(s); p {
	case ProviderGoogle, ProviderGitHub:
		return p, nil
	default:
		return "", errors.Wrapf(ErrUnknownProvider, "%q", s)
	}
}

// String returns the string representation of the ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// OAuthAccount links a User to an identity at an external provider.
// (Provider, ProviderAccountID) is unique; rows are never updated after creation.
type OAuthAccount struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Provider          ProviderType
	ProviderAccountID string // The user's ID at the provider (Google 'sub', GitHub numeric id).
	CreatedAt         time.Time
}
