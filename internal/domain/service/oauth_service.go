package service

import (
	"context"

	"portal/internal/domain/entity"
)

// ExternalIdentity is a provider identity that passed boundary validation:
// ID and Email are always non-empty and Email is normalized.
type ExternalIdentity struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
}

// ProfileResult is what a provider yields after authenticating a user.
// It is a closed union: VerifiedProfile or ProfileWithoutEmail.
type ProfileResult interface {
	profileResult()
}

// VerifiedProfile carries an identity usable for account linking.
type VerifiedProfile struct {
	Identity ExternalIdentity
}

// ProfileWithoutEmail means the provider authenticated the user but exposed no
// verified email address, so no local account can be matched.
type ProfileWithoutEmail struct {
	ProviderAccountID string
}

func (VerifiedProfile) profileResult()     {}
func (ProfileWithoutEmail) profileResult() {}

// OAuthProvider runs the authorization-code flow against one provider.
type OAuthProvider interface {
	// Type returns the provider this implementation serves.
	Type() entity.ProviderType

	// AuthCodeURL builds the consent-screen URL for the given state and PKCE verifier.
	AuthCodeURL(state, codeVerifier string) string

	// Exchange trades the authorization code for the user's profile.
	Exchange(ctx context.Context, code, codeVerifier string) (ProfileResult, error)
}

// IDTokenVerifier validates a Google ID token posted by the browser (One Tap).
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (ProfileResult, error)
}
