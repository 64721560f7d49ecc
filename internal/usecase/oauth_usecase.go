package usecase

import (
	"context"

	"portal/internal/domain/entity"
	"portal/internal/domain/service"
)

// OAuthStart is everything the delivery layer needs to send the browser to
// the provider. Nonce and Verifier must be kept in a signed cookie until the
// callback.
type OAuthStart struct {
	URL      string
	Nonce    string
	Verifier string
}

// OAuthCallbackInput carries the provider redirect plus the flow cookie values.
type OAuthCallbackInput struct {
	Provider string
	Code     string
	State    string
	Nonce    string
	Verifier string
	Client   entity.ClientContext
}

// OAuthUsecase drives third-party sign-in.
type OAuthUsecase interface {
	// Providers lists the configured providers.
	Providers() []entity.ProviderType
	Start(ctx context.Context, provider string) (*OAuthStart, error)
	Callback(ctx context.Context, input *OAuthCallbackInput) (*AuthResult, error)
	SignInWithGoogleIDToken(ctx context.Context, credential string, client entity.ClientContext) (*AuthResult, error)
	// LinkAccount finds or creates the user owning identity.Email and records
	// the provider link. Repeated calls with the same identity are no-ops.
	LinkAccount(ctx context.Context, provider entity.ProviderType, identity service.ExternalIdentity) (entity.UserIdentity, error)
}
