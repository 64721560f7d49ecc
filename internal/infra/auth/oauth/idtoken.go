package oauth

import (
	"context"

	"portal/config"
	"portal/internal/domain/service"

	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleIDTokenVerifier validates Google Sign-In / One Tap credentials.
type GoogleIDTokenVerifier struct {
	audience string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleIDTokenVerifier creates a verifier for the configured Google client ID.
func NewGoogleIDTokenVerifier(cfg *config.Config) service.IDTokenVerifier {
	var audience string
	if cfg.OAuth != nil && cfg.OAuth.Google != nil {
		audience = cfg.OAuth.Google.ClientID
	}

	return &GoogleIDTokenVerifier{
		audience: audience,
		validate: idtoken.Validate,
	}
}

// Verify checks signature, audience and issuer, then validates the claims
// into a ProfileResult.
func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, token string) (service.ProfileResult, error) {
	if v.audience == "" {
		return nil, errors.New("google client id is not configured")
	}

	payload, err := v.validate(ctx, token, v.audience)
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate google id token")
	}
	if !googleIssuers[payload.Issuer] {
		return nil, errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)

	return validateProfile(payload.Subject, email, name, verified)
}
