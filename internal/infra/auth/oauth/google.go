package oauth

import (
	"context"
	"strings"

	"portal/config"
	"portal/internal/domain/entity"
	"portal/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
)

const googleAPIBaseURL = "https://openidconnect.googleapis.com"

// googleUserInfo is the OpenID Connect userinfo payload.
type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleProvider runs the OpenID Connect code flow against Google.
type GoogleProvider struct {
	codeFlow
	userInfoURL string
}

// NewGoogleProvider creates the Google provider from its client registration.
func NewGoogleProvider(cfg *config.OAuthProviderConfig) *GoogleProvider {
	base := googleAPIBaseURL
	if cfg.APIBaseURL != "" {
		base = strings.TrimRight(cfg.APIBaseURL, "/")
	}

	return &GoogleProvider{
		codeFlow:    newCodeFlow(cfg, google.Endpoint, []string{"openid", "email", "profile"}),
		userInfoURL: base + "/v1/userinfo",
	}
}

// Type returns entity.ProviderGoogle.
func (p *GoogleProvider) Type() entity.ProviderType {
	return entity.ProviderGoogle
}

// Exchange trades the code for a token and loads the userinfo profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code, codeVerifier string) (service.ProfileResult, error) {
	client, err := p.exchange(ctx, code, codeVerifier)
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := getJSON(ctx, client, p.userInfoURL, &info); err != nil {
		return nil, errors.Wrap(err, "google userinfo")
	}

	return validateProfile(info.Sub, info.Email, info.Name, info.EmailVerified)
}
