package oauth

import (
	"context"
	"strconv"
	"strings"

	"portal/config"
	"portal/internal/domain/entity"
	"portal/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/github"
)

const githubAPIBaseURL = "https://api.github.com"

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	// Email is the public profile email and may be empty or unverified.
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider runs the OAuth app flow against GitHub.
type GitHubProvider struct {
	codeFlow
	apiBaseURL string
}

// NewGitHubProvider creates the GitHub provider from its client registration.
func NewGitHubProvider(cfg *config.OAuthProviderConfig) *GitHubProvider {
	base := githubAPIBaseURL
	if cfg.APIBaseURL != "" {
		base = strings.TrimRight(cfg.APIBaseURL, "/")
	}

	return &GitHubProvider{
		codeFlow:   newCodeFlow(cfg, github.Endpoint, []string{"read:user", "user:email"}),
		apiBaseURL: base,
	}
}

// Type returns entity.ProviderGitHub.
func (p *GitHubProvider) Type() entity.ProviderType {
	return entity.ProviderGitHub
}

// Exchange trades the code for a token and loads the profile. GitHub's
// profile email is optional and carries no verification flag, so the
// verified primary address from /user/emails is used instead.
func (p *GitHubProvider) Exchange(ctx context.Context, code, codeVerifier string) (service.ProfileResult, error) {
	client, err := p.exchange(ctx, code, codeVerifier)
	if err != nil {
		return nil, err
	}

	var user githubUser
	if err := getJSON(ctx, client, p.apiBaseURL+"/user", &user); err != nil {
		return nil, errors.Wrap(err, "github user")
	}

	var emails []githubEmail
	if err := getJSON(ctx, client, p.apiBaseURL+"/user/emails", &emails); err != nil {
		return nil, errors.Wrap(err, "github user emails")
	}

	email, verified := primaryVerifiedEmail(emails)

	name := user.Name
	if strings.TrimSpace(name) == "" {
		name = user.Login
	}

	var accountID string
	if user.ID > 0 {
		accountID = strconv.FormatInt(user.ID, 10)
	}

	return validateProfile(accountID, email, name, verified)
}

func primaryVerifiedEmail(emails []githubEmail) (string, bool) {
	var fallback string
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email, true
		}
		if fallback == "" {
			fallback = e.Email
		}
	}

	return fallback, fallback != ""
}
