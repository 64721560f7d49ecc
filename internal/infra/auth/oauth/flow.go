// Package oauth implements the authorization-code flow for the supported
// identity providers on top of golang.org/x/oauth2.
package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"portal/config"
	"portal/internal/domain/entity"
	"portal/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// maxProfileBody bounds provider API responses.
const maxProfileBody = 1 << 20

// ErrMissingAccountID is returned when a provider profile has no stable user id.
var ErrMissingAccountID = errors.New("provider profile has no account id")

// codeFlow holds the oauth2 client registration shared by every provider.
type codeFlow struct {
	config     oauth2.Config
	httpClient *http.Client
}

func newCodeFlow(cfg *config.OAuthProviderConfig, endpoint oauth2.Endpoint, scopes []string) codeFlow {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	return codeFlow{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		httpClient: http.DefaultClient,
	}
}

// AuthCodeURL builds the consent URL with an S256 PKCE challenge.
func (f *codeFlow) AuthCodeURL(state, codeVerifier string) string {
	return f.config.AuthCodeURL(state, oauth2.S256ChallengeOption(codeVerifier))
}

// exchange trades the code for a token and returns an authorized HTTP client.
func (f *codeFlow) exchange(ctx context.Context, code, codeVerifier string) (*http.Client, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	token, err := f.config.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange authorization code")
	}

	return f.config.Client(ctx, token), nil
}

// getJSON fetches url with the authorized client and decodes the body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build profile request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return errors.Wrap(err, "failed to read profile response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", url)
	}

	return nil
}

// validateProfile is the boundary check every provider response passes
// through: it yields a VerifiedProfile only when the id is present and the
// email is present and verified.
func validateProfile(accountID, email, name string, emailVerified bool) (service.ProfileResult, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrMissingAccountID
	}

	email = entity.NormalizeEmail(email)
	if email == "" || !emailVerified || !strings.Contains(email, "@") {
		return service.ProfileWithoutEmail{ProviderAccountID: accountID}, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	return service.VerifiedProfile{Identity: service.ExternalIdentity{
		ID:            accountID,
		Email:         email,
		Name:          name,
		EmailVerified: true,
	}}, nil
}
