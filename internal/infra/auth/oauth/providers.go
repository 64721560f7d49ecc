package oauth

import (
	"log/slog"

	"portal/config"
	"portal/internal/domain/service"
)

// NewProviders returns a provider for every registration with credentials.
// Unconfigured providers are skipped; their routes answer as unknown.
func NewProviders(cfg *config.Config, logger *slog.Logger) []service.OAuthProvider {
	var providers []service.OAuthProvider
	if cfg.OAuth == nil {
		return providers
	}

	if cfg.OAuth.Google.Enabled() {
		providers = append(providers, NewGoogleProvider(cfg.OAuth.Google))
	}
	if cfg.OAuth.GitHub.Enabled() {
		providers = append(providers, NewGitHubProvider(cfg.OAuth.GitHub))
	}

	for _, p := range providers {
		logger.Info("OAuth provider enabled", slog.String("provider", p.Type().String()))
	}

	return providers
}
