package auth

import (
	"time"

	"portal/config"
	"portal/internal/domain/entity"
	"portal/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const stateIssuer = "portal/oauth"

// jwtStateService signs the OAuth state parameter as a short-lived HS256 JWT.
type jwtStateService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateService is the constructor for jwtStateService.
func NewStateService(cfg *config.Config) (service.StateService, error) {
	if cfg.OAuth == nil || cfg.OAuth.StateSecret == "" {
		return nil, errors.New("oauth state secret must be provided")
	}

	ttl := cfg.OAuth.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &jwtStateService{
		secret: []byte(cfg.OAuth.StateSecret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Sign issues a state for the provider bound to nonce.
func (s *jwtStateService) Sign(provider entity.ProviderType, nonce string) (string, error) {
	now := s.now()
	claims := &service.StateClaims{
		Provider: provider.String(),
		Nonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign oauth state")
	}

	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (s *jwtStateService) Verify(state string) (*service.StateClaims, error) {
	claims := &service.StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid oauth state")
	}
	if claims.Nonce == "" {
		return nil, errors.New("oauth state has no nonce")
	}

	return claims, nil
}
