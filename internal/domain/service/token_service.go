package service

import (
	"portal/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
)

// StateClaims are carried by the signed OAuth state parameter.
type StateClaims struct {
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// StateService signs and verifies the OAuth state parameter. The nonce binds
// the state to the browser that started the flow.
type StateService interface {
	// Sign issues a state for the provider bound to nonce.
	Sign(provider entity.ProviderType, nonce string) (string, error)

	// Verify checks signature and expiry and returns the claims.
	Verify(state string) (*StateClaims, error)
}
