package auth

import (
	"testing"
	"time"

	"portal/config"
	"portal/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateService(t *testing.T, secret string) *jwtStateService {
	t.Helper()

	svc, err := NewStateService(&config.Config{
		OAuth: &config.OAuthConfig{StateSecret: secret, StateTTL: 10 * time.Minute},
	})
	require.NoError(t, err)

	return svc.(*jwtStateService)
}

func TestStateService_RoundTrip(t *testing.T) {
	svc := newTestStateService(t, "0123456789abcdef0123456789abcdef")

	state, err := svc.Sign(entity.ProviderGitHub, "nonce-1")
	require.NoError(t, err)

	claims, err := svc.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, "github", claims.Provider)
	assert.Equal(t, "nonce-1", claims.Nonce)
}

func TestStateService_RejectsExpired(t *testing.T) {
	svc := newTestStateService(t, "0123456789abcdef0123456789abcdef")
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	state, err := svc.Sign(entity.ProviderGoogle, "nonce")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(11 * time.Minute) }
	_, err = svc.Verify(state)
	assert.Error(t, err)
}

func TestStateService_RejectsForeignSignature(t *testing.T) {
	a := newTestStateService(t, "0123456789abcdef0123456789abcdef")
	b := newTestStateService(t, "ffffffffffffffffffffffffffffffff")

	state, err := a.Sign(entity.ProviderGoogle, "nonce")
	require.NoError(t, err)

	_, err = b.Verify(state)
	assert.Error(t, err)

	_, err = a.Verify("not-a-jwt")
	assert.Error(t, err)
}

func TestNewStateService_RequiresSecret(t *testing.T) {
	_, err := NewStateService(&config.Config{OAuth: &config.OAuthConfig{}})
	assert.Error(t, err)
}
