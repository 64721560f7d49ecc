package auth

import (
	"testing"

	"portal/config"
	domainerrors "portal/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *bcryptHasher {
	cfg := &config.Config{
		Auth: &config.AuthConfig{BcryptCost: bcrypt.MinCost},
		PasswordStrength: &config.PasswordStrengthConfig{
			MinLength:        8,
			MaxLength:        64,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumbers:   true,
			RequireSpecial:   true,
		},
	}

	return NewBcryptHasher(cfg).(*bcryptHasher)
}

func TestBcryptHasher_HashAndCheck(t *testing.T) {
	hasher := newTestHasher()

	strongPassword := "StrongPass123!"
	hash, err := hasher.Hash(strongPassword)
	require.NoError(t, err)
	assert.NotEqual(t, strongPassword, hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.True(t, hasher.Check(strongPassword, hash))
	assert.False(t, hasher.Check("WrongPassword123!", hash))
	assert.False(t, hasher.Check("", hash))
	assert.False(t, hasher.Check(strongPassword, ""))
}

func TestBcryptHasher_ValidateStrength(t *testing.T) {
	hasher := newTestHasher()

	weak := map[string]string{
		"too short":     "Ab1!",
		"no lowercase":  "PASSWORD123!",
		"no uppercase":  "strongpass123!",
		"no numbers":    "StrongPass!!",
		"no special":    "StrongPass123",
		"too long":      "Aa1!" + string(make([]byte, 64)),
		"forbidden":     "MyPassword1!",
		"forbidden adm": "Admin1234!x",
	}

	for name, pw := range weak {
		t.Run(name, func(t *testing.T) {
			err := hasher.ValidateStrength(pw)
			require.Error(t, err)

			var appErr domainerrors.AppError
			assert.True(t, errors.As(err, &appErr))
		})
	}

	assert.NoError(t, hasher.ValidateStrength("StrongPass123!"))
}

func TestNewBcryptHasher_Defaults(t *testing.T) {
	hasher := NewBcryptHasher(&config.Config{}).(*bcryptHasher)

	assert.Equal(t, bcrypt.DefaultCost, hasher.cost)
	assert.Equal(t, 8, hasher.policy.MinLength)
	assert.Equal(t, bcryptMaxPasswordBytes, hasher.policy.MaxLength)
	assert.NoError(t, hasher.ValidateStrength("simple-enough"))
}
