package impl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/repository"
	"portal/internal/domain/service"
	"portal/internal/errors"
	"portal/internal/usecase"
	"portal/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Correct-Horse-42"

func signUp(t *testing.T, f *fixture, email string) *usecase.AuthResult {
	t.Helper()

	result, err := f.auth.SignUp(context.Background(), &usecase.SignUpInput{
		Name:     "Ada <b>Lovelace</b>",
		Email:    email,
		Password: strongPassword,
		Client:   entity.ClientContext{Device: entity.DeviceDesktop},
	})
	require.NoError(t, err)

	return result
}

func TestAuthService_SignUp(t *testing.T) {
	f := newFixture(t, 0)

	result := signUp(t, f, "  Ada@Example.com ")

	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "Ada Lovelace", result.User.Name)
	assert.Equal(t, entity.RoleUser, result.User.Role)
	assert.False(t, result.User.IsEmailVerified())
	assert.NotEqual(t, strongPassword, result.User.PasswordHash)
	require.NotNil(t, result.Session)
	assert.NotEmpty(t, result.Session.Token)

	tokens := f.store.Tokens()
	require.Len(t, tokens, 1)
	assert.Equal(t, entity.TokenPurposeEmailVerification, tokens[0].Purpose)

	assert.Equal(t, []service.AccountEventType{service.EventUserRegistered}, f.eventTypes())
	assert.Equal(t, util.HashTokenValue(f.lastMailToken(t)), tokens[0].TokenHash)
	assert.True(t, strings.HasPrefix(f.mails[0].Body, "Hi Ada Lovelace"))
	assert.Contains(t, f.mails[0].Body, "https://portal.test/api/auth/verify-email?token=")
}

func TestAuthService_SignUpDuplicateEmail(t *testing.T) {
	f := newFixture(t, 0)
	signUp(t, f, "ada@example.com")

	_, err := f.auth.SignUp(context.Background(), &usecase.SignUpInput{
		Name: "Other", Email: "ADA@example.com", Password: strongPassword,
	})
	assert.True(t, errors.Is(err, domainerrors.ErrUserAlreadyExists))
	assert.Len(t, f.store.Users(), 1)
}

func TestAuthService_SignUpWeakPassword(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.auth.SignUp(context.Background(), &usecase.SignUpInput{Name: "Ada", Email: "ada@example.com", Password: "short"})

	var appErr domainerrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, domainerrors.ErrPasswordStrength.ErrorCode(), appErr.ErrorCode())
	assert.Empty(t, f.store.Users())
}

func TestAuthService_SignIn(t *testing.T) {
	f := newFixture(t, 0)
	signUp(t, f, "ada@example.com")
	oauthOnly := seedUser(f, "oauth@example.com", entity.RoleUser)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{name: "success", email: "ADA@example.com", password: strongPassword},
		{name: "wrong password", email: "ada@example.com", password: "nope", wantErr: true},
		{name: "unknown email", email: "nobody@example.com", password: strongPassword, wantErr: true},
		{name: "oauth-only account", email: oauthOnly.Email, password: strongPassword, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.auth.SignIn(context.Background(), &usecase.SignInInput{Email: tt.email, Password: tt.password})
			if tt.wantErr {
				assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, entity.AuthMethodPassword, result.Session.Session.Method)
		})
	}
}

func TestAuthService_SignOut(t *testing.T) {
	f := newFixture(t, 0)
	result := signUp(t, f, "ada@example.com")

	require.NoError(t, f.auth.SignOut(context.Background(), result.Session.Token))
	assert.Empty(t, f.store.Sessions())

	// Signing out twice, or without a cookie, is not an error.
	assert.NoError(t, f.auth.SignOut(context.Background(), result.Session.Token))
	assert.NoError(t, f.auth.SignOut(context.Background(), ""))
}

func TestAuthService_ForgotAndResetPassword(t *testing.T) {
	f := newFixture(t, 0)
	signUp(t, f, "ada@example.com")
	_, err := f.auth.SignIn(context.Background(), &usecase.SignInInput{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)
	require.Len(t, f.store.Sessions(), 2)

	require.NoError(t, f.auth.ForgotPassword(context.Background(), "ada@example.com", "es"))
	first := f.lastMailToken(t)
	assert.Equal(t, "Restablece tu contraseña", f.mails[len(f.mails)-1].Subject)

	// A second request replaces the first token.
	require.NoError(t, f.auth.ForgotPassword(context.Background(), "ada@example.com", ""))
	second := f.lastMailToken(t)

	err = f.auth.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: first, Password: "Another-Pass-7"})
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))

	require.NoError(t, f.auth.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: second, Password: "Another-Pass-7"}))
	assert.Empty(t, f.store.Sessions(), "reset revokes every session")

	err = f.auth.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: second, Password: "Another-Pass-8"})
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid), "tokens are single use")

	_, err = f.auth.SignIn(context.Background(), &usecase.SignInInput{Email: "ada@example.com", Password: "Another-Pass-7"})
	require.NoError(t, err)
	assert.Contains(t, f.eventTypes(), service.EventPasswordReset)
}

// lockstepTx holds every transaction after its token lookup until all of
// them have looked the token up, so they race on consuming it.
type lockstepTx struct {
	repository.TransactionManager
	gate *sync.WaitGroup
}

func (tx lockstepTx) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	return tx.TransactionManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		return fn(lockstepFactory{factory, tx.gate})
	})
}

type lockstepFactory struct {
	repository.RepositoryFactory
	gate *sync.WaitGroup
}

func (f lockstepFactory) TokenRepo() repository.OneTimeTokenRepository {
	return lockstepTokens{f.RepositoryFactory.TokenRepo(), f.gate}
}

type lockstepTokens struct {
	repository.OneTimeTokenRepository
	gate *sync.WaitGroup
}

func (r lockstepTokens) FindByHash(ctx context.Context, purpose entity.TokenPurpose, hash string) (*entity.OneTimeToken, error) {
	token, err := r.OneTimeTokenRepository.FindByHash(ctx, purpose, hash)
	r.gate.Done()
	r.gate.Wait()

	return token, err
}

func TestAuthService_ResetPasswordConcurrentRedemption(t *testing.T) {
	f := newFixture(t, 0)
	signUp(t, f, "ada@example.com")
	require.NoError(t, f.auth.ForgotPassword(context.Background(), "ada@example.com", "en"))
	raw := f.lastMailToken(t)

	passwords := []string{"Another-Pass-7", "Another-Pass-8"}
	gate := &sync.WaitGroup{}
	gate.Add(len(passwords))
	f.auth.(*authService).txManager = lockstepTx{TransactionManager: f.store, gate: gate}

	errs := make([]error, len(passwords))
	var wg sync.WaitGroup
	for i, password := range passwords {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.auth.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: raw, Password: password})
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "only one redemption may succeed")
			winner = i
			continue
		}
		assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid), "loser gets invalid token, got %v", err)
	}
	require.NotEqual(t, -1, winner)

	users := f.store.Users()
	require.Len(t, users, 1)
	assert.True(t, f.hasher.Check(passwords[winner], users[0].PasswordHash))
	assert.False(t, f.hasher.Check(passwords[1-winner], users[0].PasswordHash))
	assert.Empty(t, f.store.Tokens())
}

func TestAuthService_ForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t, 0)

	require.NoError(t, f.auth.ForgotPassword(context.Background(), "ghost@example.com", "en"))
	assert.Empty(t, f.mails)
	assert.Empty(t, f.store.Tokens())
}

func TestAuthService_ResetPasswordExpiredToken(t *testing.T) {
	f := newFixture(t, 0)
	user := seedUser(f, "ada@example.com", entity.RoleUser)

	raw := util.CreateTokenValue(0)
	f.store.PutToken(&entity.OneTimeToken{
		UserID:    user.ID,
		Purpose:   entity.TokenPurposePasswordReset,
		TokenHash: util.HashTokenValue(raw),
		ExpiresAt: time.Now().Add(-time.Second),
	})

	err := f.auth.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: raw, Password: strongPassword})
	assert.True(t, errors.Is(err, domainerrors.ErrTokenExpired))
}

func TestAuthService_VerifyEmail(t *testing.T) {
	f := newFixture(t, 0)
	result := signUp(t, f, "ada@example.com")
	raw := f.lastMailToken(t)

	user, err := f.auth.VerifyEmail(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, user.IsEmailVerified())
	assert.Empty(t, f.store.Tokens())
	assert.Contains(t, f.eventTypes(), service.EventEmailVerified)

	_, err = f.auth.VerifyEmail(context.Background(), raw)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))

	err = f.auth.ResendVerification(context.Background(), result.User.ID, "en")
	assert.True(t, errors.Is(err, domainerrors.ErrEmailAlreadyVerified))
}

func TestAuthService_ResendVerificationReplacesToken(t *testing.T) {
	f := newFixture(t, 0)
	result := signUp(t, f, "ada@example.com")
	first := f.lastMailToken(t)

	require.NoError(t, f.auth.ResendVerification(context.Background(), result.User.ID, "en"))
	second := f.lastMailToken(t)
	assert.NotEqual(t, first, second)
	assert.Len(t, f.store.Tokens(), 1)

	_, err := f.auth.VerifyEmail(context.Background(), first)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))
}
