package impl

import (
	"context"
	"log/slog"
	"time"

	"portal/config"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/repository"
	"portal/internal/domain/service"
	"portal/internal/usecase"
	"portal/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	defaultResetTokenTTL  = time.Hour
	defaultVerifyTokenTTL = 24 * time.Hour
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager   repository.TransactionManager
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      service.PasswordHasher
	sessions    usecase.SessionUsecase
	notifier    *Notifier
	metrics     service.MetricsRecorder
	resetTTL    time.Duration
	verifyTTL   time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Hasher      service.PasswordHasher
	Sessions    usecase.SessionUsecase
	Notifier    *Notifier
	Metrics     service.MetricsRecorder
	Config      *config.Config
	Logger      *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	resetTTL, verifyTTL := defaultResetTokenTTL, defaultVerifyTokenTTL
	if auth := params.Config.Auth; auth != nil {
		if auth.ResetTokenTTL > 0 {
			resetTTL = auth.ResetTokenTTL
		}
		if auth.VerificationTokenTTL > 0 {
			verifyTTL = auth.VerificationTokenTTL
		}
	}

	return &authService{
		txManager:   params.TxManager,
		userRepo:    params.UserRepo,
		sessionRepo: params.SessionRepo,
		hasher:      params.Hasher,
		sessions:    params.Sessions,
		notifier:    params.Notifier,
		metrics:     params.Metrics,
		resetTTL:    resetTTL,
		verifyTTL:   verifyTTL,
		now:         time.Now,
		logger:      params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// SignUp registers a password account, mails a verification link and signs the user in.
func (srv *authService) SignUp(ctx context.Context, input *usecase.SignUpInput) (*usecase.AuthResult, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Info("Starting sign-up", slog.String("email", email))

	if err := srv.hasher.ValidateStrength(input.Password); err != nil {
		return nil, err
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during sign-up", slog.Any("error", err))

		return nil, err
	}

	newUser := &entity.User{
		Email:        email,
		Name:         sanitizeName(input.Name),
		Role:         entity.RoleUser,
		PasswordHash: passwordHash,
	}

	var rawToken string
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		_, err := userRepo.FindByEmail(ctx, email)
		if err == nil {
			return domainerrors.ErrUserAlreadyExists
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to look up email")
		}

		if err := userRepo.Create(ctx, newUser); err != nil {
			if errors.Is(err, repository.ErrUserAlreadyExists) {
				return domainerrors.ErrUserAlreadyExists
			}

			return errors.Wrap(err, "failed to create user")
		}

		rawToken, err = srv.createOneTimeToken(ctx, repoFactory.TokenRepo(), newUser.ID, entity.TokenPurposeEmailVerification, srv.verifyTTL)

		return err
	})
	if err != nil {
		srv.log(ctx).Warn("Sign-up failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute sign-up transaction")
	}

	srv.notifier.SendVerification(ctx, newUser, rawToken, input.Locale, srv.verifyTTL)
	srv.notifier.Publish(ctx, service.EventUserRegistered, newUser, "")

	issued, err := srv.sessions.Issue(ctx, newUser.Identity(), input.Client, entity.AuthMethodPassword)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session after sign-up")
	}

	srv.log(ctx).Info("Sign-up completed", slog.Any("userID", newUser.ID))

	return &usecase.AuthResult{User: newUser, Session: issued}, nil
}

// SignIn checks the password and issues a session. Unknown email, OAuth-only
// accounts and wrong passwords are indistinguishable to the caller.
func (srv *authService) SignIn(ctx context.Context, input *usecase.SignInInput) (*usecase.AuthResult, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting password sign-in", slog.String("email", email))

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to find user")
	}

	// Check password outside any transaction (bcrypt is CPU-bound).
	if user == nil || !user.HasPassword() || !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.metrics.RecordSignIn(string(entity.AuthMethodPassword), service.OutcomeFailure)
		srv.log(ctx).Warn("Sign-in failed", slog.String("email", email))

		return nil, domainerrors.ErrInvalidCredentials
	}

	issued, err := srv.sessions.Issue(ctx, user.Identity(), input.Client, entity.AuthMethodPassword)
	if err != nil {
		srv.metrics.RecordSignIn(string(entity.AuthMethodPassword), service.OutcomeFailure)

		return nil, errors.Wrap(err, "failed to issue session")
	}

	srv.metrics.RecordSignIn(string(entity.AuthMethodPassword), service.OutcomeSuccess)
	srv.log(ctx).Info("User signed in", slog.Any("userID", user.ID))

	return &usecase.AuthResult{User: user, Session: issued}, nil
}

// SignOut deletes the session behind rawToken. Unknown tokens are ignored.
func (srv *authService) SignOut(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}

	err := srv.sessionRepo.DeleteByTokenHash(ctx, util.HashTokenValue(rawToken))
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		srv.log(ctx).Error("Failed to delete session", slog.Any("error", err))

		return errors.Wrap(err, "failed to delete session")
	}

	srv.log(ctx).Info("Signed out")

	return nil
}

// ForgotPassword replaces any pending reset token with a new one and mails it.
func (srv *authService) ForgotPassword(ctx context.Context, email, locale string) error {
	email = entity.NormalizeEmail(email)

	var (
		user     *entity.User
		rawToken string
	)
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		user, err = repoFactory.UserRepo().FindByEmail(ctx, email)
		if err != nil {
			return err
		}

		tokenRepo := repoFactory.TokenRepo()
		if err := tokenRepo.DeleteByUserID(ctx, user.ID, entity.TokenPurposePasswordReset); err != nil {
			return errors.Wrap(err, "failed to delete previous reset tokens")
		}

		rawToken, err = srv.createOneTimeToken(ctx, tokenRepo, user.ID, entity.TokenPurposePasswordReset, srv.resetTTL)

		return err
	})
	if errors.Is(err, repository.ErrUserNotFound) {
		srv.log(ctx).Info("Password reset requested for unknown email")

		return nil
	}
	if err != nil {
		srv.log(ctx).Error("Failed to create password reset token", slog.Any("error", err))

		return errors.Wrap(err, "failed to execute forgot-password transaction")
	}

	srv.notifier.SendPasswordReset(ctx, user, rawToken, locale, srv.resetTTL)

	return nil
}

// ResetPassword redeems a reset token, sets the new password and signs the
// user out of every session.
func (srv *authService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	if err := srv.hasher.ValidateStrength(input.Password); err != nil {
		return err
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return err
	}

	var user *entity.User
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		user, err = srv.redeemToken(ctx, repoFactory, entity.TokenPurposePasswordReset, input.Token)
		if err != nil {
			return err
		}

		user.PasswordHash = passwordHash
		if !user.IsEmailVerified() {
			// Receiving the reset mail proves ownership of the address.
			verifiedAt := srv.now()
			user.EmailVerifiedAt = &verifiedAt
		}
		if err := repoFactory.UserRepo().Update(ctx, user); err != nil {
			return errors.Wrap(err, "failed to update password")
		}

		return errors.Wrap(repoFactory.SessionRepo().DeleteByUserID(ctx, user.ID), "failed to revoke sessions")
	})
	if err != nil {
		srv.log(ctx).Warn("Password reset failed", slog.Any("error", err))

		return errors.Wrap(err, "failed to execute reset-password transaction")
	}

	srv.notifier.Publish(ctx, service.EventPasswordReset, user, "")
	srv.log(ctx).Info("Password reset", slog.Any("userID", user.ID))

	return nil
}

// VerifyEmail redeems a verification token and marks the address confirmed.
func (srv *authService) VerifyEmail(ctx context.Context, rawToken string) (*entity.User, error) {
	var user *entity.User
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		user, err = srv.redeemToken(ctx, repoFactory, entity.TokenPurposeEmailVerification, rawToken)
		if err != nil {
			return err
		}

		if user.IsEmailVerified() {
			return nil
		}

		verifiedAt := srv.now()
		user.EmailVerifiedAt = &verifiedAt

		return errors.Wrap(repoFactory.UserRepo().Update(ctx, user), "failed to mark email verified")
	})
	if err != nil {
		srv.log(ctx).Warn("Email verification failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute verify-email transaction")
	}

	srv.notifier.Publish(ctx, service.EventEmailVerified, user, "")

	return user, nil
}

// ResendVerification replaces the pending verification token and mails it again.
func (srv *authService) ResendVerification(ctx context.Context, userID uuid.UUID, locale string) error {
	var (
		user     *entity.User
		rawToken string
	)
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		user, err = repoFactory.UserRepo().FindByID(ctx, userID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrUserNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}

		if user.IsEmailVerified() {
			return domainerrors.ErrEmailAlreadyVerified
		}

		tokenRepo := repoFactory.TokenRepo()
		if err := tokenRepo.DeleteByUserID(ctx, user.ID, entity.TokenPurposeEmailVerification); err != nil {
			return errors.Wrap(err, "failed to delete previous verification tokens")
		}

		rawToken, err = srv.createOneTimeToken(ctx, tokenRepo, user.ID, entity.TokenPurposeEmailVerification, srv.verifyTTL)

		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to execute resend-verification transaction")
	}

	srv.notifier.SendVerification(ctx, user, rawToken, locale, srv.verifyTTL)

	return nil
}

func (srv *authService) createOneTimeToken(
	ctx context.Context,
	tokenRepo repository.OneTimeTokenRepository,
	userID uuid.UUID,
	purpose entity.TokenPurpose,
	ttl time.Duration,
) (string, error) {
	rawToken := util.CreateTokenValue(util.DefaultTokenBytes)
	now := srv.now()

	token := &entity.OneTimeToken{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: util.HashTokenValue(rawToken),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := tokenRepo.Create(ctx, token); err != nil {
		return "", errors.Wrapf(err, "failed to store %s token", purpose)
	}

	return rawToken, nil
}

// redeemToken resolves and consumes a one-time token inside the caller's transaction.
func (srv *authService) redeemToken(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	purpose entity.TokenPurpose,
	rawToken string,
) (*entity.User, error) {
	if rawToken == "" {
		return nil, domainerrors.ErrTokenInvalid
	}

	tokenRepo := repoFactory.TokenRepo()

	token, err := tokenRepo.FindByHash(ctx, purpose, util.HashTokenValue(rawToken))
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, domainerrors.ErrTokenInvalid
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find token")
	}

	if token.IsExpired(srv.now()) {
		// Left for the cleanup worker; deleting here would be rolled back with the error.
		return nil, domainerrors.ErrTokenExpired
	}

	user, err := repoFactory.UserRepo().FindByID(ctx, token.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find token owner")
	}

	// Whoever deletes the row owns the redemption; a concurrent redeemer finds it gone.
	err = tokenRepo.DeleteByID(ctx, token.ID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, domainerrors.ErrTokenInvalid
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to consume token")
	}

	if err := tokenRepo.DeleteByUserID(ctx, user.ID, purpose); err != nil {
		return nil, errors.Wrap(err, "failed to revoke sibling tokens")
	}

	return user, nil
}
