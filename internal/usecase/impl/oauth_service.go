package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/repository"
	"portal/internal/domain/service"
	"portal/internal/usecase"
	"portal/internal/util"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/oauth2"
)

// oauthService implements the OAuthUsecase interface.
type oauthService struct {
	txManager  repository.TransactionManager
	providers  map[entity.ProviderType]service.OAuthProvider
	idVerifier service.IDTokenVerifier
	state      service.StateService
	sessions   usecase.SessionUsecase
	notifier   *Notifier
	metrics    service.MetricsRecorder
	now        func() time.Time
	logger     *slog.Logger
}

// OAuthServiceParams holds dependencies for OAuthService, injected by Fx.
type OAuthServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	Providers  []service.OAuthProvider `group:"oauth_providers"`
	IDVerifier service.IDTokenVerifier
	State      service.StateService
	Sessions   usecase.SessionUsecase
	Notifier   *Notifier
	Metrics    service.MetricsRecorder
	Logger     *slog.Logger
}

// NewOAuthService is the constructor for oauthService.
func NewOAuthService(params OAuthServiceParams) usecase.OAuthUsecase {
	providers := make(map[entity.ProviderType]service.OAuthProvider, len(params.Providers))
	for _, p := range params.Providers {
		providers[p.Type()] = p
	}

	return &oauthService{
		txManager:  params.TxManager,
		providers:  providers,
		idVerifier: params.IDVerifier,
		state:      params.State,
		sessions:   params.Sessions,
		notifier:   params.Notifier,
		metrics:    params.Metrics,
		now:        time.Now,
		logger:     params.Logger,
	}
}

func (srv *oauthService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Providers lists the configured providers in a stable order.
func (srv *oauthService) Providers() []entity.ProviderType {
	configured := make([]entity.ProviderType, 0, len(srv.providers))
	for _, p := range entity.Providers {
		if _, ok := srv.providers[p]; ok {
			configured = append(configured, p)
		}
	}

	return configured
}

func (srv *oauthService) provider(name string) (service.OAuthProvider, error) {
	providerType, err := entity.ParseProvider(name)
	if err != nil {
		return nil, domainerrors.ErrOAuthProviderUnknown
	}

	p, ok := srv.providers[providerType]
	if !ok {
		return nil, domainerrors.ErrOAuthProviderUnknown.WrapMessage("provider not configured")
	}

	return p, nil
}

// Start prepares the redirect to the provider's consent screen.
func (srv *oauthService) Start(ctx context.Context, providerName string) (*usecase.OAuthStart, error) {
	p, err := srv.provider(providerName)
	if err != nil {
		return nil, err
	}

	nonce := util.CreateTokenValue(16)
	state, err := srv.state.Sign(p.Type(), nonce)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign oauth state")
	}

	verifier := oauth2.GenerateVerifier()

	srv.log(ctx).Debug("OAuth flow started", slog.String("provider", string(p.Type())))

	return &usecase.OAuthStart{
		URL:      p.AuthCodeURL(state, verifier),
		Nonce:    nonce,
		Verifier: verifier,
	}, nil
}

// Callback completes the authorization-code flow: state check, code exchange,
// account linking and session issuance.
func (srv *oauthService) Callback(ctx context.Context, input *usecase.OAuthCallbackInput) (*usecase.AuthResult, error) {
	p, err := srv.provider(input.Provider)
	if err != nil {
		return nil, err
	}

	if input.Code == "" || input.State == "" {
		return nil, domainerrors.ErrOAuthCodeInvalid.WrapMessage("missing code or state")
	}

	claims, err := srv.state.Verify(input.State)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrOAuthStateInvalid, err.Error())
	}
	if claims.Provider != string(p.Type()) || input.Nonce == "" || claims.Nonce != input.Nonce {
		return nil, domainerrors.ErrOAuthStateInvalid.WrapMessage("state does not match this browser")
	}

	profile, err := p.Exchange(ctx, input.Code, input.Verifier)
	if err != nil {
		srv.metrics.RecordSignIn(string(p.Type()), service.OutcomeFailure)

		return nil, errors.Wrap(domainerrors.ErrOAuthFailed, err.Error())
	}

	return srv.completeSignIn(ctx, p.Type(), entity.AuthMethodForProvider(p.Type()), profile, input.Client)
}

// SignInWithGoogleIDToken handles a Google One Tap credential.
func (srv *oauthService) SignInWithGoogleIDToken(ctx context.Context, credential string, client entity.ClientContext) (*usecase.AuthResult, error) {
	if _, ok := srv.providers[entity.ProviderGoogle]; !ok {
		return nil, domainerrors.ErrOAuthProviderUnknown.WrapMessage("google is not configured")
	}
	if credential == "" {
		return nil, domainerrors.ErrOAuthTokenInvalid
	}

	profile, err := srv.idVerifier.Verify(ctx, credential)
	if err != nil {
		srv.metrics.RecordSignIn(string(entity.AuthMethodGoogleOneTap), service.OutcomeFailure)

		return nil, errors.Wrap(domainerrors.ErrOAuthTokenInvalid, err.Error())
	}

	return srv.completeSignIn(ctx, entity.ProviderGoogle, entity.AuthMethodGoogleOneTap, profile, client)
}

func (srv *oauthService) completeSignIn(
	ctx context.Context,
	provider entity.ProviderType,
	method entity.AuthMethod,
	profile service.ProfileResult,
	client entity.ClientContext,
) (*usecase.AuthResult, error) {
	var identity service.ExternalIdentity
	switch result := profile.(type) {
	case service.VerifiedProfile:
		identity = result.Identity
	case service.ProfileWithoutEmail:
		srv.metrics.RecordSignIn(string(method), service.OutcomeFailure)
		srv.log(ctx).Warn("Provider returned no verified email",
			slog.String("provider", string(provider)),
			slog.String("providerAccountID", result.ProviderAccountID),
		)

		return nil, domainerrors.ErrOAuthEmailMissing
	default:
		return nil, errors.Wrapf(domainerrors.ErrOAuthFailed, "unexpected profile result %T", profile)
	}

	link, err := srv.linkAccount(ctx, provider, identity)
	if err != nil {
		srv.metrics.RecordSignIn(string(method), service.OutcomeFailure)

		return nil, err
	}

	user := link.user
	if link.userCreated {
		srv.notifier.Publish(ctx, service.EventUserRegistered, user, provider)
	}
	if link.linkCreated {
		srv.notifier.Publish(ctx, service.EventOAuthLinked, user, provider)
	}

	issued, err := srv.sessions.Issue(ctx, user.Identity(), client, method)
	if err != nil {
		srv.metrics.RecordSignIn(string(method), service.OutcomeFailure)

		return nil, errors.Wrap(err, "failed to issue session")
	}

	srv.metrics.RecordSignIn(string(method), service.OutcomeSuccess)

	return &usecase.AuthResult{User: user, Session: issued}, nil
}

// LinkAccount finds or creates the user and records the provider link.
func (srv *oauthService) LinkAccount(ctx context.Context, provider entity.ProviderType, identity service.ExternalIdentity) (entity.UserIdentity, error) {
	link, err := srv.linkAccount(ctx, provider, identity)
	if err != nil {
		return entity.UserIdentity{}, err
	}

	return link.user.Identity(), nil
}

type linkResult struct {
	user        *entity.User
	userCreated bool
	linkCreated bool
}

// errLinkRaced means a concurrent callback linked the provider account to a
// different user between our lookup and insert.
var errLinkRaced = errors.New("oauth account linked concurrently")

// linkAccount runs the whole link in one transaction. An existing link wins
// over the email match, so a user who changed their email at the provider
// keeps signing in to the same account.
func (srv *oauthService) linkAccount(ctx context.Context, provider entity.ProviderType, identity service.ExternalIdentity) (*linkResult, error) {
	email := entity.NormalizeEmail(identity.Email)
	if identity.ID == "" || email == "" {
		return nil, domainerrors.ErrOAuthEmailMissing
	}

	var result linkResult
	link := func(repoFactory repository.RepositoryFactory) error {
		result = linkResult{}
		userRepo := repoFactory.UserRepo()
		accountRepo := repoFactory.OAuthAccountRepo()

		existing, err := accountRepo.FindByProviderAccount(ctx, provider, identity.ID)
		switch {
		case err == nil:
			result.user, err = userRepo.FindByID(ctx, existing.UserID)
			if err != nil {
				return errors.Wrap(err, "failed to find linked user")
			}
			if result.user.Email != email {
				srv.log(ctx).Info("Provider email differs from linked user",
					slog.String("provider", string(provider)),
					slog.Any("userID", result.user.ID),
				)
			}

			return nil
		case !errors.Is(err, repository.ErrOAuthAccountNotFound):
			return errors.Wrap(err, "failed to find oauth account")
		}

		result.user, err = userRepo.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			result.user = &entity.User{
				Email: email,
				Name:  sanitizeName(identity.Name),
				Role:  entity.RoleUser,
			}
			if identity.EmailVerified {
				verifiedAt := srv.now()
				result.user.EmailVerifiedAt = &verifiedAt
			}
			if err := userRepo.Create(ctx, result.user); err != nil {
				return errors.Wrap(err, "failed to create user for oauth account")
			}
			result.userCreated = true
		case err != nil:
			return errors.Wrap(err, "failed to find user by email")
		}

		result.linkCreated, err = accountRepo.CreateIfNotExists(ctx, &entity.OAuthAccount{
			UserID:            result.user.ID,
			Provider:          provider,
			ProviderAccountID: identity.ID,
		})
		if err != nil {
			return errors.Wrap(err, "failed to link oauth account")
		}
		if result.linkCreated {
			return nil
		}

		winner, err := accountRepo.FindByProviderAccount(ctx, provider, identity.ID)
		if err != nil {
			return errors.Wrap(err, "failed to find oauth account")
		}
		if winner.UserID != result.user.ID {
			srv.log(ctx).Warn("Provider account linked to another user concurrently",
				slog.String("provider", string(provider)),
				slog.Any("userID", result.user.ID),
				slog.Any("linkedUserID", winner.UserID),
			)

			return errLinkRaced
		}

		return nil
	}

	err := srv.txManager.Execute(ctx, link)
	if errors.Is(err, errLinkRaced) {
		// The retry resolves through the link that won.
		err = srv.txManager.Execute(ctx, link)
	}
	if err != nil {
		srv.log(ctx).Error("OAuth account linking failed",
			slog.String("provider", string(provider)),
			slog.Any("error", err),
		)

		return nil, errors.Wrap(domainerrors.NewDatabaseExecuteError(err, "oauth account linking"), "failed to execute link transaction")
	}

	srv.metrics.RecordOAuthLink(string(provider), result.linkCreated)
	srv.log(ctx).Info("OAuth account linked",
		slog.String("provider", string(provider)),
		slog.Any("userID", result.user.ID),
		slog.Bool("userCreated", result.userCreated),
		slog.Bool("linkCreated", result.linkCreated),
	)

	return &result, nil
}
