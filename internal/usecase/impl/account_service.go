package impl

import (
	"context"
	"log/slog"

	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/repository"
	"portal/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager repository.TransactionManager
	userRepo  repository.UserRepository
	oauthRepo repository.OAuthAccountRepository
	sessions  usecase.SessionUsecase
	logger    *slog.Logger
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	UserRepo  repository.UserRepository
	OAuthRepo repository.OAuthAccountRepository
	Sessions  usecase.SessionUsecase
	Logger    *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager: params.TxManager,
		userRepo:  params.UserRepo,
		oauthRepo: params.OAuthRepo,
		sessions:  params.Sessions,
		logger:    params.Logger,
	}
}

func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *accountService) findUser(ctx context.Context, userRepo repository.UserRepository, userID uuid.UUID) (*entity.User, error) {
	user, err := userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	return user, nil
}

// Me returns the user and the providers linked to the account.
func (srv *accountService) Me(ctx context.Context, userID uuid.UUID) (*usecase.AccountView, error) {
	user, err := srv.findUser(ctx, srv.userRepo, userID)
	if err != nil {
		return nil, err
	}

	accounts, err := srv.oauthRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list linked providers")
	}

	providers := make([]entity.ProviderType, 0, len(accounts))
	for _, account := range accounts {
		providers = append(providers, account.Provider)
	}

	return &usecase.AccountView{User: user, Providers: providers}, nil
}

// UpdateName changes the display name after stripping markup.
func (srv *accountService) UpdateName(ctx context.Context, userID uuid.UUID, name string) (*entity.User, error) {
	clean := sanitizeName(name)
	if clean == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("name must not be empty")
	}

	var user *entity.User
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		var err error
		user, err = srv.findUser(ctx, userRepo, userID)
		if err != nil {
			return err
		}

		user.Name = clean

		return errors.Wrap(userRepo.Update(ctx, user), "failed to update name")
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute update-name transaction")
	}

	srv.log(ctx).Info("Display name updated", slog.Any("userID", userID))

	return user, nil
}

// ToggleRole flips the user's role and swaps the current session for a new one
// carrying the new role. Either all of it lands or none of it does.
func (srv *accountService) ToggleRole(ctx context.Context, current *entity.Session, client entity.ClientContext) (*usecase.AuthResult, error) {
	var (
		user   *entity.User
		issued *usecase.IssuedSession
	)
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		var err error
		user, err = srv.findUser(ctx, userRepo, current.UserID)
		if err != nil {
			return err
		}

		user.Role = user.Role.Toggle()
		if err := userRepo.Update(ctx, user); err != nil {
			return errors.Wrap(err, "failed to update role")
		}

		err = repoFactory.SessionRepo().DeleteByID(ctx, current.ID)
		if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			return errors.Wrap(err, "failed to delete previous session")
		}

		issued, err = srv.sessions.IssueWithin(ctx, repoFactory, user.Identity(), client, current.Method)

		return errors.Wrap(err, "failed to re-issue session")
	})
	if err != nil {
		srv.log(ctx).Warn("Role toggle failed", slog.Any("userID", current.UserID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute toggle-role transaction")
	}

	srv.log(ctx).Info("Role toggled", slog.Any("userID", user.ID), slog.String("role", user.Role.String()))

	return &usecase.AuthResult{User: user, Session: issued}, nil
}

// AuthorizeAdmin checks the stored role, not the session snapshot.
func (srv *accountService) AuthorizeAdmin(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.findUser(ctx, srv.userRepo, userID)
	if err != nil {
		return nil, err
	}

	if !user.Role.CanAccessAdmin() {
		srv.log(ctx).Warn("Admin access denied", slog.Any("userID", userID), slog.String("role", user.Role.String()))

		return nil, domainerrors.ErrForbidden
	}

	return user, nil
}

// ListUsers returns one page of users; limit is clamped to [1, 100].
func (srv *accountService) ListUsers(ctx context.Context, offset, limit int) (*usecase.UserPage, error) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}

	users, total, err := srv.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	return &usecase.UserPage{Users: users, Total: total, Offset: offset, Limit: limit}, nil
}
