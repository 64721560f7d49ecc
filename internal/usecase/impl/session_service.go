// Package impl contains the implementation of the application's business logic.
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

const defaultSessionTTL = 30 * 24 * time.Hour

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager         repository.TransactionManager
	sessionRepo       repository.SessionRepository
	tokenRepo         repository.OneTimeTokenRepository
	metrics           service.MetricsRecorder
	ttl               time.Duration
	maxActiveSessions int
	now               func() time.Time
	logger            *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	SessionRepo repository.SessionRepository
	TokenRepo   repository.OneTimeTokenRepository
	Metrics     service.MetricsRecorder
	Config      *config.Config
	Logger      *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	ttl := defaultSessionTTL
	if params.Config.Session != nil && params.Config.Session.TTL > 0 {
		ttl = params.Config.Session.TTL
	}

	maxActiveSessions := 0
	if params.Config.Auth != nil {
		maxActiveSessions = params.Config.Auth.MaxActiveSessions
	}

	return &sessionService{
		txManager:         params.TxManager,
		sessionRepo:       params.SessionRepo,
		tokenRepo:         params.TokenRepo,
		metrics:           params.Metrics,
		ttl:               ttl,
		maxActiveSessions: maxActiveSessions,
		now:               time.Now,
		logger:            params.Logger,
	}
}

func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Issue creates a brand-new session for identity and returns the raw token.
func (srv *sessionService) Issue(
	ctx context.Context,
	identity entity.UserIdentity,
	client entity.ClientContext,
	method entity.AuthMethod,
) (*usecase.IssuedSession, error) {
	issued, err := srv.newSession(identity, client, method)
	if err != nil {
		return nil, err
	}

	if err := srv.persist(ctx, issued.Session); err != nil {
		srv.log(ctx).Warn("Failed to issue session", slog.Any("userID", identity.ID), slog.Any("error", err))

		return nil, err
	}

	srv.recordIssued(ctx, issued.Session)

	return issued, nil
}

// IssueWithin stores the new session through repoFactory. It only exists once
// the caller's transaction commits.
func (srv *sessionService) IssueWithin(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	identity entity.UserIdentity,
	client entity.ClientContext,
	method entity.AuthMethod,
) (*usecase.IssuedSession, error) {
	issued, err := srv.newSession(identity, client, method)
	if err != nil {
		return nil, err
	}

	if err := srv.insert(ctx, repoFactory, issued.Session); err != nil {
		return nil, err
	}

	srv.recordIssued(ctx, issued.Session)

	return issued, nil
}

func (srv *sessionService) newSession(
	identity entity.UserIdentity,
	client entity.ClientContext,
	method entity.AuthMethod,
) (*usecase.IssuedSession, error) {
	if identity.ID == uuid.Nil || !identity.Role.IsValid() {
		return nil, domainerrors.ErrInternalError.WrapMessage("cannot issue session for incomplete identity")
	}

	rawToken := util.CreateTokenValue(util.DefaultTokenBytes)
	now := srv.now()

	return &usecase.IssuedSession{
		Token: rawToken,
		Session: &entity.Session{
			UserID:    identity.ID,
			TokenHash: util.HashTokenValue(rawToken),
			Role:      identity.Role,
			Method:    method,
			Device:    client.Device,
			UserAgent: client.UserAgent,
			IPAddress: client.IPAddress,
			ExpiresAt: now.Add(srv.ttl),
			CreatedAt: now,
		},
	}, nil
}

func (srv *sessionService) recordIssued(ctx context.Context, session *entity.Session) {
	srv.metrics.RecordSessionIssued(string(session.Method))
	srv.log(ctx).Info("Session issued",
		slog.Any("userID", session.UserID),
		slog.Any("sessionID", session.ID),
		slog.String("method", string(session.Method)),
		slog.String("device", string(session.Device)),
	)
}

func (srv *sessionService) persist(ctx context.Context, session *entity.Session) error {
	if srv.maxActiveSessions <= 0 {
		// No session limit: direct insert avoids unnecessary transaction overhead.
		if err := srv.sessionRepo.Create(ctx, session); err != nil {
			return errors.Wrap(err, "failed to store session")
		}

		return nil
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return srv.insert(ctx, repoFactory, session)
	})
	if err != nil {
		return errors.Wrap(err, "failed to execute session issue transaction")
	}

	return nil
}

// insert enforces the active-session limit, when set, under the user's row
// lock before storing session.
func (srv *sessionService) insert(ctx context.Context, repoFactory repository.RepositoryFactory, session *entity.Session) error {
	sessionRepo := repoFactory.SessionRepo()

	if srv.maxActiveSessions > 0 {
		if err := repoFactory.UserRepo().AcquireSessionMutex(ctx, session.UserID); err != nil {
			return errors.Wrap(err, "failed to lock user row for session limit check")
		}

		active, err := sessionRepo.CountActiveByUserID(ctx, session.UserID, session.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "failed to count active sessions")
		}
		if active >= srv.maxActiveSessions {
			return errors.Wrap(domainerrors.ErrSessionLimitExceeded, "active session limit exceeded")
		}
	}

	return errors.Wrap(sessionRepo.Create(ctx, session), "failed to store session")
}

// Validate resolves the cookie token. Expired sessions are deleted on sight.
func (srv *sessionService) Validate(ctx context.Context, rawToken string) (*entity.Session, error) {
	if rawToken == "" {
		return nil, domainerrors.ErrUnauthenticated
	}

	session, err := srv.sessionRepo.FindByTokenHash(ctx, util.HashTokenValue(rawToken))
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, domainerrors.ErrUnauthenticated.WrapMessage("unknown session token")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session")
	}

	if session.IsExpired(srv.now()) {
		if delErr := srv.sessionRepo.DeleteByID(ctx, session.ID); delErr != nil && !errors.Is(delErr, repository.ErrSessionNotFound) {
			srv.log(ctx).Warn("Failed to delete expired session", slog.Any("sessionID", session.ID), slog.Any("error", delErr))
		}

		return nil, domainerrors.ErrSessionExpired
	}

	return session, nil
}

// List returns the user's live sessions, newest first.
func (srv *sessionService) List(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	sessions, err := srv.sessionRepo.ListActiveByUserID(ctx, userID, srv.now())
	if err != nil {
		srv.log(ctx).Error("Failed to list sessions", slog.Any("userID", userID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to list sessions")
	}

	return sessions, nil
}

// Revoke deletes one of the user's sessions.
func (srv *sessionService) Revoke(ctx context.Context, userID, sessionID uuid.UUID) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		session, err := sessionRepo.FindByID(ctx, sessionID)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domainerrors.ErrSessionNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to find session")
		}

		if session.UserID != userID {
			return errors.Wrap(domainerrors.ErrForbidden, "session does not belong to user")
		}

		return errors.Wrap(sessionRepo.DeleteByID(ctx, sessionID), "failed to delete session")
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to revoke session", slog.Any("userID", userID), slog.Any("sessionID", sessionID), slog.Any("error", err))

		return errors.Wrap(err, "failed to revoke session")
	}

	srv.log(ctx).Info("Session revoked", slog.Any("userID", userID), slog.Any("sessionID", sessionID))

	return nil
}

// RevokeOthers signs the user out everywhere except the current session.
func (srv *sessionService) RevokeOthers(ctx context.Context, userID, currentSessionID uuid.UUID) (int64, error) {
	deleted, err := srv.sessionRepo.DeleteByUserIDExcept(ctx, userID, currentSessionID)
	if err != nil {
		srv.log(ctx).Error("Failed to revoke other sessions", slog.Any("userID", userID), slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to revoke other sessions")
	}

	srv.log(ctx).Info("Other sessions revoked", slog.Any("userID", userID), slog.Int64("count", deleted))

	return deleted, nil
}

// CleanupExpired removes expired sessions and one-time tokens.
func (srv *sessionService) CleanupExpired(ctx context.Context) (*usecase.CleanupResult, error) {
	now := srv.now()

	sessions, err := srv.sessionRepo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete expired sessions")
	}

	tokens, err := srv.tokenRepo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete expired tokens")
	}

	srv.metrics.RecordCleanup(sessions, tokens)

	return &usecase.CleanupResult{Sessions: sessions, Tokens: tokens}, nil
}
