package usecase

import (
	"context"

	"portal/internal/domain/entity"
	"portal/internal/domain/repository"

	"github.com/google/uuid"
)

// IssuedSession pairs a stored session with the raw token for the cookie.
// Token is never persisted.
type IssuedSession struct {
	Token   string
	Session *entity.Session
}

// CleanupResult reports how many expired rows were removed.
type CleanupResult struct {
	Sessions int64
	Tokens   int64
}

// SessionUsecase defines the interface for session management operations.
type SessionUsecase interface {
	// Issue always creates a new session; existing ones are never reused.
	Issue(ctx context.Context, identity entity.UserIdentity, client entity.ClientContext, method entity.AuthMethod) (*IssuedSession, error)
	// IssueWithin is Issue inside the caller's transaction.
	IssueWithin(ctx context.Context, repoFactory repository.RepositoryFactory, identity entity.UserIdentity, client entity.ClientContext, method entity.AuthMethod) (*IssuedSession, error)
	// Validate resolves a raw cookie token to a live session.
	Validate(ctx context.Context, rawToken string) (*entity.Session, error)
	List(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error)
	Revoke(ctx context.Context, userID, sessionID uuid.UUID) error
	RevokeOthers(ctx context.Context, userID, currentSessionID uuid.UUID) (int64, error)
	CleanupExpired(ctx context.Context) (*CleanupResult, error)
}
