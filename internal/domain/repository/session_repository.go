package repository

import (
	"context"
	"time"

	"portal/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionRepository defines session persistence. Sessions are looked up by the
// hash of the cookie token, never by the raw value.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *entity.Session) error

	// FindByTokenHash retrieves a session by its token hash.
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error)

	// FindByID retrieves a session by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)

	// ListActiveByUserID returns the user's non-expired sessions, newest first.
	ListActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error)

	// CountActiveByUserID returns the number of non-expired sessions for a user.
	CountActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// DeleteByID removes a single session.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// DeleteByTokenHash removes the session identified by the token hash.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteByUserID removes every session of the user.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error

	// DeleteByUserIDExcept removes every session of the user except keepID.
	DeleteByUserIDExcept(ctx context.Context, userID, keepID uuid.UUID) (int64, error)

	// DeleteExpired removes sessions that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
