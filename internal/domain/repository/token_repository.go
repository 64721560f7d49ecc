package repository

import (
	"context"
	"time"

	"portal/internal/domain/entity"

	"github.com/google/uuid"
)

// OneTimeTokenRepository persists password-reset and email-verification tokens.
type OneTimeTokenRepository interface {
	// Create persists a new token.
	Create(ctx context.Context, token *entity.OneTimeToken) error

	// FindByHash retrieves a token by hash and purpose.
	FindByHash(ctx context.Context, purpose entity.TokenPurpose, tokenHash string) (*entity.OneTimeToken, error)

	// DeleteByID removes a redeemed token.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// DeleteByUserID removes all of the user's tokens for the purpose.
	DeleteByUserID(ctx context.Context, userID uuid.UUID, purpose entity.TokenPurpose) error

	// DeleteExpired removes tokens that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
