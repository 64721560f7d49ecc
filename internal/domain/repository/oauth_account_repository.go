package repository

import (
	"context"

	"portal/internal/domain/entity"

	"github.com/google/uuid"
)

// OAuthAccountRepository persists links between users and external identities.
type OAuthAccountRepository interface {
	// CreateIfNotExists inserts the link and ignores a conflict on (provider, provider_account_id).
	// created is false when the link already existed.
	CreateIfNotExists(ctx context.Context, account *entity.OAuthAccount) (created bool, err error)

	// FindByProviderAccount retrieves the link for an external identity.
	FindByProviderAccount(ctx context.Context, provider entity.ProviderType, providerAccountID string) (*entity.OAuthAccount, error)

	// ListByUserID returns every provider linked to the user.
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.OAuthAccount, error)
}
