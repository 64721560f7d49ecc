package postgres

import (
	"context"

	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/repository"
	"portal/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type oauthAccountRepository struct {
	db *gorm.DB
}

// NewOAuthAccountRepository is the constructor for oauthAccountRepository.
func NewOAuthAccountRepository(db *gorm.DB) repository.OAuthAccountRepository {
	return &oauthAccountRepository{db: db}
}

// CreateIfNotExists inserts with ON CONFLICT (provider, provider_account_id) DO NOTHING.
func (repo *oauthAccountRepository) CreateIfNotExists(ctx context.Context, account *entity.OAuthAccount) (bool, error) {
	accountM := fromOAuthAccountDomain(account)

	result := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_account_id"}},
			DoNothing: true,
		}).
		Create(accountM)
	if err := result.Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return false, repository.ErrUserNotFound
		}

		return false, domainerrors.NewDatabaseExecuteError(err, "failed to link oauth account")
	}

	if result.RowsAffected == 0 {
		return false, nil
	}

	account.ID = accountM.ID
	account.CreatedAt = accountM.CreatedAt

	return true, nil
}

// FindByProviderAccount retrieves the link for an external identity.
func (repo *oauthAccountRepository) FindByProviderAccount(ctx context.Context, provider entity.ProviderType, providerAccountID string) (*entity.OAuthAccount, error) {
	var accountM model.OAuthAccountModel
	if err := repo.db.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ?", provider.String(), providerAccountID).
		First(&accountM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrOAuthAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find oauth account")
	}

	return toOAuthAccountDomain(&accountM), nil
}

// ListByUserID returns every provider linked to the user.
func (repo *oauthAccountRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.OAuthAccount, error) {
	var accountModels []model.OAuthAccountModel
	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&accountModels).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list oauth accounts")
	}

	accounts := make([]*entity.OAuthAccount, 0, len(accountModels))
	for i := range accountModels {
		accounts = append(accounts, toOAuthAccountDomain(&accountModels[i]))
	}

	return accounts, nil
}

func toOAuthAccountDomain(accountM *model.OAuthAccountModel) *entity.OAuthAccount {
	return &entity.OAuthAccount{
		ID:                accountM.ID,
		UserID:            accountM.UserID,
		Provider:          entity.ProviderType(accountM.Provider),
		ProviderAccountID: accountM.ProviderAccountID,
		CreatedAt:         accountM.CreatedAt,
	}
}

func fromOAuthAccountDomain(account *entity.OAuthAccount) *model.OAuthAccountModel {
	return &model.OAuthAccountModel{
		ID:                account.ID,
		UserID:            account.UserID,
		Provider:          account.Provider.String(),
		ProviderAccountID: account.ProviderAccountID,
		CreatedAt:         account.CreatedAt,
	}
}
