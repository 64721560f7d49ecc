package postgres

import (
	"context"
	"time"

	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/repository"
	"portal/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type oneTimeTokenRepository struct {
	db *gorm.DB
}

// NewOneTimeTokenRepository is the constructor for oneTimeTokenRepository.
func NewOneTimeTokenRepository(db *gorm.DB) repository.OneTimeTokenRepository {
	return &oneTimeTokenRepository{db: db}
}

func (repo *oneTimeTokenRepository) Create(ctx context.Context, token *entity.OneTimeToken) error {
	tokenM := &model.OneTimeTokenModel{
		ID:        token.ID,
		UserID:    token.UserID,
		Purpose:   string(token.Purpose),
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create one-time token")
	}

	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

func (repo *oneTimeTokenRepository) FindByHash(ctx context.Context, purpose entity.TokenPurpose, tokenHash string) (*entity.OneTimeToken, error) {
	var tokenM model.OneTimeTokenModel
	if err := repo.db.WithContext(ctx).
		Where("purpose = ? AND token_hash = ?", string(purpose), tokenHash).
		First(&tokenM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrTokenNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find one-time token")
	}

	return &entity.OneTimeToken{
		ID:        tokenM.ID,
		UserID:    tokenM.UserID,
		Purpose:   entity.TokenPurpose(tokenM.Purpose),
		TokenHash: tokenM.TokenHash,
		ExpiresAt: tokenM.ExpiresAt,
		CreatedAt: tokenM.CreatedAt,
	}, nil
}

// DeleteByID removes a redeemed token. A zero row count means another request
// redeemed it first.
func (repo *oneTimeTokenRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&model.OneTimeTokenModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete one-time token")
	}
	if result.RowsAffected == 0 {
		return repository.ErrTokenNotFound
	}

	return nil
}

func (repo *oneTimeTokenRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID, purpose entity.TokenPurpose) error {
	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, string(purpose)).
		Delete(&model.OneTimeTokenModel{}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete one-time tokens")
	}

	return nil
}

func (repo *oneTimeTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.OneTimeTokenModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired one-time tokens")
	}

	return result.RowsAffected, nil
}
