package postgres

import (
	"context"
	"time"

	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/repository"
	"portal/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// sessionRepository implements the repository.SessionRepository interface.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create persists a new session.
func (repo *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	sessionM := fromSessionDomain(session)

	if err := repo.db.WithContext(ctx).Create(sessionM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrConflict.WrapMessage("session token hash collision")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	session.ID = sessionM.ID
	session.CreatedAt = sessionM.CreatedAt

	return nil
}

// FindByTokenHash retrieves a session by its token hash. Expiry is checked by the caller.
func (repo *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	return repo.findOne(ctx, "token_hash = ?", tokenHash)
}

// FindByID retrieves a session by its ID.
func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	return repo.findOne(ctx, "id = ?", id)
}

func (repo *sessionRepository) findOne(ctx context.Context, query string, arg any) (*entity.Session, error) {
	var sessionM model.SessionModel
	if err := repo.db.WithContext(ctx).Where(query, arg).First(&sessionM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find session")
	}

	return toSessionDomain(&sessionM)
}

// ListActiveByUserID returns the user's non-expired sessions, newest first.
func (repo *sessionRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error) {
	var sessionModels []model.SessionModel
	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("created_at DESC").
		Find(&sessionModels).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list sessions")
	}

	sessions := make([]*entity.Session, 0, len(sessionModels))
	for i := range sessionModels {
		session, err := toSessionDomain(&sessionModels[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// CountActiveByUserID returns the number of non-expired sessions for a user.
func (repo *sessionRepository) CountActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int64
	if err := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Count(&count).Error; err != nil {
		return 0, domainerrors.NewDatabaseExecuteError(err, "failed to count sessions")
	}

	return int(count), nil
}

// DeleteByID removes a single session.
func (repo *sessionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SessionModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete session")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeleteByTokenHash removes the session identified by the token hash.
func (repo *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result := repo.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&model.SessionModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete session")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeleteByUserID removes every session of the user.
func (repo *sessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.SessionModel{}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete user sessions")
	}

	return nil
}

// DeleteByUserIDExcept removes every session of the user except keepID.
func (repo *sessionRepository) DeleteByUserIDExcept(ctx context.Context, userID, keepID uuid.UUID) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("user_id = ? AND id <> ?", userID, keepID).
		Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete other sessions")
	}

	return result.RowsAffected, nil
}

// DeleteExpired removes sessions that expired before now.
func (repo *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired sessions")
	}

	return result.RowsAffected, nil
}

func toSessionDomain(sessionM *model.SessionModel) (*entity.Session, error) {
	role, err := entity.ParseRole(sessionM.Role)
	if err != nil {
		return nil, errors.Wrapf(err, "session %s", sessionM.ID)
	}

	return &entity.Session{
		ID:        sessionM.ID,
		UserID:    sessionM.UserID,
		TokenHash: sessionM.TokenHash,
		Role:      role,
		Method:    entity.AuthMethod(sessionM.AuthMethod),
		Device:    entity.DeviceType(sessionM.Device),
		UserAgent: derefString(sessionM.UserAgent),
		IPAddress: derefString(sessionM.IPAddress),
		ExpiresAt: sessionM.ExpiresAt,
		CreatedAt: sessionM.CreatedAt,
	}, nil
}

func fromSessionDomain(session *entity.Session) *model.SessionModel {
	device := session.Device
	if device == "" {
		device = entity.DeviceDesktop
	}

	return &model.SessionModel{
		ID:         session.ID,
		UserID:     session.UserID,
		TokenHash:  session.TokenHash,
		Role:       session.Role.String(),
		AuthMethod: string(session.Method),
		Device:     string(device),
		UserAgent:  nullableString(session.UserAgent),
		IPAddress:  nullableString(session.IPAddress),
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
	}
}
