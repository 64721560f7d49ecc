package model

import (
	"time"

	"github.com/google/uuid"
)

// OAuthAccountModel mirrors the 'oauth_accounts' table.
type OAuthAccountModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index"`
	Provider          string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_oauth_accounts_provider_account"`
	ProviderAccountID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_oauth_accounts_provider_account"`
	CreatedAt         time.Time
}

// TableName explicitly sets the table name for GORM.
func (OAuthAccountModel) TableName() string {
	return "oauth_accounts"
}

// SessionModel mirrors the 'sessions' table.
type SessionModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash  string    `gorm:"type:varchar(64);unique;not null"`
	Role       string    `gorm:"type:varchar(20);not null"`
	AuthMethod string    `gorm:"type:varchar(30);not null"`
	Device     string    `gorm:"type:varchar(20);not null"`
	UserAgent  *string   `gorm:"type:text"`
	IPAddress  *string   `gorm:"type:varchar(64)"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}

// OneTimeTokenModel mirrors the 'one_time_tokens' table.
type OneTimeTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Purpose   string    `gorm:"type:varchar(30);not null"`
	TokenHash string    `gorm:"type:varchar(64);unique;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (OneTimeTokenModel) TableName() string {
	return "one_time_tokens"
}
