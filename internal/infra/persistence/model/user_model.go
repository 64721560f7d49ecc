// Package model holds the GORM table mappings. Domain code never sees these types.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via gen_random_uuid().
type UserModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email           string    `gorm:"type:varchar(255);unique;not null"`
	Name            string    `gorm:"type:varchar(100)"`
	Role            string    `gorm:"type:varchar(20);not null;default:user"`
	PasswordHash    *string   `gorm:"type:varchar(255)"`
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	OAuthAccounts []OAuthAccountModel `gorm:"foreignKey:UserID"`
	Sessions      []SessionModel      `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
