package usecase

import (
	"context"

	"portal/internal/domain/entity"

	"github.com/google/uuid"
)

// AccountView is the current user with the providers linked to it.
type AccountView struct {
	User      *entity.User
	Providers []entity.ProviderType
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users  []*entity.User
	Total  int64
	Offset int
	Limit  int
}

// AccountUsecase covers the signed-in user's own account and admin listing.
type AccountUsecase interface {
	Me(ctx context.Context, userID uuid.UUID) (*AccountView, error)
	UpdateName(ctx context.Context, userID uuid.UUID, name string) (*entity.User, error)
	// ToggleRole flips the role and replaces the current session with one
	// carrying the new role.
	ToggleRole(ctx context.Context, current *entity.Session, client entity.ClientContext) (*AuthResult, error)
	// AuthorizeAdmin re-reads the user's role and fails unless it grants admin access.
	AuthorizeAdmin(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	ListUsers(ctx context.Context, offset, limit int) (*UserPage, error)
}
