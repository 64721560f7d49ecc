// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"portal/internal/domain/entity"

	"github.com/google/uuid"
)

// UserRepository defines the standard operations for user persistence.
// The application layer will depend on this interface, not the concrete implementation.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their normalized email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user entity and fills in its ID and timestamps.
	Create(ctx context.Context, user *entity.User) error

	// Update modifies the mutable fields of an existing user.
	Update(ctx context.Context, user *entity.User) error

	// List returns one page of users ordered by creation time, plus the total count.
	List(ctx context.Context, offset, limit int) ([]*entity.User, int64, error)

	// AcquireSessionMutex locks the user row for the rest of the transaction.
	// Used to serialize the session-limit check with the insert.
	AcquireSessionMutex(ctx context.Context, userID uuid.UUID) error
}
