package repository

import "github.com/pkg/errors"

// Domain-specific persistence errors. Implementations translate driver errors
// into these so the use case layer never sees gorm or pgx types.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrSessionNotFound      = errors.New("session not found")
	ErrOAuthAccountNotFound = errors.New("oauth account not found")
	ErrTokenNotFound        = errors.New("one-time token not found")
)
