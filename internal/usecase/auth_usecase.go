// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"portal/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// SignUpInput defines the data required to register with a password.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Locale   string
	Client   entity.ClientContext
}

// SignInInput defines the data required for a password sign-in.
type SignInInput struct {
	Email    string
	Password string
	Client   entity.ClientContext
}

// ResetPasswordInput redeems a password-reset token.
type ResetPasswordInput struct {
	Token    string
	Password string
}

// --- Output DTOs ---

// AuthResult is returned by every flow that ends in a new session.
type AuthResult struct {
	User    *entity.User
	Session *IssuedSession
}

// AuthUsecase covers password-based account flows.
type AuthUsecase interface {
	SignUp(ctx context.Context, input *SignUpInput) (*AuthResult, error)
	SignIn(ctx context.Context, input *SignInInput) (*AuthResult, error)
	// SignOut deletes the session identified by the raw cookie token.
	SignOut(ctx context.Context, rawToken string) error
	// ForgotPassword mails a reset link when the account exists. It reports
	// success either way so callers cannot learn which emails have accounts.
	ForgotPassword(ctx context.Context, email, locale string) error
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error
	VerifyEmail(ctx context.Context, rawToken string) (*entity.User, error)
	ResendVerification(ctx context.Context, userID uuid.UUID, locale string) error
}
