// Package service holds testify mocks for the domain service interfaces.
package service

import (
	"context"

	"portal/internal/domain/entity"
	"portal/internal/domain/service"

	"github.com/stretchr/testify/mock"
)

// EventPublisher is a mock of service.EventPublisher.
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) PublishAccountEvent(ctx context.Context, event *service.AccountEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *EventPublisher) Close() error {
	return m.Called().Error(0)
}

// Mailer is a mock of service.Mailer.
type Mailer struct {
	mock.Mock
}

func (m *Mailer) Send(ctx context.Context, mail service.Mail) error {
	return m.Called(ctx, mail).Error(0)
}

// OAuthProvider is a mock of service.OAuthProvider.
type OAuthProvider struct {
	mock.Mock
}

func (m *OAuthProvider) Type() entity.ProviderType {
	return m.Called().Get(0).(entity.ProviderType)
}

func (m *OAuthProvider) AuthCodeURL(state, codeVerifier string) string {
	return m.Called(state, codeVerifier).String(0)
}

func (m *OAuthProvider) Exchange(ctx context.Context, code, codeVerifier string) (service.ProfileResult, error) {
	args := m.Called(ctx, code, codeVerifier)
	result, _ := args.Get(0).(service.ProfileResult)

	return result, args.Error(1)
}

// IDTokenVerifier is a mock of service.IDTokenVerifier.
type IDTokenVerifier struct {
	mock.Mock
}

func (m *IDTokenVerifier) Verify(ctx context.Context, idToken string) (service.ProfileResult, error) {
	args := m.Called(ctx, idToken)
	result, _ := args.Get(0).(service.ProfileResult)

	return result, args.Error(1)
}

// StateService is a mock of service.StateService.
type StateService struct {
	mock.Mock
}

func (m *StateService) Sign(provider entity.ProviderType, nonce string) (string, error) {
	args := m.Called(provider, nonce)

	return args.String(0), args.Error(1)
}

func (m *StateService) Verify(state string) (*service.StateClaims, error) {
	args := m.Called(state)
	claims, _ := args.Get(0).(*service.StateClaims)

	return claims, args.Error(1)
}

// PasswordHasher is a mock of service.PasswordHasher.
type PasswordHasher struct {
	mock.Mock
}

func (m *PasswordHasher) ValidateStrength(password string) error {
	return m.Called(password).Error(0)
}

func (m *PasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)

	return args.String(0), args.Error(1)
}

func (m *PasswordHasher) Check(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}
