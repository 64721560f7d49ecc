package service

import (
	"context"
	"time"
)

// AccountEventType names an account lifecycle event.
type AccountEventType string

const (
	EventUserRegistered AccountEventType = "user.registered"
	EventOAuthLinked    AccountEventType = "oauth.linked"
	EventEmailVerified  AccountEventType = "email.verified"
	EventPasswordReset  AccountEventType = "password.reset"
)

// AccountEvent is published for downstream consumers (billing, analytics, CRM).
type AccountEvent struct {
	ID         string           `json:"id"`
	RequestID  string           `json:"request_id,omitempty"` // For distributed tracing
	Type       AccountEventType `json:"type"`
	UserID     string           `json:"user_id"`
	Email      string           `json:"email,omitempty"`
	Provider   string           `json:"provider,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAccountEvent publishes an account event for async processing
	PublishAccountEvent(ctx context.Context, event *AccountEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
