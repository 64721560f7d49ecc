package pubsub

import (
	"context"
	"log/slog"

	"portal/internal/domain/service"
)

// noopPublisher drops account events. It backs deployments without a broker.
type noopPublisher struct {
	logger *slog.Logger
}

func newNoopPublisher(logger *slog.Logger) *noopPublisher {
	return &noopPublisher{logger: logger}
}

func (p *noopPublisher) PublishAccountEvent(ctx context.Context, event *service.AccountEvent) error {
	p.logger.DebugContext(ctx, "Account event dropped",
		slog.String("type", string(event.Type)),
		slog.String("user_id", event.UserID),
	)

	return nil
}

func (p *noopPublisher) Close() error { return nil }
