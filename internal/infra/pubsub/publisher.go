package pubsub

import (
	"context"
	"log/slog"
	"strings"

	"portal/config"
	"portal/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Values of pubsub.provider. An empty provider means noop.
const (
	ProviderNoop   = "noop"
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// PublisherParams holds dependencies for EventPublisher, injected by Fx.
type PublisherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewEventPublisher opens the account event transport named by
// pubsub.provider and closes it on shutdown.
func NewEventPublisher(params PublisherParams) (service.EventPublisher, error) {
	publisher, err := openPublisher(params.Ctx, params.Config.PubSub, params.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open account event publisher")
	}

	params.Lc.Append(fx.StopHook(publisher.Close))

	return publisher, nil
}

func openPublisher(ctx context.Context, cfg *config.PubSubConfig, logger *slog.Logger) (service.EventPublisher, error) {
	if cfg == nil {
		cfg = &config.PubSubConfig{}
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderNoop
	}
	logger = logger.With(slog.String("provider", provider))

	switch provider {
	case ProviderNoop:
		logger.Info("Account events will not be published")

		return newNoopPublisher(logger), nil

	case ProviderLocal:
		if err := requireSetting(provider, "localEndpoint", cfg.LocalEndpoint); err != nil {
			return nil, err
		}
		logger.Info("Publishing account events over HTTP", slog.String("endpoint", cfg.LocalEndpoint))

		return NewLocalHTTPPublisher(cfg.LocalEndpoint, logger), nil

	case ProviderGoogle:
		if err := requireSetting(provider, "projectId", cfg.ProjectID); err != nil {
			return nil, err
		}
		if err := requireSetting(provider, "topicId", cfg.TopicID); err != nil {
			return nil, err
		}
		logger.Info("Publishing account events to Google Pub/Sub",
			slog.String("project_id", cfg.ProjectID),
			slog.String("topic_id", cfg.TopicID),
		)

		return NewGooglePubSubPublisher(ctx, cfg.ProjectID, cfg.TopicID, logger)
	}

	return nil, errors.Errorf("unknown pubsub provider %q", cfg.Provider)
}

func requireSetting(provider, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Errorf("pubsub.%s is required by the %s provider", name, provider)
	}

	return nil
}
