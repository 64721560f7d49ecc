package main

import (
	"context"
	"log/slog"
	"os"

	"portal/config"
	"portal/internal/delivery"
	"portal/internal/delivery/api"
	"portal/internal/delivery/api/cookie"
	"portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/router/handler"
	"portal/internal/delivery/worker"
	"portal/internal/domain/service"
	"portal/internal/infra/auth"
	"portal/internal/infra/auth/oauth"
	"portal/internal/infra/i18n"
	logs "portal/internal/infra/log"
	"portal/internal/infra/mail"
	"portal/internal/infra/metrics"
	"portal/internal/infra/persistence/postgres"
	"portal/internal/infra/pubsub"
	"portal/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		fx.Annotate(
			metrics.NewCollector,
			fx.As(fx.Self()),
			fx.As(new(service.MetricsRecorder)),
		),
		fx.Annotate(
			i18n.NewCatalog,
			fx.As(fx.Self()),
			fx.As(new(service.Translator)),
		),
		cookie.NewStore,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewUserRepository,
			postgres.NewOAuthAccountRepository,
			postgres.NewSessionRepository,
			postgres.NewOneTimeTokenRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewStateService,
			oauth.NewGoogleIDTokenVerifier,
			fx.Annotate(
				oauth.NewProviders,
				fx.ResultTags(`group:"oauth_providers,flatten"`),
			),
			mail.NewLogMailer,
			pubsub.NewEventPublisher,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewNotifier,
			impl.NewSessionService,
			impl.NewAuthService,
			impl.NewAccountService,
			impl.NewOAuthService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewRateLimiter,
			middleware.NewRouteGuard,
			middleware.NewLocaleMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewOAuthHandler,
			handler.NewAccountHandler,
			handler.NewSessionHandler,
			handler.NewAdminHandler,
			handler.NewPageHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				worker.NewCleanupWorker,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
