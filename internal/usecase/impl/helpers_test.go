package impl

import (
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	"portal/config"
	"portal/internal/domain/service"
	"portal/internal/infra/auth"
	"portal/internal/infra/i18n"
	"portal/internal/infra/metrics"
	memrepo "portal/internal/mocks/repository"
	mocksvc "portal/internal/mocks/service"
	"portal/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testStateSecret = "0123456789abcdef0123456789abcdef"

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(maxActiveSessions int) *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:        4,
			MaxActiveSessions: maxActiveSessions,
		},
		OAuth: &config.OAuthConfig{StateSecret: testStateSecret},
		I18n:  &config.I18nConfig{DefaultLocale: "en"},
	}
	cfg.HTTP.PublicURL = "https://portal.test/"

	return cfg
}

// fixture wires the real usecases on top of the in-memory store.
type fixture struct {
	cfg       *config.Config
	store     *memrepo.Store
	publisher *mocksvc.EventPublisher
	mailer    *mocksvc.Mailer
	hasher    service.PasswordHasher
	notifier  *Notifier
	sessions  usecase.SessionUsecase
	auth      usecase.AuthUsecase
	accounts  usecase.AccountUsecase

	mu     sync.Mutex
	mails  []service.Mail
	events []*service.AccountEvent
}

func newFixture(t *testing.T, maxActiveSessions int) *fixture {
	t.Helper()

	cfg := newTestConfig(maxActiveSessions)
	logger := newDiscardLogger()

	catalog, err := i18n.NewCatalog(cfg)
	require.NoError(t, err)

	f := &fixture{
		cfg:       cfg,
		store:     memrepo.NewStore(),
		publisher: &mocksvc.EventPublisher{},
		mailer:    &mocksvc.Mailer{},
		hasher:    auth.NewBcryptHasher(cfg),
	}

	f.publisher.On("PublishAccountEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, args.Get(1).(*service.AccountEvent))
		}).
		Return(nil).Maybe()
	f.mailer.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.mails = append(f.mails, args.Get(1).(service.Mail))
		}).
		Return(nil).Maybe()

	f.notifier = NewNotifier(NotifierParams{
		Publisher:  f.publisher,
		Mailer:     f.mailer,
		Translator: catalog,
		Config:     cfg,
		Logger:     logger,
	})
	f.sessions = NewSessionService(SessionServiceParams{
		TxManager:   f.store,
		SessionRepo: f.store.SessionRepo(),
		TokenRepo:   f.store.TokenRepo(),
		Metrics:     metrics.Nop{},
		Config:      cfg,
		Logger:      logger,
	})
	f.auth = NewAuthService(AuthServiceParams{
		TxManager:   f.store,
		UserRepo:    f.store.UserRepo(),
		SessionRepo: f.store.SessionRepo(),
		Hasher:      f.hasher,
		Sessions:    f.sessions,
		Notifier:    f.notifier,
		Metrics:     metrics.Nop{},
		Config:      cfg,
		Logger:      logger,
	})
	f.accounts = NewAccountService(AccountServiceParams{
		TxManager: f.store,
		UserRepo:  f.store.UserRepo(),
		OAuthRepo: f.store.OAuthAccountRepo(),
		Sessions:  f.sessions,
		Logger:    logger,
	})

	return f
}

func (f *fixture) eventTypes() []service.AccountEventType {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]service.AccountEventType, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
	}

	return types
}

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]+)`)

// lastMailToken extracts the raw token from the most recent mail.
func (f *fixture) lastMailToken(t *testing.T) string {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.mails)
	match := tokenInLink.FindStringSubmatch(f.mails[len(f.mails)-1].Body)
	require.Len(t, match, 2)

	return match[1]
}
