package impl

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portal/config"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	"portal/internal/domain/service"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/fx"
)

const maxNameLength = 100

var namePolicy = bluemonday.StrictPolicy()

// sanitizeName strips markup from a user-supplied display name.
func sanitizeName(name string) string {
	name = strings.TrimSpace(namePolicy.Sanitize(name))
	if len([]rune(name)) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}

	return name
}

// Notifier sends account mail and publishes account events. Both are best
// effort: failures are logged and never surface to the caller.
type Notifier struct {
	publisher  service.EventPublisher
	mailer     service.Mailer
	translator service.Translator
	publicURL  string
	logger     *slog.Logger
}

// NotifierParams holds dependencies for Notifier, injected by Fx.
type NotifierParams struct {
	fx.In

	Publisher  service.EventPublisher
	Mailer     service.Mailer
	Translator service.Translator
	Config     *config.Config
	Logger     *slog.Logger
}

// NewNotifier is the constructor for Notifier.
func NewNotifier(params NotifierParams) *Notifier {
	return &Notifier{
		publisher:  params.Publisher,
		mailer:     params.Mailer,
		translator: params.Translator,
		publicURL:  strings.TrimRight(params.Config.HTTP.PublicURL, "/"),
		logger:     params.Logger,
	}
}

func (n *Notifier) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, n.logger)
}

func (n *Notifier) locale(locale string) string {
	if locale == "" {
		return n.translator.DefaultLocale()
	}

	return locale
}

func (n *Notifier) link(path, token string) string {
	return n.publicURL + path + "?token=" + url.QueryEscape(token)
}

// SendVerification mails the email-verification link.
func (n *Notifier) SendVerification(ctx context.Context, user *entity.User, rawToken, locale string, ttl time.Duration) {
	locale = n.locale(locale)
	params := map[string]string{
		"name":  user.Name,
		"link":  n.link("/api/auth/verify-email", rawToken),
		"hours": strconv.Itoa(int(ttl.Hours())),
	}

	n.send(ctx, service.Mail{
		To:      user.Email,
		Subject: n.translator.T(locale, "mail.verify.subject", nil),
		Body:    n.translator.T(locale, "mail.verify.body", params),
	})
}

// SendPasswordReset mails the password-reset link.
func (n *Notifier) SendPasswordReset(ctx context.Context, user *entity.User, rawToken, locale string, ttl time.Duration) {
	locale = n.locale(locale)
	params := map[string]string{
		"name":    user.Name,
		"link":    n.link("/reset-password", rawToken),
		"minutes": strconv.Itoa(int(ttl.Minutes())),
	}

	n.send(ctx, service.Mail{
		To:      user.Email,
		Subject: n.translator.T(locale, "mail.reset.subject", nil),
		Body:    n.translator.T(locale, "mail.reset.body", params),
	})
}

func (n *Notifier) send(ctx context.Context, mail service.Mail) {
	if err := n.mailer.Send(ctx, mail); err != nil {
		n.log(ctx).Error("Failed to send mail", slog.String("to", mail.To), slog.Any("error", err))
	}
}

// Publish emits an account event for user.
func (n *Notifier) Publish(ctx context.Context, eventType service.AccountEventType, user *entity.User, provider entity.ProviderType) {
	event := &service.AccountEvent{
		ID:         uuid.NewString(),
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		UserID:     user.ID.String(),
		Email:      user.Email,
		Provider:   string(provider),
		OccurredAt: time.Now().UTC(),
	}

	if err := n.publisher.PublishAccountEvent(ctx, event); err != nil {
		n.log(ctx).Error("Failed to publish account event",
			slog.String("type", string(eventType)),
			slog.Any("userID", user.ID),
			slog.Any("error", err),
		)
	}
}
