package context

import (
	"context"
	"log/slog"

	"portal/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// ContextKey namespaces the request-scoped values below.
type ContextKey string

const (
	KeyRequestID ContextKey = "request_id"
	KeyLogger    ContextKey = "logger"
	KeyLocale    ContextKey = "locale"
	KeySession   ContextKey = "session"

	HeaderXRequestID = "X-Request-Id"
)

func value[T any](ctx context.Context, key ContextKey) (T, bool) {
	v, ok := ctx.Value(key).(T)

	return v, ok
}

// SetRequestID stores the request ID on the echo context for response metadata.
func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(KeyRequestID), requestID)
}

// GetRequestID returns the ID set by the request-ID middleware, or "".
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(string(KeyRequestID)).(string)

	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// GetRequestIDFromContext returns "" outside a request, e.g. in the cleanup worker.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := value[string](ctx, KeyRequestID)

	return id
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}

func GetLogger(ctx context.Context) *slog.Logger {
	logger, _ := value[*slog.Logger](ctx, KeyLogger)

	return logger
}

// GetLoggerOrDefault is how services log: the request logger when there is
// one, fallback otherwise.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := GetLogger(ctx); logger != nil {
		return logger
	}

	return fallback
}

// WithLocale returns a new context carrying the negotiated locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, KeyLocale, locale)
}

// GetLocale returns the negotiated locale, or "" when none was set.
func GetLocale(ctx context.Context) string {
	locale, _ := value[string](ctx, KeyLocale)

	return locale
}

// WithSession records the validated session and tags the request logger with
// the user and session IDs, so every later log line names who made the call.
func WithSession(ctx context.Context, session *entity.Session, fallback *slog.Logger) context.Context {
	logger := GetLoggerOrDefault(ctx, fallback).With(
		slog.String("userID", session.UserID.String()),
		slog.String("sessionID", session.ID.String()),
	)

	return WithLogger(context.WithValue(ctx, KeySession, session), logger)
}

// GetSession returns the session stored by WithSession.
func GetSession(ctx context.Context) (*entity.Session, bool) {
	session, ok := value[*entity.Session](ctx, KeySession)

	return session, ok && session != nil
}
