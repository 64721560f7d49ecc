package middleware

import (
	"log/slog"
	"net/http"

	"portal/internal/delivery/api/cookie"
	"portal/internal/delivery/api/response"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/errors"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const userContextKey = "auth.user"

// AuthMiddleware re-validates the session cookie against the store. It is the
// authoritative check behind the presence-only route guard.
type AuthMiddleware struct {
	sessions usecase.SessionUsecase
	accounts usecase.AccountUsecase
	cookies  *cookie.Store
	logger   *slog.Logger
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Sessions usecase.SessionUsecase
	Accounts usecase.AccountUsecase
	Cookies  *cookie.Store
	Logger   *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: params.Sessions,
		accounts: params.Accounts,
		cookies:  params.Cookies,
		logger:   params.Logger,
	}
}

func (m *AuthMiddleware) resolve(c echo.Context) (*entity.Session, error) {
	session, err := m.sessions.Validate(c.Request().Context(), m.cookies.SessionToken(c))
	if err != nil {
		if _, ok := errors.AsType[domainerrors.AppError](err); !ok {
			return nil, err
		}
		if clearErr := m.cookies.ClearSession(c); clearErr != nil {
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
				Warn("Failed to clear stale session cookie", slog.Any("error", clearErr))
		}

		return nil, err
	}

	c.SetRequest(c.Request().WithContext(deliverycontext.WithSession(c.Request().Context(), session, m.logger)))

	return session, nil
}

// RequireSession rejects API calls without a live session with 401.
func (m *AuthMiddleware) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := m.resolve(c); err != nil {
			return response.HandleAppError(c, err)
		}

		return next(c)
	}
}

// RequirePageSession sends page visitors without a live session to sign-in.
// The guard only saw a cookie; this is where it is checked.
func (m *AuthMiddleware) RequirePageSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, err := m.resolve(c)
		if _, ok := errors.AsType[domainerrors.AppError](err); ok {
			return c.Redirect(http.StatusTemporaryRedirect, SignInRedirect(c.Request().URL.Path))
		}
		if err != nil {
			return err
		}

		return next(c)
	}
}

// RequireAdmin must run after RequireSession or RequirePageSession. It reads
// the role from the user record, not from the session snapshot.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, ok := GetSession(c)
		if !ok {
			return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
		}

		user, err := m.accounts.AuthorizeAdmin(c.Request().Context(), session.UserID)
		if err != nil {
			return response.HandleAppError(c, err)
		}

		c.Set(userContextKey, user)

		return next(c)
	}
}

// GetSession returns the session stored by the auth middleware.
func GetSession(c echo.Context) (*entity.Session, bool) {
	return deliverycontext.GetSession(c.Request().Context())
}

// GetAdmin returns the admin user loaded by RequireAdmin.
func GetAdmin(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get(userContextKey).(*entity.User)

	return user, ok && user != nil
}
