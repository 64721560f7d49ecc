package middleware

import (
	"portal/internal/delivery/api/cookie"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/infra/i18n"

	"github.com/labstack/echo/v4"
)

// LocaleMiddleware picks the request locale from the lang cookie, falling
// back to Accept-Language.
type LocaleMiddleware struct {
	catalog *i18n.Catalog
}

// NewLocaleMiddleware creates a new locale middleware.
func NewLocaleMiddleware(catalog *i18n.Catalog) *LocaleMiddleware {
	return &LocaleMiddleware{catalog: catalog}
}

// Handle stores the negotiated locale in the request context.
func (m *LocaleMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		locale := m.catalog.Negotiate(cookie.Locale(req), req.Header.Get("Accept-Language"))

		c.Response().Header().Set("Content-Language", locale)
		c.SetRequest(req.WithContext(deliverycontext.WithLocale(req.Context(), locale)))

		return next(c)
	}
}

// Locale returns the locale chosen for this request.
func Locale(c echo.Context) string {
	return deliverycontext.GetLocale(c.Request().Context())
}
