package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"portal/config"
	"portal/internal/delivery/api/cookie"
	"portal/internal/infra/i18n"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocaleMiddleware(t *testing.T) {
	catalog, err := i18n.NewCatalog(&config.Config{})
	require.NoError(t, err)

	tests := []struct {
		name           string
		langCookie     string
		acceptLanguage string
		want           string
	}{
		{name: "default", want: "en"},
		{name: "header", acceptLanguage: "es-MX,es;q=0.9", want: "es"},
		{name: "cookie wins over header", langCookie: "en", acceptLanguage: "es", want: "en"},
		{name: "unsupported cookie falls back to header", langCookie: "fr", acceptLanguage: "es", want: "es"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.langCookie != "" {
				req.AddCookie(&http.Cookie{Name: cookie.LangName, Value: tt.langCookie})
			}
			if tt.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tt.acceptLanguage)
			}
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			var got string
			err := NewLocaleMiddleware(catalog).Handle(func(c echo.Context) error {
				got = Locale(c)

				return nil
			})(c)
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Language"))
		})
	}
}
