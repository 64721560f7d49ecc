package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"portal/config"
	"portal/internal/delivery/api/cookie"
	apimiddleware "portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/router"
	"portal/internal/delivery/api/router/handler"
	"portal/internal/domain/entity"
	"portal/internal/domain/service"
	"portal/internal/infra/auth"
	"portal/internal/infra/i18n"
	"portal/internal/infra/metrics"
	memrepo "portal/internal/mocks/repository"
	mocksvc "portal/internal/mocks/service"
	"portal/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

const (
	testPassword = "Correct-Horse-42"
	githubAuth   = "https://github.test/login/oauth/authorize"
)

// testApp is the full HTTP stack over the in-memory store, plus a cookie jar.
type testApp struct {
	e      *echo.Echo
	store  *memrepo.Store
	github *mocksvc.OAuthProvider
	jar    map[string]*http.Cookie

	mu    sync.Mutex
	mails []service.Mail
	state string
}

func newTestApp(t *testing.T, configure ...func(*config.Config)) *testApp {
	t.Helper()

	cfg := &config.Config{
		Session: &config.SessionConfig{Secret: strings.Repeat("k", 32), TTL: time.Hour},
		OAuth:   &config.OAuthConfig{StateSecret: strings.Repeat("s", 32)},
		Auth:    &config.AuthConfig{BcryptCost: 4},
		I18n:    &config.I18nConfig{DefaultLocale: "en"},
		Cleanup: &config.CleanupConfig{},
	}
	cfg.HTTP.PublicURL = "https://portal.test"
	cfg.HTTP.MaxRequestBodySize = "100KB"
	for _, fn := range configure {
		fn(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := &testApp{
		store:  memrepo.NewStore(),
		github: &mocksvc.OAuthProvider{},
		jar:    map[string]*http.Cookie{},
	}

	catalog, err := i18n.NewCatalog(cfg)
	require.NoError(t, err)
	state, err := auth.NewStateService(cfg)
	require.NoError(t, err)
	cookies, err := cookie.NewStore(cfg)
	require.NoError(t, err)
	collector := metrics.NewCollector()

	publisher := &mocksvc.EventPublisher{}
	publisher.On("PublishAccountEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	mailer := &mocksvc.Mailer{}
	mailer.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			app.mu.Lock()
			defer app.mu.Unlock()
			app.mails = append(app.mails, args.Get(1).(service.Mail))
		}).
		Return(nil).Maybe()

	app.github.On("Type").Return(entity.ProviderGitHub)
	app.github.On("AuthCodeURL", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			app.mu.Lock()
			defer app.mu.Unlock()
			app.state = args.String(0)
		}).
		Return(githubAuth).Maybe()

	notifier := impl.NewNotifier(impl.NotifierParams{
		Publisher: publisher, Mailer: mailer, Translator: catalog, Config: cfg, Logger: logger,
	})
	sessions := impl.NewSessionService(impl.SessionServiceParams{
		TxManager: app.store, SessionRepo: app.store.SessionRepo(), TokenRepo: app.store.TokenRepo(),
		Metrics: collector, Config: cfg, Logger: logger,
	})
	authUC := impl.NewAuthService(impl.AuthServiceParams{
		TxManager: app.store, UserRepo: app.store.UserRepo(), SessionRepo: app.store.SessionRepo(),
		Hasher: auth.NewBcryptHasher(cfg), Sessions: sessions, Notifier: notifier,
		Metrics: collector, Config: cfg, Logger: logger,
	})
	accounts := impl.NewAccountService(impl.AccountServiceParams{
		TxManager: app.store, UserRepo: app.store.UserRepo(), OAuthRepo: app.store.OAuthAccountRepo(),
		Sessions: sessions, Logger: logger,
	})
	oauthUC := impl.NewOAuthService(impl.OAuthServiceParams{
		TxManager: app.store, Providers: []service.OAuthProvider{app.github},
		IDVerifier: &mocksvc.IDTokenVerifier{}, State: state, Sessions: sessions,
		Notifier: notifier, Metrics: collector, Logger: logger,
	})

	lc := fxtest.NewLifecycle(t)
	srv, err := NewServer(ServerParams{
		Lc:               lc,
		Cfg:              cfg,
		Logger:           logger,
		Metrics:          collector,
		RouteGuard:       apimiddleware.NewRouteGuard(collector, logger),
		LocaleMiddleware: apimiddleware.NewLocaleMiddleware(catalog),
		RouterParams: router.RouterParams{
			AuthHandler: handler.NewAuthHandler(handler.AuthHandlerParams{
				AuthUC: authUC, Cookies: cookies, Translator: catalog, Logger: logger,
			}),
			OAuthHandler: handler.NewOAuthHandler(handler.OAuthHandlerParams{
				OAuthUC: oauthUC, Cookies: cookies, Translator: catalog, Logger: logger,
			}),
			AccountHandler: handler.NewAccountHandler(handler.AccountHandlerParams{
				AccountUC: accounts, Cookies: cookies, Logger: logger,
			}),
			SessionHandler: handler.NewSessionHandler(handler.SessionHandlerParams{SessionUC: sessions}),
			AdminHandler:   handler.NewAdminHandler(handler.AdminHandlerParams{AccountUC: accounts}),
			PageHandler: handler.NewPageHandler(handler.PageHandlerParams{
				OAuthUC: oauthUC, Catalog: catalog, Cookies: cookies,
			}),
			AuthMiddleware: apimiddleware.NewAuthMiddleware(apimiddleware.AuthMiddlewareParams{
				Sessions: sessions, Accounts: accounts, Cookies: cookies, Logger: logger,
			}),
			RateLimiter: apimiddleware.NewRateLimiter(apimiddleware.RateLimiterParams{
				Lc: lc, Config: cfg, Metrics: collector, Logger: logger,
			}),
			Cookies: cookies,
			Metrics: collector,
		},
	})
	require.NoError(t, err)

	app.e = srv.(*apiServer).server

	return app
}

// do sends a request with the jar's cookies and stores the response cookies.
func (a *testApp) do(t *testing.T, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, ck := range a.jar {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(a.jar, ck.Name)
		} else {
			a.jar[ck.Name] = ck
		}
	}

	return rec
}

func (a *testApp) signUp(t *testing.T, email string) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/auth/sign-up", map[string]string{
		"name": "Ada", "email": email, "password": testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) *envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}

	return &env
}

func TestSignUpThenAccount(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "Ada@Example.com")

	require.Contains(t, app.jar, cookie.SessionName)

	rec := app.do(t, http.MethodGet, "/api/account", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var account handler.AccountResponse
	decode(t, rec, &account)
	assert.Equal(t, "ada@example.com", account.User.Email)
	assert.Equal(t, entity.RoleUser, account.User.Role)
	assert.False(t, account.User.EmailVerified)
	assert.Empty(t, account.Providers)
}

func TestSignUpValidationDetails(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/auth/sign-up", map[string]string{
		"name": "Ada", "email": "not-an-email", "password": testPassword,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode(t, rec, nil)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "email", env.Error.Details["email"])
}

func TestSignUpDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "ada@example.com")

	rec := app.do(t, http.MethodPost, "/api/auth/sign-up", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignInLocalizedFailure(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "ada@example.com")
	app.jar = map[string]*http.Cookie{}

	rec := app.do(t, http.MethodPost, "/api/auth/sign-in",
		map[string]string{"email": "ada@example.com", "password": "Wrong-Horse-42"},
		"Accept-Language", "es-ES,es;q=0.9",
	)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	env := decode(t, rec, nil)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	assert.Equal(t, "Correo electrónico o contraseña incorrectos.", env.Error.Message)
	assert.NotContains(t, app.jar, cookie.SessionName)

	rec = app.do(t, http.MethodPost, "/api/auth/sign-in", map[string]string{"email": "ada@example.com", "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, app.jar, cookie.SessionName)
}

func TestAccountRequiresSession(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/account", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouteGuardAndPageRevalidation(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/sign-in?redirect=%2Fdashboard", rec.Header().Get(echo.HeaderLocation))

	// A cookie that passes the presence check but holds no live session.
	app.jar[cookie.SessionName] = &http.Cookie{Name: cookie.SessionName, Value: "forged"}
	rec = app.do(t, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/sign-in?redirect=%2Fdashboard", rec.Header().Get(echo.HeaderLocation))
	assert.NotContains(t, app.jar, cookie.SessionName)

	app.signUp(t, "ada@example.com")

	rec = app.do(t, http.MethodGet, "/sign-in", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get(echo.HeaderLocation))

	rec = app.do(t, http.MethodGet, "/dashboard", nil, "Accept-Language", "es")
	require.Equal(t, http.StatusOK, rec.Code)

	var page handler.PageResponse
	decode(t, rec, &page)
	assert.Equal(t, handler.PageDashboard, page.Page)
	assert.Equal(t, "Panel", page.Title)
	require.NotNil(t, page.Viewer)
	assert.Equal(t, entity.RoleUser, page.Viewer.Role)
}

func TestAdminRequiresStoredAdminRole(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "ada@example.com")

	rec := app.do(t, http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.do(t, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	oldCookie := app.jar[cookie.SessionName].Value
	rec = app.do(t, http.MethodPost, "/api/account/role/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, oldCookie, app.jar[cookie.SessionName].Value)
	require.Len(t, app.store.Sessions(), 1)
	assert.Equal(t, entity.RoleAdmin, app.store.Sessions()[0].Role)

	rec = app.do(t, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page handler.PageResponse
	decode(t, rec, &page)
	require.NotNil(t, page.Admin)
	assert.Equal(t, "ada@example.com", page.Admin.Email)

	rec = app.do(t, http.MethodGet, "/api/admin/users?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users handler.UserPageResponse
	decode(t, rec, &users)
	assert.EqualValues(t, 1, users.Total)
	assert.Equal(t, 10, users.Limit)
}

func TestSessionsListAndRevokeOthers(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "ada@example.com")
	current := app.jar[cookie.SessionName]

	// A second device signs in.
	app.jar = map[string]*http.Cookie{}
	rec := app.do(t, http.MethodPost, "/api/auth/sign-in",
		map[string]string{"email": "ada@example.com", "password": testPassword},
		"User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
		"X-Forwarded-For", "203.0.113.9, 10.0.0.1",
	)
	require.Equal(t, http.StatusOK, rec.Code)

	app.jar = map[string]*http.Cookie{cookie.SessionName: current}
	rec = app.do(t, http.MethodGet, "/api/account/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []handler.SessionResponse
	decode(t, rec, &sessions)
	require.Len(t, sessions, 2)

	var currentCount int
	for _, s := range sessions {
		if s.Current {
			currentCount++
		} else {
			assert.Equal(t, entity.DeviceMobile, s.Device)
			assert.Equal(t, "203.0.113.9", s.IPAddress)
		}
	}
	assert.Equal(t, 1, currentCount)

	rec = app.do(t, http.MethodDelete, "/api/account/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var revoked handler.RevokeResponse
	decode(t, rec, &revoked)
	assert.EqualValues(t, 1, revoked.Revoked)
	assert.Len(t, app.store.Sessions(), 1)
}

func TestRevokeSessionRejectsBadID(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "ada@example.com")

	rec := app.do(t, http.MethodDelete, "/api/account/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignOutClearsCookie(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "ada@example.com")

	rec := app.do(t, http.MethodPost, "/api/auth/sign-out", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, app.jar, cookie.SessionName)
	assert.Empty(t, app.store.Sessions())
}

func TestVerifyEmailRedirects(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/auth/verify-email?token=deadbeef", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "/sign-in", location.Path)
	assert.Equal(t, "This verification link is invalid or has expired.", location.Query().Get("verifyError"))

	app.signUp(t, "ada@example.com")
	app.mu.Lock()
	body := app.mails[len(app.mails)-1].Body
	app.mu.Unlock()
	link := body[strings.Index(body, "https://portal.test"):]
	link = strings.Fields(link)[0]
	target := strings.TrimPrefix(link, "https://portal.test")

	rec = app.do(t, http.MethodGet, target, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/app?emailVerified=1", rec.Header().Get(echo.HeaderLocation))
	assert.NotNil(t, app.store.Users()[0].EmailVerifiedAt)
}

func TestOAuthFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/oauth/github/start", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, githubAuth, rec.Header().Get(echo.HeaderLocation))
	require.Contains(t, app.jar, cookie.FlowName)

	app.github.On("Exchange", mock.Anything, "auth-code", mock.Anything).
		Return(service.VerifiedProfile{Identity: service.ExternalIdentity{
			ID: "42", Email: "octo@example.com", Name: "Octo", EmailVerified: true,
		}}, nil)

	app.mu.Lock()
	state := app.state
	app.mu.Unlock()

	rec = app.do(t, http.MethodGet, "/api/oauth/github?code=auth-code&state="+url.QueryEscape(state), nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, app.jar, cookie.SessionName)
	assert.NotContains(t, app.jar, cookie.FlowName)

	require.Len(t, app.store.Accounts(), 1)
	assert.Equal(t, "42", app.store.Accounts()[0].ProviderAccountID)
}

func TestOAuthCallbackFailuresRedirectToSignIn(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		message string
	}{
		{
			name:    "unknown provider",
			target:  "/api/oauth/myspace?code=c&state=s",
			message: "That sign-in provider is not supported.",
		},
		{
			name:    "missing code",
			target:  "/api/oauth/github?state=s",
			message: "The sign-in response was incomplete. Please try again.",
		},
		{
			name:    "state without flow cookie",
			target:  "/api/oauth/github?code=c&state=s",
			message: "We could not connect your github account. Please try again.",
		},
		{
			name:    "provider denied",
			target:  "/api/oauth/github?error=access_denied",
			message: "We could not connect your github account. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)

			rec := app.do(t, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusFound, rec.Code)

			location, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
			require.NoError(t, err)
			assert.Equal(t, "/sign-in", location.Path)
			assert.Equal(t, tt.message, location.Query().Get("oauthError"))
			assert.NotContains(t, app.jar, cookie.SessionName)
		})
	}
}

func TestProvidersAndPages(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/sign-in", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page handler.PageResponse
	decode(t, rec, &page)
	assert.Equal(t, "Sign in", page.Title)
	assert.Equal(t, []entity.ProviderType{entity.ProviderGitHub}, page.Providers)
	assert.Equal(t, []string{"en", "es"}, page.Locales)

	rec = app.do(t, http.MethodPut, "/api/locale", map[string]string{"locale": "es"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Contains(t, app.jar, cookie.LangName)

	rec = app.do(t, http.MethodGet, "/sign-in", nil)
	decode(t, rec, &page)
	assert.Equal(t, "Iniciar sesión", page.Title)

	rec = app.do(t, http.MethodPut, "/api/locale", map[string]string{"locale": "fr"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignInRateLimitKeysOnPeerAddress(t *testing.T) {
	limited := func(cfg *config.Config) {
		cfg.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMinute: 6, Burst: 2}
	}
	signIn := func(app *testApp, remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXForwardedFor, forwarded)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		app.e.ServeHTTP(rec, req)

		return rec.Code
	}

	t.Run("direct clients cannot rotate forwarded addresses", func(t *testing.T) {
		app := newTestApp(t, limited)

		assert.NotEqual(t, http.StatusTooManyRequests, signIn(app, "203.0.113.7:4000", "192.0.2.1"))
		assert.NotEqual(t, http.StatusTooManyRequests, signIn(app, "203.0.113.7:4000", "192.0.2.2"))
		assert.Equal(t, http.StatusTooManyRequests, signIn(app, "203.0.113.7:4000", "192.0.2.3"))
	})

	t.Run("trusted proxy forwards distinct clients", func(t *testing.T) {
		app := newTestApp(t, limited, func(cfg *config.Config) {
			cfg.HTTP.TrustedProxies = []string{"10.0.0.0/8"}
		})

		for _, client := range []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"} {
			assert.NotEqual(t, http.StatusTooManyRequests, signIn(app, "10.0.0.5:4000", client))
		}
		assert.NotEqual(t, http.StatusTooManyRequests, signIn(app, "10.0.0.5:4000", "192.0.2.1"))
		assert.Equal(t, http.StatusTooManyRequests, signIn(app, "10.0.0.5:4000", "192.0.2.1"))
	})
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	app.do(t, http.MethodGet, "/dashboard", nil)

	rec = app.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portal_route_guard_redirects_total{reason="unauthenticated"} 1`)
	assert.Contains(t, rec.Body.String(), "requests_total")
}
