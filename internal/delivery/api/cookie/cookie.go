// Package cookie owns the browser cookies: the signed session cookie, the
// short-lived OAuth flow cookie and the plain language preference.
package cookie

import (
	"crypto/sha256"
	"io"
	"net/http"
	"time"

	"portal/config"
	"portal/internal/errors"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/hkdf"
)

const (
	// SessionName is the cookie holding the raw session token.
	SessionName = "auth_session"
	// FlowName is the cookie holding the OAuth nonce and PKCE verifier.
	FlowName = "oauth_flow"
	// LangName is the cookie holding the preferred locale.
	LangName = "lang"

	tokenKey    = "token"
	providerKey = "provider"
	nonceKey    = "nonce"
	verifierKey = "verifier"

	flowMaxAge = 10 * 60
	langMaxAge = 365 * 24 * 60 * 60

	defaultCodecMaxAge = 30 * 24 * time.Hour
)

// Flow is what the browser carries between OAuth start and callback.
type Flow struct {
	Provider string
	Nonce    string
	Verifier string
}

// Store reads and writes the application's cookies.
type Store struct {
	store  *sessions.CookieStore
	secure bool
	domain string
	now    func() time.Time
}

// NewStore derives the signing and encryption keys from session.secret.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg.Session == nil || cfg.Session.Secret == "" {
		return nil, errors.New("session secret is not configured")
	}

	hashKey, err := deriveKey(cfg.Session.Secret, "cookie-hash", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(cfg.Session.Secret, "cookie-block", 32)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Session.CookieDomain,
		HttpOnly: true,
		Secure:   cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	// The codecs reject cookies older than this regardless of the cookie's own
	// Max-Age, so it must track the session lifetime.
	store.MaxAge(codecMaxAge(cfg.Session.TTL))

	return &Store{
		store:  store,
		secure: cfg.Session.CookieSecure,
		domain: cfg.Session.CookieDomain,
		now:    time.Now,
	}, nil
}

func codecMaxAge(ttl time.Duration) int {
	if ttl <= 0 {
		ttl = defaultCodecMaxAge
	}

	return max(int(ttl.Seconds()), flowMaxAge)
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, errors.Wrap(err, "failed to derive cookie key")
	}

	return key, nil
}

// Middleware exposes the store to session.Get for the rest of the chain.
func (s *Store) Middleware() echo.MiddlewareFunc {
	return session.Middleware(s.store)
}

func (s *Store) options(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// get ignores decode errors: a tampered or stale cookie yields a fresh session.
func (s *Store) get(c echo.Context, name string) (*sessions.Session, error) {
	sess, err := session.Get(name, c)
	if sess == nil {
		return nil, errors.Wrapf(err, "failed to load %s cookie", name)
	}

	return sess, nil
}

// SetSession writes the raw session token, expiring with the session.
func (s *Store) SetSession(c echo.Context, rawToken string, expiresAt time.Time) error {
	sess, err := s.get(c, SessionName)
	if err != nil {
		return err
	}

	maxAge := int(expiresAt.Sub(s.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}

	sess.Options = s.options(maxAge)
	sess.Values = map[any]any{tokenKey: rawToken}

	return errors.Wrap(sess.Save(c.Request(), c.Response()), "failed to save session cookie")
}

// SessionToken returns the raw token, or "" when the cookie is missing or invalid.
func (s *Store) SessionToken(c echo.Context) string {
	sess, err := s.get(c, SessionName)
	if err != nil {
		return ""
	}

	token, _ := sess.Values[tokenKey].(string)

	return token
}

// ClearSession expires the session cookie.
func (s *Store) ClearSession(c echo.Context) error {
	return s.clear(c, SessionName)
}

// SetFlow stores the OAuth flow secrets for the callback.
func (s *Store) SetFlow(c echo.Context, flow Flow) error {
	sess, err := s.get(c, FlowName)
	if err != nil {
		return err
	}

	sess.Options = s.options(flowMaxAge)
	sess.Values = map[any]any{
		providerKey: flow.Provider,
		nonceKey:    flow.Nonce,
		verifierKey: flow.Verifier,
	}

	return errors.Wrap(sess.Save(c.Request(), c.Response()), "failed to save oauth flow cookie")
}

// TakeFlow reads the OAuth flow cookie and expires it. A flow cookie is good
// for a single callback.
func (s *Store) TakeFlow(c echo.Context) (Flow, bool) {
	sess, err := s.get(c, FlowName)
	if err != nil {
		return Flow{}, false
	}

	flow := Flow{}
	flow.Provider, _ = sess.Values[providerKey].(string)
	flow.Nonce, _ = sess.Values[nonceKey].(string)
	flow.Verifier, _ = sess.Values[verifierKey].(string)

	if clearErr := s.clear(c, FlowName); clearErr != nil {
		return Flow{}, false
	}

	return flow, flow.Nonce != ""
}

func (s *Store) clear(c echo.Context, name string) error {
	sess, err := s.get(c, name)
	if err != nil {
		return err
	}

	sess.Options = s.options(-1)
	sess.Values = map[any]any{}

	return errors.Wrapf(sess.Save(c.Request(), c.Response()), "failed to clear %s cookie", name)
}

// SetLocale remembers the chosen language. It is not a secret and is readable by scripts.
func (s *Store) SetLocale(c echo.Context, locale string) {
	c.SetCookie(&http.Cookie{
		Name:     LangName,
		Value:    locale,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   langMaxAge,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Locale returns the lang cookie value, or "".
func Locale(r *http.Request) string {
	ck, err := r.Cookie(LangName)
	if err != nil {
		return ""
	}

	return ck.Value
}

// HasSession reports whether a non-empty session cookie is present. The
// value is not decoded or validated.
func HasSession(r *http.Request) bool {
	ck, err := r.Cookie(SessionName)

	return err == nil && ck.Value != ""
}
