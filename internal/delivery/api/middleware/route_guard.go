package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"portal/internal/delivery/api/cookie"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/service"

	"github.com/labstack/echo/v4"
)

const (
	// SignInPath is where unauthenticated visitors are sent.
	SignInPath = "/sign-in"
	// AppPath is where signed-in visitors land.
	AppPath = "/app"
)

var (
	authPagePrefixes  = []string{"/sign-in", "/sign-up", "/forgot-password", "/reset-password"}
	protectedPrefixes = []string{"/admin", "/dashboard", "/app"}
)

// GuardReason explains a redirect. It doubles as the metrics label.
type GuardReason string

const (
	GuardPass            GuardReason = ""
	GuardSignedIn        GuardReason = "signed_in"
	GuardUnauthenticated GuardReason = "unauthenticated"
)

// GuardDecision is the outcome of the edge check: either pass through or
// redirect to Location.
type GuardDecision struct {
	Redirect bool
	Location string
	Reason   GuardReason
}

// Decide routes a request by path and cookie presence alone. The cookie is
// not validated here; protected handlers check the session again.
func Decide(path string, hasSessionCookie bool) GuardDecision {
	switch {
	case hasSessionCookie && matchesAny(path, authPagePrefixes):
		return GuardDecision{Redirect: true, Location: AppPath, Reason: GuardSignedIn}
	case !hasSessionCookie && matchesAny(path, protectedPrefixes):
		return GuardDecision{Redirect: true, Location: SignInRedirect(path), Reason: GuardUnauthenticated}
	default:
		return GuardDecision{}
	}
}

// SignInRedirect builds the sign-in URL that returns the visitor to path.
func SignInRedirect(path string) string {
	return SignInPath + "?redirect=" + url.QueryEscape(path)
}

// matchesAny matches a prefix exactly or as a parent segment, so /admin
// covers /admin/users but not /administrator.
func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	return false
}

// RouteGuard applies Decide to every request before routing.
type RouteGuard struct {
	metrics service.MetricsRecorder
	logger  *slog.Logger
}

// NewRouteGuard creates the edge guard.
func NewRouteGuard(metrics service.MetricsRecorder, logger *slog.Logger) *RouteGuard {
	return &RouteGuard{metrics: metrics, logger: logger}
}

// Handle is registered with echo.Pre.
func (g *RouteGuard) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		decision := Decide(req.URL.Path, cookie.HasSession(req))
		if !decision.Redirect {
			return next(c)
		}

		g.metrics.RecordGuardRedirect(string(decision.Reason))
		deliverycontext.GetLoggerOrDefault(req.Context(), g.logger).Debug("Route guard redirect",
			slog.String("path", req.URL.Path),
			slog.String("reason", string(decision.Reason)),
		)

		return c.Redirect(http.StatusTemporaryRedirect, decision.Location)
	}
}
