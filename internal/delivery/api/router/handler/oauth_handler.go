package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"portal/internal/delivery/api/cookie"
	"portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/response"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/service"
	"portal/internal/errors"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// OAuthHandlerParams holds dependencies for OAuthHandler, injected by Fx.
type OAuthHandlerParams struct {
	fx.In

	OAuthUC    usecase.OAuthUsecase
	Cookies    *cookie.Store
	Translator service.Translator
	Logger     *slog.Logger
}

// OAuthHandler serves the third-party sign-in endpoints.
type OAuthHandler struct {
	oauthUC    usecase.OAuthUsecase
	cookies    *cookie.Store
	translator service.Translator
	logger     *slog.Logger
}

// NewOAuthHandler is the constructor for OAuthHandler.
func NewOAuthHandler(params OAuthHandlerParams) *OAuthHandler {
	return &OAuthHandler{
		oauthUC:    params.OAuthUC,
		cookies:    params.Cookies,
		translator: params.Translator,
		logger:     params.Logger,
	}
}

// IDTokenRequest carries a Google One Tap credential.
type IDTokenRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// Providers lists the providers the sign-in page may offer.
func (h *OAuthHandler) Providers(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string][]entity.ProviderType{
		"providers": h.oauthUC.Providers(),
	})
}

// Start sends the browser to the provider's consent screen.
func (h *OAuthHandler) Start(c echo.Context) error {
	provider := c.Param("provider")

	start, err := h.oauthUC.Start(c.Request().Context(), provider)
	if err != nil {
		return h.failRedirect(c, provider, err)
	}

	err = h.cookies.SetFlow(c, cookie.Flow{
		Provider: provider,
		Nonce:    start.Nonce,
		Verifier: start.Verifier,
	})
	if err != nil {
		return h.failRedirect(c, provider, err)
	}

	return c.Redirect(http.StatusFound, start.URL)
}

// Callback is the provider's redirect target. Every failure ends on the
// sign-in page with a localized message; details stay in the log.
func (h *OAuthHandler) Callback(c echo.Context) error {
	provider := c.Param("provider")
	flow, _ := h.cookies.TakeFlow(c)

	if providerErr := c.QueryParam("error"); providerErr != "" {
		return h.failRedirect(c, provider, errors.Wrapf(domainerrors.ErrOAuthFailed, "provider returned %q", providerErr))
	}

	result, err := h.oauthUC.Callback(c.Request().Context(), &usecase.OAuthCallbackInput{
		Provider: provider,
		Code:     c.QueryParam("code"),
		State:    c.QueryParam("state"),
		Nonce:    flow.Nonce,
		Verifier: flow.Verifier,
		Client:   deliverycontext.ExtractClientContext(c.Request().Header),
	})
	if err != nil {
		return h.failRedirect(c, provider, err)
	}

	if err := h.cookies.SetSession(c, result.Session.Token, result.Session.Session.ExpiresAt); err != nil {
		return h.failRedirect(c, provider, err)
	}

	return c.Redirect(http.StatusFound, "/")
}

// GoogleIDToken signs in with a One Tap credential.
func (h *OAuthHandler) GoogleIDToken(c echo.Context) error {
	var req IDTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.oauthUC.SignInWithGoogleIDToken(
		c.Request().Context(),
		req.Credential,
		deliverycontext.ExtractClientContext(c.Request().Header),
	)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return signedIn(c, h.cookies, http.StatusOK, result)
}

func (h *OAuthHandler) failRedirect(c echo.Context, provider string, err error) error {
	deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).Warn("OAuth sign-in failed",
		slog.String("provider", provider),
		slog.Any("error", err),
	)

	message := h.errorMessage(middleware.Locale(c), provider, err)

	return c.Redirect(http.StatusFound, middleware.SignInPath+"?oauthError="+url.QueryEscape(message))
}

func (h *OAuthHandler) errorMessage(locale, provider string, err error) string {
	params := map[string]string{"provider": provider}

	switch {
	case errors.Is(err, domainerrors.ErrOAuthProviderUnknown):
		return h.translator.T(locale, "oauth.error.unknownProvider", params)
	case errors.Is(err, domainerrors.ErrOAuthCodeInvalid):
		return h.translator.T(locale, "oauth.error.missingParams", params)
	case errors.Is(err, domainerrors.ErrOAuthEmailMissing):
		return h.translator.T(locale, "oauth.error.noEmail", params)
	default:
		return h.translator.T(locale, "oauth.error.generic", params)
	}
}
