package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"portal/internal/delivery/api/cookie"
	"portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/response"
	deliverycontext "portal/internal/delivery/context"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/service"
	"portal/internal/errors"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC     usecase.AuthUsecase
	Cookies    *cookie.Store
	Translator service.Translator
	Logger     *slog.Logger
}

// AuthHandler serves the password-based account endpoints.
type AuthHandler struct {
	authUC     usecase.AuthUsecase
	cookies    *cookie.Store
	translator service.Translator
	logger     *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:     params.AuthUC,
		cookies:    params.Cookies,
		translator: params.Translator,
		logger:     params.Logger,
	}
}

// SignUpRequest represents the request body for password sign-up.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// SignInRequest represents the request body for password sign-in.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest represents the request body for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest redeems a reset link.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,max=128"`
}

// MessageResponse carries a localized confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// SignUp registers a password account and signs it in.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.authUC.SignUp(c.Request().Context(), &usecase.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Locale:   middleware.Locale(c),
		Client:   deliverycontext.ExtractClientContext(c.Request().Header),
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return signedIn(c, h.cookies, http.StatusCreated, result)
}

// SignIn checks email and password and starts a session.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.authUC.SignIn(c.Request().Context(), &usecase.SignInInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   deliverycontext.ExtractClientContext(c.Request().Header),
	})
	if errors.Is(err, domainerrors.ErrInvalidCredentials) {
		return response.Error(c, http.StatusUnauthorized,
			domainerrors.ErrInvalidCredentials.ErrorCode(),
			h.translator.T(middleware.Locale(c), "auth.invalidCredentials", nil),
			nil,
		)
	}
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return signedIn(c, h.cookies, http.StatusOK, result)
}

// SignOut ends the current session. It succeeds without a session too.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.authUC.SignOut(c.Request().Context(), h.cookies.SessionToken(c)); err != nil {
		return response.HandleAppError(c, err)
	}
	if err := h.cookies.ClearSession(c); err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, MessageResponse{
		Message: h.translator.T(middleware.Locale(c), "auth.signedOut", nil),
	})
}

// ForgotPassword always answers 202 so the endpoint cannot be used to find accounts.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.authUC.ForgotPassword(c.Request().Context(), req.Email, middleware.Locale(c)); err != nil {
		return response.HandleAppError(c, err)
	}

	return c.NoContent(http.StatusAccepted)
}

// ResetPassword sets a new password. Every session of the user is revoked,
// including the caller's.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	err := h.authUC.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}
	if err := h.cookies.ClearSession(c); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// VerifyEmail is the target of the emailed link, so it answers with redirects.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	_, err := h.authUC.VerifyEmail(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).
			Info("Email verification rejected", slog.Any("error", err))

		message := h.translator.T(middleware.Locale(c), "verify.invalid", nil)

		return c.Redirect(http.StatusFound, middleware.SignInPath+"?verifyError="+url.QueryEscape(message))
	}

	return c.Redirect(http.StatusFound, middleware.AppPath+"?emailVerified=1")
}

// ResendVerification mails a fresh verification link to the signed-in user.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	session, ok := middleware.GetSession(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	if err := h.authUC.ResendVerification(c.Request().Context(), session.UserID, middleware.Locale(c)); err != nil {
		return response.HandleAppError(c, err)
	}

	return c.NoContent(http.StatusAccepted)
}
