package handler

import (
	"log/slog"
	"net/http"

	"portal/internal/delivery/api/cookie"
	"portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/response"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	AccountUC usecase.AccountUsecase
	Cookies   *cookie.Store
	Logger    *slog.Logger
}

// AccountHandler serves the signed-in user's own account.
type AccountHandler struct {
	accountUC usecase.AccountUsecase
	cookies   *cookie.Store
	logger    *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler.
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	return &AccountHandler{
		accountUC: params.AccountUC,
		cookies:   params.Cookies,
		logger:    params.Logger,
	}
}

// AccountResponse is the current user plus linked providers.
type AccountResponse struct {
	User      *UserResponse         `json:"user"`
	Providers []entity.ProviderType `json:"providers"`
}

// UpdateAccountRequest is the editable part of the profile.
type UpdateAccountRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Me returns the signed-in user.
func (h *AccountHandler) Me(c echo.Context) error {
	session, ok := middleware.GetSession(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	view, err := h.accountUC.Me(c.Request().Context(), session.UserID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, AccountResponse{
		User:      newUserResponse(view.User),
		Providers: view.Providers,
	})
}

// Update changes the display name.
func (h *AccountHandler) Update(c echo.Context) error {
	session, ok := middleware.GetSession(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.accountUC.UpdateName(c.Request().Context(), session.UserID, req.Name)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user))
}

// ToggleRole switches between user and admin and swaps in a new session cookie.
func (h *AccountHandler) ToggleRole(c echo.Context) error {
	session, ok := middleware.GetSession(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	result, err := h.accountUC.ToggleRole(
		c.Request().Context(),
		session,
		deliverycontext.ExtractClientContext(c.Request().Header),
	)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).Debug("Session replaced after role change",
		slog.Any("previousSessionID", session.ID),
		slog.Any("sessionID", result.Session.Session.ID),
	)

	return signedIn(c, h.cookies, http.StatusOK, result)
}
