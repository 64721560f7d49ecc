package handler

import (
	"net/http"

	"portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/response"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
}

// SessionHandler lists and revokes the user's sessions.
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
}

// NewSessionHandler is the constructor for SessionHandler.
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{sessionUC: params.SessionUC}
}

// List returns the live sessions, marking the one making the request.
func (h *SessionHandler) List(c echo.Context) error {
	current, ok := middleware.GetSession(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	sessions, err := h.sessionUC.List(c.Request().Context(), current.UserID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionResponse(s, current.ID))
	}

	return response.Success(c, http.StatusOK, out)
}

// Revoke signs one session out. Revoking the current session is allowed.
func (h *SessionHandler) Revoke(c echo.Context) error {
	current, ok := middleware.GetSession(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, domainerrors.ErrValidationFailed.ErrorCode(), "Invalid session id")
	}

	if err := h.sessionUC.Revoke(c.Request().Context(), current.UserID, sessionID); err != nil {
		return response.HandleAppError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// RevokeResponse reports how many sessions were signed out.
type RevokeResponse struct {
	Revoked int64 `json:"revoked"`
}

// RevokeOthers signs out every session but the current one.
func (h *SessionHandler) RevokeOthers(c echo.Context) error {
	current, ok := middleware.GetSession(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	revoked, err := h.sessionUC.RevokeOthers(c.Request().Context(), current.UserID, current.ID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, RevokeResponse{Revoked: revoked})
}
