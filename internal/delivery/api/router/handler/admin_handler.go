package handler

import (
	"net/http"

	"portal/internal/delivery/api/response"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AdminHandlerParams holds dependencies for AdminHandler, injected by Fx.
type AdminHandlerParams struct {
	fx.In

	AccountUC usecase.AccountUsecase
}

// AdminHandler serves the admin-only API. Routes are wrapped in RequireAdmin.
type AdminHandler struct {
	accountUC usecase.AccountUsecase
}

// NewAdminHandler is the constructor for AdminHandler.
func NewAdminHandler(params AdminHandlerParams) *AdminHandler {
	return &AdminHandler{accountUC: params.AccountUC}
}

// ListUsersRequest is the paging query.
type ListUsersRequest struct {
	Offset int `query:"offset" validate:"min=0"`
	Limit  int `query:"limit" validate:"min=0,max=100"`
}

// UserPageResponse is one page of users.
type UserPageResponse struct {
	Users  []*UserResponse `json:"users"`
	Total  int64           `json:"total"`
	Offset int             `json:"offset"`
	Limit  int             `json:"limit"`
}

// ListUsers returns a page of users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	var req ListUsersRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	page, err := h.accountUC.ListUsers(c.Request().Context(), req.Offset, req.Limit)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	users := make([]*UserResponse, 0, len(page.Users))
	for _, u := range page.Users {
		users = append(users, newUserResponse(u))
	}

	return response.Success(c, http.StatusOK, UserPageResponse{
		Users:  users,
		Total:  page.Total,
		Offset: page.Offset,
		Limit:  page.Limit,
	})
}
