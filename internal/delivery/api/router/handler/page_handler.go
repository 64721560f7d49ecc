package handler

import (
	"net/http"

	"portal/internal/delivery/api/cookie"
	"portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/response"
	"portal/internal/domain/entity"
	"portal/internal/infra/i18n"
	"portal/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Page identifiers; each maps to the "page.<id>" title key.
const (
	PageSignIn         = "signIn"
	PageSignUp         = "signUp"
	PageForgotPassword = "forgotPassword"
	PageResetPassword  = "resetPassword"
	PageApp            = "app"
	PageDashboard      = "dashboard"
	PageAdmin          = "admin"
)

// PageHandlerParams holds dependencies for PageHandler, injected by Fx.
type PageHandlerParams struct {
	fx.In

	OAuthUC usecase.OAuthUsecase
	Catalog *i18n.Catalog
	Cookies *cookie.Store
}

// PageHandler returns page descriptors for the front end to render.
type PageHandler struct {
	oauthUC usecase.OAuthUsecase
	catalog *i18n.Catalog
	cookies *cookie.Store
}

// NewPageHandler is the constructor for PageHandler.
func NewPageHandler(params PageHandlerParams) *PageHandler {
	return &PageHandler{
		oauthUC: params.OAuthUC,
		catalog: params.Catalog,
		cookies: params.Cookies,
	}
}

// Viewer is the signed-in identity as seen by the session.
type Viewer struct {
	UserID uuid.UUID   `json:"userId"`
	Role   entity.Role `json:"role"`
}

// PageResponse describes a page.
type PageResponse struct {
	Page      string                `json:"page"`
	Title     string                `json:"title"`
	Locale    string                `json:"locale"`
	Locales   []string              `json:"locales"`
	Providers []entity.ProviderType `json:"providers,omitempty"`
	Viewer    *Viewer               `json:"viewer,omitempty"`
	Admin     *UserResponse         `json:"admin,omitempty"`
}

func (h *PageHandler) page(c echo.Context, id string) PageResponse {
	locale := middleware.Locale(c)

	return PageResponse{
		Page:    id,
		Title:   h.catalog.T(locale, "page."+id, nil),
		Locale:  locale,
		Locales: h.catalog.Locales(),
	}
}

// AuthPage serves the sign-in, sign-up and password pages.
func (h *PageHandler) AuthPage(id string) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := h.page(c, id)
		if id == PageSignIn || id == PageSignUp {
			page.Providers = h.oauthUC.Providers()
		}

		return response.Success(c, http.StatusOK, page)
	}
}

// ProtectedPage serves pages behind RequirePageSession.
func (h *PageHandler) ProtectedPage(id string) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := h.page(c, id)
		if session, ok := middleware.GetSession(c); ok {
			page.Viewer = &Viewer{UserID: session.UserID, Role: session.Role}
		}
		if admin, ok := middleware.GetAdmin(c); ok {
			page.Admin = newUserResponse(admin)
		}

		return response.Success(c, http.StatusOK, page)
	}
}

// SetLocaleRequest selects the interface language.
type SetLocaleRequest struct {
	Locale string `json:"locale" validate:"required"`
}

// SetLocale stores the language preference in the lang cookie.
func (h *PageHandler) SetLocale(c echo.Context) error {
	var req SetLocaleRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}
	if !h.catalog.Supports(req.Locale) {
		return response.BadRequest(c, "UNSUPPORTED_LOCALE", "Locale is not supported")
	}

	h.cookies.SetLocale(c, req.Locale)

	return c.NoContent(http.StatusNoContent)
}
