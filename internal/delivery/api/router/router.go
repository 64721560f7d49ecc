// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"portal/internal/delivery/api/cookie"
	"portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/router/handler"
	"portal/internal/infra/metrics"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	OAuthHandler   *handler.OAuthHandler
	AccountHandler *handler.AccountHandler
	SessionHandler *handler.SessionHandler
	AdminHandler   *handler.AdminHandler
	PageHandler    *handler.PageHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
	Cookies        *cookie.Store
	Metrics        *metrics.Collector
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	oauthHandler   *handler.OAuthHandler
	accountHandler *handler.AccountHandler
	sessionHandler *handler.SessionHandler
	adminHandler   *handler.AdminHandler
	pageHandler    *handler.PageHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	cookies        *cookie.Store
	metrics        *metrics.Collector
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		oauthHandler:   params.OAuthHandler,
		accountHandler: params.AccountHandler,
		sessionHandler: params.SessionHandler,
		adminHandler:   params.AdminHandler,
		pageHandler:    params.PageHandler,
		authMiddleware: params.AuthMiddleware,
		rateLimiter:    params.RateLimiter,
		cookies:        params.Cookies,
		metrics:        params.Metrics,
	}
}

// RegisterRoutes sets up all routes. Page paths are already filtered by the
// route guard registered with echo.Pre.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: r.metrics.Registry(),
	}))

	sessionCookies := r.cookies.Middleware()
	requireSession := r.authMiddleware.RequireSession
	requirePageSession := r.authMiddleware.RequirePageSession
	requireAdmin := r.authMiddleware.RequireAdmin

	// Pages
	e.GET("/sign-in", r.pageHandler.AuthPage(handler.PageSignIn))
	e.GET("/sign-up", r.pageHandler.AuthPage(handler.PageSignUp))
	e.GET("/forgot-password", r.pageHandler.AuthPage(handler.PageForgotPassword))
	e.GET("/reset-password", r.pageHandler.AuthPage(handler.PageResetPassword))

	e.GET("/app", r.pageHandler.ProtectedPage(handler.PageApp), sessionCookies, requirePageSession)
	e.GET("/dashboard", r.pageHandler.ProtectedPage(handler.PageDashboard), sessionCookies, requirePageSession)
	e.GET("/admin", r.pageHandler.ProtectedPage(handler.PageAdmin), sessionCookies, requirePageSession, requireAdmin)

	api := e.Group("/api", sessionCookies)
	api.PUT("/locale", r.pageHandler.SetLocale)

	authGroup := api.Group("/auth", r.rateLimiter.Handle)
	{
		authGroup.POST("/sign-up", r.authHandler.SignUp)
		authGroup.POST("/sign-in", r.authHandler.SignIn)
		authGroup.POST("/sign-out", r.authHandler.SignOut)
		authGroup.POST("/forgot-password", r.authHandler.ForgotPassword)
		authGroup.POST("/reset-password", r.authHandler.ResetPassword)
		authGroup.GET("/verify-email", r.authHandler.VerifyEmail)
		authGroup.POST("/verify-email/resend", r.authHandler.ResendVerification, requireSession)
	}

	oauthGroup := api.Group("/oauth", r.rateLimiter.Handle)
	{
		oauthGroup.GET("/providers", r.oauthHandler.Providers)
		oauthGroup.POST("/google/id-token", r.oauthHandler.GoogleIDToken)
		oauthGroup.GET("/:provider/start", r.oauthHandler.Start)
		oauthGroup.GET("/:provider", r.oauthHandler.Callback)
	}

	accountGroup := api.Group("/account", requireSession)
	{
		accountGroup.GET("", r.accountHandler.Me)
		accountGroup.PATCH("", r.accountHandler.Update)
		accountGroup.POST("/role/toggle", r.accountHandler.ToggleRole)

		accountGroup.GET("/sessions", r.sessionHandler.List)
		accountGroup.DELETE("/sessions", r.sessionHandler.RevokeOthers)
		accountGroup.DELETE("/sessions/:id", r.sessionHandler.Revoke)
	}

	adminGroup := api.Group("/admin", requireSession, requireAdmin)
	{
		adminGroup.GET("/users", r.adminHandler.ListUsers)
	}
}
