package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"portal/config"
	"portal/internal/delivery"
	apimiddleware "portal/internal/delivery/api/middleware"
	"portal/internal/delivery/api/router"
	"portal/internal/delivery/api/validator"
	"portal/internal/delivery/middleware"
	"portal/internal/domain/lifecycle"
	"portal/internal/errors"
	"portal/internal/infra/metrics"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"golang.org/x/net/http2"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

type apiServer struct {
	cfg    *config.Config
	logger *slog.Logger
	server *echo.Echo
}

// ServerParams holds dependencies for HTTP server, injected by Fx.
type ServerParams struct {
	fx.In

	Lc               fx.Lifecycle
	Cfg              *config.Config
	Logger           *slog.Logger
	Metrics          *metrics.Collector
	RouteGuard       *apimiddleware.RouteGuard
	LocaleMiddleware *apimiddleware.LocaleMiddleware
	RouterParams     router.RouterParams
}

func NewServer(params ServerParams) (delivery.Delivery, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Server.ReadTimeout = params.Cfg.HTTP.Timeouts.ReadTimeout
	echoServer.Server.ReadHeaderTimeout = params.Cfg.HTTP.Timeouts.ReadHeaderTimeout
	echoServer.Server.WriteTimeout = params.Cfg.HTTP.Timeouts.WriteTimeout
	echoServer.Server.IdleTimeout = params.Cfg.HTTP.Timeouts.IdleTimeout

	ipExtractor, err := newIPExtractor(params.Cfg.HTTP.TrustedProxies)
	if err != nil {
		return nil, err
	}
	echoServer.IPExtractor = ipExtractor

	// Request ID and the route guard run before routing so guard redirects are traced.
	requestIDMiddleware := middleware.NewRequestIDMiddleware(params.Logger)
	echoServer.Pre(requestIDMiddleware.Process)
	echoServer.Pre(params.RouteGuard.Handle)

	// 1. Recover middleware first (to catch panics early)
	echoServer.Use(echomiddleware.Recover())

	// 2. Access log
	loggerMiddleware := middleware.NewLoggerMiddleware(params.Logger, params.Cfg, healthPath, metricsPath)
	echoServer.Use(loggerMiddleware.Handle)

	// 3. Request metrics
	echoServer.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "portal",
		Registerer: params.Metrics.Registry(),
		Skipper: func(c echo.Context) bool {
			return c.Path() == metricsPath
		},
	}))

	// 4. Security headers and CORS
	echoServer.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	if len(params.Cfg.HTTP.AllowOrigins) > 0 {
		echoServer.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     params.Cfg.HTTP.AllowOrigins,
			AllowCredentials: true,
		}))
	}

	// 5. Request body size limit
	echoServer.Use(echomiddleware.BodyLimit(params.Cfg.HTTP.MaxRequestBodySize))

	// 6. Locale negotiation
	echoServer.Use(params.LocaleMiddleware.Handle)

	// Set up centralized error handler
	errorMiddleware := apimiddleware.NewErrorMiddleware(params.Logger)
	echoServer.HTTPErrorHandler = errorMiddleware.HandleHTTPError

	// Set up validator
	echoServer.Validator = validator.New()

	r := router.NewRouter(params.RouterParams)
	r.RegisterRoutes(echoServer)

	srv := &apiServer{
		cfg:    params.Cfg,
		logger: params.Logger,
		server: echoServer,
	}

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

func (s *apiServer) Serve(ctx context.Context) error {
	hostPort := net.JoinHostPort("0.0.0.0", strconv.Itoa(s.cfg.HTTP.Port))
	s.logger.Info("Starting API HTTP server", slog.String("host_port", hostPort))
	h2Server := &http2.Server{
		IdleTimeout: s.cfg.HTTP.Timeouts.IdleTimeout,
	}
	if err := s.server.StartH2CServer(hostPort, h2Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.WithStack(err)
	}

	return nil
}

func (s *apiServer) stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	s.logger.Info("Shutting down API HTTP server")

	return errors.WithStack(s.server.Shutdown(shutdownCtx))
}
