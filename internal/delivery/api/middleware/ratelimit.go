package middleware

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"portal/config"
	"portal/internal/delivery/api/response"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerMinute = 30
	defaultBurst             = 10
	defaultLimiterIdleTTL    = 10 * time.Minute
)

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	enabled bool
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	metrics service.MetricsRecorder
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh chan struct{}
}

// RateLimiterParams holds dependencies for RateLimiter, injected by Fx.
type RateLimiterParams struct {
	fx.In

	Lc      fx.Lifecycle
	Config  *config.Config
	Metrics service.MetricsRecorder
	Logger  *slog.Logger
}

// NewRateLimiter creates the limiter and ties its sweeper to the app lifecycle.
func NewRateLimiter(params RateLimiterParams) *RateLimiter {
	rl := newRateLimiter(params.Config.RateLimit, params.Metrics, params.Logger)
	if rl.enabled {
		params.Lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go rl.sweepLoop()

				return nil
			},
			OnStop: func(context.Context) error {
				close(rl.stopCh)

				return nil
			},
		})
	}

	return rl
}

func newRateLimiter(cfg *config.RateLimitConfig, metrics service.MetricsRecorder, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limit:    rate.Limit(float64(defaultRequestsPerMinute) / 60),
		burst:    defaultBurst,
		idleTTL:  defaultLimiterIdleTTL,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	if cfg == nil {
		return rl
	}

	rl.enabled = cfg.Enabled
	if cfg.RequestsPerMinute > 0 {
		rl.limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}
	if cfg.Burst > 0 {
		rl.burst = cfg.Burst
	}
	if cfg.IdleTTL > 0 {
		rl.idleTTL = cfg.IdleTTL
	}

	return rl
}

// Handle rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !rl.enabled {
			return next(c)
		}

		ip := c.RealIP()
		if rl.limiterFor(ip).Allow() {
			return next(c)
		}

		path := c.Path()
		rl.metrics.RecordRateLimited(path)
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), rl.logger).Warn("Rate limit exceeded",
			slog.String("remote_ip", ip),
			slog.String("path", path),
		)

		return response.TooManyRequests(c, rl.retryAfter())
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = cl
	}
	cl.lastAccess = rl.now()

	return cl.limiter
}

// retryAfter is the time for one token to refill, in whole seconds.
func (rl *RateLimiter) retryAfter() int {
	seconds := int(math.Ceil(1 / float64(rl.limit)))
	if seconds < 1 {
		return 1
	}

	return seconds
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

// sweep drops limiters idle for longer than idleTTL.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.idleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, cl := range rl.limiters {
		if cl.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}
