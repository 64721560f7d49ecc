// Package worker runs the background jobs that sit next to the HTTP API.
package worker

import (
	"context"
	"log/slog"
	"time"

	"portal/config"
	"portal/internal/delivery"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/lifecycle"
	"portal/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const defaultCleanupInterval = time.Hour

// cleanupWorker periodically deletes expired sessions and one-time tokens.
type cleanupWorker struct {
	sessions usecase.SessionUsecase
	enabled  bool
	interval time.Duration
	logger   *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// CleanupParams holds dependencies for the cleanup worker, injected by Fx.
type CleanupParams struct {
	fx.In

	Lc       fx.Lifecycle
	Cfg      *config.Config
	Logger   *slog.Logger
	Sessions usecase.SessionUsecase
}

// NewCleanupWorker creates the cleanup delivery.
func NewCleanupWorker(params CleanupParams) (delivery.Delivery, error) {
	w := newCleanupWorker(params.Cfg.Cleanup, params.Sessions, params.Logger)

	params.Lc.Append(fx.Hook{
		OnStop: w.stop,
	})

	return w, nil
}

func newCleanupWorker(cfg *config.CleanupConfig, sessions usecase.SessionUsecase, logger *slog.Logger) *cleanupWorker {
	w := &cleanupWorker{
		sessions: sessions,
		enabled:  true,
		interval: defaultCleanupInterval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if cfg != nil {
		w.enabled = cfg.Enabled
		if cfg.Interval > 0 {
			w.interval = cfg.Interval
		}
	}

	return w
}

// Serve runs one sweep immediately and then one per interval until stopped.
func (w *cleanupWorker) Serve(ctx context.Context) error {
	defer close(w.doneCh)

	if !w.enabled {
		w.logger.Info("Cleanup worker disabled")

		return nil
	}

	w.logger.Info("Starting cleanup worker", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ticker.C:
		case <-w.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *cleanupWorker) runOnce(ctx context.Context) {
	runID := uuid.NewString()
	logger := w.logger.With(slog.String("request_id", runID))

	ctx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()
	ctx = deliverycontext.WithRequestID(ctx, runID)
	ctx = deliverycontext.WithLogger(ctx, logger)

	result, err := w.sessions.CleanupExpired(ctx)
	if err != nil {
		logger.Error("Cleanup failed", slog.Any("error", err))

		return
	}

	if result.Sessions > 0 || result.Tokens > 0 {
		logger.Info("Expired rows removed",
			slog.Int64("sessions", result.Sessions),
			slog.Int64("tokens", result.Tokens),
		)
	}
}

func (w *cleanupWorker) stop(ctx context.Context) error {
	w.logger.Info("Stopping cleanup worker")
	close(w.stopCh)

	select {
	case <-w.doneCh:
	case <-ctx.Done():
	}

	return nil
}
