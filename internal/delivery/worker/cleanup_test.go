package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"portal/config"
	"portal/internal/errors"
	"portal/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSessions struct {
	usecase.SessionUsecase
	calls atomic.Int32
	err   error
}

func (s *countingSessions) CleanupExpired(context.Context) (*usecase.CleanupResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}

	return &usecase.CleanupResult{Sessions: 2, Tokens: 1}, nil
}

func TestCleanupWorkerRunsUntilStopped(t *testing.T) {
	sessions := &countingSessions{}
	w := newCleanupWorker(&config.CleanupConfig{Enabled: true, Interval: 10 * time.Millisecond}, sessions, slog.Default())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Serve(context.Background()) }()

	require.Eventually(t, func() bool { return sessions.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.stop(context.Background()))
	assert.NoError(t, <-errCh)
}

func TestCleanupWorkerSurvivesErrors(t *testing.T) {
	sessions := &countingSessions{err: errors.New("database unavailable")}
	w := newCleanupWorker(&config.CleanupConfig{Enabled: true, Interval: 10 * time.Millisecond}, sessions, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Serve(ctx) }()

	require.Eventually(t, func() bool { return sessions.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestCleanupWorkerDisabled(t *testing.T) {
	sessions := &countingSessions{}
	w := newCleanupWorker(&config.CleanupConfig{Enabled: false}, sessions, slog.Default())

	assert.NoError(t, w.Serve(context.Background()))
	assert.Zero(t, sessions.calls.Load())
}
