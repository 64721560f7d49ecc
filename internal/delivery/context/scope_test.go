package context

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"portal/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSessionTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	session := &entity.Session{ID: uuid.New(), UserID: uuid.New()}
	ctx := WithSession(WithRequestID(context.Background(), "req-1"), session, base)

	got, ok := GetSession(ctx)
	require.True(t, ok)
	assert.Same(t, session, got)
	assert.Equal(t, "req-1", GetRequestIDFromContext(ctx))

	GetLoggerOrDefault(ctx, nil).Info("hello")
	assert.Contains(t, buf.String(), "userID="+session.UserID.String())
	assert.Contains(t, buf.String(), "sessionID="+session.ID.String())
}

func TestScopeDefaults(t *testing.T) {
	ctx := context.Background()
	fallback := slog.Default()

	assert.Empty(t, GetRequestIDFromContext(ctx))
	assert.Empty(t, GetLocale(ctx))
	assert.Nil(t, GetLogger(ctx))
	assert.Same(t, fallback, GetLoggerOrDefault(ctx, fallback))

	_, ok := GetSession(ctx)
	assert.False(t, ok)

	assert.Equal(t, "es", GetLocale(WithLocale(ctx, "es")))
}
