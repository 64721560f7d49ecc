package mail

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"portal/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	mailer := NewLogMailer(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := mailer.Send(context.Background(), service.Mail{To: "ada@example.com", Subject: "Hi", Body: "link"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"ada@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"Hi"`)

	assert.Error(t, mailer.Send(context.Background(), service.Mail{Subject: "no recipient"}))
}
