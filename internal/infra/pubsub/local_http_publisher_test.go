package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portal/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalHTTPPublisher_PublishAccountEvent(t *testing.T) {
	var got PubSubPushMessage
	var requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	publisher := NewLocalHTTPPublisher(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	event := &service.AccountEvent{
		ID:         "evt-1",
		RequestID:  "req-1",
		Type:       service.EventOAuthLinked,
		UserID:     "user-1",
		Provider:   "github",
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, publisher.PublishAccountEvent(context.Background(), event))

	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, "evt-1", got.Message.MessageID)
	assert.Equal(t, "oauth.linked", got.Message.Attributes["event_type"])
	assert.Equal(t, "github", got.Message.Attributes["provider"])
	assert.Equal(t, "user-1", got.Message.OrderingKey)

	data, err := base64.StdEncoding.DecodeString(got.Message.Data)
	require.NoError(t, err)
	var decoded service.AccountEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.UserID, decoded.UserID)
	assert.Equal(t, event.Type, decoded.Type)
}

func TestLocalHTTPPublisher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	publisher := NewLocalHTTPPublisher(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := publisher.PublishAccountEvent(context.Background(), &service.AccountEvent{ID: "e", Type: service.EventUserRegistered})
	assert.Error(t, err)
}
