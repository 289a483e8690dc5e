package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mossline/stockwatch/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookChannelSend(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 5*time.Second)
	require.NoError(t, ch.Send(context.Background(), "alice", "Seeds restocked"))
	assert.Equal(t, "alice", got.Recipient)
	assert.Equal(t, "Seeds restocked", got.Text)
}

func TestWebhookChannelNon2xxIsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 5*time.Second)
	err := ch.Send(context.Background(), "alice", "text")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDeliveryFailed, errors.GetCode(err))
	assert.True(t, errors.IsTransient(err))
}

func TestWebhookChannelNetworkErrorIsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	ch := NewWebhookChannel(srv.URL, time.Second)
	err := ch.Send(context.Background(), "bob", "text")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDeliveryFailed, errors.GetCode(err))
}

func TestLogChannelAlwaysSucceeds(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ch := NewLogChannel(logrus.NewEntry(logger))
	require.NoError(t, ch.Send(context.Background(), "carol", "Eggs restocked"))
}
