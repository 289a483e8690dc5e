package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mossline/stockwatch/internal/engine"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*Server, *engine.Engine, *Client) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	logger := logrus.NewEntry(logrus.New())
	logger.Logger.SetLevel(logrus.PanicLevel)

	eng := engine.New(engine.Options{Logger: logger})
	srv := New(logger)
	srv.SetEngine(eng)
	srv.SetRunningConfig(&RunningConfig{
		DeliveryMode: "log",
		StartedAt:    time.Now(),
	})

	go srv.ListenAndServe(socketPath)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	client := NewClient(socketPath)
	require.Eventually(t, client.IsRunning, 2*time.Second, 20*time.Millisecond,
		"server did not come up")
	return srv, eng, client
}

func TestServerHealth(t *testing.T) {
	_, _, client := startServer(t)
	assert.True(t, client.IsRunning())
}

func TestServerState(t *testing.T) {
	_, eng, client := startServer(t)

	eng.Store().Apply(engine.UpdateSnapshot, func(st *engine.State) {
		st.SnapshotsSeen = 42
		st.Connection = "connected"
	})

	state, err := client.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, state.SnapshotsSeen)
	assert.Equal(t, "connected", state.Connection)
}

func TestServerConfig(t *testing.T) {
	_, _, client := startServer(t)

	cfg, err := client.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "log", cfg.DeliveryMode)
}

func TestServerStreamState(t *testing.T) {
	_, eng, client := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	updates, err := client.StreamState(ctx)
	require.NoError(t, err)

	// First message is the initial full state.
	select {
	case u := <-updates:
		assert.Equal(t, engine.UpdateType("initial"), u.Type)
	case <-ctx.Done():
		t.Fatal("no initial update received")
	}

	eng.Store().Apply(engine.UpdateDispatch, func(st *engine.State) {
		st.AlertsSent = 5
	})

	select {
	case u := <-updates:
		assert.Equal(t, engine.UpdateDispatch, u.Type)
		assert.Equal(t, 5, u.State.AlertsSent)
	case <-ctx.Done():
		t.Fatal("no dispatch update received")
	}
}
