package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.DatabaseDriver = config.DriverSQLite
	cfg.DatabaseDSN = filepath.Join(t.TempDir(), "app.db")
	cfg.MediaDir = t.TempDir()
	cfg.LogLevel = "error"
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, testConfig(t))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewApp_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseDriver = "oracle"
	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRoutesDoc(t *testing.T) {
	doc, err := RoutesDoc(testConfig(t))
	require.NoError(t, err)
	assert.Contains(t, doc, "/api/v1")
	assert.Contains(t, doc, "/vote/question/{id}")
	assert.Contains(t, doc, "/health")
}
