package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/config"
	"github.com/SafeMPC/wallet-bridge/internal/router"
	"github.com/SafeMPC/wallet-bridge/internal/storage"
)

// WithTestServer returns a fully configured server backed by an in-memory store.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	defaultConfig := config.DefaultServiceConfigFromEnv()
	WithTestServerConfigurable(t, defaultConfig, closure)
}

// WithTestServerConfigurable returns a fully configured server, allowing for configuration using the provided server config.
// The storage driver is always replaced by an in-memory store.
func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(s *api.Server)) {
	t.Helper()

	cfg.Storage.Driver = "memory"
	cfg.Logger.PrettyPrintConsole = false

	s, err := api.InitNewServerWithStore(cfg, storage.NewMemoryStore(), t)
	require.NoError(t, err, "failed to init test server")

	router.Init(s)

	closure(s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		t.Fatalf("Failed to gracefully shut down server: %v", errs)
	}
}
