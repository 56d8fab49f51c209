package probe

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/config"
	"github.com/SafeMPC/wallet-bridge/internal/test"
)

func TestProbe(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		srv := httptest.NewServer(s.Echo)
		defer srv.Close()

		cfg := config.Management{ProbeURL: srv.URL + "/", ProbeTimeout: time.Second}

		result, err := probe(context.Background(), cfg, "/health/live")
		require.NoError(t, err)
		assert.Equal(t, "alive", result.Status)

		result, err = probe(context.Background(), cfg, "/health/ready")
		require.NoError(t, err)
		assert.Equal(t, "ready", result.Status)
	})
}

func TestProbeUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	_, err := probe(context.Background(), config.Management{ProbeURL: url, ProbeTimeout: time.Second}, "/health/live")
	assert.Error(t, err)
}
