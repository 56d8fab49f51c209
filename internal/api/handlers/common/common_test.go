package common_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/test"
)

func TestGetHealth(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var body map[string]interface{}
		test.ParseResponseBody(t, res, &body)
		assert.Equal(t, "ok", body["status"])

		components, ok := body["components"].(map[string]interface{})
		require.True(t, ok)
		storage, ok := components["storage"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "memory", storage["driver"])
		assert.Equal(t, "healthy", storage["status"])
		assert.NotEmpty(t, components["plugins"])
	})
}

func TestGetLive(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, http.MethodGet, "/health/live", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var body map[string]interface{}
		test.ParseResponseBody(t, res, &body)
		assert.Equal(t, "alive", body["status"])
	})
}

func TestGetReady(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, http.MethodGet, "/health/ready", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var body map[string]interface{}
		test.ParseResponseBody(t, res, &body)
		assert.Equal(t, "ready", body["status"])
	})
}

func TestGetMetrics(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, http.MethodGet, "/metrics", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		assert.True(t, strings.Contains(res.Body.String(), "approvals_pending"), "pending approvals gauge is exported")
	})
}
