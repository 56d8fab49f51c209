package approvals_test

import (
	"net/http"
	"testing"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/api/httperrors"
	"github.com/SafeMPC/wallet-bridge/internal/approval"
	"github.com/SafeMPC/wallet-bridge/internal/config"
	"github.com/SafeMPC/wallet-bridge/internal/test"
	"github.com/SafeMPC/wallet-bridge/internal/types/bridge"
)

func push(s *api.Server, kind approval.Kind, results chan<- approval.Result) string {
	return s.Approvals.Push(approval.Request{
		Kind:      kind,
		Origin:    "https://dapp.example",
		RequestID: "req-1",
	}, func(r approval.Result) {
		results <- r
	})
}

func TestGetActiveApprovalEmpty(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, http.MethodGet, "/api/v1/approvals/active", nil, test.HolderHeader(s))
		assert.Equal(t, http.StatusNoContent, res.Result().StatusCode)
	})
}

func TestGetApprovals(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		results := make(chan approval.Result, 2)
		first := push(s, approval.KindIdentity, results)
		second := push(s, approval.KindNetwork, results)

		res := test.PerformRequest(t, s, http.MethodGet, "/api/v1/approvals", nil, test.HolderHeader(s))
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var list bridge.ApprovalListResponse
		test.ParseResponseBody(t, res, &list)
		require.Len(t, list.Approvals, 2)
		assert.Equal(t, first, list.Approvals[0].ID)
		assert.Equal(t, approval.KindIdentity, list.Approvals[0].Kind)
		assert.Equal(t, second, list.Approvals[1].ID)
		assert.False(t, list.Approvals[0].CreatedAt.IsZero())

		active := test.WaitForActiveApproval(t, s)
		assert.Equal(t, first, active.ID)
	})
}

func TestResolveApproval(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		results := make(chan approval.Result, 2)
		first := push(s, approval.KindSignature, results)
		second := push(s, approval.KindSignature, results)

		// 排在后面的条目不能越过活动条目
		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/approvals/"+second+"/resolve", bridge.ResolveApprovalPayload{
			Accepted: swag.Bool(true),
		}, test.HolderHeader(s))
		test.RequireHTTPError(t, res, httperrors.ErrConflictApprovalBlocked)
		assert.Empty(t, results)

		test.ResolveApproval(t, s, first, bridge.ResolveApprovalPayload{
			Accepted: swag.Bool(true),
			Remember: true,
		})
		r := <-results
		assert.True(t, r.Accepted)
		assert.True(t, r.Remember)

		active := test.WaitForActiveApproval(t, s)
		assert.Equal(t, second, active.ID)

		res = test.PerformRequest(t, s, http.MethodDelete, "/api/v1/approvals/"+second, nil, test.HolderHeader(s))
		require.Equal(t, http.StatusNoContent, res.Result().StatusCode)
		r = <-results
		assert.False(t, r.Accepted)

		res = test.PerformRequest(t, s, http.MethodGet, "/api/v1/approvals/active", nil, test.HolderHeader(s))
		assert.Equal(t, http.StatusNoContent, res.Result().StatusCode)
	})
}

func TestResolveApprovalNotFound(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/approvals/does-not-exist/resolve", bridge.ResolveApprovalPayload{
			Accepted: swag.Bool(false),
		}, test.HolderHeader(s))
		test.RequireHTTPError(t, res, httperrors.ErrNotFoundApproval)

		res = test.PerformRequest(t, s, http.MethodDelete, "/api/v1/approvals/does-not-exist", nil, test.HolderHeader(s))
		test.RequireHTTPError(t, res, httperrors.ErrNotFoundApproval)
	})
}

func TestResolveApprovalInvalidPayload(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		results := make(chan approval.Result, 1)
		id := push(s, approval.KindSignature, results)

		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/approvals/"+id+"/resolve", map[string]interface{}{
			"remember": true,
		}, test.HolderHeader(s))
		assert.Equal(t, http.StatusBadRequest, res.Result().StatusCode)

		res = test.PerformRequest(t, s, http.MethodPost, "/api/v1/approvals/"+id+"/resolve", bridge.ResolveApprovalPayload{
			Accepted:      swag.Bool(true),
			Unconditional: true,
		}, test.HolderHeader(s))
		assert.Equal(t, http.StatusBadRequest, res.Result().StatusCode)

		assert.Empty(t, results)
		_, ok := s.Approvals.Active()
		assert.True(t, ok)
	})
}

func TestApprovalsRequireHolderToken(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		results := make(chan approval.Result, 1)
		id := push(s, approval.KindSignature, results)

		res := test.PerformRequest(t, s, http.MethodGet, "/api/v1/approvals", nil, nil)
		test.RequireHTTPError(t, res, httperrors.ErrUnauthorizedHolder)

		// 来源页面只能伪造 Origin，拿不到令牌
		originOnly := http.Header{}
		originOnly.Set(echo.HeaderOrigin, "https://dapp.example")
		res = test.PerformRequest(t, s, http.MethodPost, "/api/v1/approvals/"+id+"/resolve", bridge.ResolveApprovalPayload{
			Accepted: swag.Bool(true),
		}, originOnly)
		test.RequireHTTPError(t, res, httperrors.ErrUnauthorizedHolder)

		wrong := http.Header{}
		wrong.Set(echo.HeaderAuthorization, "Bearer not-the-token")
		res = test.PerformRequest(t, s, http.MethodDelete, "/api/v1/approvals/"+id, nil, wrong)
		test.RequireHTTPError(t, res, httperrors.ErrUnauthorizedHolder)

		assert.Empty(t, results)
		_, ok := s.Approvals.Active()
		assert.True(t, ok)
	})
}

func TestConfiguredHolderToken(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Approval.HolderToken = "holder-secret"

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server) {
		assert.Equal(t, "holder-secret", s.Config.Approval.HolderToken)

		h := http.Header{}
		h.Set(echo.HeaderAuthorization, "Bearer holder-secret")
		res := test.PerformRequest(t, s, http.MethodGet, "/api/v1/approvals/active", nil, h)
		assert.Equal(t, http.StatusNoContent, res.Result().StatusCode)
	})
}
