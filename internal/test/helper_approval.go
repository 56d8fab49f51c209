package test

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/approval"
	"github.com/SafeMPC/wallet-bridge/internal/types/bridge"
)

// HolderHeader 携带持有者令牌的请求头
func HolderHeader(s *api.Server) http.Header {
	h := http.Header{}
	h.Set(echo.HeaderAuthorization, "Bearer "+s.Config.Approval.HolderToken)
	return h
}

// WaitForActiveApproval 轮询 /api/v1/approvals/active，直到有条目等待持有者决定
func WaitForActiveApproval(t *testing.T, s *api.Server) approval.Request {
	t.Helper()

	var active bridge.ApprovalResponse
	require.Eventually(t, func() bool {
		res := PerformRequest(t, s, http.MethodGet, "/api/v1/approvals/active", nil, HolderHeader(s))
		if res.Result().StatusCode != http.StatusOK {
			return false
		}
		ParseResponseBody(t, res, &active)
		return true
	}, 5*time.Second, 10*time.Millisecond, "no approval became active")

	return active.Approval
}

// ResolveApproval 以持有者身份提交决定，要求返回 204
func ResolveApproval(t *testing.T, s *api.Server, id string, payload bridge.ResolveApprovalPayload) {
	t.Helper()

	res := PerformRequest(t, s, http.MethodPost, "/api/v1/approvals/"+id+"/resolve", payload, HolderHeader(s))
	require.Equal(t, http.StatusNoContent, res.Result().StatusCode, res.Body.String())
}
