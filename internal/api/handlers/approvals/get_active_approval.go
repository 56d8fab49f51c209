package approvals

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/types/bridge"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

// GetActiveApprovalRoute 展示层轮询当前要展示的审批，没有时返回 204
func GetActiveApprovalRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Approvals.GET("/active", getActiveApprovalHandler(s))
}

func getActiveApprovalHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		active, ok := s.Approvals.Active()
		if !ok {
			return c.NoContent(http.StatusNoContent)
		}

		return util.ValidateAndReturn(c, http.StatusOK, &bridge.ApprovalResponse{
			Approval: active,
		})
	}
}
