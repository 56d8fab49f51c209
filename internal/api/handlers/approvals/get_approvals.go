package approvals

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/types/bridge"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

func GetApprovalsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Approvals.GET("", getApprovalsHandler(s))
}

func getApprovalsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return util.ValidateAndReturn(c, http.StatusOK, &bridge.ApprovalListResponse{
			Approvals: s.Approvals.Pending(),
		})
	}
}
