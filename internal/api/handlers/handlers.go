package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/api/handlers/approvals"
	"github.com/SafeMPC/wallet-bridge/internal/api/handlers/common"
	"github.com/SafeMPC/wallet-bridge/internal/api/handlers/networks"
	"github.com/SafeMPC/wallet-bridge/internal/api/handlers/requests"
)

func AttachAllRoutes(s *api.Server) {
	s.Router.Routes = []*echo.Route{
		approvals.DeleteApprovalRoute(s),
		approvals.GetActiveApprovalRoute(s),
		approvals.GetApprovalsRoute(s),
		approvals.PostResolveApprovalRoute(s),
		common.GetHealthRoute(s),
		common.GetLiveRoute(s),
		common.GetMetricsRoute(s),
		common.GetReadyRoute(s),
		networks.GetNetworksRoute(s),
		requests.PostRequestRoute(s),
	}
}
