package approvals

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/SafeMPC/wallet-bridge/internal/api"
)

// DeleteApprovalRoute 持有者关闭提示而未做决定，等同于拒绝
func DeleteApprovalRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Approvals.DELETE("/:approvalId", deleteApprovalHandler(s))
}

func deleteApprovalHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.Approvals.Dismiss(c.Param("approvalId")); err != nil {
			return resolveError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
