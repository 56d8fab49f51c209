package approvals

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/api/httperrors"
	"github.com/SafeMPC/wallet-bridge/internal/approval"
	"github.com/SafeMPC/wallet-bridge/internal/types/bridge"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

func PostResolveApprovalRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Approvals.POST("/:approvalId/resolve", postResolveApprovalHandler(s))
}

func postResolveApprovalHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		approvalID := c.Param("approvalId")

		var body bridge.ResolveApprovalPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		if err := s.Approvals.Resolve(approvalID, body.Result()); err != nil {
			return resolveError(err)
		}

		log.Info().
			Str("approval_id", approvalID).
			Bool("accepted", *body.Accepted).
			Bool("remember", body.Remember).
			Msg("Approval resolved by holder")

		return c.NoContent(http.StatusNoContent)
	}
}

func resolveError(err error) error {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		return httperrors.ErrNotFoundApproval
	case errors.Is(err, approval.ErrNotActive):
		return httperrors.ErrConflictApprovalBlocked
	default:
		return err
	}
}
