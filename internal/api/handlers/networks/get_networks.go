package networks

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/api/httperrors"
	"github.com/SafeMPC/wallet-bridge/internal/types"
	"github.com/SafeMPC/wallet-bridge/internal/types/bridge"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

func GetNetworksRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Networks.GET("", getNetworksHandler(s))
}

func getNetworksHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		networks, err := s.Networks.List(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list networks")
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Failed to list networks")
		}

		return util.ValidateAndReturn(c, http.StatusOK, &bridge.NetworkListResponse{
			Networks: networks,
		})
	}
}
