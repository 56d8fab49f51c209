package requests

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/api/httperrors"
	"github.com/SafeMPC/wallet-bridge/internal/dispatch"
	"github.com/SafeMPC/wallet-bridge/internal/types/bridge"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

// PostRequestRoute 来源提交请求；处理期间连接保持，直到持有者决定或超时
func PostRequestRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Requests.POST("", postRequestHandler(s))
}

func postRequestHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body bridge.PostRequestPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		origin := c.Request().Header.Get(echo.HeaderOrigin)
		if origin == "" {
			origin = body.Origin
		}
		if origin == "" {
			return httperrors.ErrBadRequestMissingOrigin
		}

		resp, ok := s.Dispatcher.Handle(ctx, &dispatch.Request{
			ID:      body.ID,
			Type:    body.Type,
			Payload: body.Payload,
			Origin:  origin,
		})
		if !ok {
			// 不支持的类型不产生任何响应体
			log.Debug().Str("type", body.Type).Msg("Request type not supported, dropped")
			return c.NoContent(http.StatusNoContent)
		}

		status := http.StatusOK
		if resp.Error != nil {
			status = resp.Error.Code
		}
		return c.JSON(status, resp)
	}
}
