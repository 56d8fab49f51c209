package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/SafeMPC/wallet-bridge/internal/api/httperrors"
)

// HolderAuth 审批接口只接受携带持有者令牌的请求，来源页面拿不到该令牌
func HolderAuth(token string) echo.MiddlewareFunc {
	return echoMiddleware.KeyAuthWithConfig(echoMiddleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return token != "" && subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			log.Ctx(c.Request().Context()).Warn().Err(err).Msg("Rejected approvals request without valid holder token")
			return httperrors.ErrUnauthorizedHolder
		},
	})
}
