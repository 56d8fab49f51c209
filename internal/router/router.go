package router

import (
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/api/handlers"
	"github.com/SafeMPC/wallet-bridge/internal/api/httperrors"
	"github.com/SafeMPC/wallet-bridge/internal/api/middleware"
)

func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = s.Config.Echo.Debug
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = httperrors.HTTPErrorHandler(s.Config.Echo.HideInternalServerErrorDetails)

	s.Echo.Pre(echoMiddleware.RemoveTrailingSlash())
	s.Echo.Use(echoMiddleware.Recover())
	s.Echo.Use(echoMiddleware.RequestID())
	s.Echo.Use(middleware.Logger(s.Config.Logger.RequestLevel))

	if s.Config.Echo.RequestTimeout > 0 {
		s.Echo.Server.ReadHeaderTimeout = s.Config.Echo.RequestTimeout
	}

	s.Router = &api.Router{
		Routes:         nil,
		Root:           s.Echo.Group(""),
		Management:     s.Echo.Group(""),
		APIV1Requests:  s.Echo.Group("/api/v1/requests"),
		APIV1Approvals: s.Echo.Group("/api/v1/approvals", middleware.HolderAuth(s.Config.Approval.HolderToken)),
		APIV1Networks:  s.Echo.Group("/api/v1/networks"),
	}

	handlers.AttachAllRoutes(s)

	log.Debug().Int("routes", len(s.Router.Routes)).Msg("Routes attached")
}
