package common

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

var started = time.Now()

// GetHealthRoute 基础健康检查，包含各组件状态
func GetHealthRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/health", getHealthHandler(s))
}

// GetLiveRoute 存活检查
func GetLiveRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/health/live", getLiveHandler(s))
}

// GetReadyRoute 就绪检查
func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/health/ready", getReadyHandler(s))
}

func getHealthHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		status := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(started).String(),
			"version":   s.Config.Version,
		}

		components := map[string]interface{}{
			"storage": map[string]interface{}{
				"driver": s.Config.Storage.Driver,
				"status": "healthy",
			},
			"approvals": map[string]interface{}{
				"pending": len(s.Approvals.Pending()),
			},
			"plugins": s.Plugins.Blockchains(),
		}

		if err := pingStore(ctx, s); err != nil {
			util.LogFromContext(ctx).Warn().Err(err).Msg("Storage health check failed")
			components["storage"] = map[string]interface{}{
				"driver": s.Config.Storage.Driver,
				"status": "unhealthy",
			}
			status["status"] = "degraded"
		}

		status["components"] = components
		return c.JSON(http.StatusOK, status)
	}
}

func getLiveHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		// 能到达这里说明进程存活
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "alive",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		status := "ready"
		httpStatus := http.StatusOK

		if !s.Ready() {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else if err := pingStore(ctx, s); err != nil {
			util.LogFromContext(ctx).Warn().Err(err).Msg("Readiness check failed")
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		return c.JSON(httpStatus, map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func pingStore(ctx context.Context, s *api.Server) error {
	timeout := s.Config.Management.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Store.Ping(ctx)
}
