package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/SafeMPC/wallet-bridge/internal/approval"
	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/config"
	"github.com/SafeMPC/wallet-bridge/internal/dispatch"
	"github.com/SafeMPC/wallet-bridge/internal/keychain"
	"github.com/SafeMPC/wallet-bridge/internal/metrics"
	"github.com/SafeMPC/wallet-bridge/internal/network"
	"github.com/SafeMPC/wallet-bridge/internal/permission"
	"github.com/SafeMPC/wallet-bridge/internal/storage"
)

type Router struct {
	Routes         []*echo.Route
	Root           *echo.Group
	Management     *echo.Group
	APIV1Requests  *echo.Group
	APIV1Approvals *echo.Group
	APIV1Networks  *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
type Server struct {
	Config      config.Server
	Echo        *echo.Echo
	Router      *Router
	Clock       time2.Clock
	Store       storage.KeyValueStore
	Keychain    *keychain.Keychain
	Plugins     *chain.Registry
	Permissions *permission.Store
	Approvals   *approval.Queue
	Networks    *network.Registry
	Dispatcher  *dispatch.Dispatcher
	Metrics     *metrics.Metrics
}

func newServerWithComponents(
	cfg config.Server,
	clock time2.Clock,
	store storage.KeyValueStore,
	kc *keychain.Keychain,
	plugins *chain.Registry,
	permissions *permission.Store,
	approvals *approval.Queue,
	networks *network.Registry,
	dispatcher *dispatch.Dispatcher,
	m *metrics.Metrics,
) *Server {
	if cfg.Approval.HolderToken == "" {
		cfg.Approval.HolderToken = uuid.New().String()
		log.Warn().Str("holder_token", cfg.Approval.HolderToken).Msg("No holder token configured, generated one for the approvals API")
	}

	return &Server{
		Config:      cfg,
		Clock:       clock,
		Store:       store,
		Keychain:    kc,
		Plugins:     plugins,
		Permissions: permissions,
		Approvals:   approvals,
		Networks:    networks,
		Dispatcher:  dispatcher,
		Metrics:     m,
	}
}

// Ready 所有组件已初始化
func (s *Server) Ready() bool {
	return s.Echo != nil &&
		s.Router != nil &&
		s.Store != nil &&
		s.Dispatcher != nil &&
		s.Approvals != nil
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	log.Info().Str("listen_address", s.Config.Echo.ListenAddress).Msg("Starting bridge")
	return s.Echo.Start(s.Config.Echo.ListenAddress)
}

// Shutdown 停止接收请求，拒绝所有待处理审批，关闭存储
func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	// 等待持有者的请求先被拒绝，否则 echo 会一直等到超时
	if s.Approvals != nil {
		s.Approvals.Close()
	}

	if s.Echo != nil {
		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
			errs = append(errs, err)
		}
	}

	return errs
}
