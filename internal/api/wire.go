//go:build wireinject

//go:generate wire

package api

import (
	"testing"

	"github.com/google/wire"

	"github.com/SafeMPC/wallet-bridge/internal/config"
	"github.com/SafeMPC/wallet-bridge/internal/metrics"
	"github.com/SafeMPC/wallet-bridge/internal/storage"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	metrics.New,
	NewClock,
	bridgeSet,
)

var bridgeSet = wire.NewSet(
	NewKeychain,
	NewPluginRegistry,
	NewPermissionStore,
	NewApprovalQueue,
	NewNetworkRegistry,
	NewDispatcher,
)

// InitNewServer returns a new Server instance.
func InitNewServer(
	_ config.Server,
) (*Server, error) {
	wire.Build(serviceSet, NewStore, NoTest)
	return new(Server), nil
}

// InitNewServerWithStore returns a new Server instance with the given store.
// All the other components are initialized via go wire according to the configuration.
func InitNewServerWithStore(
	_ config.Server,
	_ storage.KeyValueStore,
	t ...*testing.T,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
