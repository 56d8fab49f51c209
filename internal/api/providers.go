package api

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
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

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirements for defining providers for sub-configs.
// https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

func NewClock(t ...*testing.T) time2.Clock {
	var clock time2.Clock

	useMock := len(t) > 0 && t[0] != nil

	if useMock {
		clock = time2.NewMockClock(time.Now())
	} else {
		clock = time2.DefaultClock
	}

	return clock
}

func NoTest() []*testing.T {
	return nil
}

// NewStore 按配置选择持久化后端
func NewStore(cfg config.Server) (storage.KeyValueStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cfg.Storage.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory storage, permissions are lost on restart")
		return storage.NewMemoryStore(), nil
	case "redis":
		client, err := NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisStore(client), nil
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return nil, errors.New("storage postgres_dsn is not configured")
		}
		return storage.NewPostgreSQLStore(ctx, cfg.Storage.PostgresDSN)
	case "badger":
		return storage.NewBadgerStore(cfg.Storage.BadgerPath)
	default:
		return nil, errors.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func NewRedisClient(ctx context.Context, cfg config.Server) (*redis.Client, error) {
	if cfg.Storage.RedisAddr == "" {
		return nil, errors.New("storage redis_addr is not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Storage.RedisAddr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to ping redis")
	}

	return client, nil
}

func NewKeychain(store storage.KeyValueStore, clock time2.Clock) *keychain.Keychain {
	return keychain.New(store, clock)
}

// NewPluginRegistry 注册所有内置链插件，私钥由 keychain 提供
func NewPluginRegistry(cfg config.Server, kc *keychain.Keychain) (*chain.Registry, error) {
	params, err := chain.BitcoinParams(cfg.Chains.BitcoinNetwork)
	if err != nil {
		return nil, err
	}

	return chain.NewRegistry(
		chain.NewEthereumAdapter(big.NewInt(cfg.Chains.EthereumChainID), kc),
		chain.NewBitcoinAdapter(params, kc),
		chain.NewSolanaAdapter(kc),
		chain.NewNostrAdapter(kc),
	), nil
}

func NewPermissionStore(store storage.KeyValueStore, kc *keychain.Keychain, clock time2.Clock) *permission.Store {
	return permission.NewStore(store, kc, clock)
}

// NewApprovalQueue 展示层通过 HTTP 轮询活动审批，这里只记录日志
func NewApprovalQueue(clock time2.Clock, m *metrics.Metrics) *approval.Queue {
	presenter := approval.PresenterFunc(func(req approval.Request) {
		log.Info().
			Str("approval_id", req.ID).
			Str("kind", string(req.Kind)).
			Str("origin", req.Origin).
			Msg("Approval awaiting holder")
	})

	return approval.NewQueue(clock,
		approval.WithPresenter(presenter),
		approval.WithPendingGauge(m.ApprovalsPending),
	)
}

func NewNetworkRegistry(cfg config.Server, store storage.KeyValueStore, plugins *chain.Registry) *network.Registry {
	return network.NewRegistry(store, plugins, cfg.Chains.ProbeNetworks)
}

func NewDispatcher(
	cfg config.Server,
	permissions *permission.Store,
	approvals *approval.Queue,
	plugins *chain.Registry,
	networks *network.Registry,
	kc *keychain.Keychain,
	m *metrics.Metrics,
) *dispatch.Dispatcher {
	return dispatch.New(permissions, approvals, plugins, networks, kc,
		dispatch.WithVersion(cfg.Version),
		dispatch.WithApprovalTimeout(cfg.Approval.Timeout),
		dispatch.WithMetrics(m),
	)
}
