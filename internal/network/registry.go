package network

import (
	"context"
	"encoding/json"

	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/storage"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

const storageKey = "networks"

// ChainIDProber 可选插件能力：通过 RPC 查询网络实际的链ID
type ChainIDProber interface {
	ProbeChainID(ctx context.Context, network *types.Network) (string, error)
}

// Registry 已知网络，按 UniqueKey 去重
type Registry struct {
	mu      deadlock.RWMutex
	kv      storage.KeyValueStore
	plugins *chain.Registry
	probe   bool
}

func NewRegistry(kv storage.KeyValueStore, plugins *chain.Registry, probe bool) *Registry {
	return &Registry{
		kv:      kv,
		plugins: plugins,
		probe:   probe,
	}
}

// Validate 有效性：字段齐全且格式正确，链已注册；开启探测时链ID必须与节点一致
func (r *Registry) Validate(ctx context.Context, n *types.Network) error {
	if n == nil {
		return errors.New("network is required")
	}
	if err := n.Validate(strfmt.Default); err != nil {
		return err
	}
	plugin, err := r.plugins.Get(n.Blockchain)
	if err != nil {
		return err
	}

	if !r.probe {
		return nil
	}
	prober, ok := plugin.(ChainIDProber)
	if !ok {
		return nil
	}
	actual, err := prober.ProbeChainID(ctx, n)
	if err != nil {
		return errors.Wrapf(err, "failed to probe %s", n.Endpoint())
	}
	if actual != n.ChainID {
		return errors.Errorf("endpoint reports chain id %s, expected %s", actual, n.ChainID)
	}
	return nil
}

// Contains 是否已存在同一链ID和端点的网络
func (r *Registry) Contains(ctx context.Context, n *types.Network) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	networks, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(networks, n.UniqueKey()) >= 0, nil
}

// Add 添加网络，重复时为空操作并返回 false
func (r *Registry) Add(ctx context.Context, n *types.Network) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	networks, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	if indexOf(networks, n.UniqueKey()) >= 0 {
		log.Debug().Str("network", n.UniqueKey()).Msg("Network already known")
		return false, nil
	}

	networks = append(networks, *n)
	if err := r.save(ctx, networks); err != nil {
		return false, err
	}

	log.Info().Str("network", n.UniqueKey()).Str("name", n.Name).Msg("Network added")
	return true, nil
}

// Remove 按 UniqueKey 删除
func (r *Registry) Remove(ctx context.Context, uniqueKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	networks, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(networks, uniqueKey)
	if i < 0 {
		return nil
	}
	return r.save(ctx, append(networks[:i], networks[i+1:]...))
}

func (r *Registry) List(ctx context.Context) ([]types.Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load(ctx)
}

func indexOf(networks []types.Network, uniqueKey string) int {
	for i := range networks {
		if networks[i].UniqueKey() == uniqueKey {
			return i
		}
	}
	return -1
}

func (r *Registry) load(ctx context.Context) ([]types.Network, error) {
	raw, err := r.kv.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []types.Network{}, nil
		}
		return nil, errors.Wrap(err, "failed to load networks")
	}
	var networks []types.Network
	if err := json.Unmarshal(raw, &networks); err != nil {
		return nil, errors.Wrap(err, "failed to decode networks")
	}
	return networks, nil
}

func (r *Registry) save(ctx context.Context, networks []types.Network) error {
	raw, err := json.Marshal(networks)
	if err != nil {
		return errors.Wrap(err, "failed to encode networks")
	}
	if err := r.kv.Put(ctx, storageKey, raw); err != nil {
		return errors.Wrap(err, "failed to persist networks")
	}
	return nil
}
