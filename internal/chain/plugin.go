package chain

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"

	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

// Blockchain 链标识
type Blockchain = identity.Blockchain

const (
	Ethereum Blockchain = "eth"
	Bitcoin  Blockchain = "btc"
	Solana   Blockchain = "sol"
	Nostr    Blockchain = "nostr"
)

// ErrUnknownBlockchain 未注册的链
var ErrUnknownBlockchain = errors.New("unknown blockchain")

// ErrInvalidData 任意签名的数据或摘要格式错误
var ErrInvalidData = errors.New("invalid signing data")

// Message 可读的交易消息，展示给持有者，也用于白名单模板匹配
type Message struct {
	Code          string                 `json:"code"`
	Type          string                 `json:"type"`
	Data          map[string]interface{} `json:"data"`
	Authorization []string               `json:"authorization,omitempty"`
}

// Payload 签名请求负载
// Transaction 的结构由各链插件自行定义
type Payload struct {
	Blockchain     Blockchain              `json:"blockchain"`
	Network        *types.Network          `json:"network,omitempty"`
	Transaction    json.RawMessage         `json:"transaction,omitempty"`
	RequiredFields identity.RequiredFields `json:"required_fields"`
	// Data 任意签名数据；isHash 时为 32 字节摘要的 hex
	Data string `json:"data,omitempty"`
}

// KeyProvider 按公钥提供私钥
type KeyProvider interface {
	PrivateKey(ctx context.Context, publicKey string) ([]byte, error)
}

// Plugin 新链接入只需要实现的接口
type Plugin interface {
	Blockchain() Blockchain

	// Parse 将负载解析为有序的可读消息
	Parse(ctx context.Context, payload *Payload, network *types.Network) ([]Message, error)

	// Participants 返回去重后的参与账户标识
	Participants(payload *Payload) ([]string, error)

	// Sign 使用 publicKey 对应的私钥签名
	Sign(ctx context.Context, payload *Payload, publicKey string, arbitrary bool, isHash bool) ([]byte, error)
}

// GeneratedKey 新生成的账户密钥
type GeneratedKey struct {
	PrivateKey []byte
	PublicKey  string
	Account    identity.Account
}

// KeyGenerator 可选能力：生成账户密钥
type KeyGenerator interface {
	GenerateKey() (*GeneratedKey, error)
}

// Registry 链插件注册表
type Registry struct {
	mu      deadlock.RWMutex
	plugins map[Blockchain]Plugin
}

// NewRegistry 创建注册表
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{plugins: make(map[Blockchain]Plugin)}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

// Register 注册插件，同一链重复注册时替换
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.Blockchain()] = p
}

// Get 获取插件
func (r *Registry) Get(blockchain Blockchain) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[blockchain]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBlockchain, "blockchain %q", blockchain)
	}
	return p, nil
}

// Has 是否已注册
func (r *Registry) Has(blockchain Blockchain) bool {
	_, err := r.Get(blockchain)
	return err == nil
}

// Blockchains 已注册的链（排序）
func (r *Registry) Blockchains() []Blockchain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Blockchain, 0, len(r.plugins))
	for b := range r.plugins {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GenerateKey 使用插件生成账户密钥
func (r *Registry) GenerateKey(blockchain Blockchain) (*GeneratedKey, error) {
	p, err := r.Get(blockchain)
	if err != nil {
		return nil, err
	}
	gen, ok := p.(KeyGenerator)
	if !ok {
		return nil, errors.Errorf("blockchain %q does not support key generation", blockchain)
	}
	return gen.GenerateKey()
}

// dedupe 保持顺序去重
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func decodeTransaction(payload *Payload, v interface{}) error {
	if payload == nil || len(payload.Transaction) == 0 {
		return errors.New("transaction is required")
	}
	if err := json.Unmarshal(payload.Transaction, v); err != nil {
		return errors.Wrap(err, "failed to decode transaction")
	}
	return nil
}
