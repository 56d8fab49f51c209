package keychain

import (
	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
)

// CreateIdentityRequest 创建身份请求
type CreateIdentityRequest struct {
	Name        string
	Fields      []identity.Field
	Blockchains []chain.Blockchain // 为每条链生成一个账户
	Locations   []identity.Location
}

// Generator 生成账户密钥，由 chain.Registry 实现
type Generator interface {
	GenerateKey(blockchain chain.Blockchain) (*chain.GeneratedKey, error)
}

// document 持久化结构，整体读写
type document struct {
	Identities []identity.Identity `json:"identities"`
	// Keys 公钥 -> 私钥 hex
	Keys map[string]string `json:"keys"`
}
