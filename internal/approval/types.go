package approval

import (
	"time"

	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

// Kind 审批类型
type Kind string

const (
	KindIdentity           Kind = "identity"
	KindSignature          Kind = "signature"
	KindArbitrarySignature Kind = "arbitrary_signature"
	KindNetwork            Kind = "network"
)

// Request 交给展示层的规范化审批请求
type Request struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Origin    string    `json:"origin"`
	RequestID string    `json:"request_id"`
	CreatedAt time.Time `json:"created_at"`

	Blockchain chain.Blockchain   `json:"blockchain,omitempty"`
	Identity   *identity.Identity `json:"identity,omitempty"`
	// Candidates 身份审批时可供选择的身份
	Candidates []identity.Identity      `json:"candidates,omitempty"`
	Accounts   []identity.Account      `json:"accounts,omitempty"`
	Messages   []chain.Message         `json:"messages,omitempty"`
	Locations  []identity.Location     `json:"locations,omitempty"`
	Fields     identity.RequiredFields `json:"fields"`
	Network    *types.Network          `json:"network,omitempty"`
	// Data 任意签名的原始数据
	Data   string `json:"data,omitempty"`
	IsHash bool   `json:"is_hash,omitempty"`
}

// Result 持有者的决定
type Result struct {
	Accepted bool `json:"accepted"`

	// 身份审批：选中的身份和账户
	IdentityPublicKey string             `json:"identity_public_key,omitempty"`
	Accounts          []identity.Account `json:"accounts,omitempty"`

	// 签名审批：选中的位置、放宽的字段、是否记住
	LocationID    string                  `json:"location_id,omitempty"`
	Fields        identity.RequiredFields `json:"fields"`
	Remember      bool                    `json:"remember,omitempty"`
	Unconditional bool                    `json:"unconditional,omitempty"`
}

// Rejected 拒绝结果
func Rejected() Result {
	return Result{Accepted: false}
}

// Presenter 展示层，条目变为活动状态时收到通知
type Presenter interface {
	Present(req Request)
}

// PresenterFunc 函数适配器
type PresenterFunc func(req Request)

func (f PresenterFunc) Present(req Request) {
	f(req)
}
