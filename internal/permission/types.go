package permission

import (
	"time"

	"github.com/SafeMPC/wallet-bridge/internal/identity"
)

// Grant 来源对身份的授权，每个来源最多一个
type Grant struct {
	Origin            string                  `json:"origin"`
	IdentityPublicKey string                  `json:"identity_public_key"`
	Fields            identity.RequiredFields `json:"fields"`
	Accounts          []identity.Account      `json:"accounts"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// Whitelist 来源、身份、账户三元组上记住的签名决定
// Templates 为消息序列指纹，Unconditional 时不比较消息
type Whitelist struct {
	Origin            string                  `json:"origin"`
	IdentityPublicKey string                  `json:"identity_public_key"`
	Account           identity.Account        `json:"account"`
	Templates         []string                `json:"templates,omitempty"`
	Fields            identity.RequiredFields `json:"fields"`
	Unconditional     bool                    `json:"unconditional,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

func (w *Whitelist) matches(origin string, identityKey string, account identity.Account) bool {
	return w.Origin == origin && w.IdentityPublicKey == identityKey && w.Account.Equal(account)
}

func (w *Whitelist) hasTemplate(fingerprint string) bool {
	for _, t := range w.Templates {
		if t == fingerprint {
			return true
		}
	}
	return false
}

type document struct {
	Grants     map[string]Grant `json:"grants"`
	Whitelists []Whitelist      `json:"whitelists"`
}
