package identity

import (
	"strings"
	"time"
)

// Blockchain 区块链标识（eth, btc, sol, nostr）
type Blockchain string

// Field 个人信息字段（有序）
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Location 签名位置（设备或硬件签名器路径）
type Location struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Account 身份持有的链上账户
// PublicKey 指向所属身份内的签名密钥（反向引用，不表示所有权）
type Account struct {
	Blockchain Blockchain `json:"blockchain"`
	Name       string     `json:"name"`
	Authority  string     `json:"authority,omitempty"`
	PublicKey  string     `json:"public_key"`
}

// Identity 持有者控制的身份
type Identity struct {
	PublicKey string     `json:"public_key"`
	Name      string     `json:"name"`
	Fields    []Field    `json:"fields,omitempty"`
	Accounts  []Account  `json:"accounts,omitempty"`
	Locations []Location `json:"locations,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NetworkRef 身份请求中要求的网络
type NetworkRef struct {
	Blockchain Blockchain `json:"blockchain"`
	ChainID    string     `json:"chain_id,omitempty"`
}

// RequiredFields 调用方请求的身份字段
type RequiredFields struct {
	Personal []string     `json:"personal,omitempty"`
	Location []string     `json:"location,omitempty"`
	Accounts []NetworkRef `json:"accounts,omitempty"`
}

// ScopedIdentity 返回给调用方的身份视图，只包含被授权的字段和账户
type ScopedIdentity struct {
	PublicKey string            `json:"public_key"`
	Name      string            `json:"name"`
	Accounts  []Account         `json:"accounts"`
	Personal  map[string]string `json:"personal,omitempty"`
	Location  map[string]string `json:"location,omitempty"`
}

// Identifier 返回账户标识 name 或 name@authority
func (a Account) Identifier() string {
	if a.Authority == "" {
		return a.Name
	}
	return a.Name + "@" + a.Authority
}

// Equal (blockchain, name, authority) 相同即为同一账户
func (a Account) Equal(other Account) bool {
	return a.Blockchain == other.Blockchain &&
		a.Name == other.Name &&
		a.Authority == other.Authority
}

// Key 用作 map 键
func (a Account) Key() string {
	return string(a.Blockchain) + ":" + a.Identifier()
}

// HasAccount 判断身份是否持有该账户
func (i *Identity) HasAccount(account Account) bool {
	for _, a := range i.Accounts {
		if a.Equal(account) {
			return true
		}
	}
	return false
}

// AccountsFor 返回指定链上的账户
func (i *Identity) AccountsFor(blockchain Blockchain) []Account {
	accounts := make([]Account, 0)
	for _, a := range i.Accounts {
		if a.Blockchain == blockchain {
			accounts = append(accounts, a)
		}
	}
	return accounts
}

// AccountByPublicKey 按签名公钥查找账户
func (i *Identity) AccountByPublicKey(publicKey string) (Account, bool) {
	for _, a := range i.Accounts {
		if strings.EqualFold(a.PublicKey, publicKey) {
			return a, true
		}
	}
	return Account{}, false
}

// MatchParticipants 将插件给出的参与者标识过滤为身份实际持有的账户
// 结果保持参与者顺序且去重
func (i *Identity) MatchParticipants(blockchain Blockchain, participants []string) []Account {
	matched := make([]Account, 0, len(participants))
	seen := make(map[string]bool)
	for _, p := range participants {
		for _, a := range i.Accounts {
			if a.Blockchain != blockchain || a.Identifier() != p {
				continue
			}
			if seen[a.Key()] {
				continue
			}
			seen[a.Key()] = true
			matched = append(matched, a)
		}
	}
	return matched
}

// Field 返回个人字段值
func (i *Identity) Field(key string) (string, bool) {
	for _, f := range i.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// NeedsLocationChoice 是否需要持有者选择签名位置
// 只有一个位置且请求的位置字段都存在时不需要
func (i *Identity) NeedsLocationChoice(fields RequiredFields) bool {
	if len(i.Locations) != 1 {
		return true
	}
	loc := i.Locations[0]
	for _, key := range fields.Location {
		if _, ok := loc.Fields[key]; !ok {
			return true
		}
	}
	return false
}

// Scope 生成只包含授权账户和请求字段的身份视图
func (i *Identity) Scope(accounts []Account, fields RequiredFields, locationID string) *ScopedIdentity {
	scoped := &ScopedIdentity{
		PublicKey: i.PublicKey,
		Name:      i.Name,
		Accounts:  make([]Account, 0, len(accounts)),
	}
	for _, a := range accounts {
		if i.HasAccount(a) {
			scoped.Accounts = append(scoped.Accounts, a)
		}
	}

	if len(fields.Personal) > 0 {
		scoped.Personal = make(map[string]string)
		for _, key := range fields.Personal {
			if v, ok := i.Field(key); ok {
				scoped.Personal[key] = v
			}
		}
	}

	if len(fields.Location) > 0 {
		if loc, ok := i.location(locationID); ok {
			scoped.Location = make(map[string]string)
			for _, key := range fields.Location {
				if v, ok := loc.Fields[key]; ok {
					scoped.Location[key] = v
				}
			}
		}
	}

	return scoped
}

func (i *Identity) location(id string) (Location, bool) {
	if id == "" && len(i.Locations) == 1 {
		return i.Locations[0], true
	}
	for _, l := range i.Locations {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

// Covers 判断 r 是否覆盖 other 请求的全部字段
func (r RequiredFields) Covers(other RequiredFields) bool {
	if !containsAll(r.Personal, other.Personal) || !containsAll(r.Location, other.Location) {
		return false
	}
	for _, want := range other.Accounts {
		found := false
		for _, have := range r.Accounts {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Merge 合并两组请求字段（去重）
func (r RequiredFields) Merge(other RequiredFields) RequiredFields {
	merged := RequiredFields{
		Personal: appendUnique(append([]string{}, r.Personal...), other.Personal...),
		Location: appendUnique(append([]string{}, r.Location...), other.Location...),
		Accounts: append([]NetworkRef{}, r.Accounts...),
	}
	for _, n := range other.Accounts {
		dup := false
		for _, m := range merged.Accounts {
			if m == n {
				dup = true
				break
			}
		}
		if !dup {
			merged.Accounts = append(merged.Accounts, n)
		}
	}
	return merged
}

func containsAll(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, l := range list {
			if l == v {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, v)
		}
	}
	return list
}
