package permission

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/storage"
)

const storageKey = "permissions"

// ErrNotGranted 来源没有（或不再有）授权给该身份
var ErrNotGranted = errors.New("origin is not granted to this identity")

// IdentityResolver 按公钥查找身份，由 keychain 实现
type IdentityResolver interface {
	Identity(ctx context.Context, publicKey string) (*identity.Identity, error)
}

// Store 授权与白名单
// 所有数据保存在一个 JSON 文档中，写入时整体替换
type Store struct {
	mu         deadlock.RWMutex
	kv         storage.KeyValueStore
	identities IdentityResolver
	clock      time2.Clock
}

func NewStore(kv storage.KeyValueStore, identities IdentityResolver, clock time2.Clock) *Store {
	return &Store{
		kv:         kv,
		identities: identities,
		clock:      clock,
	}
}

// IdentityFor 返回授权给该来源的身份，账户限定为授权账户中身份仍然持有的部分
// 没有授权或身份已不存在时返回 nil
func (s *Store) IdentityFor(ctx context.Context, origin string, requireOneAccount bool) (*identity.Identity, error) {
	grant, err := s.GrantFor(ctx, origin)
	if err != nil || grant == nil {
		return nil, err
	}

	ident, err := s.identities.Identity(ctx, grant.IdentityPublicKey)
	if err != nil {
		log.Warn().Err(err).
			Str("origin", origin).
			Str("identity", grant.IdentityPublicKey).
			Msg("Granted identity no longer available")
		return nil, nil
	}

	granted := make([]identity.Account, 0, len(grant.Accounts))
	for _, a := range grant.Accounts {
		for _, held := range ident.Accounts {
			if held.Equal(a) {
				granted = append(granted, held)
				break
			}
		}
	}
	if requireOneAccount && len(granted) == 0 {
		return nil, nil
	}

	ident.Accounts = granted
	return ident, nil
}

// GrantFor 按来源精确匹配授权，没有时返回 nil
func (s *Store) GrantFor(ctx context.Context, origin string) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	grant, ok := doc.Grants[origin]
	if !ok {
		return nil, nil
	}
	return &grant, nil
}

// Grants 所有授权，按来源排序
func (s *Store) Grants(ctx context.Context) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	grants := make([]Grant, 0, len(doc.Grants))
	for _, g := range doc.Grants {
		grants = append(grants, g)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Origin < grants[j].Origin })
	return grants, nil
}

// Grant 同一来源重复授权时替换字段和账户，不产生重复记录
func (s *Store) Grant(ctx context.Context, ident *identity.Identity, accounts []identity.Account, fields identity.RequiredFields, origin string) error {
	if origin == "" {
		return errors.New("origin is required")
	}
	if ident == nil {
		return errors.New("identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	grant := Grant{
		Origin:            origin,
		IdentityPublicKey: ident.PublicKey,
		Fields:            fields,
		Accounts:          append([]identity.Account{}, accounts...),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if prev, ok := doc.Grants[origin]; ok && prev.IdentityPublicKey == ident.PublicKey {
		grant.CreatedAt = prev.CreatedAt
	}
	doc.Grants[origin] = grant

	if err := s.save(ctx, doc); err != nil {
		return err
	}

	log.Info().Str("origin", origin).Str("identity", ident.PublicKey).Int("accounts", len(accounts)).Msg("Permission granted")
	return nil
}

// Revoke 删除来源的授权和所有白名单
func (s *Store) Revoke(ctx context.Context, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}

	delete(doc.Grants, origin)
	kept := doc.Whitelists[:0]
	for _, w := range doc.Whitelists {
		if w.Origin != origin {
			kept = append(kept, w)
		}
	}
	doc.Whitelists = kept

	if err := s.save(ctx, doc); err != nil {
		return err
	}

	log.Info().Str("origin", origin).Msg("Permission revoked")
	return nil
}

// IsWhitelisted 是否可以跳过持有者确认
// 验证规则：
// 1. 来源存在授权且授权给同一身份
// 2. 请求字段被授权字段覆盖
// 3. 每个账户都有白名单，且白名单为无条件或包含该消息序列指纹
// 4. 请求字段被白名单字段覆盖
// 任何一步失败或出错都返回 false
func (s *Store) IsWhitelisted(ctx context.Context, origin string, ident *identity.Identity, accounts []identity.Account, messages []chain.Message, fields identity.RequiredFields) bool {
	if ident == nil || len(accounts) == 0 {
		return false
	}

	s.mu.RLock()
	doc, err := s.load(ctx)
	s.mu.RUnlock()
	if err != nil {
		log.Warn().Err(err).Str("origin", origin).Msg("Failed to load permissions, falling back to prompt")
		return false
	}

	// 1. 授权检查
	grant, ok := doc.Grants[origin]
	if !ok || grant.IdentityPublicKey != ident.PublicKey {
		return false
	}

	// 2. 授权字段覆盖
	if !grant.Fields.Covers(fields) {
		return false
	}

	var fingerprint string
	if len(messages) > 0 {
		fingerprint, err = Fingerprint(messages)
		if err != nil {
			log.Warn().Err(err).Str("origin", origin).Msg("Failed to fingerprint messages, falling back to prompt")
			return false
		}
	}

	// 3. 逐账户检查白名单
	for _, account := range accounts {
		entry := findWhitelist(doc, origin, ident.PublicKey, account)
		if entry == nil {
			return false
		}
		if !entry.Unconditional && (fingerprint == "" || !entry.hasTemplate(fingerprint)) {
			return false
		}
		// 4. 白名单字段覆盖
		if !entry.Fields.Covers(fields) {
			return false
		}
	}

	return true
}

// Remember 为每个账户记住该消息序列（或无条件放行），白名单只增不减
func (s *Store) Remember(ctx context.Context, origin string, ident *identity.Identity, accounts []identity.Account, messages []chain.Message, fields identity.RequiredFields, unconditional bool) error {
	if ident == nil {
		return errors.New("identity is required")
	}

	var fingerprint string
	if !unconditional {
		var err error
		fingerprint, err = Fingerprint(messages)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	// 审批等待期间来源可能已被撤销
	if _, err := grantedTo(doc, origin, ident); err != nil {
		return err
	}

	for _, account := range accounts {
		entry := findWhitelist(doc, origin, ident.PublicKey, account)
		if entry == nil {
			doc.Whitelists = append(doc.Whitelists, Whitelist{
				Origin:            origin,
				IdentityPublicKey: ident.PublicKey,
				Account:           account,
				CreatedAt:         s.clock.Now().UTC(),
			})
			entry = &doc.Whitelists[len(doc.Whitelists)-1]
		}
		if unconditional {
			entry.Unconditional = true
		} else if !entry.hasTemplate(fingerprint) {
			entry.Templates = append(entry.Templates, fingerprint)
		}
		entry.Fields = entry.Fields.Merge(fields)
	}

	if err := s.save(ctx, doc); err != nil {
		return err
	}

	log.Info().
		Str("origin", origin).
		Str("identity", ident.PublicKey).
		Int("accounts", len(accounts)).
		Bool("unconditional", unconditional).
		Msg("Whitelist updated")
	return nil
}

// WidenGrant 把 fields 合并进来源现有的授权，只保留身份仍持有的账户
// 授权不存在或已授权给其他身份时返回 ErrNotGranted
func (s *Store) WidenGrant(ctx context.Context, origin string, ident *identity.Identity, fields identity.RequiredFields) error {
	if ident == nil {
		return errors.New("identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	grant, err := grantedTo(doc, origin, ident)
	if err != nil {
		return err
	}
	if grant.Fields.Covers(fields) {
		return nil
	}

	held := make([]identity.Account, 0, len(grant.Accounts))
	for _, a := range grant.Accounts {
		if ident.HasAccount(a) {
			held = append(held, a)
		}
	}
	grant.Accounts = held
	grant.Fields = grant.Fields.Merge(fields)
	grant.UpdatedAt = s.clock.Now().UTC()
	doc.Grants[origin] = grant

	if err := s.save(ctx, doc); err != nil {
		return err
	}

	log.Info().Str("origin", origin).Str("identity", ident.PublicKey).Msg("Grant fields widened")
	return nil
}

func grantedTo(doc *document, origin string, ident *identity.Identity) (Grant, error) {
	grant, ok := doc.Grants[origin]
	if !ok || grant.IdentityPublicKey != ident.PublicKey {
		return Grant{}, errors.Wrapf(ErrNotGranted, "origin %s", origin)
	}
	return grant, nil
}

// Whitelists 来源的所有白名单
func (s *Store) Whitelists(ctx context.Context, origin string) ([]Whitelist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Whitelist, 0)
	for _, w := range doc.Whitelists {
		if w.Origin == origin {
			out = append(out, w)
		}
	}
	return out, nil
}

func findWhitelist(doc *document, origin string, identityKey string, account identity.Account) *Whitelist {
	for i := range doc.Whitelists {
		if doc.Whitelists[i].matches(origin, identityKey, account) {
			return &doc.Whitelists[i]
		}
	}
	return nil
}

func (s *Store) load(ctx context.Context) (*document, error) {
	doc := &document{Grants: make(map[string]Grant)}
	raw, err := s.kv.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return doc, nil
		}
		return nil, errors.Wrap(err, "failed to load permissions")
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode permissions")
	}
	if doc.Grants == nil {
		doc.Grants = make(map[string]Grant)
	}
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc *document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to encode permissions")
	}
	if err := s.kv.Put(ctx, storageKey, raw); err != nil {
		return errors.Wrap(err, "failed to persist permissions")
	}
	return nil
}
