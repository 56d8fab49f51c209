package keychain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/storage"
)

const storageKey = "keychain"

var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrIdentityExists     = errors.New("identity already exists")
	ErrPublicKeyImmutable = errors.New("identity public key is immutable")
	ErrKeyNotFound        = errors.New("private key not found")
)

// Keychain 持有者的身份与私钥，实现 chain.KeyProvider
type Keychain struct {
	mu    deadlock.RWMutex
	store storage.KeyValueStore
	clock time2.Clock
}

var _ chain.KeyProvider = (*Keychain)(nil)

func New(store storage.KeyValueStore, clock time2.Clock) *Keychain {
	return &Keychain{
		store: store,
		clock: clock,
	}
}

// CreateIdentity 生成身份密钥（nostr 格式）和每条链的账户
func (k *Keychain) CreateIdentity(ctx context.Context, gen Generator, req CreateIdentityRequest) (*identity.Identity, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("identity name is required")
	}

	idKey, err := gen.GenerateKey(chain.Nostr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate identity key")
	}

	keys := map[string][]byte{idKey.PublicKey: idKey.PrivateKey}
	ident := &identity.Identity{
		PublicKey: idKey.PublicKey,
		Name:      req.Name,
		Fields:    req.Fields,
		Locations: req.Locations,
		CreatedAt: k.clock.Now().UTC(),
	}

	for _, b := range req.Blockchains {
		key, err := gen.GenerateKey(b)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to generate %s account", b)
		}
		keys[key.PublicKey] = key.PrivateKey
		ident.Accounts = append(ident.Accounts, key.Account)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	doc, err := k.load(ctx)
	if err != nil {
		return nil, err
	}
	doc.Identities = append(doc.Identities, *ident)
	for pub, priv := range keys {
		doc.Keys[pub] = hex.EncodeToString(priv)
	}
	if err := k.save(ctx, doc); err != nil {
		return nil, err
	}

	log.Info().
		Str("identity", ident.PublicKey).
		Int("accounts", len(ident.Accounts)).
		Msg("Identity created")

	return ident, nil
}

// AddIdentity 导入已有身份及其私钥
func (k *Keychain) AddIdentity(ctx context.Context, ident identity.Identity, keys map[string][]byte) error {
	if ident.PublicKey == "" {
		return errors.New("identity public key is required")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	doc, err := k.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := find(doc, ident.PublicKey); ok {
		return errors.Wrapf(ErrIdentityExists, "public key %s", ident.PublicKey)
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = k.clock.Now().UTC()
	}
	doc.Identities = append(doc.Identities, ident)
	for pub, priv := range keys {
		doc.Keys[pub] = hex.EncodeToString(priv)
	}
	return k.save(ctx, doc)
}

// UpdateIdentity 更新名称、字段、账户和位置，公钥不可变
func (k *Keychain) UpdateIdentity(ctx context.Context, publicKey string, ident identity.Identity) error {
	if ident.PublicKey != publicKey {
		return errors.Wrapf(ErrPublicKeyImmutable, "%s -> %s", publicKey, ident.PublicKey)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	doc, err := k.load(ctx)
	if err != nil {
		return err
	}
	i, ok := find(doc, publicKey)
	if !ok {
		return errors.Wrapf(ErrIdentityNotFound, "public key %s", publicKey)
	}
	ident.CreatedAt = doc.Identities[i].CreatedAt
	doc.Identities[i] = ident
	return k.save(ctx, doc)
}

// RemoveIdentity 删除身份及其所有私钥
func (k *Keychain) RemoveIdentity(ctx context.Context, publicKey string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	doc, err := k.load(ctx)
	if err != nil {
		return err
	}
	i, ok := find(doc, publicKey)
	if !ok {
		return errors.Wrapf(ErrIdentityNotFound, "public key %s", publicKey)
	}
	removed := doc.Identities[i]
	doc.Identities = append(doc.Identities[:i], doc.Identities[i+1:]...)
	delete(doc.Keys, removed.PublicKey)
	for _, a := range removed.Accounts {
		delete(doc.Keys, a.PublicKey)
	}
	return k.save(ctx, doc)
}

func (k *Keychain) Identity(ctx context.Context, publicKey string) (*identity.Identity, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	doc, err := k.load(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := find(doc, publicKey)
	if !ok {
		return nil, errors.Wrapf(ErrIdentityNotFound, "public key %s", publicKey)
	}
	ident := doc.Identities[i]
	return &ident, nil
}

func (k *Keychain) Identities(ctx context.Context) ([]identity.Identity, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	doc, err := k.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Identities, nil
}

// PrivateKey 按公钥返回私钥（身份密钥或账户密钥）
func (k *Keychain) PrivateKey(ctx context.Context, publicKey string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	doc, err := k.load(ctx)
	if err != nil {
		return nil, err
	}
	encoded, ok := doc.Keys[publicKey]
	if !ok {
		// 公钥 hex 大小写不敏感
		for pub, v := range doc.Keys {
			if strings.EqualFold(pub, publicKey) {
				encoded, ok = v, true
				break
			}
		}
	}
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "public key %s", publicKey)
	}
	priv, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode private key")
	}
	return priv, nil
}

func (k *Keychain) load(ctx context.Context) (*document, error) {
	doc := &document{Keys: make(map[string]string)}
	raw, err := k.store.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return doc, nil
		}
		return nil, errors.Wrap(err, "failed to load keychain")
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode keychain")
	}
	if doc.Keys == nil {
		doc.Keys = make(map[string]string)
	}
	return doc, nil
}

func (k *Keychain) save(ctx context.Context, doc *document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to encode keychain")
	}
	if err := k.store.Put(ctx, storageKey, raw); err != nil {
		return errors.Wrap(err, "failed to persist keychain")
	}
	return nil
}

func find(doc *document, publicKey string) (int, bool) {
	for i, ident := range doc.Identities {
		if ident.PublicKey == publicKey {
			return i, true
		}
	}
	return -1, false
}
