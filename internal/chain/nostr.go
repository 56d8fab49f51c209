package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nbd-wtf/go-nostr"
	"github.com/pkg/errors"

	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

// NostrAdapter nostr 事件签名，身份密钥也使用该格式
type NostrAdapter struct {
	keys KeyProvider
}

// NewNostrAdapter 创建 nostr 适配器
func NewNostrAdapter(keys KeyProvider) *NostrAdapter {
	return &NostrAdapter{keys: keys}
}

func (a *NostrAdapter) Blockchain() Blockchain {
	return Nostr
}

// Parse 未签名事件生成一条 event 消息
func (a *NostrAdapter) Parse(ctx context.Context, payload *Payload, network *types.Network) ([]Message, error) {
	ev, err := a.decode(payload)
	if err != nil {
		return nil, err
	}

	tags := make([]interface{}, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		values := make([]interface{}, 0, len(tag))
		for _, v := range tag {
			values = append(values, v)
		}
		tags = append(tags, values)
	}

	return []Message{{
		Code: "event",
		Type: "event",
		Data: map[string]interface{}{
			"kind":       ev.Kind,
			"content":    ev.Content,
			"tags":       tags,
			"created_at": int64(ev.CreatedAt),
		},
		Authorization: []string{ev.PubKey},
	}}, nil
}

// Participants 事件作者
func (a *NostrAdapter) Participants(payload *Payload) ([]string, error) {
	ev, err := a.decode(payload)
	if err != nil {
		return nil, err
	}
	return []string{ev.PubKey}, nil
}

// Sign 事件签名返回 64 字节 BIP-340 签名
func (a *NostrAdapter) Sign(ctx context.Context, payload *Payload, publicKey string, arbitrary bool, isHash bool) ([]byte, error) {
	raw, err := a.keys.PrivateKey(ctx, publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load private key")
	}
	if len(raw) != 32 {
		return nil, errors.Errorf("invalid secp256k1 private key length %d", len(raw))
	}

	if arbitrary {
		hash, err := arbitraryHash(payload.Data, isHash, func(b []byte) []byte {
			h := sha256.Sum256(b)
			return h[:]
		})
		if err != nil {
			return nil, err
		}
		priv, _ := btcec.PrivKeyFromBytes(raw)
		sig, err := schnorr.Sign(priv, hash)
		if err != nil {
			return nil, errors.Wrap(err, "failed to sign")
		}
		return sig.Serialize(), nil
	}

	ev, err := a.decode(payload)
	if err != nil {
		return nil, err
	}
	if ev.PubKey != publicKey {
		return nil, errors.Errorf("event pubkey %s does not match signing key", ev.PubKey)
	}
	if err := ev.Sign(hex.EncodeToString(raw)); err != nil {
		return nil, errors.Wrap(err, "failed to sign event")
	}
	sig, err := hex.DecodeString(ev.Sig)
	if err != nil {
		return nil, errors.Wrap(err, "invalid event signature")
	}
	return sig, nil
}

// GenerateKey 生成 x-only secp256k1 密钥
func (a *NostrAdapter) GenerateKey() (*GeneratedKey, error) {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive public key")
	}
	raw, err := hex.DecodeString(sk)
	if err != nil {
		return nil, errors.Wrap(err, "invalid generated private key")
	}
	return &GeneratedKey{
		PrivateKey: raw,
		PublicKey:  pk,
		Account: identity.Account{
			Blockchain: Nostr,
			Name:       pk,
			PublicKey:  pk,
		},
	}, nil
}

// GenerateAddress nostr 账户即 x-only 公钥的 hex
func (a *NostrAdapter) GenerateAddress(pubKey []byte) (string, error) {
	switch len(pubKey) {
	case 32:
		return hex.EncodeToString(pubKey), nil
	case 33:
		key, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			return "", errors.Wrap(err, "failed to parse compressed secp256k1 pubkey")
		}
		return hex.EncodeToString(schnorr.SerializePubKey(key)), nil
	default:
		return "", errors.Errorf("unsupported public key format: len=%d", len(pubKey))
	}
}

func (a *NostrAdapter) decode(payload *Payload) (*nostr.Event, error) {
	if payload == nil || len(payload.Transaction) == 0 {
		return nil, errors.New("event is required")
	}
	var ev nostr.Event
	if err := json.Unmarshal(payload.Transaction, &ev); err != nil {
		return nil, errors.Wrap(err, "failed to decode event")
	}
	if pk, err := hex.DecodeString(ev.PubKey); err != nil || len(pk) != 32 {
		return nil, errors.Errorf("invalid event pubkey %q", ev.PubKey)
	}
	if ev.Kind < 0 {
		return nil, errors.Errorf("invalid event kind %d", ev.Kind)
	}
	return &ev, nil
}
