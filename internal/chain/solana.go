package chain

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"

	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

type solAccountMeta struct {
	PubKey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type solInstruction struct {
	ProgramID string           `json:"programId"`
	Accounts  []solAccountMeta `json:"accounts"`
	Data      string           `json:"data,omitempty"`
}

// solTransaction 调用方提交的 Solana 交易描述，账户与数据均为 base58
type solTransaction struct {
	FeePayer        string           `json:"feePayer"`
	RecentBlockhash string           `json:"recentBlockhash"`
	Instructions    []solInstruction `json:"instructions"`
}

// SolanaAdapter 用于 Solana 链的适配器
type SolanaAdapter struct {
	keys KeyProvider
}

// NewSolanaAdapter 创建一个 Solana 适配器
func NewSolanaAdapter(keys KeyProvider) *SolanaAdapter {
	return &SolanaAdapter{keys: keys}
}

func (a *SolanaAdapter) Blockchain() Blockchain {
	return Solana
}

// Parse 每条指令生成一条消息
func (a *SolanaAdapter) Parse(ctx context.Context, payload *Payload, network *types.Network) ([]Message, error) {
	tx, err := a.decode(payload)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(tx.Instructions))
	for _, ix := range tx.Instructions {
		accounts := make([]interface{}, 0, len(ix.Accounts))
		signers := make([]string, 0)
		for _, meta := range ix.Accounts {
			accounts = append(accounts, map[string]interface{}{
				"pubkey":     meta.PubKey,
				"isSigner":   meta.IsSigner,
				"isWritable": meta.IsWritable,
			})
			if meta.IsSigner {
				signers = append(signers, meta.PubKey)
			}
		}
		messages = append(messages, Message{
			Code: ix.ProgramID,
			Type: "instruction",
			Data: map[string]interface{}{
				"accounts": accounts,
				"data":     ix.Data,
			},
			Authorization: dedupe(signers),
		})
	}
	return messages, nil
}

// Participants 手续费支付方加上所有签名账户
func (a *SolanaAdapter) Participants(payload *Payload) ([]string, error) {
	tx, err := a.decode(payload)
	if err != nil {
		return nil, err
	}
	participants := []string{tx.FeePayer}
	for _, ix := range tx.Instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner {
				participants = append(participants, meta.PubKey)
			}
		}
	}
	return dedupe(participants), nil
}

// Sign ed25519 签名；交易签名的消息为交易的规范 JSON
func (a *SolanaAdapter) Sign(ctx context.Context, payload *Payload, publicKey string, arbitrary bool, isHash bool) ([]byte, error) {
	seed, err := a.keys.PrivateKey(ctx, publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load private key")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Errorf("invalid ed25519 seed length %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)

	var msg []byte
	if arbitrary {
		msg, err = arbitraryHash(payload.Data, isHash, func(b []byte) []byte { return b })
	} else {
		var tx *solTransaction
		tx, err = a.decode(payload)
		if err == nil {
			msg, err = CanonicalJSON(tx)
		}
	}
	if err != nil {
		return nil, err
	}

	return ed25519.Sign(priv, msg), nil
}

// GenerateKey 生成 ed25519 账户，账户名即 base58 公钥
func (a *SolanaAdapter) GenerateKey() (*GeneratedKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate key")
	}
	address, err := a.GenerateAddress(pub)
	if err != nil {
		return nil, err
	}
	return &GeneratedKey{
		PrivateKey: priv.Seed(),
		PublicKey:  address,
		Account: identity.Account{
			Blockchain: Solana,
			Name:       address,
			PublicKey:  address,
		},
	}, nil
}

// GenerateAddress 根据公钥生成 Solana 地址（Base58 编码）
// Solana 地址就是 Ed25519 公钥的 Base58 表示
func (a *SolanaAdapter) GenerateAddress(pubKey []byte) (string, error) {
	if len(pubKey) == 0 {
		return "", errors.New("public key is required")
	}

	// Solana 公钥通常是 32 字节
	if len(pubKey) != ed25519.PublicKeySize {
		return "", errors.Errorf("invalid public key length: expected 32 bytes, got %d", len(pubKey))
	}

	return base58.Encode(pubKey), nil
}

func (a *SolanaAdapter) decode(payload *Payload) (*solTransaction, error) {
	var tx solTransaction
	if err := decodeTransaction(payload, &tx); err != nil {
		return nil, err
	}
	if !isSolanaKey(tx.FeePayer) {
		return nil, errors.Errorf("invalid fee payer %q", tx.FeePayer)
	}
	if tx.RecentBlockhash == "" {
		return nil, errors.New("recentBlockhash is required")
	}
	if len(tx.Instructions) == 0 {
		return nil, errors.New("at least one instruction is required")
	}
	for i, ix := range tx.Instructions {
		if !isSolanaKey(ix.ProgramID) {
			return nil, errors.Errorf("instruction %d: invalid program id %q", i, ix.ProgramID)
		}
		for _, meta := range ix.Accounts {
			if !isSolanaKey(meta.PubKey) {
				return nil, errors.Errorf("instruction %d: invalid account %q", i, meta.PubKey)
			}
		}
	}
	return &tx, nil
}

func isSolanaKey(s string) bool {
	return len(base58.Decode(s)) == ed25519.PublicKeySize
}
