package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ripemd160"

	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

const bitcoinMessageMagic = "Bitcoin Signed Message:\n"

type btcInput struct {
	TxID    string `json:"txid"`
	Vout    uint32 `json:"vout"`
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

type btcOutput struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

// btcTransaction 调用方提交的 UTXO 交易描述，金额单位为 satoshi
type btcTransaction struct {
	Inputs  []btcInput  `json:"inputs"`
	Outputs []btcOutput `json:"outputs"`
	Fee     int64       `json:"fee"`
}

// BitcoinAdapter 基于 btcsuite 的简单实现
type BitcoinAdapter struct {
	params *chaincfg.Params
	keys   KeyProvider
}

// NewBitcoinAdapter 创建一个 Bitcoin 适配器
func NewBitcoinAdapter(params *chaincfg.Params, keys KeyProvider) *BitcoinAdapter {
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	return &BitcoinAdapter{params: params, keys: keys}
}

// BitcoinParams 按名称返回网络参数
func BitcoinParams(name string) (*chaincfg.Params, error) {
	switch strings.ToLower(name) {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, errors.Errorf("unknown bitcoin network %q", name)
	}
}

func (a *BitcoinAdapter) Blockchain() Blockchain {
	return Bitcoin
}

// Parse 每个输出一条 transfer 消息，手续费单独一条 fee 消息
func (a *BitcoinAdapter) Parse(ctx context.Context, payload *Payload, network *types.Network) ([]Message, error) {
	tx, err := a.decode(payload)
	if err != nil {
		return nil, err
	}

	from := a.inputAddresses(tx)
	messages := make([]Message, 0, len(tx.Outputs)+1)
	for _, out := range tx.Outputs {
		messages = append(messages, Message{
			Code: out.Address,
			Type: "transfer",
			Data: map[string]interface{}{
				"to":     out.Address,
				"amount": out.Amount,
			},
			Authorization: from,
		})
	}
	messages = append(messages, Message{
		Code: "fee",
		Type: "fee",
		Data: map[string]interface{}{
			"amount": tx.Fee,
		},
		Authorization: from,
	})
	return messages, nil
}

// Participants 去重后的输入地址
func (a *BitcoinAdapter) Participants(payload *Payload) ([]string, error) {
	tx, err := a.decode(payload)
	if err != nil {
		return nil, err
	}
	return a.inputAddresses(tx), nil
}

// Sign 对双重 SHA256 摘要做 ECDSA 签名，返回 DER 编码
func (a *BitcoinAdapter) Sign(ctx context.Context, payload *Payload, publicKey string, arbitrary bool, isHash bool) ([]byte, error) {
	raw, err := a.keys.PrivateKey(ctx, publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load private key")
	}
	if len(raw) != 32 {
		return nil, errors.Errorf("invalid secp256k1 private key length %d", len(raw))
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)

	var hash []byte
	if arbitrary {
		hash, err = arbitraryHash(payload.Data, isHash, signedMessageHash)
	} else {
		hash, err = a.transactionHash(payload)
	}
	if err != nil {
		return nil, err
	}

	return ecdsa.Sign(priv, hash).Serialize(), nil
}

// GenerateKey 生成 secp256k1 账户，账户名为 P2PKH 地址
func (a *BitcoinAdapter) GenerateKey() (*GeneratedKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate key")
	}
	pub := priv.PubKey().SerializeCompressed()
	address, err := a.GenerateAddress(pub)
	if err != nil {
		return nil, err
	}
	return &GeneratedKey{
		PrivateKey: priv.Serialize(),
		PublicKey:  hex.EncodeToString(pub),
		Account: identity.Account{
			Blockchain: Bitcoin,
			Name:       address,
			PublicKey:  hex.EncodeToString(pub),
		},
	}, nil
}

// GenerateAddress 根据公钥生成标准的 Bitcoin P2PKH 地址（Base58 编码）
func (a *BitcoinAdapter) GenerateAddress(pubKey []byte) (string, error) {
	if len(pubKey) == 0 {
		return "", errors.New("public key is required")
	}

	// 1. 计算公钥哈希：SHA256 -> RIPEMD160
	sha := sha256.Sum256(pubKey)
	ripemd := ripemd160.New()
	if _, err := ripemd.Write(sha[:]); err != nil {
		return "", errors.Wrap(err, "failed to hash public key")
	}
	hash160 := ripemd.Sum(nil)

	// 2. 版本字节 + hash160
	versionedPayload := append([]byte{a.params.PubKeyHashAddrID}, hash160...)

	// 3. 校验和：SHA256(SHA256(version + hash160)) 的前4字节
	checksum := chainhash.DoubleHashB(versionedPayload)[:4]

	// 4. Base58 编码
	return base58.Encode(append(versionedPayload, checksum...)), nil
}

func (a *BitcoinAdapter) decode(payload *Payload) (*btcTransaction, error) {
	var tx btcTransaction
	if err := decodeTransaction(payload, &tx); err != nil {
		return nil, err
	}
	if len(tx.Inputs) == 0 {
		return nil, errors.New("at least one input is required")
	}
	if len(tx.Outputs) == 0 {
		return nil, errors.New("at least one output is required")
	}
	for i, in := range tx.Inputs {
		if in.Address == "" {
			return nil, errors.Errorf("input %d: address is required", i)
		}
		if _, err := chainhash.NewHashFromStr(in.TxID); err != nil {
			return nil, errors.Wrapf(err, "input %d: invalid txid", i)
		}
		if in.Amount < 0 {
			return nil, errors.Errorf("input %d: negative amount", i)
		}
	}
	for i, out := range tx.Outputs {
		if out.Address == "" {
			return nil, errors.Errorf("output %d: address is required", i)
		}
		if out.Amount <= 0 {
			return nil, errors.Errorf("output %d: amount must be positive", i)
		}
	}
	if tx.Fee < 0 {
		return nil, errors.New("fee must not be negative")
	}
	return &tx, nil
}

func (a *BitcoinAdapter) inputAddresses(tx *btcTransaction) []string {
	addresses := make([]string, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		addresses = append(addresses, in.Address)
	}
	return dedupe(addresses)
}

// transactionHash 构建原始交易描述并返回双哈希
func (a *BitcoinAdapter) transactionHash(payload *Payload) ([]byte, error) {
	tx, err := a.decode(payload)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "btc-tx|net:%s", a.params.Name)
	for _, in := range tx.Inputs {
		fmt.Fprintf(&b, "|in:%s:%d:%s:%d", in.TxID, in.Vout, in.Address, in.Amount)
	}
	for _, out := range tx.Outputs {
		fmt.Fprintf(&b, "|out:%s:%d", out.Address, out.Amount)
	}
	fmt.Fprintf(&b, "|fee:%d", tx.Fee)

	return chainhash.DoubleHashB([]byte(b.String())), nil
}

// signedMessageHash Bitcoin Signed Message 格式的双哈希
func signedMessageHash(data []byte) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarString(&buf, 0, bitcoinMessageMagic)
	_ = wire.WriteVarInt(&buf, 0, uint64(len(data)))
	buf.Write(data)
	return chainhash.DoubleHashB(buf.Bytes())
}
