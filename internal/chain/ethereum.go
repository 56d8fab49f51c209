package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/SafeMPC/wallet-bridge/internal/chain/ethereum"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

// ethTransaction 调用方提交的 EVM 交易描述
type ethTransaction struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value,omitempty"`
	Data     string `json:"data,omitempty"`
	Nonce    uint64 `json:"nonce"`
	GasPrice string `json:"gasPrice,omitempty"`
	Gas      uint64 `json:"gas,omitempty"`
}

// EthereumAdapter 实现 EVM 链插件
type EthereumAdapter struct {
	chainID *big.Int
	keys    KeyProvider
}

// NewEthereumAdapter 创建以太坊适配器
func NewEthereumAdapter(chainID *big.Int, keys KeyProvider) *EthereumAdapter {
	if chainID == nil {
		chainID = big.NewInt(1) // mainnet
	}
	return &EthereumAdapter{
		chainID: chainID,
		keys:    keys,
	}
}

func (a *EthereumAdapter) Blockchain() Blockchain {
	return Ethereum
}

// Parse 普通转账生成 transfer 消息，带 data 的生成 contract_call 消息
func (a *EthereumAdapter) Parse(ctx context.Context, payload *Payload, network *types.Network) ([]Message, error) {
	tx, err := a.decode(payload)
	if err != nil {
		return nil, err
	}

	value, err := parseBig(tx.Value)
	if err != nil {
		return nil, errors.Wrap(err, "invalid value")
	}
	data, err := decodeHex(tx.Data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid data")
	}

	chainID, err := a.effectiveChainID(network)
	if err != nil {
		return nil, err
	}

	msg := Message{
		Code: normalizeAddress(tx.To),
		Type: "transfer",
		Data: map[string]interface{}{
			"from":     normalizeAddress(tx.From),
			"to":       normalizeAddress(tx.To),
			"value":    value.String(),
			"chain_id": chainID.String(),
		},
		Authorization: []string{normalizeAddress(tx.From)},
	}
	if len(data) > 0 {
		msg.Type = "contract_call"
		msg.Data["data"] = "0x" + hex.EncodeToString(data)
		if len(data) >= 4 {
			msg.Data["selector"] = "0x" + hex.EncodeToString(data[:4])
		}
	}
	return []Message{msg}, nil
}

// Participants 交易发起方
func (a *EthereumAdapter) Participants(payload *Payload) ([]string, error) {
	tx, err := a.decode(payload)
	if err != nil {
		return nil, err
	}
	return []string{normalizeAddress(tx.From)}, nil
}

// Sign 交易签名为 Keccak256(RLP(EIP-155 列表))，返回 65 字节 R||S||V
func (a *EthereumAdapter) Sign(ctx context.Context, payload *Payload, publicKey string, arbitrary bool, isHash bool) ([]byte, error) {
	raw, err := a.keys.PrivateKey(ctx, publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load private key")
	}
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid secp256k1 private key")
	}

	var hash []byte
	if arbitrary {
		hash, err = arbitraryHash(payload.Data, isHash, personalMessageHash)
	} else {
		hash, err = a.transactionHash(payload)
	}
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, priv)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign")
	}
	return sig, nil
}

// GenerateKey 生成 secp256k1 账户，公钥为压缩格式 hex
func (a *EthereumAdapter) GenerateKey() (*GeneratedKey, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate key")
	}
	pub := crypto.CompressPubkey(&priv.PublicKey)
	address, err := a.GenerateAddress(pub)
	if err != nil {
		return nil, err
	}
	return &GeneratedKey{
		PrivateKey: crypto.FromECDSA(priv),
		PublicKey:  hex.EncodeToString(pub),
		Account: identity.Account{
			Blockchain: Ethereum,
			Name:       address,
			PublicKey:  hex.EncodeToString(pub),
		},
	}, nil
}

// ProbeChainID 通过 RPC 查询网络的链ID
func (a *EthereumAdapter) ProbeChainID(ctx context.Context, network *types.Network) (string, error) {
	client := ethereum.NewRPCClient(network.Endpoint())
	id, err := client.ChainID(ctx)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GenerateAddress 通过 Keccak256(pubKey[1:]) 生成地址
func (a *EthereumAdapter) GenerateAddress(pubKey []byte) (string, error) {
	if len(pubKey) == 0 {
		return "", errors.New("public key is required")
	}
	var uncompressed64 []byte
	switch {
	case len(pubKey) == 65 && pubKey[0] == 0x04:
		uncompressed64 = pubKey[1:]
	case len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03):
		key, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			return "", errors.Wrap(err, "failed to parse compressed secp256k1 pubkey")
		}
		u := key.SerializeUncompressed() // 65 bytes, 0x04 | X | Y
		uncompressed64 = u[1:]
	default:
		return "", errors.Errorf("unsupported public key format: len=%d", len(pubKey))
	}
	hash := crypto.Keccak256(uncompressed64)
	return fmt.Sprintf("0x%s", hex.EncodeToString(hash[12:])), nil
}

func (a *EthereumAdapter) decode(payload *Payload) (*ethTransaction, error) {
	var tx ethTransaction
	if err := decodeTransaction(payload, &tx); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(tx.From) {
		return nil, errors.Errorf("invalid from address %q", tx.From)
	}
	if tx.To != "" && !common.IsHexAddress(tx.To) {
		return nil, errors.Errorf("invalid to address %q", tx.To)
	}
	return &tx, nil
}

// transactionHash 构建 EIP-155 签名前的 RLP 负载并返回哈希
func (a *EthereumAdapter) transactionHash(payload *Payload) ([]byte, error) {
	tx, err := a.decode(payload)
	if err != nil {
		return nil, err
	}
	value, err := parseBig(tx.Value)
	if err != nil {
		return nil, errors.Wrap(err, "invalid value")
	}
	gasPrice, err := parseBig(tx.GasPrice)
	if err != nil {
		return nil, errors.Wrap(err, "invalid gasPrice")
	}
	data, err := decodeHex(tx.Data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid data")
	}
	gas := tx.Gas
	if gas == 0 {
		gas = 21000
	}

	chainID, err := a.effectiveChainID(payload.Network)
	if err != nil {
		return nil, err
	}

	var to []byte
	if tx.To != "" {
		to = common.HexToAddress(tx.To).Bytes()
	}

	txPayload := []interface{}{
		tx.Nonce,
		gasPrice,
		gas,
		to,
		value,
		data,
		chainID,
		uint(0),
		uint(0),
	}

	raw, err := rlp.EncodeToBytes(txPayload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to RLP encode tx payload")
	}
	return crypto.Keccak256(raw), nil
}

// personalMessageHash EIP-191
func personalMessageHash(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}

// arbitraryHash isHash 时 data 必须是 32 字节摘要的 hex
func arbitraryHash(data string, isHash bool, hashFn func([]byte) []byte) ([]byte, error) {
	if isHash {
		h, err := decodeHex(data)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidData, "hash is not hex: %v", err)
		}
		if len(h) != 32 {
			return nil, errors.Wrapf(ErrInvalidData, "hash must be 32 bytes, got %d", len(h))
		}
		return h, nil
	}
	if data == "" {
		return nil, errors.Wrap(ErrInvalidData, "data is required")
	}
	return hashFn([]byte(data)), nil
}

func normalizeAddress(addr string) string {
	if addr == "" {
		return ""
	}
	return strings.ToLower(common.HexToAddress(addr).Hex())
}

// effectiveChainID 网络描述的链 ID，十六进制或十进制；未给出时用适配器默认值
func (a *EthereumAdapter) effectiveChainID(network *types.Network) (*big.Int, error) {
	if network == nil || network.ChainID == "" {
		return a.chainID, nil
	}
	id, err := parseBig(network.ChainID)
	if err != nil || id.Sign() == 0 {
		return nil, errors.Errorf("invalid chain id %q", network.ChainID)
	}
	return id, nil
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = v.SetString(s[2:], 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("invalid number %q", s)
	}
	return v, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
