package chain

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nbd-wtf/go-nostr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeMPC/wallet-bridge/internal/types"
)

type staticKeys map[string][]byte

func (k staticKeys) PrivateKey(ctx context.Context, publicKey string) ([]byte, error) {
	v, ok := k[publicKey]
	if !ok {
		return nil, errors.Errorf("no key for %s", publicKey)
	}
	return v, nil
}

func generate(t *testing.T, g KeyGenerator, keys staticKeys) *GeneratedKey {
	t.Helper()
	key, err := g.GenerateKey()
	require.NoError(t, err)
	keys[key.PublicKey] = key.PrivateKey
	return key
}

func rawTx(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRegistry(t *testing.T) {
	keys := staticKeys{}
	r := NewRegistry(NewEthereumAdapter(nil, keys), NewNostrAdapter(keys))

	assert.True(t, r.Has(Ethereum))
	assert.False(t, r.Has(Solana))
	assert.Equal(t, []Blockchain{Ethereum, Nostr}, r.Blockchains())

	_, err := r.Get("doge")
	assert.ErrorIs(t, err, ErrUnknownBlockchain)

	r.Register(NewSolanaAdapter(keys))
	assert.True(t, r.Has(Solana))

	key, err := r.GenerateKey(Solana)
	require.NoError(t, err)
	assert.Equal(t, Solana, key.Account.Blockchain)

	_, err = r.GenerateKey("doge")
	assert.Error(t, err)
}

func TestEthereumSignTransaction(t *testing.T) {
	keys := staticKeys{}
	eth := NewEthereumAdapter(nil, keys)
	key := generate(t, eth, keys)

	payload := &Payload{
		Blockchain: Ethereum,
		Network:    &types.Network{Blockchain: Ethereum, ChainID: "5"},
		Transaction: rawTx(t, map[string]interface{}{
			"from":     key.Account.Name,
			"to":       "0x000000000000000000000000000000000000dEaD",
			"value":    "1000",
			"nonce":    7,
			"gasPrice": "0x3b9aca00",
		}),
	}

	participants, err := eth.Participants(payload)
	require.NoError(t, err)
	assert.Equal(t, []string{key.Account.Name}, participants)

	messages, err := eth.Parse(context.Background(), payload, payload.Network)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "transfer", messages[0].Type)
	assert.Equal(t, "1000", messages[0].Data["value"])
	assert.Equal(t, "0x000000000000000000000000000000000000dead", messages[0].Code)

	sig, err := eth.Sign(context.Background(), payload, key.PublicKey, false, false)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	hash, err := eth.transactionHash(payload)
	require.NoError(t, err)
	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, key.Account.Name, normalizeAddress(crypto.PubkeyToAddress(*pub).Hex()))
}

func TestEthereumChainIDFormats(t *testing.T) {
	keys := staticKeys{}
	eth := NewEthereumAdapter(nil, keys)
	key := generate(t, eth, keys)

	payloadFor := func(chainID string) *Payload {
		return &Payload{
			Blockchain: Ethereum,
			Network:    &types.Network{Blockchain: Ethereum, ChainID: chainID},
			Transaction: rawTx(t, map[string]interface{}{
				"from":  key.Account.Name,
				"to":    "0x000000000000000000000000000000000000dEaD",
				"value": "1",
				"nonce": 1,
			}),
		}
	}

	hex5, err := eth.transactionHash(payloadFor("0x5"))
	require.NoError(t, err)
	dec5, err := eth.transactionHash(payloadFor("5"))
	require.NoError(t, err)
	mainnet, err := eth.transactionHash(payloadFor("1"))
	require.NoError(t, err)
	assert.Equal(t, hex5, dec5)
	assert.NotEqual(t, mainnet, hex5)

	messages, err := eth.Parse(context.Background(), payloadFor("0x5"), payloadFor("0x5").Network)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "5", messages[0].Data["chain_id"])

	messages, err = eth.Parse(context.Background(), payloadFor(""), nil)
	require.NoError(t, err)
	assert.Equal(t, "1", messages[0].Data["chain_id"])

	for _, bad := range []string{"0xzz", "goerli", "0", "-5"} {
		_, err = eth.transactionHash(payloadFor(bad))
		assert.Error(t, err, bad)
		_, err = eth.Parse(context.Background(), payloadFor(bad), payloadFor(bad).Network)
		assert.Error(t, err, bad)
		_, err = eth.Sign(context.Background(), payloadFor(bad), key.PublicKey, false, false)
		assert.Error(t, err, bad)
	}
}

func TestEthereumContractCall(t *testing.T) {
	eth := NewEthereumAdapter(nil, staticKeys{})
	payload := &Payload{Transaction: rawTx(t, map[string]interface{}{
		"from": "0x1111111111111111111111111111111111111111",
		"to":   "0x2222222222222222222222222222222222222222",
		"data": "0xa9059cbb0000",
	})}

	messages, err := eth.Parse(context.Background(), payload, nil)
	require.NoError(t, err)
	assert.Equal(t, "contract_call", messages[0].Type)
	assert.Equal(t, "0xa9059cbb", messages[0].Data["selector"])
}

func TestEthereumRejectsMalformedTransaction(t *testing.T) {
	eth := NewEthereumAdapter(nil, staticKeys{})

	_, err := eth.Participants(&Payload{Transaction: json.RawMessage(`{"from":"nope"}`)})
	assert.Error(t, err)
	_, err = eth.Participants(&Payload{})
	assert.Error(t, err)
	_, err = eth.Parse(context.Background(), &Payload{Transaction: json.RawMessage(`{"from":"0x1111111111111111111111111111111111111111","value":"-1"}`)}, nil)
	assert.Error(t, err)
}

func TestEthereumArbitrarySignature(t *testing.T) {
	keys := staticKeys{}
	eth := NewEthereumAdapter(nil, keys)
	key := generate(t, eth, keys)

	sig, err := eth.Sign(context.Background(), &Payload{Data: "hello"}, key.PublicKey, true, false)
	require.NoError(t, err)
	pub, err := crypto.SigToPub(personalMessageHash([]byte("hello")), sig)
	require.NoError(t, err)
	assert.Equal(t, key.Account.Name, normalizeAddress(crypto.PubkeyToAddress(*pub).Hex()))

	digest := sha256.Sum256([]byte("hello"))
	sig, err = eth.Sign(context.Background(), &Payload{Data: hex.EncodeToString(digest[:])}, key.PublicKey, true, true)
	require.NoError(t, err)
	pub, err = crypto.SigToPub(digest[:], sig)
	require.NoError(t, err)
	assert.Equal(t, key.Account.Name, normalizeAddress(crypto.PubkeyToAddress(*pub).Hex()))

	_, err = eth.Sign(context.Background(), &Payload{Data: "abcd"}, key.PublicKey, true, true)
	assert.Error(t, err, "hash must be 32 bytes")

	_, err = eth.Sign(context.Background(), &Payload{Data: "hello"}, "unknown", true, false)
	assert.Error(t, err)
}

func TestEthereumGenerateAddress(t *testing.T) {
	eth := NewEthereumAdapter(nil, staticKeys{})
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	want := normalizeAddress(crypto.PubkeyToAddress(priv.PublicKey).Hex())
	compressed, err := eth.GenerateAddress(crypto.CompressPubkey(&priv.PublicKey))
	require.NoError(t, err)
	uncompressed, err := eth.GenerateAddress(crypto.FromECDSAPub(&priv.PublicKey))
	require.NoError(t, err)

	assert.Equal(t, want, compressed)
	assert.Equal(t, want, uncompressed)

	_, err = eth.GenerateAddress([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func bitcoinTx(from ...string) map[string]interface{} {
	inputs := make([]interface{}, 0, len(from))
	for i, addr := range from {
		inputs = append(inputs, map[string]interface{}{
			"txid":    "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
			"vout":    i,
			"address": addr,
			"amount":  50000,
		})
	}
	return map[string]interface{}{
		"inputs": inputs,
		"outputs": []interface{}{
			map[string]interface{}{"address": "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", "amount": 30000},
			map[string]interface{}{"address": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "amount": 15000},
		},
		"fee": 5000,
	}
}

func TestBitcoinParseAndParticipants(t *testing.T) {
	btc := NewBitcoinAdapter(nil, staticKeys{})
	payload := &Payload{Transaction: rawTx(t, bitcoinTx("addrA", "addrB", "addrA"))}

	participants, err := btc.Participants(payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"addrA", "addrB"}, participants)

	messages, err := btc.Parse(context.Background(), payload, nil)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "transfer", messages[0].Type)
	assert.Equal(t, "transfer", messages[1].Type)
	assert.Equal(t, "fee", messages[2].Type)
	assert.EqualValues(t, 5000, messages[2].Data["amount"])
}

func TestBitcoinSign(t *testing.T) {
	keys := staticKeys{}
	btc := NewBitcoinAdapter(&chaincfg.TestNet3Params, keys)
	key := generate(t, btc, keys)

	payload := &Payload{Transaction: rawTx(t, bitcoinTx(key.Account.Name))}
	sig, err := btc.Sign(context.Background(), payload, key.PublicKey, false, false)
	require.NoError(t, err)

	pubBytes, err := hex.DecodeString(key.PublicKey)
	require.NoError(t, err)
	pub, err := btcec.ParsePubKey(pubBytes)
	require.NoError(t, err)

	parsed, err := ecdsa.ParseDERSignature(sig)
	require.NoError(t, err)
	hash, err := btc.transactionHash(payload)
	require.NoError(t, err)
	assert.True(t, parsed.Verify(hash, pub))

	sig, err = btc.Sign(context.Background(), &Payload{Data: "hello"}, key.PublicKey, true, false)
	require.NoError(t, err)
	parsed, err = ecdsa.ParseDERSignature(sig)
	require.NoError(t, err)
	assert.True(t, parsed.Verify(signedMessageHash([]byte("hello")), pub))
}

func TestBitcoinGenerateAddress(t *testing.T) {
	// 创世区块 coinbase 公钥
	pub, err := hex.DecodeString("04678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5f")
	require.NoError(t, err)

	addr, err := NewBitcoinAdapter(nil, staticKeys{}).GenerateAddress(pub)
	require.NoError(t, err)
	assert.Equal(t, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", addr)

	params, err := BitcoinParams("testnet")
	require.NoError(t, err)
	assert.Equal(t, chaincfg.TestNet3Params.Name, params.Name)
	_, err = BitcoinParams("litecoin")
	assert.Error(t, err)
}

func TestSolanaSign(t *testing.T) {
	keys := staticKeys{}
	sol := NewSolanaAdapter(keys)
	key := generate(t, sol, keys)
	other := generate(t, sol, keys)
	program := base58.Encode(make([]byte, 32))

	payload := &Payload{Transaction: rawTx(t, map[string]interface{}{
		"feePayer":        key.Account.Name,
		"recentBlockhash": "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		"instructions": []interface{}{
			map[string]interface{}{
				"programId": program,
				"accounts": []interface{}{
					map[string]interface{}{"pubkey": key.Account.Name, "isSigner": true, "isWritable": true},
					map[string]interface{}{"pubkey": other.Account.Name, "isSigner": true, "isWritable": true},
				},
				"data": "3Bxs4h24hBtQy9rw",
			},
		},
	})}

	participants, err := sol.Participants(payload)
	require.NoError(t, err)
	assert.Equal(t, []string{key.Account.Name, other.Account.Name}, participants)

	messages, err := sol.Parse(context.Background(), payload, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, program, messages[0].Code)

	sig, err := sol.Sign(context.Background(), payload, key.PublicKey, false, false)
	require.NoError(t, err)

	tx, err := sol.decode(payload)
	require.NoError(t, err)
	msg, err := CanonicalJSON(tx)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(base58.Decode(key.PublicKey)), msg, sig))
}

func TestNostrSignEvent(t *testing.T) {
	keys := staticKeys{}
	n := NewNostrAdapter(keys)
	key := generate(t, n, keys)

	payload := &Payload{Transaction: rawTx(t, map[string]interface{}{
		"pubkey":     key.PublicKey,
		"created_at": 1700000000,
		"kind":       1,
		"tags":       [][]string{{"t", "bridge"}},
		"content":    "gm",
	})}

	messages, err := n.Parse(context.Background(), payload, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "gm", messages[0].Data["content"])

	sig, err := n.Sign(context.Background(), payload, key.PublicKey, false, false)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	var ev nostr.Event
	require.NoError(t, json.Unmarshal(payload.Transaction, &ev))
	ev.ID = ev.GetID()
	ev.Sig = hex.EncodeToString(sig)
	ok, err := ev.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = n.Sign(context.Background(), payload, "other", false, false)
	assert.Error(t, err)
}

func TestNostrArbitrarySignature(t *testing.T) {
	keys := staticKeys{}
	n := NewNostrAdapter(keys)
	key := generate(t, n, keys)

	digest := sha256.Sum256([]byte("challenge"))
	sig, err := n.Sign(context.Background(), &Payload{Data: hex.EncodeToString(digest[:])}, key.PublicKey, true, true)
	require.NoError(t, err)

	pubBytes, err := hex.DecodeString(key.PublicKey)
	require.NoError(t, err)
	pub, err := schnorr.ParsePubKey(pubBytes)
	require.NoError(t, err)
	parsed, err := schnorr.ParseSignature(sig)
	require.NoError(t, err)
	assert.True(t, parsed.Verify(digest[:], pub))

	addr, err := n.GenerateAddress(pubBytes)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey, addr)
}
