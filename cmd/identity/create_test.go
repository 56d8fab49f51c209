package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/keychain"
	"github.com/SafeMPC/wallet-bridge/internal/test"
)

func TestCreateRequestFromFlags(t *testing.T) {
	cmd := newCreate()
	require.NoError(t, cmd.ParseFlags([]string{
		"--name", "alice",
		"--field", "email=alice@example.com",
		"--blockchain", "eth,btc",
		"--location", "home:Home:country=NL;city=Utrecht",
		"--location", "work:Work",
	}))

	req, err := createRequestFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "alice", req.Name)
	assert.Equal(t, []identity.Field{{Key: "email", Value: "alice@example.com"}}, req.Fields)
	assert.Equal(t, []chain.Blockchain{chain.Ethereum, chain.Bitcoin}, req.Blockchains)
	require.Len(t, req.Locations, 2)
	assert.Equal(t, identity.Location{ID: "home", Name: "Home", Fields: map[string]string{"country": "NL", "city": "Utrecht"}}, req.Locations[0])
	assert.Equal(t, identity.Location{ID: "work", Name: "Work"}, req.Locations[1])
}

func TestCreateRequestFromFlagsInvalid(t *testing.T) {
	for _, args := range [][]string{
		{"--field", "no-separator"},
		{"--location", "home"},
		{"--location", "home:Home:country"},
	} {
		cmd := newCreate()
		require.NoError(t, cmd.ParseFlags(args))
		_, err := createRequestFromFlags(cmd)
		assert.Error(t, err, args)
	}
}

func TestCreateIdentity(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		ctx := context.Background()

		ident, err := createIdentity(ctx, s, keychain.CreateIdentityRequest{
			Name:        "alice",
			Blockchains: []chain.Blockchain{chain.Ethereum, chain.Bitcoin},
		})
		require.NoError(t, err)
		assert.Len(t, ident.Accounts, 2)

		identities, err := s.Keychain.Identities(ctx)
		require.NoError(t, err)
		require.Len(t, identities, 1)
		assert.Equal(t, ident.PublicKey, identities[0].PublicKey)

		_, err = createIdentity(ctx, s, keychain.CreateIdentityRequest{
			Name:        "bob",
			Blockchains: []chain.Blockchain{"doge"},
		})
		assert.Error(t, err)
	})
}
