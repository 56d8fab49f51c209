package types

import (
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNetwork() Network {
	return Network{
		Name:       "Mainnet",
		Blockchain: "eth",
		Protocol:   "https",
		Host:       "mainnet.infura.io",
		Port:       443,
		ChainID:    "1",
	}
}

func TestNetworkValidate(t *testing.T) {
	n := validNetwork()
	require.NoError(t, n.Validate(strfmt.Default))

	tests := []struct {
		name   string
		mutate func(n *Network)
	}{
		{"missing blockchain", func(n *Network) { n.Blockchain = "" }},
		{"missing chain id", func(n *Network) { n.ChainID = "" }},
		{"missing host", func(n *Network) { n.Host = "" }},
		{"host with path", func(n *Network) { n.Host = "evil.io/x" }},
		{"host with port", func(n *Network) { n.Host = "evil.io:80" }},
		{"bad protocol", func(n *Network) { n.Protocol = "ws" }},
		{"zero port", func(n *Network) { n.Port = 0 }},
		{"port too large", func(n *Network) { n.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := validNetwork()
			tt.mutate(&n)
			assert.Error(t, n.Validate(strfmt.Default))
		})
	}
}

func TestNetworkUniqueKeyIgnoresName(t *testing.T) {
	a := validNetwork()
	b := validNetwork()
	b.Name = "My Ethereum"
	b.Host = "MAINNET.infura.io"
	b.Protocol = "HTTPS"

	assert.Equal(t, a.UniqueKey(), b.UniqueKey())
	assert.Equal(t, "https://mainnet.infura.io:443", a.Endpoint())

	c := validNetwork()
	c.ChainID = "5"
	assert.NotEqual(t, a.UniqueKey(), c.UniqueKey())
}

func TestNetworkBinaryRoundTrip(t *testing.T) {
	n := validNetwork()
	b, err := n.MarshalBinary()
	require.NoError(t, err)

	var out Network
	require.NoError(t, out.UnmarshalBinary(b))
	assert.Equal(t, n, out)
}
