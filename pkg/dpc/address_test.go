package dpc

import (
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	key := newKey(t)
	addr := AddressFromPublicKey(key.PublicKey())

	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	text, err := addr.MarshalText()
	require.NoError(t, err)
	var fromText Address
	require.NoError(t, fromText.UnmarshalText(text))
	assert.Equal(t, addr, fromText)

	pub, err := parsed.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().SerializeCompressed(), pub.SerializeCompressed())
}

func TestParseAddressRejects(t *testing.T) {
	addr := AddressFromPublicKey(newKey(t).PublicKey())

	tests := []struct {
		name  string
		input string
	}{
		{"garbage", "not an address"},
		{"wrong version", base58.CheckEncode(addr[:], AddressVersion+1)},
		{"short payload", base58.CheckEncode(addr[:32], AddressVersion)},
		{"not on curve", base58.CheckEncode(append([]byte{0x05}, addr[1:]...), AddressVersion)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			assert.True(t, errors.Is(err, ErrInvalidAddress), "got %v", err)
		})
	}
}
