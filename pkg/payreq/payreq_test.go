package payreq

import (
	"crypto/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
	"github.com/suffix-labs/dpc-auth/pkg/dpc"
)

func newAddress(t *testing.T) dpc.Address {
	t.Helper()
	key, err := crypto.GeneratePrivateKey(rand.Reader)
	require.NoError(t, err)
	return dpc.AddressFromPublicKey(key.PublicKey())
}

func TestParseSingle(t *testing.T) {
	addr := newAddress(t)

	req, err := Parse("dpc:" + addr.String() + "?amount=150&memo=coffee&label=shop")
	require.NoError(t, err)
	require.Len(t, req.Payments, 1)

	p := req.Payments[0]
	assert.Equal(t, addr, p.Address)
	assert.Equal(t, uint64(150), p.Amount)
	require.NotNil(t, p.Label)
	assert.Equal(t, "shop", *p.Label)
	assert.Nil(t, p.Message)

	memo := req.MemoBytes()
	require.NotNil(t, memo)
	assert.Equal(t, "coffee", string(memo[:6]))
	assert.Zero(t, memo[6])
}

func TestParseIndexed(t *testing.T) {
	a, b := newAddress(t), newAddress(t)

	uri := "dpc:?address.2=" + b.String() + "&amount.2=20&address.1=" + a.String() + "&amount.1=10"
	req, err := Parse(uri)
	require.NoError(t, err)
	require.Len(t, req.Payments, 2)

	recipients, amounts := req.Outputs()
	assert.Equal(t, []dpc.Address{a, b}, recipients)
	assert.Equal(t, []uint64{10, 20}, amounts)
	assert.Nil(t, req.MemoBytes())
}

func TestParseRejects(t *testing.T) {
	addr := newAddress(t).String()
	long := make([]byte, dpc.MemoSize+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name string
		uri  string
	}{
		{"wrong scheme", "zcash:" + addr + "?amount=1"},
		{"missing address", "dpc:?amount=1"},
		{"missing amount", "dpc:" + addr},
		{"negative amount", "dpc:" + addr + "?amount=-1"},
		{"fractional amount", "dpc:" + addr + "?amount=1.5"},
		{"bad address", "dpc:nope?amount=1"},
		{"indexed memo", "dpc:?address.1=" + addr + "&amount.1=1&memo.1=x"},
		{"indexed missing amount", "dpc:?address.1=" + addr},
		{"base address and indexed", "dpc:" + addr + "?address.1=" + addr + "&amount.1=1"},
		{"long memo", "dpc:" + addr + "?amount=1&memo=" + string(long)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.uri)
			assert.Error(t, err)
		})
	}

	_, err := Parse("dpc:nope?amount=1")
	assert.True(t, errors.Is(err, dpc.ErrInvalidAddress))
}

func TestEncodeRoundTrip(t *testing.T) {
	memo := "rent"
	label := "landlord"

	requests := []*PaymentRequest{
		{Payments: []Payment{{Address: newAddress(t), Amount: 5, Label: &label}}},
		{Payments: []Payment{{Address: newAddress(t), Amount: 1}, {Address: newAddress(t), Amount: 2}}, Memo: &memo},
	}

	for _, req := range requests {
		parsed, err := Parse(req.Encode())
		require.NoError(t, err, req.Encode())
		assert.Equal(t, req, parsed)
	}
}
