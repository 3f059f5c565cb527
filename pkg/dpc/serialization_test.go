package dpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkRoundTrip encodes an authorization, decodes it and encodes it again,
// failing if the two encodings differ.
func checkRoundTrip(t *testing.T, auth *Authorization) []byte {
	t.Helper()

	encoded, err := Serialize(auth)
	require.NoError(t, err)

	decoded, err := Parse(encoded)
	require.NoError(t, err)

	reencoded, err := Serialize(decoded)
	require.NoError(t, err)

	if !bytes.Equal(encoded, reencoded) {
		t.Fatalf("round trip mismatch:\noriginal:   %x\nre-encoded: %x", encoded, reencoded)
	}
	return encoded
}

func TestAuthorizationRoundTrip(t *testing.T) {
	tn := newTestnet(t)

	withoutMemo, _ := authorizeFixture(t, tn, nil)
	withMemo, _ := authorizeFixture(t, tn, &Memo{0xde, 0xad})

	a := checkRoundTrip(t, withoutMemo)
	b := checkRoundTrip(t, withMemo)
	assert.Equal(t, len(a)+MemoSize, len(b))
	assert.Equal(t, []byte(MagicBytes), a[:4])
}

func TestAuthorizationTextRoundTrip(t *testing.T) {
	tn := newTestnet(t)
	auth, _ := authorizeFixture(t, tn, &Memo{0x07})

	text, err := auth.MarshalText()
	require.NoError(t, err)

	var parsed Authorization
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, *auth, parsed)
	require.NoError(t, tn.Verify(&parsed))
}

func TestParseRejectsMalformed(t *testing.T) {
	tn := newTestnet(t)
	auth, _ := authorizeFixture(t, tn, nil)
	valid, err := Serialize(auth)
	require.NoError(t, err)

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 2

	badMemoTag := append([]byte(nil), valid...)
	// magic(4) + version(4) + network(1) + count(1) + sns(64) + balance(8)
	badMemoTag[4+4+1+1+64+8] = 0x02

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XXXX"), valid[4:]...)},
		{"bad version", badVersion},
		{"bad memo tag", badMemoTag},
		{"truncated", valid[:len(valid)-1]},
		{"trailing", append(append([]byte(nil), valid...), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestRecordEncoding(t *testing.T) {
	tn := newTestnet(t)
	record := mintRecord(t, tn, newKey(t), 12345, true)

	encoded, err := record.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, encoded, RecordSize)
	assert.Equal(t, byte(0x01), encoded[33])
	assert.Equal(t, []byte{0x39, 0x30, 0, 0, 0, 0, 0, 0}, encoded[34:42])

	parsed, err := ParseRecord(record.String())
	require.NoError(t, err)
	assert.Equal(t, record, *parsed)

	_, err = ParseRecord("zz")
	assert.Error(t, err)

	var short Record
	assert.Error(t, short.UnmarshalBinary(encoded[:RecordSize-1]))
}

func TestVarIntRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 127, 128, 300, 1 << 32, 1<<64 - 1} {
		buf := new(bytes.Buffer)
		encodeVarInt(buf, n)
		got, err := decodeVarInt(buf)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}
