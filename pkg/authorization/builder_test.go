package authorization

import (
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
	"github.com/suffix-labs/dpc-auth/pkg/dpc"
	"github.com/suffix-labs/dpc-auth/pkg/metrics"
)

func newTestnet(t *testing.T) *dpc.Testnet {
	t.Helper()
	tn, err := dpc.LoadTestnet()
	require.NoError(t, err)
	return tn
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey(rand.Reader)
	require.NoError(t, err)
	return key
}

func newAddress(t *testing.T, tn *dpc.Testnet) dpc.Address {
	t.Helper()
	addr, err := tn.AddressFromPrivateKey(newKey(t))
	require.NoError(t, err)
	return addr
}

// mintRecord creates a spendable record owned by key.
func mintRecord(t *testing.T, tn *dpc.Testnet, key *crypto.PrivateKey, value uint64) dpc.Record {
	t.Helper()
	owner, err := tn.AddressFromPrivateKey(key)
	require.NoError(t, err)

	var seed [32]byte
	_, err = rand.Read(seed[:])
	require.NoError(t, err)
	nonce, err := tn.SerialNumberNonce(seed[:])
	require.NoError(t, err)

	record, err := tn.NewRecord(tn.NoopProgram(), owner, false, value, dpc.Payload{}, nonce, rand.Reader)
	require.NoError(t, err)
	return *record
}

// shapedBuilder returns a builder with the given number of funded inputs
// and outputs.
func shapedBuilder(t *testing.T, tn *dpc.Testnet, inputs, outputs int, opts ...Option) Builder {
	t.Helper()
	b := NewBuilder(tn, opts...)
	var err error
	for i := 0; i < inputs; i++ {
		key := newKey(t)
		b, err = b.AddInput(key, mintRecord(t, tn, key, 100))
		require.NoError(t, err)
	}
	for i := 0; i < outputs; i++ {
		b, err = b.AddOutput(newAddress(t, tn), 50)
		require.NoError(t, err)
	}
	return b
}

func TestNewBuilderDefaults(t *testing.T) {
	b := NewBuilder(newTestnet(t))
	assert.Equal(t, dpc.TestnetNetworkID, b.NetworkIDValue())
	assert.Nil(t, b.MemoValue())
	assert.Empty(t, b.Inputs())
	assert.Empty(t, b.Outputs())
}

func TestBuilderIsAValue(t *testing.T) {
	tn := newTestnet(t)
	base := shapedBuilder(t, tn, 1, 1)

	left, err := base.AddOutput(newAddress(t, tn), 1)
	require.NoError(t, err)
	right, err := base.AddOutput(newAddress(t, tn), 2)
	require.NoError(t, err)

	assert.Len(t, base.Outputs(), 1)
	require.Len(t, left.Outputs(), 2)
	require.Len(t, right.Outputs(), 2)
	assert.Equal(t, uint64(1), left.Outputs()[1].Amount)
	assert.Equal(t, uint64(2), right.Outputs()[1].Amount)

	withMemo := base.Memo(dpc.Memo{0x01}).NetworkID(9)
	assert.Nil(t, base.MemoValue())
	assert.Equal(t, dpc.TestnetNetworkID, base.NetworkIDValue())
	assert.Equal(t, uint8(9), withMemo.NetworkIDValue())
	assert.Equal(t, dpc.Memo{0x01}, *withMemo.MemoValue())

	// Accessors hand out copies.
	outs := base.Outputs()
	outs[0].Amount = 999
	assert.Equal(t, uint64(50), base.Outputs()[0].Amount)
	withMemo.MemoValue()[0] = 0xff
	assert.Equal(t, byte(0x01), withMemo.MemoValue()[0])
}

func TestAddInputBoundary(t *testing.T) {
	tn := newTestnet(t)
	b := shapedBuilder(t, tn, dpc.NumInputRecords, 1)

	// One append past the maximum is still accepted.
	key := newKey(t)
	b, err := b.AddInput(key, mintRecord(t, tn, key, 1))
	require.NoError(t, err)
	assert.Len(t, b.Inputs(), dpc.NumInputRecords+1)

	rejected, err := b.AddInput(key, mintRecord(t, tn, key, 1))
	var countErr *InvalidInputCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, dpc.NumInputRecords+2, countErr.Actual)
	assert.Equal(t, dpc.NumInputRecords, countErr.Max)
	assert.True(t, errors.Is(err, ErrInvalidInputCount))
	assert.Len(t, rejected.Inputs(), dpc.NumInputRecords+1)

	_, err = b.Build(rand.Reader)
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, dpc.NumInputRecords+1, countErr.Actual)
	assert.Equal(t, dpc.NumInputRecords, countErr.Max)
}

func TestAddOutputBoundary(t *testing.T) {
	tn := newTestnet(t)
	b := shapedBuilder(t, tn, 1, dpc.NumOutputRecords)

	b, err := b.AddOutput(newAddress(t, tn), 1)
	require.NoError(t, err)

	_, err = b.AddOutput(newAddress(t, tn), 1)
	var countErr *InvalidOutputCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, dpc.NumOutputRecords+2, countErr.Actual)
	assert.Equal(t, dpc.NumOutputRecords, countErr.Max)

	_, err = b.Build(rand.Reader)
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, dpc.NumOutputRecords+1, countErr.Actual)
	assert.True(t, errors.Is(err, ErrInvalidOutputCount))
	assert.False(t, errors.Is(err, ErrInvalidInputCount))
}

func TestBuildMissingOutputs(t *testing.T) {
	tn := newTestnet(t)
	_, err := shapedBuilder(t, tn, 1, 0).Build(rand.Reader)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingOutputs))
	assert.False(t, errors.Is(err, ErrInvalidOutputCount))
	assert.Equal(t, "transaction authorization is missing outputs", err.Error())
}

func TestBuildMissingInputs(t *testing.T) {
	tn := newTestnet(t)
	_, err := shapedBuilder(t, tn, 0, 1).Build(rand.Reader)
	var countErr *InvalidInputCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, 0, countErr.Actual)
}

func TestBuildConstantLength(t *testing.T) {
	tn := newTestnet(t)

	var lengths []int
	for _, inputs := range []int{1, dpc.NumInputRecords} {
		for _, outputs := range []int{1, dpc.NumOutputRecords} {
			auth, err := shapedBuilder(t, tn, inputs, outputs).Build(rand.Reader)
			require.NoError(t, err, "inputs=%d outputs=%d", inputs, outputs)

			b, err := auth.Bytes()
			require.NoError(t, err)
			require.NotEmpty(t, b)
			lengths = append(lengths, len(b))
		}
	}

	for _, l := range lengths[1:] {
		assert.Equal(t, lengths[0], l)
	}
}

func TestBuildObservesLoggerAndMetrics(t *testing.T) {
	tn := newTestnet(t)
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector("test", reg)
	require.NoError(t, err)

	b := shapedBuilder(t, tn, 1, 1, WithLogger(zap.New(core)), WithMetrics(collector))
	_, err = b.Build(rand.Reader)
	require.NoError(t, err)

	_, err = shapedBuilder(t, tn, 1, 0, WithLogger(zap.New(core)), WithMetrics(collector)).Build(rand.Reader)
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("padded input with dummy record").Len())
	assert.Equal(t, 1, logs.FilterMessage("padded output with dummy record").Len())
	assert.Equal(t, 1, logs.FilterMessage("built transaction authorization").Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to build transaction authorization").Len())

	expected := `
# HELP test_authorizations_total Number of authorization builds by result
# TYPE test_authorizations_total counter
test_authorizations_total{result="failure"} 1
test_authorizations_total{result="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_authorizations_total"))
}

// failingScheme delegates to the testnet and fails the named operation.
type failingScheme struct {
	*dpc.Testnet
	failOn string
}

var errProvider = errors.New("provider failure")

func (s failingScheme) SerialNumber(record *dpc.Record, key *crypto.PrivateKey) (dpc.SerialNumber, []byte, error) {
	if s.failOn == "serial number" {
		return dpc.SerialNumber{}, nil, errProvider
	}
	return s.Testnet.SerialNumber(record, key)
}

func (s failingScheme) NewFullRecord(program dpc.ProgramID, owner dpc.Address, isDummy bool, value uint64, payload dpc.Payload, position uint8, joint []byte, rng io.Reader) (*dpc.Record, error) {
	if s.failOn == "new output record" {
		return nil, errProvider
	}
	return s.Testnet.NewFullRecord(program, owner, isDummy, value, payload, position, joint, rng)
}

func (s failingScheme) Authorize(keys []*crypto.PrivateKey, inputs, outputs []dpc.Record, memo *dpc.Memo, networkID uint8, rng io.Reader) (*dpc.Authorization, error) {
	if s.failOn == "authorize" {
		return nil, errProvider
	}
	return s.Testnet.Authorize(keys, inputs, outputs, memo, networkID, rng)
}

func TestBuildPropagatesSchemeErrors(t *testing.T) {
	tn := newTestnet(t)
	key := newKey(t)
	record := mintRecord(t, tn, key, 10)
	recipient := newAddress(t, tn)

	for _, op := range []string{"serial number", "new output record", "authorize"} {
		t.Run(op, func(t *testing.T) {
			b, err := NewBuilder(failingScheme{Testnet: tn, failOn: op}).AddInput(key, record)
			require.NoError(t, err)
			b, err = b.AddOutput(recipient, 5)
			require.NoError(t, err)

			_, err = b.Build(rand.Reader)
			var schemeErr *SchemeError
			require.ErrorAs(t, err, &schemeErr)
			assert.Equal(t, op, schemeErr.Op)
			assert.Equal(t, errProvider, schemeErr.Unwrap())
			assert.True(t, errors.Is(err, errProvider))
		})
	}
}

func TestBuildNilScheme(t *testing.T) {
	tn := newTestnet(t)
	key := newKey(t)
	b, err := NewBuilder(nil).AddInput(key, mintRecord(t, tn, key, 1))
	require.NoError(t, err)
	b, err = b.AddOutput(newAddress(t, tn), 1)
	require.NoError(t, err)

	_, err = b.Build(rand.Reader)
	assert.True(t, errors.Is(err, ErrNilScheme))
}
