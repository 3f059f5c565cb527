// Package authorization builds shielded transaction authorizations.
//
// The underlying scheme has a fixed arity of dpc.NumInputRecords inputs and
// dpc.NumOutputRecords outputs. Callers add one or two real inputs and one
// or two real outputs; the construction routine pads the rest with dummy
// records, derives the joint serial numbers that bind every output to the
// exact set of spent inputs, and delegates signing to the scheme provider.
//
// Typical use:
//
//	b := authorization.NewBuilder(scheme)
//	b, err = b.AddInput(key, record)
//	b, err = b.AddOutput(recipient, 100)
//	auth, err := b.Memo(memo).Build(rand.Reader)
package authorization

import (
	"io"

	"go.uber.org/zap"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
	"github.com/suffix-labs/dpc-auth/pkg/dpc"
	"github.com/suffix-labs/dpc-auth/pkg/metrics"
)

// TransactionInput is one spend: the owner key and the record it spends.
type TransactionInput struct {
	PrivateKey *crypto.PrivateKey
	Record     dpc.Record
}

// TransactionOutput is one payment.
type TransactionOutput struct {
	Recipient dpc.Address
	Amount    uint64
}

type options struct {
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a Builder or NewTransactionAuthorization.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. The default records nothing.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Builder accumulates the inputs, outputs and metadata of one transaction
// authorization.
//
// A Builder is a value. Every method returns a new Builder and leaves the
// receiver untouched, so builders can be shared and branched freely without
// locking.
type Builder struct {
	scheme    dpc.Scheme
	opts      options
	inputs    []TransactionInput
	outputs   []TransactionOutput
	networkID uint8
	memo      *dpc.Memo
}

// NewBuilder returns an empty builder on the testnet network id.
func NewBuilder(scheme dpc.Scheme, opts ...Option) Builder {
	return Builder{
		scheme:    scheme,
		opts:      newOptions(opts),
		networkID: dpc.TestnetNetworkID,
	}
}

func (b Builder) clone() Builder {
	b.inputs = append([]TransactionInput(nil), b.inputs...)
	b.outputs = append([]TransactionOutput(nil), b.outputs...)
	return b
}

// AddInput returns a builder with the spend appended.
//
// The bound check runs against the existing count with a strict '>', so
// one append past dpc.NumInputRecords is still accepted; Build rejects that
// count. On error the receiver is returned unchanged.
func (b Builder) AddInput(key *crypto.PrivateKey, record dpc.Record) (Builder, error) {
	if len(b.inputs) > dpc.NumInputRecords {
		return b, &InvalidInputCountError{Actual: len(b.inputs) + 1, Max: dpc.NumInputRecords}
	}

	next := b.clone()
	next.inputs = append(next.inputs, TransactionInput{PrivateKey: key, Record: record})
	return next, nil
}

// AddOutput returns a builder with the payment appended. The bound check
// mirrors AddInput.
func (b Builder) AddOutput(recipient dpc.Address, amount uint64) (Builder, error) {
	if len(b.outputs) > dpc.NumOutputRecords {
		return b, &InvalidOutputCountError{Actual: len(b.outputs) + 1, Max: dpc.NumOutputRecords}
	}

	next := b.clone()
	next.outputs = append(next.outputs, TransactionOutput{Recipient: recipient, Amount: amount})
	return next, nil
}

// NetworkID returns a builder targeting the given network.
func (b Builder) NetworkID(id uint8) Builder {
	next := b.clone()
	next.networkID = id
	return next
}

// Memo returns a builder carrying the given memo.
func (b Builder) Memo(memo dpc.Memo) Builder {
	next := b.clone()
	next.memo = &memo
	return next
}

// Inputs returns a copy of the accumulated inputs.
func (b Builder) Inputs() []TransactionInput {
	return append([]TransactionInput(nil), b.inputs...)
}

// Outputs returns a copy of the accumulated outputs.
func (b Builder) Outputs() []TransactionOutput {
	return append([]TransactionOutput(nil), b.outputs...)
}

// NetworkIDValue returns the target network id.
func (b Builder) NetworkIDValue() uint8 {
	return b.networkID
}

// MemoValue returns a copy of the memo, or nil if none was set.
func (b Builder) MemoValue() *dpc.Memo {
	if b.memo == nil {
		return nil
	}
	m := *b.memo
	return &m
}

// Build validates the accumulated counts and runs the construction routine.
//
// Inputs must number 1 or dpc.NumInputRecords. Zero outputs fail with
// ErrMissingOutputs; otherwise outputs must number 1 or dpc.NumOutputRecords.
func (b Builder) Build(rng io.Reader) (*TransactionAuthorization, error) {
	auth, err := b.build(rng)
	b.opts.metrics.ObserveBuild(err)
	if err != nil {
		b.opts.logger.Error("failed to build transaction authorization",
			zap.Int("inputs", len(b.inputs)),
			zap.Int("outputs", len(b.outputs)),
			zap.Error(err))
		return nil, err
	}
	return auth, nil
}

func (b Builder) build(rng io.Reader) (*TransactionAuthorization, error) {
	switch n := len(b.inputs); n {
	case 1, dpc.NumInputRecords:
	default:
		return nil, &InvalidInputCountError{Actual: n, Max: dpc.NumInputRecords}
	}

	switch n := len(b.outputs); n {
	case 0:
		return nil, ErrMissingOutputs
	case 1, dpc.NumOutputRecords:
	default:
		return nil, &InvalidOutputCountError{Actual: n, Max: dpc.NumOutputRecords}
	}

	spenders := make([]*crypto.PrivateKey, len(b.inputs))
	records := make([]dpc.Record, len(b.inputs))
	for i, in := range b.inputs {
		spenders[i] = in.PrivateKey
		records[i] = in.Record
	}

	recipients := make([]dpc.Address, len(b.outputs))
	amounts := make([]uint64, len(b.outputs))
	for i, out := range b.outputs {
		recipients[i] = out.Recipient
		amounts[i] = out.Amount
	}

	return newTransactionAuthorization(b.scheme, spenders, records, recipients, amounts, b.networkID, b.memo, rng, b.opts)
}
