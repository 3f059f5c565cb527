package authorization

import (
	"encoding/hex"
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
	"github.com/suffix-labs/dpc-auth/pkg/dpc"
	"github.com/suffix-labs/dpc-auth/pkg/metrics"
)

// dummySeedSize is the number of rng bytes hashed into a dummy input nonce.
const dummySeedSize = 32

// TransactionAuthorization is a signed, scheme-native authorization ready
// for a later proving stage.
type TransactionAuthorization struct {
	native *dpc.Authorization
}

// paddedRecordSet is the fixed-arity record set handed to Scheme.Authorize.
type paddedRecordSet struct {
	keys               []*crypto.PrivateKey
	inputs             []dpc.Record
	outputs            []dpc.Record
	jointSerialNumbers []byte
	dummyInputs        int
	dummyOutputs       int
}

// NewTransactionAuthorization pads the given spends and payments to the
// scheme's fixed arity and asks the scheme to authorize them.
//
// Parameters:
//   - spenders, recordsToSpend: order-paired, 1 to dpc.NumInputRecords each
//   - recipients, amounts: order-paired, 1 to dpc.NumOutputRecords each
//   - networkID: network the authorization is bound to
//   - memo: optional transaction memo
//   - rng: cryptographically secure randomness for dummy records and blinding
//
// Provider failures are returned as *SchemeError.
func NewTransactionAuthorization(
	scheme dpc.Scheme,
	spenders []*crypto.PrivateKey,
	recordsToSpend []dpc.Record,
	recipients []dpc.Address,
	amounts []uint64,
	networkID uint8,
	memo *dpc.Memo,
	rng io.Reader,
	opts ...Option,
) (*TransactionAuthorization, error) {
	return newTransactionAuthorization(scheme, spenders, recordsToSpend, recipients, amounts, networkID, memo, rng, newOptions(opts))
}

func newTransactionAuthorization(
	scheme dpc.Scheme,
	spenders []*crypto.PrivateKey,
	recordsToSpend []dpc.Record,
	recipients []dpc.Address,
	amounts []uint64,
	networkID uint8,
	memo *dpc.Memo,
	rng io.Reader,
	o options,
) (*TransactionAuthorization, error) {
	set, err := padRecords(scheme, spenders, recordsToSpend, recipients, amounts, rng, o.logger)
	if err != nil {
		return nil, err
	}

	native, err := scheme.Authorize(set.keys, set.inputs, set.outputs, memo, networkID, rng)
	if err != nil {
		return nil, schemeError("authorize", err)
	}

	o.metrics.ObserveDummy(metrics.KindInput, set.dummyInputs)
	o.metrics.ObserveDummy(metrics.KindOutput, set.dummyOutputs)
	o.metrics.ObserveAuthorization(networkID, amounts...)

	o.logger.Info("built transaction authorization",
		zap.Uint8("network_id", networkID),
		zap.Int("dummy_inputs", set.dummyInputs),
		zap.Int("dummy_outputs", set.dummyOutputs),
		zap.Strings("serial_numbers", serialNumberStrings(native.SerialNumbers)),
		zap.Bool("memo", memo != nil))

	return &TransactionAuthorization{native: native}, nil
}

// padRecords validates the request shape and produces the padded record set.
func padRecords(
	scheme dpc.Scheme,
	spenders []*crypto.PrivateKey,
	recordsToSpend []dpc.Record,
	recipients []dpc.Address,
	amounts []uint64,
	rng io.Reader,
	logger *zap.Logger,
) (*paddedRecordSet, error) {
	if scheme == nil {
		return nil, ErrNilScheme
	}

	switch {
	case len(spenders) == 0 || len(spenders) > dpc.NumInputRecords:
		return nil, &InvalidInputCountError{Actual: len(spenders), Max: dpc.NumInputRecords}
	case len(spenders) != len(recordsToSpend):
		return nil, internalError("%d spender keys for %d records", len(spenders), len(recordsToSpend))
	case len(recipients) == 0:
		return nil, ErrMissingOutputs
	case len(recipients) > dpc.NumOutputRecords:
		return nil, &InvalidOutputCountError{Actual: len(recipients), Max: dpc.NumOutputRecords}
	case len(recipients) != len(amounts):
		return nil, internalError("%d recipients for %d amounts", len(recipients), len(amounts))
	}
	for i, key := range spenders {
		if key == nil {
			return nil, errors.Wrapf(dpc.ErrNilPrivateKey, "spender %d", i)
		}
	}

	noop := scheme.NoopProgram()
	set := &paddedRecordSet{
		keys:    append(make([]*crypto.PrivateKey, 0, dpc.NumInputRecords), spenders...),
		inputs:  append(make([]dpc.Record, 0, dpc.NumInputRecords), recordsToSpend...),
		outputs: make([]dpc.Record, 0, dpc.NumOutputRecords),
	}

	// Dummy inputs are owned by, and spent with, the first spender key.
	firstOwner, err := scheme.AddressFromPrivateKey(spenders[0])
	if err != nil {
		return nil, schemeError("address from private key", err)
	}
	for len(set.inputs) < dpc.NumInputRecords {
		var seed [dummySeedSize]byte
		if _, err := io.ReadFull(rng, seed[:]); err != nil {
			return nil, errors.Wrap(err, "read dummy record seed")
		}
		nonce, err := scheme.SerialNumberNonce(seed[:])
		if err != nil {
			return nil, schemeError("serial number nonce", err)
		}
		dummy, err := scheme.NewRecord(noop, firstOwner, true, 0, dpc.Payload{}, nonce, rng)
		if err != nil {
			return nil, schemeError("new dummy record", err)
		}

		set.inputs = append(set.inputs, *dummy)
		set.keys = append(set.keys, spenders[0])
		set.dummyInputs++
		logger.Debug("padded input with dummy record", zap.Int("slot", len(set.inputs)-1))
	}

	for i := range set.inputs {
		owner, err := scheme.AddressFromPrivateKey(set.keys[i])
		if err != nil {
			return nil, schemeError("address from private key", err)
		}
		if owner != set.inputs[i].Owner {
			return nil, internalError("input %d: key address %s does not own record of %s", i, owner, set.inputs[i].Owner)
		}
	}

	type outputSlot struct {
		recipient dpc.Address
		amount    uint64
		isDummy   bool
	}
	slots := make([]outputSlot, 0, dpc.NumOutputRecords)
	for i := range recipients {
		slots = append(slots, outputSlot{recipient: recipients[i], amount: amounts[i]})
	}
	for len(slots) < dpc.NumOutputRecords {
		slots = append(slots, outputSlot{recipient: recipients[0], isDummy: true})
		set.dummyOutputs++
		logger.Debug("padded output with dummy record", zap.Int("slot", len(slots)-1))
	}

	set.jointSerialNumbers = make([]byte, 0, dpc.NumInputRecords*len(dpc.SerialNumber{}))
	for i := range set.inputs {
		sn, _, err := scheme.SerialNumber(&set.inputs[i], set.keys[i])
		if err != nil {
			return nil, schemeError("serial number", err)
		}
		set.jointSerialNumbers = append(set.jointSerialNumbers, sn.Bytes()...)
	}

	for j, slot := range slots {
		position := uint8(dpc.NumInputRecords + j)
		record, err := scheme.NewFullRecord(noop, slot.recipient, slot.isDummy, slot.amount, dpc.Payload{}, position, set.jointSerialNumbers, rng)
		if err != nil {
			return nil, schemeError("new output record", err)
		}
		set.outputs = append(set.outputs, *record)
	}

	if len(set.keys) != dpc.NumInputRecords || len(set.inputs) != dpc.NumInputRecords || len(set.outputs) != dpc.NumOutputRecords {
		return nil, internalError("padded to %d keys, %d inputs, %d outputs", len(set.keys), len(set.inputs), len(set.outputs))
	}

	return set, nil
}

func serialNumberStrings(sns []dpc.SerialNumber) []string {
	out := make([]string, len(sns))
	for i, sn := range sns {
		out[i] = sn.String()
	}
	return out
}

// ============================================================================
// Encoding
// ============================================================================

// Bytes returns the canonical little-endian encoding. A well-formed
// authorization always encodes; a failure is an internal inconsistency.
func (ta *TransactionAuthorization) Bytes() ([]byte, error) {
	b, err := dpc.Serialize(ta.native)
	if err != nil {
		return nil, internalError("serialize authorization: %v", err)
	}
	return b, nil
}

// String returns the canonical text form: lower-case hex of Bytes.
func (ta *TransactionAuthorization) String() string {
	b, err := ta.Bytes()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

// ParseTransactionAuthorization decodes the canonical text form.
func ParseTransactionAuthorization(s string) (*TransactionAuthorization, error) {
	ta := &TransactionAuthorization{}
	if err := ta.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return ta, nil
}

// TransactionAuthorizationFromBytes decodes the canonical byte encoding.
func TransactionAuthorizationFromBytes(b []byte) (*TransactionAuthorization, error) {
	ta := &TransactionAuthorization{}
	if err := ta.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return ta, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (ta *TransactionAuthorization) MarshalBinary() ([]byte, error) {
	return ta.Bytes()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (ta *TransactionAuthorization) UnmarshalBinary(b []byte) error {
	native, err := dpc.Parse(b)
	if err != nil {
		return err
	}
	ta.native = native
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (ta *TransactionAuthorization) MarshalText() ([]byte, error) {
	return ta.native.MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ta *TransactionAuthorization) UnmarshalText(text []byte) error {
	native := &dpc.Authorization{}
	if err := native.UnmarshalText(text); err != nil {
		return err
	}
	ta.native = native
	return nil
}

// NetworkID returns the network the authorization is bound to.
func (ta *TransactionAuthorization) NetworkID() uint8 {
	return ta.native.NetworkID
}

// SerialNumbers returns a copy of the input serial numbers.
func (ta *TransactionAuthorization) SerialNumbers() []dpc.SerialNumber {
	return append([]dpc.SerialNumber(nil), ta.native.SerialNumbers...)
}

// Native returns the scheme-native authorization. Callers must not modify it.
func (ta *TransactionAuthorization) Native() *dpc.Authorization {
	return ta.native
}
