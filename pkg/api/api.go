// Package api provides the high-level string-based API over the
// authorization builder.
//
// It is the main entry point for applications that deal in WIF keys,
// base58check addresses, hex records and payment request URIs rather than
// scheme-native values:
//
//  1. GenerateKey - Creates a spender key and its address
//  2. NewRecord - Mints a spendable record (testnet helper)
//  3. ProposeAuthorization - Builds and signs an authorization
//  4. ParseAuthorization / InspectAuthorization - Text decoding
//  5. VerifyAuthorization - Checks signatures and commitments
//  6. OutputsFromPaymentRequest - Turns a "dpc:" URI into outputs
package api

import (
	"crypto/rand"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/suffix-labs/dpc-auth/pkg/authorization"
	"github.com/suffix-labs/dpc-auth/pkg/crypto"
	"github.com/suffix-labs/dpc-auth/pkg/dpc"
	"github.com/suffix-labs/dpc-auth/pkg/payreq"
)

// Input is one spend.
type Input struct {
	KeyWIF string // Spender key in WIF
	Record string // Hex record owned by the key
}

// Output is one payment.
type Output struct {
	Address string // base58check recipient address
	Amount  uint64 // Amount in base units
}

// AuthorizationProposal contains everything needed to build an
// authorization.
type AuthorizationProposal struct {
	Inputs    []Input
	Outputs   []Output
	NetworkID uint8  // Network id (0 = testnet default)
	Memo      []byte // Optional memo, at most dpc.MemoSize bytes
}

// RecordSummary is the readable form of one record.
type RecordSummary struct {
	Owner   string `json:"owner"`
	Value   uint64 `json:"value"`
	IsDummy bool   `json:"is_dummy"`
}

// AuthorizationSummary is the readable form of an authorization.
type AuthorizationSummary struct {
	NetworkID     uint8           `json:"network_id"`
	SerialNumbers []string        `json:"serial_numbers"`
	ValueBalance  int64           `json:"value_balance"`
	Memo          []byte          `json:"memo,omitempty"`
	Inputs        []RecordSummary `json:"inputs"`
	Outputs       []RecordSummary `json:"outputs"`
}

// ============================================================================
// API Function 1: GenerateKey
// ============================================================================

// GenerateKey creates a fresh spender key.
//
// Returns:
//   - The key in compressed WIF
//   - The address owning records spendable by the key
func GenerateKey(scheme dpc.Scheme, testnet bool) (string, string, error) {
	key, err := crypto.GeneratePrivateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	addr, err := scheme.AddressFromPrivateKey(key)
	if err != nil {
		return "", "", err
	}
	return key.WIF(testnet), addr.String(), nil
}

// ============================================================================
// API Function 2: NewRecord
// ============================================================================

// NewRecord mints a non-dummy record of the given value owned by address,
// bound to the scheme's no-op program. Its serial number nonce is the CRH
// of fresh randomness.
func NewRecord(scheme dpc.Scheme, address string, value uint64, rng io.Reader) (string, error) {
	owner, err := dpc.ParseAddress(address)
	if err != nil {
		return "", err
	}

	var seed [32]byte
	if _, err := io.ReadFull(rng, seed[:]); err != nil {
		return "", errors.Wrap(err, "read nonce seed")
	}
	nonce, err := scheme.SerialNumberNonce(seed[:])
	if err != nil {
		return "", err
	}

	record, err := scheme.NewRecord(scheme.NoopProgram(), owner, false, value, dpc.Payload{}, nonce, rng)
	if err != nil {
		return "", err
	}
	return record.String(), nil
}

// ============================================================================
// API Function 3: ProposeAuthorization
// ============================================================================

// ProposeAuthorization decodes the proposal, runs it through the builder
// and returns the canonical text form of the authorization.
func ProposeAuthorization(scheme dpc.Scheme, proposal *AuthorizationProposal, rng io.Reader, opts ...authorization.Option) (string, error) {
	b := authorization.NewBuilder(scheme, opts...)
	if proposal.NetworkID != 0 {
		b = b.NetworkID(proposal.NetworkID)
	}
	if proposal.Memo != nil {
		if len(proposal.Memo) > dpc.MemoSize {
			return "", errors.Newf("memo is %d bytes, max %d", len(proposal.Memo), dpc.MemoSize)
		}
		var memo dpc.Memo
		copy(memo[:], proposal.Memo)
		b = b.Memo(memo)
	}

	for i, in := range proposal.Inputs {
		key, err := crypto.ParsePrivateKeyWIF(in.KeyWIF)
		if err != nil {
			return "", errors.Wrapf(err, "input %d key", i)
		}
		record, err := dpc.ParseRecord(in.Record)
		if err != nil {
			return "", errors.Wrapf(err, "input %d record", i)
		}
		if b, err = b.AddInput(key, *record); err != nil {
			return "", err
		}
	}

	for i, out := range proposal.Outputs {
		addr, err := dpc.ParseAddress(out.Address)
		if err != nil {
			return "", errors.Wrapf(err, "output %d", i)
		}
		if b, err = b.AddOutput(addr, out.Amount); err != nil {
			return "", err
		}
	}

	auth, err := b.Build(rng)
	if err != nil {
		return "", err
	}
	return auth.String(), nil
}

// ============================================================================
// API Function 4: ParseAuthorization / InspectAuthorization
// ============================================================================

// ParseAuthorization decodes the canonical text form.
func ParseAuthorization(text string) (*authorization.TransactionAuthorization, error) {
	return authorization.ParseTransactionAuthorization(text)
}

// InspectAuthorization decodes the canonical text form into a summary.
func InspectAuthorization(text string) (*AuthorizationSummary, error) {
	auth, err := ParseAuthorization(text)
	if err != nil {
		return nil, err
	}
	native := auth.Native()

	summary := &AuthorizationSummary{
		NetworkID:    native.NetworkID,
		ValueBalance: native.ValueBalance,
		Inputs:       summarizeRecords(native.InputRecords),
		Outputs:      summarizeRecords(native.OutputRecords),
	}
	for _, sn := range native.SerialNumbers {
		summary.SerialNumbers = append(summary.SerialNumbers, sn.String())
	}
	if native.Memo != nil {
		summary.Memo = append([]byte(nil), native.Memo[:]...)
	}
	return summary, nil
}

func summarizeRecords(records []dpc.Record) []RecordSummary {
	out := make([]RecordSummary, len(records))
	for i, r := range records {
		out[i] = RecordSummary{Owner: r.Owner.String(), Value: r.Value, IsDummy: r.IsDummy}
	}
	return out
}

// ============================================================================
// API Function 5: VerifyAuthorization
// ============================================================================

// VerifyAuthorization decodes the canonical text form and checks it.
func VerifyAuthorization(verifier dpc.Verifier, text string) error {
	auth, err := ParseAuthorization(text)
	if err != nil {
		return err
	}
	return verifier.Verify(auth.Native())
}

// ============================================================================
// API Function 6: OutputsFromPaymentRequest
// ============================================================================

// OutputsFromPaymentRequest parses a payment request URI into outputs and
// the transaction memo it carries, if any.
func OutputsFromPaymentRequest(uri string) ([]Output, []byte, error) {
	req, err := payreq.Parse(uri)
	if err != nil {
		return nil, nil, err
	}

	recipients, amounts := req.Outputs()
	outputs := make([]Output, len(recipients))
	for i := range recipients {
		outputs[i] = Output{Address: recipients[i].String(), Amount: amounts[i]}
	}

	var memo []byte
	if m := req.MemoBytes(); m != nil {
		memo = m[:]
	}
	return outputs, memo, nil
}
