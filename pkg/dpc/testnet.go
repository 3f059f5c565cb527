package dpc

import (
	"encoding/binary"
	"io"
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
)

// ============================================================================
// Testnet parameters
// ============================================================================

// BLAKE2b personalizations. Each is exactly crypto.PersonalizationSize bytes.
const (
	nonceCRHPersonalization     = "DPC_SNNonceCRH__"
	serialNumberPersonalization = "DPC_SerialNumber"
	randomizerPersonalization   = "DPC_SNRandomizer"
	commitmentPersonalization   = "DPC_RecordCommit"
	authDigestPersonalization   = "DPC_AuthDigest__"
	programIDPersonalization    = "DPC_ProgramID___"
)

// DefaultNoopProgramName is hashed into the no-op program id.
const DefaultNoopProgramName = "noop"

// commitmentRandomnessSize is the number of rng bytes blinding each record.
const commitmentRandomnessSize = 32

type testnetParams struct {
	noopProgramName string
}

// TestnetOption configures LoadTestnet.
type TestnetOption func(*testnetParams)

// WithNoopProgram overrides the name the no-op program id is derived from.
func WithNoopProgram(name string) TestnetOption {
	return func(p *testnetParams) {
		p.noopProgramName = name
	}
}

// Testnet is the reference scheme provider. It commits to records with
// personalized BLAKE2b-256 and signs authorizations with BIP-340 Schnorr
// signatures over secp256k1. It does not produce proofs.
//
// A Testnet is immutable after LoadTestnet and safe for concurrent use.
type Testnet struct {
	noopProgram ProgramID
}

var (
	_ Scheme   = (*Testnet)(nil)
	_ Verifier = (*Testnet)(nil)
)

// LoadTestnet validates the scheme parameters and derives the no-op program.
func LoadTestnet(opts ...TestnetOption) (*Testnet, error) {
	params := testnetParams{noopProgramName: DefaultNoopProgramName}
	for _, opt := range opts {
		opt(&params)
	}

	if params.noopProgramName == "" {
		return nil, errors.Wrap(ErrInvalidParameters, "empty no-op program name")
	}

	for _, p := range []string{
		nonceCRHPersonalization,
		serialNumberPersonalization,
		randomizerPersonalization,
		commitmentPersonalization,
		authDigestPersonalization,
		programIDPersonalization,
	} {
		if err := crypto.CheckPersonalization(p); err != nil {
			return nil, errors.Wrapf(ErrInvalidParameters, "%v", err)
		}
	}

	noop, err := crypto.Hash256(programIDPersonalization, []byte(params.noopProgramName))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidParameters, "derive no-op program: %v", err)
	}

	return &Testnet{noopProgram: noop}, nil
}

// NoopProgram implements Scheme.
func (t *Testnet) NoopProgram() ProgramID {
	return t.noopProgram
}

// AddressFromPrivateKey implements Scheme.
func (t *Testnet) AddressFromPrivateKey(key *crypto.PrivateKey) (Address, error) {
	if key == nil {
		return Address{}, ErrNilPrivateKey
	}
	return AddressFromPublicKey(key.PublicKey()), nil
}

// SerialNumberNonce implements Scheme.
func (t *Testnet) SerialNumberNonce(seed []byte) (Nonce, error) {
	return crypto.Hash256(nonceCRHPersonalization, seed)
}

// SerialNumber implements Scheme. It fails with ErrOwnerMismatch if key does
// not own record.
func (t *Testnet) SerialNumber(record *Record, key *crypto.PrivateKey) (SerialNumber, []byte, error) {
	owner, err := t.AddressFromPrivateKey(key)
	if err != nil {
		return SerialNumber{}, nil, err
	}
	if owner != record.Owner {
		return SerialNumber{}, nil, errors.Wrapf(ErrOwnerMismatch, "key address %s, record owner %s", owner, record.Owner)
	}

	sn, err := crypto.Hash256(serialNumberPersonalization, key.Bytes(), record.SerialNumberNonce[:])
	if err != nil {
		return SerialNumber{}, nil, err
	}
	randomizer, err := crypto.Hash256(randomizerPersonalization, sn[:])
	if err != nil {
		return SerialNumber{}, nil, err
	}

	return sn, randomizer[:], nil
}

// NewRecord implements Scheme. It reads the commitment randomness from rng.
func (t *Testnet) NewRecord(program ProgramID, owner Address, isDummy bool, value uint64, payload Payload, nonce Nonce, rng io.Reader) (*Record, error) {
	record := &Record{
		Owner:             owner,
		IsDummy:           isDummy,
		Value:             value,
		Payload:           payload,
		Program:           program,
		SerialNumberNonce: nonce,
	}

	if _, err := io.ReadFull(rng, record.CommitmentRandomness[:commitmentRandomnessSize]); err != nil {
		return nil, errors.Wrapf(ErrInsufficientRandomness, "commitment randomness: %v", err)
	}

	commitment, err := commitRecord(record)
	if err != nil {
		return nil, err
	}
	record.Commitment = commitment

	return record, nil
}

// NewFullRecord implements Scheme. The nonce is the CRH of the position byte
// followed by the joint serial numbers.
func (t *Testnet) NewFullRecord(program ProgramID, owner Address, isDummy bool, value uint64, payload Payload, position uint8, jointSerialNumbers []byte, rng io.Reader) (*Record, error) {
	nonce, err := t.outputNonce(position, jointSerialNumbers)
	if err != nil {
		return nil, err
	}
	return t.NewRecord(program, owner, isDummy, value, payload, nonce, rng)
}

// ============================================================================
// Authorization
// ============================================================================

// Authorize implements Scheme.
//
// Checks performed:
//   - exactly NumInputRecords keys and inputs, NumOutputRecords outputs
//   - every key owns its paired input record
//   - every record commitment opens
//   - every output nonce is bound to its position and the joint serial numbers
//   - the value balance fits in an int64
//
// Signatures are deterministic, so rng is not read.
func (t *Testnet) Authorize(keys []*crypto.PrivateKey, inputs, outputs []Record, memo *Memo, networkID uint8, rng io.Reader) (*Authorization, error) {
	if len(keys) != NumInputRecords || len(inputs) != NumInputRecords || len(outputs) != NumOutputRecords {
		return nil, errors.Wrapf(ErrInvalidRecordCount,
			"got %d keys, %d inputs, %d outputs; want %d, %d, %d",
			len(keys), len(inputs), len(outputs), NumInputRecords, NumInputRecords, NumOutputRecords)
	}

	auth := &Authorization{
		NetworkID:     networkID,
		SerialNumbers: make([]SerialNumber, 0, NumInputRecords),
		InputRecords:  append([]Record(nil), inputs...),
		OutputRecords: append([]Record(nil), outputs...),
		Signatures:    make([][crypto.SignatureSize]byte, 0, NumInputRecords),
	}
	if memo != nil {
		m := *memo
		auth.Memo = &m
	}

	for i := range auth.InputRecords {
		if keys[i] == nil {
			return nil, errors.Wrapf(ErrNilPrivateKey, "input %d", i)
		}
		if err := checkCommitment(&auth.InputRecords[i]); err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		sn, _, err := t.SerialNumber(&auth.InputRecords[i], keys[i])
		if err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		auth.SerialNumbers = append(auth.SerialNumbers, sn)
	}

	if err := t.checkOutputs(auth); err != nil {
		return nil, err
	}

	balance, err := valueBalance(auth.InputRecords, auth.OutputRecords)
	if err != nil {
		return nil, err
	}
	auth.ValueBalance = balance

	digest, err := authorizationDigest(auth)
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		sig, err := key.SignSchnorr(digest)
		if err != nil {
			return nil, errors.Wrapf(err, "sign input %d", i)
		}
		auth.Signatures = append(auth.Signatures, sig)
	}

	return auth, nil
}

// Verify implements Verifier. It checks shape, commitments, output nonce
// binding, value balance and every signature against its input owner.
// Serial numbers cannot be recomputed without the spending keys and are
// covered only through the signed digest.
func (t *Testnet) Verify(auth *Authorization) error {
	if auth == nil {
		return errors.Wrap(ErrInvalidRecordCount, "nil authorization")
	}
	if len(auth.SerialNumbers) != NumInputRecords ||
		len(auth.InputRecords) != NumInputRecords ||
		len(auth.OutputRecords) != NumOutputRecords ||
		len(auth.Signatures) != NumInputRecords {
		return errors.Wrapf(ErrInvalidRecordCount,
			"got %d serial numbers, %d inputs, %d outputs, %d signatures",
			len(auth.SerialNumbers), len(auth.InputRecords), len(auth.OutputRecords), len(auth.Signatures))
	}

	for i := range auth.InputRecords {
		if err := checkCommitment(&auth.InputRecords[i]); err != nil {
			return errors.Wrapf(err, "input %d", i)
		}
	}
	if err := t.checkOutputs(auth); err != nil {
		return err
	}

	balance, err := valueBalance(auth.InputRecords, auth.OutputRecords)
	if err != nil {
		return err
	}
	if balance != auth.ValueBalance {
		return errors.Wrapf(ErrValueBalanceMismatch, "records give %d, authorization claims %d", balance, auth.ValueBalance)
	}

	digest, err := authorizationDigest(auth)
	if err != nil {
		return err
	}
	for i := range auth.InputRecords {
		pub, err := auth.InputRecords[i].Owner.PublicKey()
		if err != nil {
			return errors.Wrapf(err, "input %d", i)
		}
		if !crypto.VerifySchnorr(pub, digest, auth.Signatures[i]) {
			return errors.Wrapf(ErrInvalidSignature, "input %d", i)
		}
	}

	return nil
}

func (t *Testnet) checkOutputs(auth *Authorization) error {
	joint := auth.JointSerialNumbers()
	for j := range auth.OutputRecords {
		output := &auth.OutputRecords[j]
		if err := checkCommitment(output); err != nil {
			return errors.Wrapf(err, "output %d", j)
		}
		want, err := t.outputNonce(uint8(NumInputRecords+j), joint)
		if err != nil {
			return err
		}
		if output.SerialNumberNonce != want {
			return errors.Wrapf(ErrInvalidNonce, "output %d", j)
		}
	}
	return nil
}

func (t *Testnet) outputNonce(position uint8, jointSerialNumbers []byte) (Nonce, error) {
	return t.SerialNumberNonce(append([]byte{position}, jointSerialNumbers...))
}

// ============================================================================
// Helpers
// ============================================================================

func commitRecord(r *Record) ([32]byte, error) {
	var dummy byte
	if r.IsDummy {
		dummy = 0x01
	}
	var value [8]byte
	binary.LittleEndian.PutUint64(value[:], r.Value)

	return crypto.Hash256(commitmentPersonalization,
		r.Program[:],
		r.Owner[:],
		[]byte{dummy},
		value[:],
		r.Payload[:],
		r.SerialNumberNonce[:],
		r.CommitmentRandomness[:],
	)
}

func checkCommitment(r *Record) error {
	commitment, err := commitRecord(r)
	if err != nil {
		return err
	}
	if commitment != r.Commitment {
		return ErrInvalidCommitment
	}
	return nil
}

// valueBalance returns the sum of input values minus the sum of output values.
func valueBalance(inputs, outputs []Record) (int64, error) {
	sum := func(records []Record) (uint64, error) {
		var total, carry uint64
		for i := range records {
			total, carry = bits.Add64(total, records[i].Value, 0)
			if carry != 0 {
				return 0, errors.Wrap(ErrValueBalanceOverflow, "record values exceed 2^64")
			}
		}
		return total, nil
	}

	in, err := sum(inputs)
	if err != nil {
		return 0, err
	}
	out, err := sum(outputs)
	if err != nil {
		return 0, err
	}

	if in >= out {
		if in-out > math.MaxInt64 {
			return 0, errors.Wrapf(ErrValueBalanceOverflow, "inputs %d, outputs %d", in, out)
		}
		return int64(in - out), nil
	}
	if out-in > math.MaxInt64 {
		return 0, errors.Wrapf(ErrValueBalanceOverflow, "inputs %d, outputs %d", in, out)
	}
	return -int64(out - in), nil
}

func authorizationDigest(auth *Authorization) ([32]byte, error) {
	parts := [][]byte{{auth.NetworkID}, auth.JointSerialNumbers()}
	for i := range auth.OutputRecords {
		parts = append(parts, auth.OutputRecords[i].Commitment[:])
	}

	var balance [8]byte
	binary.LittleEndian.PutUint64(balance[:], uint64(auth.ValueBalance))
	parts = append(parts, balance[:])

	if auth.Memo == nil {
		parts = append(parts, []byte{0x00})
	} else {
		parts = append(parts, []byte{0x01}, auth.Memo[:])
	}

	return crypto.Hash256(authDigestPersonalization, parts...)
}
