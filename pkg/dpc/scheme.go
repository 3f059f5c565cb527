package dpc

import (
	"io"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
)

// Scheme is the scheme provider consumed by the authorization builder.
//
// Implementations own every cryptographic primitive: addresses, serial
// numbers, record commitments and the final authorization. The builder only
// normalizes its request to the fixed arity (NumInputRecords inputs,
// NumOutputRecords outputs) and sequences the calls.
type Scheme interface {
	// NoopProgram returns the program id of the program with no logic.
	NoopProgram() ProgramID

	// AddressFromPrivateKey derives the address owned by key. Deterministic.
	AddressFromPrivateKey(key *crypto.PrivateKey) (Address, error)

	// SerialNumberNonce hashes seed through the nonce CRH.
	SerialNumberNonce(seed []byte) (Nonce, error)

	// SerialNumber derives the serial number of record under key, plus the
	// scheme's auxiliary randomizer.
	SerialNumber(record *Record, key *crypto.PrivateKey) (SerialNumber, []byte, error)

	// NewRecord creates a record with the given serial number nonce.
	NewRecord(program ProgramID, owner Address, isDummy bool, value uint64, payload Payload, nonce Nonce, rng io.Reader) (*Record, error)

	// NewFullRecord creates an output record whose nonce is bound to its slot
	// position and to the joint serial numbers of the transaction.
	NewFullRecord(program ProgramID, owner Address, isDummy bool, value uint64, payload Payload, position uint8, jointSerialNumbers []byte, rng io.Reader) (*Record, error)

	// Authorize signs a fully padded record set.
	Authorize(keys []*crypto.PrivateKey, inputs, outputs []Record, memo *Memo, networkID uint8, rng io.Reader) (*Authorization, error)
}

// Verifier checks the integrity of an authorization produced by a Scheme.
type Verifier interface {
	Verify(auth *Authorization) error
}
