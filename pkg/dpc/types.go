// Package dpc defines the scheme-native data types of the shielded
// (decentralized private computation) transaction scheme.
//
// The structure mirrors the scheme's fixed-arity transaction kernel:
//
//	Authorization
//	├── NetworkID
//	├── SerialNumbers     (one per input record, NumInputRecords)
//	├── ValueBalance      (sum of input values - sum of output values)
//	├── Memo              (optional, 64 bytes)
//	├── InputRecords      (NumInputRecords records being spent)
//	├── OutputRecords     (NumOutputRecords records being created)
//	└── Signatures        (one Schnorr signature per input key)
//
// Records are opaque value-bearing units. Dummy records carry zero value and
// exist only to fill the fixed number of input and output slots.
package dpc

import (
	"encoding/hex"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
)

// Scheme arity and field sizes.
const (
	NumInputRecords  = 2
	NumOutputRecords = 2

	PayloadSize = 128
	MemoSize    = 64

	// RecordSize is the length of the canonical record encoding.
	RecordSize = crypto.PublicKeySize + 1 + 8 + PayloadSize + 32 + 32 + 32 + 32

	// TestnetNetworkID is the network id new builders start with.
	TestnetNetworkID uint8 = 1
)

// Address is the owner of a record: the compressed public key of its
// spending key.
type Address [crypto.PublicKeySize]byte

// ProgramID identifies the program a record is bound to.
type ProgramID [32]byte

// Payload is the opaque data carried by a record.
type Payload [PayloadSize]byte

// Nonce is a serial-number nonce, the output of the scheme's nonce CRH.
type Nonce [32]byte

// SerialNumber reveals that a record was spent without revealing which one.
type SerialNumber [32]byte

// Bytes returns the little-endian canonical encoding of the serial number.
func (sn SerialNumber) Bytes() []byte {
	out := make([]byte, len(sn))
	copy(out, sn[:])
	return out
}

// String returns the hex form of the serial number.
func (sn SerialNumber) String() string {
	return hex.EncodeToString(sn[:])
}

// Memo is the transaction-wide memo field.
type Memo [MemoSize]byte

// Record is a shielded record.
type Record struct {
	Owner                Address
	IsDummy              bool
	Value                uint64
	Payload              Payload
	Program              ProgramID
	SerialNumberNonce    Nonce
	CommitmentRandomness [32]byte
	Commitment           [32]byte
}

// Authorization is the scheme-native transaction authorization produced by
// Scheme.Authorize and consumed by a later proving stage.
type Authorization struct {
	NetworkID     uint8
	SerialNumbers []SerialNumber
	ValueBalance  int64
	Memo          *Memo
	InputRecords  []Record
	OutputRecords []Record
	Signatures    [][crypto.SignatureSize]byte
}

// JointSerialNumbers returns the concatenation of all serial numbers in
// input order.
func (a *Authorization) JointSerialNumbers() []byte {
	joint := make([]byte, 0, len(a.SerialNumbers)*len(SerialNumber{}))
	for _, sn := range a.SerialNumbers {
		joint = append(joint, sn[:]...)
	}
	return joint
}
