package dpc

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidRecordCount is returned when the number of keys or records
	// handed to the scheme does not match its fixed arity.
	ErrInvalidRecordCount = errors.New("invalid number of records")
	// ErrOwnerMismatch is returned when a private key does not own the record
	// it is paired with.
	ErrOwnerMismatch = errors.New("private key does not own record")
	// ErrInvalidCommitment is returned when a record's commitment does not
	// open to its contents.
	ErrInvalidCommitment = errors.New("record commitment mismatch")
	// ErrInvalidNonce is returned when an output record's serial number nonce
	// is not bound to the joint serial numbers of the transaction.
	ErrInvalidNonce = errors.New("output nonce not bound to joint serial numbers")
	// ErrInvalidSignature is returned when an authorization signature does
	// not verify against its input owner.
	ErrInvalidSignature = errors.New("invalid authorization signature")
	// ErrValueBalanceOverflow is returned when record values cannot be
	// represented as a signed value balance.
	ErrValueBalanceOverflow = errors.New("value balance overflow")
	// ErrValueBalanceMismatch is returned when an authorization's value
	// balance disagrees with its records.
	ErrValueBalanceMismatch = errors.New("value balance mismatch")
	// ErrInsufficientRandomness is returned when the randomness source
	// cannot supply enough bytes.
	ErrInsufficientRandomness = errors.New("randomness source exhausted")
	// ErrInvalidAddress is returned for malformed addresses.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidParameters is returned when the scheme cannot be loaded.
	ErrInvalidParameters = errors.New("invalid scheme parameters")
	// ErrNilPrivateKey is returned when a key slot is empty.
	ErrNilPrivateKey = errors.New("nil private key")
)

// ParseError is returned when decoding a record or an authorization fails.
//
// This occurs when the input data is not a valid encoding (wrong magic
// bytes, unsupported version, truncated or trailing data, malformed hex).
type ParseError struct {
	Message string // Human-readable error message
	Cause   error  // Underlying decode error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
