package dpc

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/cockroachdb/errors"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
)

// AddressVersion is the base58check version byte of textual addresses.
const AddressVersion = 0x1e

// AddressFromPublicKey returns the address owned by the given public key.
func AddressFromPublicKey(pub *crypto.PublicKey) Address {
	return Address(pub.SerializeCompressed())
}

// ParseAddress decodes a base58check address.
func ParseAddress(s string) (Address, error) {
	var addr Address

	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return addr, errors.Wrapf(ErrInvalidAddress, "%q: %v", s, err)
	}
	if version != AddressVersion {
		return addr, errors.Wrapf(ErrInvalidAddress, "%q: unexpected version byte 0x%02x", s, version)
	}
	if len(payload) != len(addr) {
		return addr, errors.Wrapf(ErrInvalidAddress, "%q: payload is %d bytes", s, len(payload))
	}

	copy(addr[:], payload)
	if _, err := addr.PublicKey(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// PublicKey returns the public key behind the address.
func (a Address) PublicKey() (*crypto.PublicKey, error) {
	pub, err := crypto.ParsePublicKey(a[:])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAddress, "%v", err)
	}
	return pub, nil
}

// String returns the base58check form of the address.
func (a Address) String() string {
	return base58.CheckEncode(a[:], AddressVersion)
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
