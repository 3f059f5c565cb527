// Package crypto implements the secp256k1 key material and the hashing
// primitives used by the shielded authorization scheme.
//
// Key formats:
//   - Private keys: WIF (Wallet Import Format) or raw 32 bytes
//   - Public keys: Compressed 33-byte format (0x02/0x03 prefix + x-coordinate)
//   - Signatures: 64-byte BIP-340 style Schnorr (EC-Schnorr-DCRv0)
//
// Spender keys own shielded records: the record owner address is the
// compressed public key of the spender, and every input of an authorization
// carries one Schnorr signature over the authorization digest.
package crypto

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcutil/base58"
	"github.com/cockroachdb/errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

const (
	// PrivateKeySize is the length of a raw private key.
	PrivateKeySize = 32
	// PublicKeySize is the length of a compressed public key.
	PublicKeySize = 33
	// SignatureSize is the length of a serialized Schnorr signature.
	SignatureSize = 64

	// WIF version bytes.
	wifMainnetVersion = 0x80
	wifTestnetVersion = 0xef
	wifCompressedFlag = 0x01
)

var (
	// ErrInvalidWIF is returned when a WIF string cannot be decoded.
	ErrInvalidWIF = errors.New("invalid WIF private key")
	// ErrInvalidKeyLength is returned for raw keys of the wrong size.
	ErrInvalidKeyLength = errors.New("invalid key length")
	// ErrZeroKey is returned when key material reduces to zero.
	ErrZeroKey = errors.New("private key is zero")
)

// PrivateKey wraps secp256k1 private key
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps secp256k1 public key
type PublicKey struct {
	key *secp256k1.PublicKey
}

// GeneratePrivateKey creates a fresh private key using the given
// randomness source.
func GeneratePrivateKey(rng io.Reader) (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKeyFromRand(rng)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate private key")
	}
	return &PrivateKey{key: key}, nil
}

// ParsePrivateKeyWIF parses a WIF-encoded private key
func ParsePrivateKeyWIF(wif string) (*PrivateKey, error) {
	decoded, err := decodeWIF(wif)
	if err != nil {
		return nil, err
	}

	return PrivateKeyFromBytes(decoded)
}

// PrivateKeyFromBytes creates a private key from raw bytes
func PrivateKeyFromBytes(keyBytes []byte) (*PrivateKey, error) {
	if len(keyBytes) != PrivateKeySize {
		return nil, errors.Wrapf(ErrInvalidKeyLength, "private key must be %d bytes, got %d", PrivateKeySize, len(keyBytes))
	}

	key := secp256k1.PrivKeyFromBytes(keyBytes)
	if key.Key.IsZero() {
		return nil, ErrZeroKey
	}
	return &PrivateKey{key: key}, nil
}

// SignSchnorr signs a 32-byte digest.
func (pk *PrivateKey) SignSchnorr(hash [32]byte) ([SignatureSize]byte, error) {
	var out [SignatureSize]byte

	sig, err := schnorr.Sign(pk.key, hash[:])
	if err != nil {
		return out, errors.Wrap(err, "schnorr signing failed")
	}
	copy(out[:], sig.Serialize())
	return out, nil
}

// PublicKey derives the public key
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Bytes returns the raw 32-byte private key
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// Equal reports whether both keys hold the same scalar.
func (pk *PrivateKey) Equal(other *PrivateKey) bool {
	if pk == nil || other == nil {
		return pk == other
	}
	return pk.key.Key.Equals(&other.key.Key)
}

// WIF encodes the key in compressed Wallet Import Format.
func (pk *PrivateKey) WIF(testnet bool) string {
	s, _ := EncodeWIF(pk.Bytes(), true, testnet)
	return s
}

// SerializeCompressed returns the 33-byte compressed public key
func (pub *PublicKey) SerializeCompressed() [PublicKeySize]byte {
	var result [PublicKeySize]byte
	copy(result[:], pub.key.SerializeCompressed())
	return result
}

// ParsePublicKey parses a compressed public key
func ParsePublicKey(pubKeyBytes []byte) (*PublicKey, error) {
	if len(pubKeyBytes) != PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidKeyLength, "compressed public key must be %d bytes, got %d", PublicKeySize, len(pubKeyBytes))
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse public key")
	}

	return &PublicKey{key: pubKey}, nil
}

// VerifySchnorr verifies a Schnorr signature over a 32-byte digest.
func VerifySchnorr(pubkey *PublicKey, hash [32]byte, signature [SignatureSize]byte) bool {
	sig, err := schnorr.ParseSignature(signature[:])
	if err != nil {
		return false
	}

	return sig.Verify(hash[:], pubkey.key)
}

// decodeWIF decodes a WIF-encoded private key
// WIF format: version_byte || private_key (32 bytes) || [compression_flag] || checksum (4 bytes)
func decodeWIF(wif string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(wif)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidWIF, "%v", err)
	}

	if version != wifMainnetVersion && version != wifTestnetVersion {
		return nil, errors.Wrapf(ErrInvalidWIF, "invalid version byte: 0x%02x", version)
	}

	switch {
	case len(payload) == PrivateKeySize:
	case len(payload) == PrivateKeySize+1 && payload[PrivateKeySize] == wifCompressedFlag:
		payload = payload[:PrivateKeySize]
	default:
		return nil, errors.Wrapf(ErrInvalidWIF, "unexpected payload length %d", len(payload))
	}

	return payload, nil
}

// EncodeWIF encodes a private key to WIF format
func EncodeWIF(privateKey []byte, compressed bool, testnet bool) (string, error) {
	if len(privateKey) != PrivateKeySize {
		return "", fmt.Errorf("private key must be %d bytes: %w", PrivateKeySize, ErrInvalidKeyLength)
	}

	version := byte(wifMainnetVersion)
	if testnet {
		version = wifTestnetVersion
	}

	payload := make([]byte, 0, PrivateKeySize+1)
	payload = append(payload, privateKey...)
	if compressed {
		payload = append(payload, wifCompressedFlag)
	}

	return base58.CheckEncode(payload, version), nil
}
