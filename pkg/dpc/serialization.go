package dpc

// Canonical little-endian encodings.
//
// Record (fixed RecordSize bytes):
//
//	owner (33) || is_dummy (u8) || value (u64le) || payload (128) ||
//	program (32) || sn_nonce (32) || commitment_randomness (32) || commitment (32)
//
// Authorization:
//
//	"DPCA" || version (u32le) || network_id (u8) ||
//	varint n || serial_number[n] || value_balance (i64le) ||
//	Option<memo> || varint n || record[n] || varint n || record[n] ||
//	varint n || signature[n]
//
// Option<T> uses 0x00 for None and 0x01 for Some. Varints are LEB128.
// Text forms are lower-case hex of the byte encodings.

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/suffix-labs/dpc-auth/pkg/crypto"
)

const (
	MagicBytes               = "DPCA"
	AuthorizationVersion1    = uint32(1)
	maxEncodedSequenceLength = 16
)

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Record) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, RecordSize))
	if err := encodeRecord(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return &ParseError{Message: fmt.Sprintf("record must be %d bytes, got %d", RecordSize, len(data))}
	}
	if err := decodeRecord(bytes.NewReader(data), r); err != nil {
		return &ParseError{Message: "record decode failed", Cause: err}
	}
	return nil
}

// String returns the hex text form of the record.
func (r *Record) String() string {
	b, err := r.MarshalBinary()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

// ParseRecord decodes the hex text form of a record.
func ParseRecord(s string) (*Record, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, &ParseError{Message: "record is not valid hex", Cause: err}
	}

	r := &Record{}
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return r, nil
}

// Serialize encodes an authorization to bytes.
func Serialize(a *Authorization) ([]byte, error) {
	buf := new(bytes.Buffer)

	buf.WriteString(MagicBytes)
	if err := binary.Write(buf, binary.LittleEndian, AuthorizationVersion1); err != nil {
		return nil, err
	}

	if err := encodeAuthorization(buf, a); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Parse decodes an authorization from bytes.
func Parse(data []byte) (*Authorization, error) {
	if len(data) < 8 {
		return nil, &ParseError{Message: "data too short"}
	}

	if string(data[0:4]) != MagicBytes {
		return nil, &ParseError{Message: "invalid magic bytes"}
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != AuthorizationVersion1 {
		return nil, &ParseError{Message: fmt.Sprintf("unsupported version: %d", version)}
	}

	r := bytes.NewReader(data[8:])
	a := &Authorization{}
	if err := decodeAuthorization(r, a); err != nil {
		return nil, &ParseError{Message: "authorization decode failed", Cause: err}
	}
	if r.Len() != 0 {
		return nil, &ParseError{Message: fmt.Sprintf("%d trailing bytes", r.Len())}
	}

	return a, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (a *Authorization) MarshalBinary() ([]byte, error) {
	return Serialize(a)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (a *Authorization) UnmarshalBinary(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a *Authorization) MarshalText() ([]byte, error) {
	b, err := Serialize(a)
	if err != nil {
		return nil, err
	}
	out := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(out, b)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Authorization) UnmarshalText(text []byte) error {
	data := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(data, text); err != nil {
		return &ParseError{Message: "authorization is not valid hex", Cause: err}
	}
	return a.UnmarshalBinary(data)
}

func encodeAuthorization(w *bytes.Buffer, a *Authorization) error {
	w.WriteByte(a.NetworkID)

	encodeVarInt(w, uint64(len(a.SerialNumbers)))
	for _, sn := range a.SerialNumbers {
		w.Write(sn[:])
	}

	if err := binary.Write(w, binary.LittleEndian, a.ValueBalance); err != nil {
		return err
	}

	if a.Memo == nil {
		w.WriteByte(0x00)
	} else {
		w.WriteByte(0x01)
		w.Write(a.Memo[:])
	}

	for _, records := range [][]Record{a.InputRecords, a.OutputRecords} {
		encodeVarInt(w, uint64(len(records)))
		for i := range records {
			if err := encodeRecord(w, &records[i]); err != nil {
				return err
			}
		}
	}

	encodeVarInt(w, uint64(len(a.Signatures)))
	for _, sig := range a.Signatures {
		w.Write(sig[:])
	}

	return nil
}

func decodeAuthorization(r io.Reader, a *Authorization) error {
	var err error

	if a.NetworkID, err = decodeByte(r); err != nil {
		return err
	}

	n, err := decodeLength(r)
	if err != nil {
		return err
	}
	a.SerialNumbers = make([]SerialNumber, n)
	for i := range a.SerialNumbers {
		if _, err := io.ReadFull(r, a.SerialNumbers[i][:]); err != nil {
			return err
		}
	}

	if err := binary.Read(r, binary.LittleEndian, &a.ValueBalance); err != nil {
		return err
	}

	hasMemo, err := decodeBool(r)
	if err != nil {
		return err
	}
	if hasMemo {
		a.Memo = new(Memo)
		if _, err := io.ReadFull(r, a.Memo[:]); err != nil {
			return err
		}
	}

	if a.InputRecords, err = decodeRecords(r); err != nil {
		return err
	}
	if a.OutputRecords, err = decodeRecords(r); err != nil {
		return err
	}

	n, err = decodeLength(r)
	if err != nil {
		return err
	}
	a.Signatures = make([][crypto.SignatureSize]byte, n)
	for i := range a.Signatures {
		if _, err := io.ReadFull(r, a.Signatures[i][:]); err != nil {
			return err
		}
	}

	return nil
}

func encodeRecord(w io.Writer, rec *Record) error {
	var dummy byte
	if rec.IsDummy {
		dummy = 0x01
	}

	for _, field := range [][]byte{rec.Owner[:], {dummy}} {
		if _, err := w.Write(field); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, rec.Value); err != nil {
		return err
	}
	for _, field := range [][]byte{
		rec.Payload[:],
		rec.Program[:],
		rec.SerialNumberNonce[:],
		rec.CommitmentRandomness[:],
		rec.Commitment[:],
	} {
		if _, err := w.Write(field); err != nil {
			return err
		}
	}
	return nil
}

func decodeRecord(r io.Reader, rec *Record) error {
	var err error

	if _, err = io.ReadFull(r, rec.Owner[:]); err != nil {
		return err
	}
	if rec.IsDummy, err = decodeBool(r); err != nil {
		return err
	}
	if err = binary.Read(r, binary.LittleEndian, &rec.Value); err != nil {
		return err
	}
	for _, field := range [][]byte{
		rec.Payload[:],
		rec.Program[:],
		rec.SerialNumberNonce[:],
		rec.CommitmentRandomness[:],
		rec.Commitment[:],
	} {
		if _, err = io.ReadFull(r, field); err != nil {
			return err
		}
	}
	return nil
}

func decodeRecords(r io.Reader) ([]Record, error) {
	n, err := decodeLength(r)
	if err != nil {
		return nil, err
	}
	records := make([]Record, n)
	for i := range records {
		if err := decodeRecord(r, &records[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

// Helper encoding functions

func encodeVarInt(w *bytes.Buffer, n uint64) {
	for {
		b := uint8(n & 0x7F)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if n == 0 {
			break
		}
	}
}

func decodeVarInt(r io.Reader) (uint64, error) {
	var result uint64
	var shift uint

	for {
		b, err := decodeByte(r)
		if err != nil {
			return 0, err
		}

		if shift >= 64 {
			return 0, fmt.Errorf("varint overflows u64")
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}

	return result, nil
}

func decodeLength(r io.Reader) (int, error) {
	n, err := decodeVarInt(r)
	if err != nil {
		return 0, err
	}
	if n > maxEncodedSequenceLength {
		return 0, fmt.Errorf("sequence length %d exceeds %d", n, maxEncodedSequenceLength)
	}
	return int(n), nil
}

func decodeByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func decodeBool(r io.Reader) (bool, error) {
	b, err := decodeByte(r)
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool/option tag 0x%02x", b)
	}
}
