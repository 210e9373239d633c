// Package domain contains the pure protocol values of the tracerd core:
// contact codes, broadcast identifiers, and the ratchet that expands a
// submitted code into its daily successors and per-minute broadcast stream.
// No I/O, logging, or storage concerns belong here.
package domain

import "encoding/base64"

// CodeSize is the byte length of a ContactCode.
const CodeSize = 32

// codeTextLen is the canonical text length: 32 bytes as unpadded base64url.
const codeTextLen = 43

// ContactCode is the 32-byte rotating secret a diagnosed user submits, the
// root of a daily ratchet chain. Immutable once constructed; equality and
// ordering are byte-wise.
type ContactCode [CodeSize]byte

// CodeFromBytes constructs a ContactCode from exactly CodeSize raw bytes.
// Any other length is rejected with ErrInvalidCode.
func CodeFromBytes(b []byte) (ContactCode, error) {
	var c ContactCode
	if len(b) != CodeSize {
		return c, ErrInvalidCode
	}
	copy(c[:], b)
	return c, nil
}

// ParseCode decodes the canonical 43-character unpadded base64url text form.
func ParseCode(s string) (ContactCode, error) {
	var c ContactCode
	if len(s) != codeTextLen {
		return c, ErrInvalidCode
	}
	n, err := base64.RawURLEncoding.Decode(c[:], []byte(s))
	if err != nil || n != CodeSize {
		return c, ErrInvalidCode
	}
	return c, nil
}

// String returns the canonical text form.
func (c ContactCode) String() string {
	return base64.RawURLEncoding.EncodeToString(c[:])
}

// Bytes returns a copy of the raw 32 bytes.
func (c ContactCode) Bytes() []byte {
	out := make([]byte, CodeSize)
	copy(out, c[:])
	return out
}

// MarshalText implements encoding.TextMarshaler, so JSON and other textual
// encodings carry the canonical base64url form.
func (c ContactCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ContactCode) UnmarshalText(text []byte) error {
	parsed, err := ParseCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler: the raw 32 bytes.
func (c ContactCode) MarshalBinary() ([]byte, error) {
	return c.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *ContactCode) UnmarshalBinary(data []byte) error {
	parsed, err := CodeFromBytes(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
