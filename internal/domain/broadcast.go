package domain

import "encoding/base64"

// BroadcastIDSize is the byte length of a BroadcastID.
const BroadcastIDSize = 16

// idTextLen is the canonical text length: 16 bytes as unpadded base64url.
const idTextLen = 22

// BroadcastID is one ephemeral, publicly broadcastable identifier derived
// from a ContactCode. Immutable; comparable byte-wise, so it can key a set.
type BroadcastID [BroadcastIDSize]byte

// BroadcastIDFromBytes constructs a BroadcastID from exactly 16 raw bytes.
func BroadcastIDFromBytes(b []byte) (BroadcastID, error) {
	var id BroadcastID
	if len(b) != BroadcastIDSize {
		return id, ErrInvalidBroadcastID
	}
	copy(id[:], b)
	return id, nil
}

// ParseBroadcastID decodes the canonical 22-character unpadded base64url form.
func ParseBroadcastID(s string) (BroadcastID, error) {
	var id BroadcastID
	if len(s) != idTextLen {
		return id, ErrInvalidBroadcastID
	}
	n, err := base64.RawURLEncoding.Decode(id[:], []byte(s))
	if err != nil || n != BroadcastIDSize {
		return id, ErrInvalidBroadcastID
	}
	return id, nil
}

// String returns the canonical text form.
func (id BroadcastID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// Bytes returns a copy of the raw 16 bytes.
func (id BroadcastID) Bytes() []byte {
	out := make([]byte, BroadcastIDSize)
	copy(out, id[:])
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (id BroadcastID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *BroadcastID) UnmarshalText(text []byte) error {
	parsed, err := ParseBroadcastID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler: the raw 16 bytes.
func (id BroadcastID) MarshalBinary() ([]byte, error) {
	return id.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *BroadcastID) UnmarshalBinary(data []byte) error {
	parsed, err := BroadcastIDFromBytes(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
