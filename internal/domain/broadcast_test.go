package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestBroadcastIDRoundTrip(t *testing.T) {
	raw := make([]byte, BroadcastIDSize)
	for i := range raw {
		raw[i] = byte(0xff - i)
	}
	id, err := BroadcastIDFromBytes(raw)
	if err != nil {
		t.Fatalf("BroadcastIDFromBytes: %v", err)
	}
	text := id.String()
	if len(text) != 22 {
		t.Fatalf("text length = %d, want 22", len(text))
	}
	back, err := ParseBroadcastID(text)
	if err != nil {
		t.Fatalf("ParseBroadcastID(%q): %v", text, err)
	}
	if back != id {
		t.Fatalf("round trip mismatch")
	}
	if !bytes.Equal(id.Bytes(), raw) {
		t.Fatalf("Bytes() != original")
	}
}

func TestBroadcastIDRejectsMalformed(t *testing.T) {
	if _, err := BroadcastIDFromBytes(make([]byte, 15)); !errors.Is(err, ErrInvalidBroadcastID) {
		t.Fatalf("15 bytes: got %v, want ErrInvalidBroadcastID", err)
	}
	for _, s := range []string{"", strings.Repeat("A", 21), strings.Repeat("A", 23), strings.Repeat("A", 21) + "!"} {
		if _, err := ParseBroadcastID(s); !errors.Is(err, ErrInvalidBroadcastID) {
			t.Fatalf("ParseBroadcastID(%q): got %v, want ErrInvalidBroadcastID", s, err)
		}
	}
}

func TestBroadcastIDJSON(t *testing.T) {
	id, _ := BroadcastIDFromBytes(bytes.Repeat([]byte{0x42}, BroadcastIDSize))
	data, err := json.Marshal([]BroadcastID{id})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back []BroadcastID
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(back) != 1 || back[0] != id {
		t.Fatalf("JSON round trip mismatch: %v", back)
	}
}
