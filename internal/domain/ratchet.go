package domain

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
)

// Protocol expansion bounds: a submitted code covers ChainDays daily
// successors, each broadcasting one identifier per minute of the day.
const (
	ChainDays = 14
	IDsPerDay = 1440
)

// broadcastKey is the fixed, protocol-wide HMAC domain-separation key used
// when deriving broadcast identifiers. It is public configuration data, not
// a secret: every installation must use the identical value for derived
// identifiers to be interoperable.
var broadcastKey = [32]byte{
	0xe8, 0x8c, 0x5e, 0x26, 0x87, 0x2e, 0xb2, 0x05,
	0x74, 0x4a, 0xed, 0x66, 0x2d, 0xec, 0xf0, 0x27,
	0x17, 0x3a, 0x53, 0x0b, 0x2a, 0x6a, 0xc7, 0x01,
	0x92, 0x78, 0x80, 0x18, 0x05, 0xe3, 0x77, 0xb0,
}

// Ratchet derives the successor code: the SHA-256 digest of the 32 code
// bytes. One-way and deterministic, so publishing a successor never reveals
// its predecessors.
func (c ContactCode) Ratchet() ContactCode {
	return ContactCode(sha256.Sum256(c[:]))
}

// Chain lazily yields the successor codes of a root ContactCode. It is
// infinite and restartable only by calling Chain() on the root again.
type Chain struct {
	current ContactCode
}

// Chain returns an iterator over the successors of c. The first Next is
// c.Ratchet(), each subsequent one the ratchet of the previous.
func (c ContactCode) Chain() *Chain {
	return &Chain{current: c}
}

// Next advances the chain and returns the next code.
func (ch *Chain) Next() ContactCode {
	ch.current = ch.current.Ratchet()
	return ch.current
}

// BroadcastSeq lazily yields the broadcast identifiers of a ContactCode.
// The sequence is infinite and deterministic but not seekable: reaching the
// Nth identifier requires computing the N-1 before it.
type BroadcastSeq struct {
	cipher cipher.Block
	block  [BroadcastIDSize]byte
}

// Broadcasts returns the identifier stream for c. The stream key is
// HMAC-SHA-256 over the code bytes under the fixed broadcast key; each
// identifier is the next AES-256 encryption of the previous output block,
// starting from an all-zero block.
func (c ContactCode) Broadcasts() *BroadcastSeq {
	mac := hmac.New(sha256.New, broadcastKey[:])
	mac.Write(c[:])
	block, err := aes.NewCipher(mac.Sum(nil))
	if err != nil {
		// unreachable: the key is a SHA-256 digest, always 32 bytes
		panic(err)
	}
	return &BroadcastSeq{cipher: block}
}

// Next advances the stream and returns the next identifier.
func (s *BroadcastSeq) Next() BroadcastID {
	s.cipher.Encrypt(s.block[:], s.block[:])
	return BroadcastID(s.block)
}
