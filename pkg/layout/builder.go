// Copyright 2025 Certen Protocol
//
// Package layout computes the keccak-derived storage slot keys Solidity
// uses for scalar, mapping, packed-struct, and string/bytes storage
// layouts. The builder is a pure derivation function: it owns only its
// output vector and performs no I/O.
package layout

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Entry is one contribution to the layout: a derived slot key and either
// its value (a membership claim) or a nil value (a reserved slot for a
// non-membership claim). AddValue records an RLP-encoded value;
// AddCombinedValues and AddStringValue record raw slot bytes with no RLP
// encoding.
type Entry struct {
	Key   [32]byte
	Value []byte // nil for add_empty_slot
}

// Builder derives Solidity-style storage slot keys. base is a 256-bit
// cursor that auto-increments by one after every scalar contribution.
type Builder struct {
	base    *big.Int
	entries []Entry
}

// New starts a builder at baseSlot.
func New(baseSlot uint64) *Builder {
	return &Builder{base: new(big.Int).SetUint64(baseSlot)}
}

// NewMapping starts a builder at the Solidity mapping slot
// keccak256(be32(id) || be32(baseSlot)), per spec §4.4.
func NewMapping(id, baseSlot uint64) *Builder {
	idBytes := be32FromUint64(id)
	baseBytes := be32FromUint64(baseSlot)
	slot := crypto.Keccak256(append(idBytes, baseBytes...))
	return &Builder{base: new(big.Int).SetBytes(slot)}
}

func be32FromUint64(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}

func be32(b *big.Int) [32]byte {
	var out [32]byte
	padded := common.LeftPadBytes(b.Bytes(), 32)
	copy(out[:], padded)
	return out
}

// advance moves the cursor forward by one slot.
func (b *Builder) advance() {
	b.base = new(big.Int).Add(b.base, big.NewInt(1))
}

// AddValue records (key=base, value=rlp(v)) and advances base.
func (b *Builder) AddValue(v interface{}) error {
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	b.entries = append(b.entries, Entry{Key: be32(b.base), Value: encoded})
	b.advance()
	return nil
}

// AddCombinedValues concatenates parts then records a single packed-struct
// slot entry (no RLP re-wrapping of the individual parts: the caller is
// responsible for presenting parts already in their packed byte form).
func (b *Builder) AddCombinedValues(parts ...[]byte) {
	var combined []byte
	for _, p := range parts {
		combined = append(combined, p...)
	}
	b.entries = append(b.entries, Entry{Key: be32(b.base), Value: combined})
	b.advance()
}

// AddStringValue encodes s using Solidity's string/bytes storage scheme:
// short strings (len < 32) are right-padded into a single 32-byte slot with
// the low byte set to len*2; long strings (len >= 32) store len*2+1
// (big-endian trimmed) in the slot itself, with data chunks laid out
// 32-byte-padded starting at keccak256(slot).
func (b *Builder) AddStringValue(s string) {
	data := []byte(s)
	slotKey := be32(b.base)
	b.advance()

	if len(data) < 32 {
		var slot [32]byte
		copy(slot[:], data)
		slot[31] = byte(len(data) * 2)
		b.entries = append(b.entries, Entry{Key: slotKey, Value: slot[:]})
		return
	}

	lenMarker := new(big.Int).SetUint64(uint64(len(data)*2 + 1))
	b.entries = append(b.entries, Entry{Key: slotKey, Value: lenMarker.Bytes()})

	chunkBase := new(big.Int).SetBytes(crypto.Keccak256(slotKey[:]))
	for offset := 0; offset < len(data); offset += 32 {
		end := offset + 32
		if end > len(data) {
			end = len(data)
		}
		var chunk [32]byte
		copy(chunk[:], data[offset:end])

		chunkIndex := new(big.Int).SetUint64(uint64(offset / 32))
		chunkKey := be32(new(big.Int).Add(chunkBase, chunkIndex))
		b.entries = append(b.entries, Entry{Key: chunkKey, Value: chunk[:]})
	}
}

// AddEmptySlot reserves a key for a non-membership claim (value = nil).
func (b *Builder) AddEmptySlot() {
	b.entries = append(b.entries, Entry{Key: be32(b.base), Value: nil})
	b.advance()
}

// Entries returns the accumulated output vector.
func (b *Builder) Entries() []Entry {
	return b.entries
}
