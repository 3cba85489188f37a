// Copyright 2025 Certen Protocol
//
// Package circuit defines the recursive witness schema and gnark circuits
// that compose the coprocessor's inner/wrapper proof pair: the inner
// circuit folds one light-client state transition (pkg/lcstate) into a
// running commitment, and the wrapper circuit reduces that commitment to
// the tiny ValidatedBlock public output an on-chain Groth16 verifier
// checks.
package circuit

import (
	"crypto/sha256"

	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
)

// embeddedVKHash is the inner circuit's verifying-key hash, bound at
// compile time. It must never be accepted as a runtime/witness input: the
// anti-substitution invariant is that a prover cannot swap in a different
// circuit's VK and have the wrapper accept it. It is a fixed array
// literal; no build step derives it from the compiled inner circuit's
// groth16 VK or from an `inner-vkh32.bin` asset.
var embeddedVKHash = [8]uint32{
	0x9e3d1a07, 0x2c44f8b1, 0x5a6e0d93, 0x17bb42c6,
	0x803fa1de, 0x6611cd58, 0xf2a97b04, 0x3d4e8f71,
}

// EmbeddedVKHash returns the compile-time-constant verifying-key hash the
// inner and wrapper circuits are bound to.
func EmbeddedVKHash() [8]uint32 { return embeddedVKHash }

// Inner is the inner circuit's running commitment: the bound VK hash plus
// the light-client store it attests to.
type Inner struct {
	VK    [8]uint32    `cbor:"1,keyasint"`
	State lcstate.Store `cbor:"2,keyasint"`
}

// NewInner wraps a state under the embedded VK.
func NewInner(state lcstate.Store) Inner {
	return Inner{VK: embeddedVKHash, State: state}
}

// Digest is the SHA-256 commitment of the canonically packed Inner, the
// same construction the recursive verification step binds a child proof
// to (spec §4.6: "digest ← SHA-256(public)").
func (in Inner) Digest() (codec.Hash32, error) {
	packed, err := codec.Pack(in)
	if err != nil {
		return codec.Hash32{}, err
	}
	return sha256.Sum256(packed), nil
}

// ValidatedBlock is the wrapper circuit's public output: a minimal,
// on-chain-verifiable commitment to one execution block's state root.
type ValidatedBlock struct {
	Number  uint64       `cbor:"1,keyasint"`
	Root    codec.Hash32 `cbor:"2,keyasint"`
	Payload []byte       `cbor:"3,keyasint"`
}

// WitnessKind discriminates the two shapes a CircuitWitness can take.
type WitnessKind byte

const (
	WitnessGenesis WitnessKind = iota
	WitnessUpdate
)

// Witness is the inner circuit's input: either the genesis binding (the
// very first proof in a chain, which has no prior commitment to check) or
// an update step that folds a new lcstate.Input into a prior commitment.
type Witness struct {
	Kind         WitnessKind    `cbor:"1,keyasint"`
	GenesisVK    [8]uint32      `cbor:"2,keyasint"`
	UpdatePublic []byte         `cbor:"3,keyasint"` // packed Inner of the prior proof
	UpdateInput  *lcstate.Input `cbor:"4,keyasint"`
}

// NewGenesisWitness builds the witness for the first proof in a chain.
func NewGenesisWitness() Witness {
	return Witness{Kind: WitnessGenesis, GenesisVK: embeddedVKHash}
}

// NewUpdateWitness builds the witness for a non-genesis step: public is the
// packed Inner of the proof being extended, input is the new state
// transition to fold in.
func NewUpdateWitness(public []byte, input lcstate.Input) Witness {
	return Witness{Kind: WitnessUpdate, UpdatePublic: public, UpdateInput: &input}
}

// OpenWitness is a Witness after validation: the concrete state to prove
// over, plus — for update witnesses — the digest of the prior commitment
// and the input being folded in.
type OpenWitness struct {
	VK     [8]uint32
	State  lcstate.Store
	Digest *codec.Hash32
	Input  *lcstate.Input
}

// Open validates and unpacks a Witness. Genesis witnesses bind the default
// zero-value store under the embedded VK. Update witnesses decode the
// prior Inner commitment, reject a VK that doesn't match the compile-time
// constant (the anti-substitution check), and carry the prior digest and
// new input forward for the caller to fold via lcstate.Apply.
func (w Witness) Open() (OpenWitness, error) {
	switch w.Kind {
	case WitnessGenesis:
		return OpenWitness{VK: embeddedVKHash, State: lcstate.Store{}}, nil

	case WitnessUpdate:
		if w.UpdateInput == nil {
			return OpenWitness{}, errs.NewInvariant("update witness missing its input")
		}
		var prior Inner
		if err := codec.Unpack(w.UpdatePublic, &prior); err != nil {
			return OpenWitness{}, err
		}
		if prior.VK != embeddedVKHash {
			return OpenWitness{}, errs.NewInvariant("prior commitment's VK does not match the embedded verifying key")
		}
		digest := codec.Hash32(sha256.Sum256(w.UpdatePublic))
		return OpenWitness{VK: prior.VK, State: prior.State, Digest: &digest, Input: w.UpdateInput}, nil

	default:
		return OpenWitness{}, errs.NewInvariant("unknown witness kind")
	}
}
