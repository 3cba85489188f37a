// Copyright 2025 Certen Protocol
//
// Package mpt verifies Merkle-Patricia Trie inclusion and exclusion proofs
// against a claimed Ethereum state root, and carries the canonical wire
// types that travel across the zk-VM boundary.
package mpt

import "github.com/certen/eth-lc-coprocessor/pkg/codec"

// StorageProofArg is a single storage-slot claim: key is the 32-byte slot
// identifier (pre-image of keccak), value is the RLP-encoded slot content
// when present, or nil to claim the slot is absent.
type StorageProofArg struct {
	Key   []byte `cbor:"1,keyasint"`
	Value []byte `cbor:"2,keyasint"`
}

// StorageProof pairs a StorageProofArg with the MPT node list proving it,
// from the storage root down to the leaf (or the point of divergence for an
// exclusion proof).
type StorageProof struct {
	StorageProofArg
	Proof [][]byte `cbor:"3,keyasint"`
}

// StateProof is the canonical, order-sensitive binary wire form carried
// across the zk-VM boundary. Field order is bit-exact per spec §6:
// state_root, account, nonce, balance, storage_root, code_hash,
// account_proof, storage_proofs.
type StateProof struct {
	StateRoot     codec.Hash32   `cbor:"1,keyasint"`
	Account       codec.Address20 `cbor:"2,keyasint"`
	Nonce         uint64         `cbor:"3,keyasint"`
	Balance       uint64         `cbor:"4,keyasint"`
	StorageRoot   codec.Hash32   `cbor:"5,keyasint"`
	CodeHash      codec.Hash32   `cbor:"6,keyasint"`
	AccountProof  [][]byte       `cbor:"7,keyasint"`
	StorageProofs []StorageProof `cbor:"8,keyasint"`
}

// ProvenAccount is the output of a successful verification. Payload is an
// opaque caller-supplied tag copied through unchanged.
type ProvenAccount struct {
	Account codec.Address20   `cbor:"1,keyasint"`
	Storage []StorageProofArg `cbor:"2,keyasint"`
	Payload []byte            `cbor:"3,keyasint"`
}
