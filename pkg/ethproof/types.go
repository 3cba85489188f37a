// Copyright 2025 Certen Protocol
//
// Package ethproof turns a host's eth_getProof (EIP-1186) JSON response
// into the canonical StateProof blob defined by pkg/mpt.
package ethproof

import "github.com/certen/eth-lc-coprocessor/pkg/mpt"

// StateProofArgs is what a caller hands the controller: the address to
// prove, the block to prove it at, the claimed state root, the set of
// storage slots to include, and an opaque payload to copy through.
type StateProofArgs struct {
	Address string                 `json:"address"` // 0x-hex
	Block   uint64                 `json:"block"`
	Root    [32]byte               `json:"root"`
	Storage []mpt.StorageProofArg  `json:"storage"`
	Payload []byte                 `json:"payload"`
}

// EIP1186StorageProof is one entry of the "storageProof" array in a raw
// eth_getProof JSON-RPC response.
type EIP1186StorageProof struct {
	Key   string   `json:"key"`   // 0x-hex slot key, possibly unpadded/numeric
	Value string   `json:"value"` // 0x-hex slot value, "0x0" for an empty slot
	Proof []string `json:"proof"` // 0x-hex RLP node list, root to leaf
}

// EIP1186Result is the raw eth_getProof JSON-RPC response shape.
type EIP1186Result struct {
	Address      string                `json:"address"`
	AccountProof []string              `json:"accountProof"`
	Balance      string                `json:"balance"` // 0x-hex
	CodeHash     string                `json:"codeHash"`
	Nonce        string                `json:"nonce"` // 0x-hex
	StorageHash  string                `json:"storageHash"`
	StorageProof []EIP1186StorageProof `json:"storageProof"`
}
