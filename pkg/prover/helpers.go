// Copyright 2025 Certen Protocol

package prover

import (
	"crypto/sha256"
	"math/big"

	"github.com/consensys/gnark/frontend"

	"github.com/certen/eth-lc-coprocessor/pkg/circuit"
)

// vkWordsFor converts the embedded VK hash into the per-word circuit
// variables the inner and wrapper circuits bind as private inputs.
func vkWordsFor(vk [8]uint32) [8]frontend.Variable {
	var out [8]frontend.Variable
	for i, w := range vk {
		out[i] = w
	}
	return out
}

// vkCommitmentFor mixes the VK hash words into the single public field
// element the circuits assert against, the same way a witness assignment
// is built outside the circuit for any other commitment.
func vkCommitmentFor(vk [8]uint32) *big.Int {
	return circuit.MixWordsOffCircuit(vk)
}

// commitmentOf is the off-circuit counterpart of circuit.Inner.Digest:
// SHA-256 the packed bytes, then reduce the digest into the BN254 scalar
// field so it can be assigned as a circuit commitment.
func commitmentOf(packed []byte) *big.Int {
	digest := sha256.Sum256(packed)
	return circuit.HashToField(digest[:])
}
