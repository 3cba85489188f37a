// Copyright 2025 Certen Protocol

package circuit

import "math/big"

// bn254ScalarField is BN254's scalar field modulus — the field gnark's
// default R1CS backend (ecc.BN254) operates over. Any field element fed
// into a circuit witness assignment must be reduced into this range
// first, the same reduction the teacher's BLS witness builder performs
// before handing a commitment to gnark (bls_zkp/prover.go).
var bn254ScalarField, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// MixWordsOffCircuit computes the same sum(word[i] * r^i) polynomial
// combination as mixWords, but in plain big.Int arithmetic for assembling
// a witness assignment outside the circuit.
func MixWordsOffCircuit(words [8]uint32) *big.Int {
	r := big.NewInt(vkMixCoefficient)
	power := big.NewInt(1)
	acc := new(big.Int).SetUint64(uint64(words[0]))
	for i := 1; i < len(words); i++ {
		power = new(big.Int).Mul(power, r)
		term := new(big.Int).Mul(new(big.Int).SetUint64(uint64(words[i])), power)
		acc = new(big.Int).Add(acc, term)
	}
	return new(big.Int).Mod(acc, bn254ScalarField)
}

// HashToField reduces an arbitrary byte digest into the BN254 scalar
// field, for use as a commitment value in a witness assignment.
func HashToField(digest []byte) *big.Int {
	v := new(big.Int).SetBytes(digest)
	return new(big.Int).Mod(v, bn254ScalarField)
}
