// Copyright 2025 Certen Protocol
//
// Package prover submits circuit witnesses for proving and returns the
// resulting Groth16 proofs. Client talks to a remote prover over a
// websocket; LocalClient proves in-process with gnark directly, for
// bootstrap and tests where standing up a separate prover process isn't
// worth it.
package prover

// Proof is a generated proof: Public is the packed commitment the circuit
// attests to (a circuit.Inner for an inner-stage proof, a
// circuit.ValidatedBlock for a wrapper-stage proof); PublicWitness is the
// serialized Groth16 public witness fed to the circuit (needed to verify
// the proof, since it carries the exact field-element assignment rather
// than just the domain-level commitment bytes); Bytes is the serialized
// Groth16 proof itself.
type Proof struct {
	Public        []byte `cbor:"1,keyasint"`
	PublicWitness []byte `cbor:"2,keyasint"`
	Bytes         []byte `cbor:"3,keyasint"`
}
