// Copyright 2025 Certen Protocol
//
// Package bls validates BLS12-381 points. A light client only ever checks
// that a sync-committee pubkey or aggregate signature is a well-formed
// curve point — it never holds a signing key or performs the pairing check
// itself — so this package keeps only the deserialize-and-validate path a
// verifier needs.
package bls

import (
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
)

// Size constants
const (
	PublicKeySize = 96 // BLS12-381 public key is 96 bytes (G2 point, compressed)
	SignatureSize = 48 // BLS12-381 signature is 48 bytes (G1 point, compressed)
)

// PublicKey is a deserialized point on G2.
type PublicKey struct {
	point bls12381.G2Affine
}

// Signature is a deserialized point on G1.
type Signature struct {
	point bls12381.G1Affine
}

// PublicKeyFromBytes deserializes a public key from its compressed G2
// encoding, rejecting anything that isn't a well-formed curve point.
func PublicKeyFromBytes(data []byte) (*PublicKey, error) {
	var pk bls12381.G2Affine
	if _, err := pk.SetBytes(data); err != nil {
		return nil, fmt.Errorf("deserialize public key: %w", err)
	}
	return &PublicKey{point: pk}, nil
}

// SignatureFromBytes deserializes a signature from its compressed G1
// encoding, rejecting anything that isn't a well-formed curve point.
func SignatureFromBytes(data []byte) (*Signature, error) {
	var sig bls12381.G1Affine
	if _, err := sig.SetBytes(data); err != nil {
		return nil, fmt.Errorf("deserialize signature: %w", err)
	}
	return &Signature{point: sig}, nil
}

// ValidatePublicKey checks that data decodes to a well-formed G2 point.
func ValidatePublicKey(data []byte) error {
	_, err := PublicKeyFromBytes(data)
	return err
}

// ValidateSignature checks that data decodes to a well-formed G1 point.
func ValidateSignature(data []byte) error {
	_, err := SignatureFromBytes(data)
	return err
}

// IsValidPublicKeySize reports whether data is the correct byte length for
// a public key.
func IsValidPublicKeySize(data []byte) bool {
	return len(data) == PublicKeySize
}

// IsValidSignatureSize reports whether data is the correct byte length for
// a signature.
func IsValidSignatureSize(data []byte) bool {
	return len(data) == SignatureSize
}
