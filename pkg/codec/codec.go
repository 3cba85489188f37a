// Copyright 2025 Certen Protocol
//
// Package codec implements the canonical, deterministic binary encoding
// shared by every on-wire type in the coprocessor: pack(x) round-trips
// through unpack to produce a byte-identical value regardless of
// construction order, and the outer API boundary wraps the packed bytes in
// an unpadded, standard-alphabet Base64 envelope for JSON transport.
package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/certen/eth-lc-coprocessor/pkg/errs"
)

// Hash32 is a 32-byte hash whose meaning (keccak-256, SHA-256, Blake3, or a
// Merkle root) is determined entirely by where it appears.
type Hash32 [32]byte

// Address20 is a 20-byte Ethereum address.
type Address20 [20]byte

var (
	canonicalEncMode cbor.EncMode
	canonicalDecMode cbor.DecMode
)

func init() {
	encOpts := cbor.CanonicalEncOptions()
	mode, err := encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building canonical encode mode: %v", err))
	}
	canonicalEncMode = mode

	decOpts := cbor.DecOptions{
		// Canonical encoding never emits duplicate map keys or indefinite
		// length items; reject anything that does on decode.
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		IndefLength:    cbor.IndefLengthForbidden,
		MaxArrayElements: 1 << 20,
		MaxMapPairs:      1 << 20,
	}
	decMode, err := decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building canonical decode mode: %v", err))
	}
	canonicalDecMode = decMode
}

// Pack deterministically encodes x into its canonical binary form. Equal
// values of x always produce byte-identical output (contract: spec §4.1).
func Pack(x interface{}) ([]byte, error) {
	out, err := canonicalEncMode.Marshal(x)
	if err != nil {
		return nil, errs.NewCodec("pack", err)
	}
	return out, nil
}

// Unpack decodes a canonical binary blob into out, which must be a pointer.
// It fails with a CodecError on truncation, an unknown tag, or an internal
// length mismatch.
func Unpack(data []byte, out interface{}) error {
	if len(data) == 0 {
		return errs.NewCodec("unpack", fmt.Errorf("empty input"))
	}
	if err := canonicalDecMode.Unmarshal(data, out); err != nil {
		return errs.NewCodec("unpack", err)
	}
	return nil
}

// EncodeEnvelope wraps packed bytes in the outer Base64 transport envelope:
// standard alphabet, no padding.
func EncodeEnvelope(packed []byte) string {
	return base64.RawStdEncoding.EncodeToString(packed)
}

// DecodeEnvelope unwraps the outer Base64 transport envelope back into
// packed bytes.
func DecodeEnvelope(s string) ([]byte, error) {
	out, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.NewCodec("decode-envelope", err)
	}
	return out, nil
}

// PackEnvelope packs x and wraps it in the Base64 envelope in one step.
func PackEnvelope(x interface{}) (string, error) {
	packed, err := Pack(x)
	if err != nil {
		return "", err
	}
	return EncodeEnvelope(packed), nil
}

// UnpackEnvelope reverses PackEnvelope.
func UnpackEnvelope(s string, out interface{}) error {
	packed, err := DecodeEnvelope(s)
	if err != nil {
		return err
	}
	return Unpack(packed, out)
}
