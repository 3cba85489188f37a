// Copyright 2025 Certen Protocol
//
// Package domain wires the light-client state machine, the proof encoder,
// and the prover client behind the single host-facing Controller entry
// point a coprocessor domain exposes: StateProof and ValidateBlock.
package domain

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"lukechampine.com/blake3"

	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/ethproof"
	"github.com/certen/eth-lc-coprocessor/pkg/history"
	"github.com/certen/eth-lc-coprocessor/pkg/ledger"
)

// Mode selects one of validate_block's three operating modes. A single
// entry point branching on Mode replaces the teacher's several
// historical domain/src/lib.rs variants (raw inputs, pass-through, light
// client) — "one validate_block, not duplicated binaries".
type Mode int

const (
	// ModePassThrough accepts a caller-supplied block number, state
	// root, and input payload verbatim; it takes no proof.
	ModePassThrough Mode = iota
	// ModeRaw decodes a base64 input blob, extracting a 32-byte state
	// root and an 8-byte little-endian block number at offset 32..40.
	ModeRaw
	// ModeLightClient decodes base64 ServiceState/ProvenState inputs,
	// applies the light-client proof chain, and persists the updated
	// ServiceState when it advances the domain's block height.
	ModeLightClient
)

// ValidatedBlock is the host-facing result of validate_block.
type ValidatedBlock struct {
	Number  uint64       `json:"number"`
	Root    codec.Hash32 `json:"root"`
	Payload []byte       `json:"payload"`
}

// PassThroughArgs is the payload for ModePassThrough.
type PassThroughArgs struct {
	BlockNumber uint64
	StateRoot   codec.Hash32
	Payload     []byte
}

// RawArgs is the payload for ModeRaw: a single base64 input blob.
type RawArgs struct {
	Input string // base64
}

// LightClientArgs is the payload for ModeLightClient.
type LightClientArgs struct {
	Service string // base64 history.ServiceState
	Proof   string // base64 history.ProvenState
}

// Controller binds the domain's identifier, its persistent history, and
// validate_block's three operating modes behind one entry point, grounded
// on main.go's MemoryKV/LedgerStoreWrapper pattern of wrapping a storage
// backend behind a small interface.
type Controller struct {
	name string
	kv   ledger.KV
}

// NewController builds a Controller for the named domain (e.g.
// "ethereum-electra-alpha"), persisting state through kv.
func NewController(name string, kv ledger.KV) *Controller {
	return &Controller{name: name, kv: kv}
}

// Identifier is the domain identifier every StateProof is tagged with:
// Blake3(domain name).
func (c *Controller) Identifier() [32]byte {
	return blake3.Sum256([]byte(c.name))
}

// historyKey is the host KV key the domain's latest packed ServiceState is
// stored under.
func (c *Controller) historyKey() []byte {
	id := c.Identifier()
	return id[:]
}

// StateProof turns a host EIP-1186 proof response into the canonical,
// domain-tagged wire proof a client verifies against.
func (c *Controller) StateProof(args ethproof.StateProofArgs, resp ethproof.EIP1186Result) (*ethproof.EncodedProof, error) {
	return ethproof.Encode(args, resp, c.Identifier())
}

// ValidateBlock dispatches to one of the three operating modes.
func (c *Controller) ValidateBlock(mode Mode, passThrough *PassThroughArgs, raw *RawArgs, lc *LightClientArgs) (ValidatedBlock, error) {
	switch mode {
	case ModePassThrough:
		if passThrough == nil {
			return ValidatedBlock{}, errs.NewInvariant("pass-through mode requires pass-through args")
		}
		return ValidatedBlock{Number: passThrough.BlockNumber, Root: passThrough.StateRoot, Payload: passThrough.Payload}, nil

	case ModeRaw:
		if raw == nil {
			return ValidatedBlock{}, errs.NewInvariant("raw mode requires raw args")
		}
		return validateRaw(raw.Input)

	case ModeLightClient:
		if lc == nil {
			return ValidatedBlock{}, errs.NewInvariant("light-client mode requires light-client args")
		}
		return c.validateLightClient(lc.Service, lc.Proof)

	default:
		return ValidatedBlock{}, errs.NewInvariant(fmt.Sprintf("unknown validate_block mode %d", mode))
	}
}

// validateRaw implements ModeRaw: a 32-byte state root followed by an
// 8-byte little-endian block number, base64-encoded.
func validateRaw(input string) (ValidatedBlock, error) {
	raw, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return ValidatedBlock{}, errs.NewInvariant(fmt.Sprintf("invalid base64 raw input: %v", err))
	}
	if len(raw) < 40 {
		return ValidatedBlock{}, errs.NewInvariant("raw input shorter than 40 bytes")
	}

	var root codec.Hash32
	copy(root[:], raw[:32])
	number := binary.LittleEndian.Uint64(raw[32:40])

	return ValidatedBlock{Number: number, Root: root}, nil
}

// validateLightClient implements ModeLightClient: decode the service and
// proof payloads, Groth16-verify the wrapper proof against the service's
// own WrapperVK via ServiceState.Apply, and persist the advanced
// ServiceState only if it's a genuine advance over whatever is already
// stored.
func (c *Controller) validateLightClient(serviceB64, proofB64 string) (ValidatedBlock, error) {
	serviceBytes, err := base64.StdEncoding.DecodeString(serviceB64)
	if err != nil {
		return ValidatedBlock{}, errs.NewInvariant(fmt.Sprintf("invalid base64 service state: %v", err))
	}
	proofBytes, err := base64.StdEncoding.DecodeString(proofB64)
	if err != nil {
		return ValidatedBlock{}, errs.NewInvariant(fmt.Sprintf("invalid base64 proof: %v", err))
	}

	var service history.ServiceState
	if err := codec.Unpack(serviceBytes, &service); err != nil {
		return ValidatedBlock{}, err
	}
	var proven history.ProvenState
	if err := codec.Unpack(proofBytes, &proven); err != nil {
		return ValidatedBlock{}, err
	}

	next, block, err := service.Apply(proven)
	if err != nil {
		return ValidatedBlock{}, err
	}
	block.Payload = proven.Wrapper.Public

	if err := c.persistIfAdvanced(next, block.Number); err != nil {
		return ValidatedBlock{}, err
	}

	return ValidatedBlock{Number: block.Number, Root: block.Root, Payload: block.Payload}, nil
}

// persistIfAdvanced writes the updated ServiceState to the host KV store
// only if number is strictly greater than the currently persisted block
// number, so a stale or out-of-order publish can never roll the domain's
// recorded state backwards.
func (c *Controller) persistIfAdvanced(service history.ServiceState, number uint64) error {
	existing, err := c.kv.Get(c.historyKey())
	if err != nil {
		return err
	}

	if existing != nil {
		var prior history.ServiceState
		if err := codec.Unpack(existing, &prior); err == nil {
			if out, err := prior.ToOutput(); err == nil && out.BlockNumber >= number {
				return nil
			}
		}
	}

	packed, err := codec.Pack(service)
	if err != nil {
		return err
	}
	return c.kv.Set(c.historyKey(), packed)
}
