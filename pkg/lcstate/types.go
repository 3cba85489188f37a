// Copyright 2025 Certen Protocol
//
// Package lcstate carries the Ethereum beacon-chain light-client store and
// applies sync-committee and finality updates to it. The full consensus-spec
// validator (fork-aware SSZ merkle proofs, full BLS pairing checks) is out
// of scope: this package validates the structural shape of an update and
// the well-formedness of its BLS12-381 points, and gates any residual
// consensus error through a tolerated/fatal filter, exactly as a host-side
// zk-VM program would before committing a new store.
package lcstate

import "github.com/certen/eth-lc-coprocessor/pkg/codec"

// Header is a beacon block header's identifying fields.
type Header struct {
	Slot          uint64       `cbor:"1,keyasint"`
	ProposerIndex uint64       `cbor:"2,keyasint"`
	ParentRoot    codec.Hash32 `cbor:"3,keyasint"`
	StateRoot     codec.Hash32 `cbor:"4,keyasint"`
	BodyRoot      codec.Hash32 `cbor:"5,keyasint"`
}

// ExecutionPayloadHeader is the subset of the execution payload a proof
// consumer needs: the block it commits to and that block's state root.
type ExecutionPayloadHeader struct {
	BlockNumber uint64       `cbor:"1,keyasint"`
	StateRoot   codec.Hash32 `cbor:"2,keyasint"`
	BlockHash   codec.Hash32 `cbor:"3,keyasint"`
}

// SyncCommittee is the 512-member aggregate used to sign attested headers.
type SyncCommittee struct {
	Pubkeys         [][]byte `cbor:"1,keyasint"` // 96-byte BLS12-381 G2 points, per the teacher's pubkey convention
	AggregatePubkey []byte   `cbor:"2,keyasint"`
}

// SyncAggregate is the bit-vector of participating committee members plus
// their aggregated signature.
type SyncAggregate struct {
	SyncCommitteeBits      []byte `cbor:"1,keyasint"`
	SyncCommitteeSignature []byte `cbor:"2,keyasint"` // 48-byte BLS12-381 G1 point
}

// Update is a single sync-committee update (light client update), carrying
// a newly attested header and, optionally, the next period's committee.
type Update struct {
	AttestedHeader          Header                  `cbor:"1,keyasint"`
	NextSyncCommittee       *SyncCommittee          `cbor:"2,keyasint"`
	NextSyncCommitteeBranch [][]byte                `cbor:"3,keyasint"`
	FinalizedHeader         Header                  `cbor:"4,keyasint"`
	FinalityBranch          [][]byte                `cbor:"5,keyasint"`
	SyncAggregate           SyncAggregate           `cbor:"6,keyasint"`
	SignatureSlot           uint64                  `cbor:"7,keyasint"`
	ExecutionPayload        *ExecutionPayloadHeader `cbor:"8,keyasint"`
}

// FinalityUpdate advances the store's finalized header without rotating the
// sync committee.
type FinalityUpdate struct {
	AttestedHeader    Header                  `cbor:"1,keyasint"`
	FinalizedHeader   Header                  `cbor:"2,keyasint"`
	FinalityBranch    [][]byte                `cbor:"3,keyasint"`
	SyncAggregate     SyncAggregate           `cbor:"4,keyasint"`
	SignatureSlot     uint64                  `cbor:"5,keyasint"`
	ExecutionPayload  *ExecutionPayloadHeader `cbor:"6,keyasint"`
}

// Store is the light client's persistent view: the latest finalized header
// and execution payload, and the current/next sync committees.
type Store struct {
	FinalizedHeader       Header                 `cbor:"1,keyasint"`
	FinalizedExecution    ExecutionPayloadHeader `cbor:"2,keyasint"`
	CurrentSyncCommittee  SyncCommittee          `cbor:"3,keyasint"`
	NextSyncCommittee     *SyncCommittee         `cbor:"4,keyasint"`
}

// Output is the public result of applying an Input to a Store: the
// finalized execution block number and its state root.
type Output struct {
	BlockNumber uint64       `cbor:"1,keyasint"`
	StateRoot   codec.Hash32 `cbor:"2,keyasint"`
}

// Input is everything needed to advance a Store by one round.
//
// ExpectedCurrentSlot exists only to satisfy the update-freshness check; it
// carries no security weight of its own (a prover cannot attest to wall
// clock time) and is treated as an untrusted, advisory input.
type Input struct {
	Updates             []Update       `cbor:"1,keyasint"`
	FinalityUpdate      FinalityUpdate `cbor:"2,keyasint"`
	ExpectedCurrentSlot uint64         `cbor:"3,keyasint"`
}

const slotsPerSyncCommitteePeriod = 32 * 256

func syncCommitteePeriod(slot uint64) uint64 {
	return slot / slotsPerSyncCommitteePeriod
}
