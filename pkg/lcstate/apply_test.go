// Copyright 2025 Certen Protocol

package lcstate

import (
	"errors"
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"

	"github.com/certen/eth-lc-coprocessor/pkg/errs"
)

func baseStore() *Store {
	return &Store{
		FinalizedHeader:    Header{Slot: 64},
		FinalizedExecution: ExecutionPayloadHeader{BlockNumber: 100, StateRoot: [32]byte{0x01}},
	}
}

func validAggregate() SyncAggregate {
	bits := make([]byte, 64) // 512 bits, all set: 64 bytes of 0xff
	for i := range bits {
		bits[i] = 0xff
	}
	// The zero-value G1Affine is the point at infinity; round-tripping it
	// through Bytes() gives a guaranteed-valid compressed encoding rather
	// than relying on the all-zero byte string being interpreted correctly.
	var infinity bls12381.G1Affine
	encoded := infinity.Bytes()
	return SyncAggregate{SyncCommitteeBits: bits, SyncCommitteeSignature: encoded[:]}
}

func TestApply_AdvancesFinalizedHead(t *testing.T) {
	store := baseStore()
	input := Input{
		FinalityUpdate: FinalityUpdate{
			AttestedHeader:   Header{Slot: 97},
			FinalizedHeader:  Header{Slot: 96},
			SyncAggregate:    validAggregate(),
			SignatureSlot:    97,
			ExecutionPayload: &ExecutionPayloadHeader{BlockNumber: 200, StateRoot: [32]byte{0x02}},
		},
		ExpectedCurrentSlot: 100,
	}

	out, err := Apply(store, input)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.BlockNumber != 200 {
		t.Fatalf("expected block number 200, got %d", out.BlockNumber)
	}
	if out.StateRoot != ([32]byte{0x02}) {
		t.Fatalf("expected state root to come from the new execution payload")
	}
	if store.FinalizedHeader.Slot != 96 {
		t.Fatalf("expected finalized slot 96, got %d", store.FinalizedHeader.Slot)
	}
}

func TestApply_RejectsNonCheckpointSlot(t *testing.T) {
	store := baseStore()
	input := Input{
		FinalityUpdate: FinalityUpdate{
			AttestedHeader:  Header{Slot: 99},
			FinalizedHeader: Header{Slot: 95}, // not a multiple of 32
			SyncAggregate:   validAggregate(),
			SignatureSlot:   99,
		},
		ExpectedCurrentSlot: 100,
	}

	if _, err := Apply(store, input); err == nil {
		t.Fatal("expected a non-checkpoint finalized slot to be rejected")
	}
}

func TestApply_ToleratesOlderFinalizedHeader(t *testing.T) {
	store := baseStore()
	store.FinalizedHeader.Slot = 64
	// A finality update whose attested header is fresh but whose finalized
	// header is older than the store's: CheckpointTooOld, tolerated, so the
	// store's finalized head must be left exactly where it was.
	input := Input{
		FinalityUpdate: FinalityUpdate{
			AttestedHeader:  Header{Slot: 65},
			FinalizedHeader: Header{Slot: 32},
			SyncAggregate:   validAggregate(),
			SignatureSlot:   65,
		},
		ExpectedCurrentSlot: 100,
	}

	out, err := Apply(store, input)
	if err != nil {
		t.Fatalf("expected the stale finality update to be tolerated, got: %v", err)
	}
	if store.FinalizedHeader.Slot != 64 {
		t.Fatalf("expected finalized slot to remain 64, got %d", store.FinalizedHeader.Slot)
	}
	if out.BlockNumber != store.FinalizedExecution.BlockNumber {
		t.Fatalf("expected output to reflect the unchanged store")
	}
}

func TestApply_ToleratesNotRelevantUpdate(t *testing.T) {
	store := baseStore()
	staleUpdate := Update{
		AttestedHeader:  Header{Slot: 50}, // at or below store's finalized slot
		FinalizedHeader: Header{Slot: 32},
		SyncAggregate:   validAggregate(),
		SignatureSlot:   50,
	}
	input := Input{
		Updates: []Update{staleUpdate},
		FinalityUpdate: FinalityUpdate{
			AttestedHeader:   Header{Slot: 97},
			FinalizedHeader:  Header{Slot: 96},
			SyncAggregate:    validAggregate(),
			SignatureSlot:    97,
			ExecutionPayload: &ExecutionPayloadHeader{BlockNumber: 200, StateRoot: [32]byte{0x02}},
		},
		ExpectedCurrentSlot: 100,
	}

	out, err := Apply(store, input)
	if err != nil {
		t.Fatalf("expected the stale update to be tolerated and skipped, got: %v", err)
	}
	if out.BlockNumber != 200 {
		t.Fatalf("expected the finality update to still apply, got block number %d", out.BlockNumber)
	}
}

func TestApply_FatalOnInsufficientParticipation(t *testing.T) {
	store := baseStore()
	weak := validAggregate()
	weak.SyncCommitteeBits = make([]byte, 64) // no bits set at all

	input := Input{
		FinalityUpdate: FinalityUpdate{
			AttestedHeader:  Header{Slot: 97},
			FinalizedHeader: Header{Slot: 96},
			SyncAggregate:   weak,
			SignatureSlot:   97,
		},
		ExpectedCurrentSlot: 100,
	}

	_, err := Apply(store, input)
	if err == nil {
		t.Fatal("expected insufficient participation to be a fatal error")
	}
	var ce *errs.ConsensusError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a *errs.ConsensusError in the chain, got %T: %v", err, err)
	}
	if ce.Kind.Tolerated() {
		t.Fatal("expected a fatal, non-tolerated consensus error kind")
	}
}
