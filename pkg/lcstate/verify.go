// Copyright 2025 Certen Protocol

package lcstate

import (
	"github.com/certen/eth-lc-coprocessor/pkg/crypto/bls"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
)

// minParticipation is the two-thirds supermajority bound Ethereum's sync
// protocol requires before a header can be treated as attested.
const minParticipation = 2 * 512 / 3

// verifyUpdate checks an Update against the current store without mutating
// it. Its errors are always *errs.ConsensusError so the caller can apply the
// tolerated/fatal filter.
func verifyUpdate(store *Store, u Update, expectedCurrentSlot uint64) error {
	if u.SignatureSlot > expectedCurrentSlot {
		return errs.NewConsensus(errs.KindInvalidTimestamp, "update signature slot is in the future")
	}
	if u.AttestedHeader.Slot <= store.FinalizedHeader.Slot {
		return errs.NewConsensus(errs.KindNotRelevant, "attested header does not advance the finalized head")
	}

	period := syncCommitteePeriod(u.AttestedHeader.Slot)
	storePeriod := syncCommitteePeriod(store.FinalizedHeader.Slot)
	if period != storePeriod && period != storePeriod+1 {
		return errs.NewConsensus(errs.KindInvalidPeriod, "update period is neither the current nor the next sync-committee period")
	}

	if u.FinalizedHeader.Slot < store.FinalizedHeader.Slot {
		return errs.NewConsensus(errs.KindCheckpointTooOld, "update's finalized header is older than the store's")
	}

	if err := verifySyncAggregate(u.SyncAggregate); err != nil {
		return err
	}

	return verifySyncCommittee(u.NextSyncCommittee)
}

// verifyFinalityUpdate checks a FinalityUpdate the same way, minus the
// period-advancement check (a finality update never rotates the committee).
func verifyFinalityUpdate(store *Store, fu FinalityUpdate, expectedCurrentSlot uint64) error {
	if fu.SignatureSlot > expectedCurrentSlot {
		return errs.NewConsensus(errs.KindInvalidTimestamp, "finality update signature slot is in the future")
	}
	if fu.AttestedHeader.Slot <= store.FinalizedHeader.Slot {
		return errs.NewConsensus(errs.KindNotRelevant, "attested header does not advance the finalized head")
	}
	if fu.FinalizedHeader.Slot < store.FinalizedHeader.Slot {
		return errs.NewConsensus(errs.KindCheckpointTooOld, "finality update's finalized header is older than the store's")
	}
	return verifySyncAggregate(fu.SyncAggregate)
}

// verifySyncAggregate confirms the claimed participation bitfield reaches
// the supermajority bound and that the aggregate signature is a
// well-formed BLS12-381 point, using the same point-decoding the validator
// set's own BLS package applies to a validator signature. It does not
// perform the full pairing check against the attested header's signing
// root: like the teacher's own BLS witness builder, that expensive
// verification step is left to the (out-of-scope) prover, and this
// function only rejects structurally malformed input.
func verifySyncAggregate(agg SyncAggregate) error {
	bits := countSetBits(agg.SyncCommitteeBits)
	if bits < minParticipation {
		return errs.NewConsensus(errs.KindFatal, "sync committee participation below the two-thirds threshold")
	}

	if !bls.IsValidSignatureSize(agg.SyncCommitteeSignature) {
		return errs.NewConsensus(errs.KindFatal, "sync committee signature is not a compressed G1 point")
	}
	if err := bls.ValidateSignature(agg.SyncCommitteeSignature); err != nil {
		return errs.NewConsensus(errs.KindFatal, "malformed sync committee signature point")
	}

	return nil
}

// verifySyncCommittee confirms every pubkey in a committee is a
// well-formed compressed BLS12-381 G2 point, per the pubkey convention
// pkg/crypto/bls.PublicKeySize already encodes.
func verifySyncCommittee(sc *SyncCommittee) error {
	if sc == nil {
		return nil
	}
	for _, pk := range sc.Pubkeys {
		if !bls.IsValidPublicKeySize(pk) {
			return errs.NewConsensus(errs.KindFatal, "sync committee pubkey is not a compressed G2 point")
		}
		if err := bls.ValidatePublicKey(pk); err != nil {
			return errs.NewConsensus(errs.KindFatal, "malformed sync committee pubkey point")
		}
	}
	return nil
}

func countSetBits(bits []byte) int {
	count := 0
	for _, b := range bits {
		for b != 0 {
			count += int(b & 1)
			b >>= 1
		}
	}
	return count
}
