// Copyright 2025 Certen Protocol

package lcstate

import (
	"fmt"

	"github.com/certen/eth-lc-coprocessor/pkg/errs"
)

// Apply advances store by the given input: each Update is checked and
// either applied or, if its error is tolerated, silently skipped; the
// FinalityUpdate is checked the same way and applied only on success.
// Tolerated errors reflect already-applied or out-of-band updates a real
// beacon chain can legitimately produce and must not abort an otherwise
// valid advancement.
//
// Post-conditions enforced as hard failures: the new finalized slot must
// not regress, and it must land on a checkpoint boundary (multiple of 32).
func Apply(store *Store, input Input) (Output, error) {
	prevSlot := store.FinalizedHeader.Slot

	for i, u := range input.Updates {
		if err := verifyUpdate(store, u, input.ExpectedCurrentSlot); err != nil {
			if isTolerated(err) {
				continue
			}
			return Output{}, fmt.Errorf("update %d: %w", i, err)
		}
		applyUpdate(store, u)
	}

	if err := verifyFinalityUpdate(store, input.FinalityUpdate, input.ExpectedCurrentSlot); err != nil {
		if !isTolerated(err) {
			return Output{}, fmt.Errorf("finality update: %w", err)
		}
	} else {
		applyFinalityUpdate(store, input.FinalityUpdate)
	}

	if store.FinalizedHeader.Slot < prevSlot {
		return Output{}, errs.NewInvariant("new finalized slot is not greater than or equal to the previous one")
	}
	if store.FinalizedHeader.Slot%32 != 0 {
		return Output{}, errs.NewInvariant("new finalized slot is not a checkpoint slot")
	}

	return Output{
		BlockNumber: store.FinalizedExecution.BlockNumber,
		StateRoot:   store.FinalizedExecution.StateRoot,
	}, nil
}

func isTolerated(err error) bool {
	ce, ok := err.(*errs.ConsensusError)
	return ok && ce.Kind.Tolerated()
}

// applyUpdate installs a verified Update's finalized header and execution
// payload, rotating the sync committee when the update crosses into a new
// sync-committee period.
func applyUpdate(store *Store, u Update) {
	newPeriod := syncCommitteePeriod(u.FinalizedHeader.Slot)
	oldPeriod := syncCommitteePeriod(store.FinalizedHeader.Slot)
	if newPeriod > oldPeriod && store.NextSyncCommittee != nil {
		store.CurrentSyncCommittee = *store.NextSyncCommittee
	}
	if u.NextSyncCommittee != nil {
		store.NextSyncCommittee = u.NextSyncCommittee
	}

	store.FinalizedHeader = u.FinalizedHeader
	if u.ExecutionPayload != nil {
		store.FinalizedExecution = *u.ExecutionPayload
	}
}

func applyFinalityUpdate(store *Store, fu FinalityUpdate) {
	store.FinalizedHeader = fu.FinalizedHeader
	if fu.ExecutionPayload != nil {
		store.FinalizedExecution = *fu.ExecutionPayload
	}
}
