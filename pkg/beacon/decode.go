// Copyright 2025 Certen Protocol

package beacon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
)

func decodeUint64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.NewInvariant(fmt.Sprintf("invalid decimal field %q", s))
	}
	return v, nil
}

func decodeHash32(s string) (codec.Hash32, error) {
	var h codec.Hash32
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) != 32 {
		return h, errs.NewInvariant(fmt.Sprintf("invalid 32-byte hex field %q", s))
	}
	copy(h[:], b)
	return h, nil
}

func decodeHexBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errs.NewInvariant(fmt.Sprintf("invalid hex field %q", s))
	}
	return b, nil
}

func decodeHeader(h restBeaconHeader) (lcstate.Header, error) {
	slot, err := decodeUint64(h.Slot)
	if err != nil {
		return lcstate.Header{}, err
	}
	proposer, err := decodeUint64(h.ProposerIndex)
	if err != nil {
		return lcstate.Header{}, err
	}
	parent, err := decodeHash32(h.ParentRoot)
	if err != nil {
		return lcstate.Header{}, err
	}
	state, err := decodeHash32(h.StateRoot)
	if err != nil {
		return lcstate.Header{}, err
	}
	body, err := decodeHash32(h.BodyRoot)
	if err != nil {
		return lcstate.Header{}, err
	}
	return lcstate.Header{
		Slot:          slot,
		ProposerIndex: proposer,
		ParentRoot:    parent,
		StateRoot:     state,
		BodyRoot:      body,
	}, nil
}

// beaconHeaderRoot derives the identifier used to fetch a bootstrap for a
// given finalized header. The real consensus spec computes an SSZ
// tree-hash root; full SSZ merkleization is out of scope here (lcstate
// validates structural shape, not SSZ proofs), so this hashes the header's
// canonically packed fields instead — sufficient to deterministically
// round-trip a header to a lookup key.
func beaconHeaderRoot(h restBeaconHeader) (string, error) {
	header, err := decodeHeader(h)
	if err != nil {
		return "", err
	}
	packed, err := codec.Pack(header)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(packed)
	return "0x" + hex.EncodeToString(digest[:]), nil
}

func decodeSyncCommittee(sc restSyncCommittee) (lcstate.SyncCommittee, error) {
	pubkeys := make([][]byte, 0, len(sc.Pubkeys))
	for _, p := range sc.Pubkeys {
		b, err := decodeHexBytes(p)
		if err != nil {
			return lcstate.SyncCommittee{}, err
		}
		pubkeys = append(pubkeys, b)
	}
	agg, err := decodeHexBytes(sc.AggregatePubkey)
	if err != nil {
		return lcstate.SyncCommittee{}, err
	}
	return lcstate.SyncCommittee{Pubkeys: pubkeys, AggregatePubkey: agg}, nil
}

func decodeSyncAggregate(sa restSyncAggregate) (lcstate.SyncAggregate, error) {
	bits, err := decodeHexBytes(sa.SyncCommitteeBits)
	if err != nil {
		return lcstate.SyncAggregate{}, err
	}
	sig, err := decodeHexBytes(sa.SyncCommitteeSignature)
	if err != nil {
		return lcstate.SyncAggregate{}, err
	}
	return lcstate.SyncAggregate{SyncCommitteeBits: bits, SyncCommitteeSignature: sig}, nil
}

func decodeFinalityUpdate(fu restFinalityUpdate) (lcstate.FinalityUpdate, error) {
	attested, err := decodeHeader(fu.AttestedHeader.Beacon)
	if err != nil {
		return lcstate.FinalityUpdate{}, err
	}
	finalized, err := decodeHeader(fu.FinalizedHeader.Beacon)
	if err != nil {
		return lcstate.FinalityUpdate{}, err
	}
	branch := make([][]byte, 0, len(fu.FinalityBranch))
	for _, b := range fu.FinalityBranch {
		decoded, err := decodeHexBytes(b)
		if err != nil {
			return lcstate.FinalityUpdate{}, err
		}
		branch = append(branch, decoded)
	}
	agg, err := decodeSyncAggregate(fu.SyncAggregate)
	if err != nil {
		return lcstate.FinalityUpdate{}, err
	}
	slot, err := decodeUint64(fu.SignatureSlot)
	if err != nil {
		return lcstate.FinalityUpdate{}, err
	}
	return lcstate.FinalityUpdate{
		AttestedHeader:  attested,
		FinalizedHeader: finalized,
		FinalityBranch:  branch,
		SyncAggregate:   agg,
		SignatureSlot:   slot,
	}, nil
}

func decodeUpdate(u restUpdate) (lcstate.Update, error) {
	attested, err := decodeHeader(u.AttestedHeader.Beacon)
	if err != nil {
		return lcstate.Update{}, err
	}
	finalized, err := decodeHeader(u.FinalizedHeader.Beacon)
	if err != nil {
		return lcstate.Update{}, err
	}

	var nextCommittee *lcstate.SyncCommittee
	if u.NextSyncCommittee != nil {
		c, err := decodeSyncCommittee(*u.NextSyncCommittee)
		if err != nil {
			return lcstate.Update{}, err
		}
		nextCommittee = &c
	}

	branch := make([][]byte, 0, len(u.NextSyncCommitteeBranch))
	for _, b := range u.NextSyncCommitteeBranch {
		decoded, err := decodeHexBytes(b)
		if err != nil {
			return lcstate.Update{}, err
		}
		branch = append(branch, decoded)
	}

	finalityBranch := make([][]byte, 0, len(u.FinalityBranch))
	for _, b := range u.FinalityBranch {
		decoded, err := decodeHexBytes(b)
		if err != nil {
			return lcstate.Update{}, err
		}
		finalityBranch = append(finalityBranch, decoded)
	}

	agg, err := decodeSyncAggregate(u.SyncAggregate)
	if err != nil {
		return lcstate.Update{}, err
	}
	slot, err := decodeUint64(u.SignatureSlot)
	if err != nil {
		return lcstate.Update{}, err
	}

	return lcstate.Update{
		AttestedHeader:          attested,
		NextSyncCommittee:       nextCommittee,
		NextSyncCommitteeBranch: branch,
		FinalizedHeader:         finalized,
		FinalityBranch:          finalityBranch,
		SyncAggregate:           agg,
		SignatureSlot:           slot,
	}, nil
}
