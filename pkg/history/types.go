// Copyright 2025 Certen Protocol
//
// Package history tracks the small ring of recent proven states the
// coprocessor keeps around so a client reading slightly stale data can
// still get an inner/wrapper proof pair for the block it's after.
package history

import (
	"github.com/certen/eth-lc-coprocessor/pkg/circuit"
	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
	"github.com/certen/eth-lc-coprocessor/pkg/prover"
)

// ServiceState is everything the service needs to resume proving from: the
// latest inner-stage proof it produced, plus the verifying keys a consumer
// needs to check it (and the wrapper proof built on top of it) without
// talking back to the prover.
type ServiceState struct {
	LatestInnerProof prover.Proof `cbor:"1,keyasint"`
	InnerVK          []byte       `cbor:"2,keyasint"`
	WrapperVK        []byte       `cbor:"3,keyasint"`
	WrapperVKBytes32 string       `cbor:"4,keyasint"`
}

// ToInner decodes the packed circuit.Inner committed to by the latest proof.
func (s ServiceState) ToInner() (circuit.Inner, error) {
	var in circuit.Inner
	if err := codec.Unpack(s.LatestInnerProof.Public, &in); err != nil {
		return circuit.Inner{}, err
	}
	return in, nil
}

// ToOutput extracts the (block number, state root) a consumer cares about
// from the state the latest inner proof commits to.
func (s ServiceState) ToOutput() (lcstate.Output, error) {
	in, err := s.ToInner()
	if err != nil {
		return lcstate.Output{}, err
	}
	return lcstate.Output{
		BlockNumber: in.State.FinalizedExecution.BlockNumber,
		StateRoot:   in.State.FinalizedExecution.StateRoot,
	}, nil
}

// ProvenState pairs an inner-stage proof with the wrapper-stage proof
// reduced from it — the payload a consumer actually wants to verify
// on-chain.
type ProvenState struct {
	Inner   prover.Proof `cbor:"1,keyasint"`
	Wrapper prover.Proof `cbor:"2,keyasint"`
}

// ToValidatedBlock decodes the ValidatedBlock the wrapper proof commits to.
func (p ProvenState) ToValidatedBlock() (circuit.ValidatedBlock, error) {
	var block circuit.ValidatedBlock
	if err := codec.Unpack(p.Wrapper.Public, &block); err != nil {
		return circuit.ValidatedBlock{}, err
	}
	return block, nil
}

// Apply is the service state's sole checked transition: it Groth16-verifies
// proof.Wrapper against s's own WrapperVK, decodes the wrapper's public
// inputs as a ValidatedBlock, and returns s with LatestInnerProof advanced
// to proof.Inner. The inner proof is never independently re-verified
// off-circuit: the wrapper's own proving step recursively checks it, so a
// passing wrapper verification is trusted by transitivity.
func (s ServiceState) Apply(proof ProvenState) (ServiceState, circuit.ValidatedBlock, error) {
	if len(s.WrapperVK) == 0 {
		return ServiceState{}, circuit.ValidatedBlock{}, errs.NewInvariant("service state carries no wrapper verifying key to check against")
	}
	if err := prover.VerifyWithVK(proof.Wrapper, s.WrapperVK); err != nil {
		return ServiceState{}, circuit.ValidatedBlock{}, err
	}

	block, err := proof.ToValidatedBlock()
	if err != nil {
		return ServiceState{}, circuit.ValidatedBlock{}, err
	}

	next := s
	next.LatestInnerProof = proof.Inner
	return next, block, nil
}
