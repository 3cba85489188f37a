// Copyright 2025 Certen Protocol

package prover

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/certen/eth-lc-coprocessor/pkg/circuit"
	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
)

// LocalClient proves inner and wrapper circuits in-process, grounded on
// BLSZKProver's compile-once/prove-many shape (bls_zkp/prover.go):
// constraint systems and Groth16 keys are built once in Initialize and
// reused across every subsequent Genesis/Prove call.
type LocalClient struct {
	mu sync.RWMutex

	innerCS constraint.ConstraintSystem
	innerPK groth16.ProvingKey
	innerVK groth16.VerifyingKey

	wrapperCS constraint.ConstraintSystem
	wrapperPK groth16.ProvingKey
	wrapperVK groth16.VerifyingKey

	initialized bool
}

// NewLocalClient constructs an uninitialized client; call Initialize before
// proving anything.
func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

// Initialize compiles both circuits and runs their (test-only, insecure)
// Groth16 trusted setup. Every call on a fresh client generates new keys;
// this package has no path that loads keys from disk.
func (c *LocalClient) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	innerCS, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit.InnerCircuit{})
	if err != nil {
		return errs.NewProver("compile-inner", err)
	}
	innerPK, innerVK, err := groth16.Setup(innerCS)
	if err != nil {
		return errs.NewProver("setup-inner", err)
	}

	wrapperCS, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit.WrapperCircuit{})
	if err != nil {
		return errs.NewProver("compile-wrapper", err)
	}
	wrapperPK, wrapperVK, err := groth16.Setup(wrapperCS)
	if err != nil {
		return errs.NewProver("setup-wrapper", err)
	}

	c.innerCS, c.innerPK, c.innerVK = innerCS, innerPK, innerVK
	c.wrapperCS, c.wrapperPK, c.wrapperVK = wrapperCS, wrapperPK, wrapperVK
	c.initialized = true
	return nil
}

// Genesis proves the first inner step: the zero-value light-client store
// bound under the embedded VK, with no prior commitment to chain from.
func (c *LocalClient) Genesis() (Proof, error) {
	inner := circuit.NewInner(lcstate.Store{})
	return c.proveInner(true, circuit.Inner{}, inner)
}

// Prove folds input into the state committed to by priorPublic (a packed
// circuit.Inner) and proves the resulting inner step.
func (c *LocalClient) Prove(priorPublic []byte, input lcstate.Input) (Proof, error) {
	var prior circuit.Inner
	if err := codec.Unpack(priorPublic, &prior); err != nil {
		return Proof{}, err
	}

	newState := prior.State
	if _, err := lcstate.Apply(&newState, input); err != nil {
		return Proof{}, errs.NewProver("apply", err)
	}

	newInner := circuit.NewInner(newState)
	return c.proveInner(false, prior, newInner)
}

func (c *LocalClient) proveInner(genesis bool, prior, next circuit.Inner) (Proof, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return Proof{}, errs.NewProver("prove-inner", fmt.Errorf("local client not initialized"))
	}

	vk := circuit.EmbeddedVKHash()
	newPacked, err := codec.Pack(next)
	if err != nil {
		return Proof{}, err
	}
	newCommitment := commitmentOf(newPacked)

	assignment := &circuit.InnerCircuit{
		VKWords:       vkWordsFor(vk),
		VKCommitment:  vkCommitmentFor(vk),
		NewCommitment: newCommitment,
	}
	if genesis {
		assignment.Genesis = 1
		assignment.PriorCommitment = 0
		assignment.PriorStateCommitment = 0
	} else {
		priorPacked, err := codec.Pack(prior)
		if err != nil {
			return Proof{}, err
		}
		priorCommitment := commitmentOf(priorPacked)
		assignment.Genesis = 0
		assignment.PriorCommitment = priorCommitment
		assignment.PriorStateCommitment = priorCommitment
	}
	assignment.StateCommitment = newCommitment

	proofBytes, publicWitnessBytes, err := proveAndSerialize(c.innerCS, c.innerPK, assignment)
	if err != nil {
		return Proof{}, err
	}

	return Proof{Public: newPacked, PublicWitness: publicWitnessBytes, Bytes: proofBytes}, nil
}

// Wrap reduces an inner-stage Proof to a wrapper-stage Proof committing a
// circuit.ValidatedBlock.
func (c *LocalClient) Wrap(inner Proof) (Proof, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return Proof{}, errs.NewProver("wrap", fmt.Errorf("local client not initialized"))
	}

	var in circuit.Inner
	if err := codec.Unpack(inner.Public, &in); err != nil {
		return Proof{}, err
	}

	vk := circuit.EmbeddedVKHash()
	innerCommitment := commitmentOf(inner.Public)

	block := circuit.ValidatedBlock{
		Number: in.State.FinalizedExecution.BlockNumber,
		Root:   in.State.FinalizedExecution.StateRoot,
	}
	blockPacked, err := codec.Pack(block)
	if err != nil {
		return Proof{}, err
	}

	assignment := &circuit.WrapperCircuit{
		VKWords:              vkWordsFor(vk),
		VKCommitment:         vkCommitmentFor(vk),
		InnerCommitment:      innerCommitment,
		InnerStateCommitment: innerCommitment,
		BlockNumber:          block.Number,
		StateRoot:            commitmentOf(block.Root[:]),
	}

	proofBytes, publicWitnessBytes, err := proveAndSerialize(c.wrapperCS, c.wrapperPK, assignment)
	if err != nil {
		return Proof{}, err
	}

	return Proof{Public: blockPacked, PublicWitness: publicWitnessBytes, Bytes: proofBytes}, nil
}

// VerifyInner checks an inner-stage proof against the local verifying key.
func (c *LocalClient) VerifyInner(p Proof) error {
	return c.verify(p, c.innerVK)
}

// VerifyWrapper checks a wrapper-stage proof against the local verifying
// key.
func (c *LocalClient) VerifyWrapper(p Proof) error {
	return c.verify(p, c.wrapperVK)
}

func (c *LocalClient) verify(p Proof, vk groth16.VerifyingKey) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return errs.NewProver("verify", fmt.Errorf("local client not initialized"))
	}
	return verifyProof(p, vk)
}

// VerifyingKeys serializes the verifying keys this client's Initialize
// produced, so a caller that only holds key bytes — a domain.Controller
// checking a persisted history.ServiceState, or a remote prover.Client
// relaying them over the wire — can verify a proof without a live
// LocalClient of its own.
func (c *LocalClient) VerifyingKeys() (innerVK, wrapperVK []byte, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return nil, nil, errs.NewProver("verifying-keys", fmt.Errorf("local client not initialized"))
	}

	var innerBuf, wrapperBuf bytes.Buffer
	if _, err := c.innerVK.WriteTo(&innerBuf); err != nil {
		return nil, nil, errs.NewProver("serialize-inner-vk", err)
	}
	if _, err := c.wrapperVK.WriteTo(&wrapperBuf); err != nil {
		return nil, nil, errs.NewProver("serialize-wrapper-vk", err)
	}
	return innerBuf.Bytes(), wrapperBuf.Bytes(), nil
}

// verifyProof is the single Groth16 proof-verification path both
// LocalClient.verify and VerifyWithVK call into: decode the proof and its
// public witness, then check them against vk.
func verifyProof(p Proof, vk groth16.VerifyingKey) error {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(p.Bytes)); err != nil {
		return errs.NewProver("decode-proof", err)
	}

	publicWitness, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return errs.NewProver("decode-public-witness", err)
	}
	if _, err := publicWitness.ReadFrom(bytes.NewReader(p.PublicWitness)); err != nil {
		return errs.NewProver("decode-public-witness", err)
	}

	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		return errs.NewProver("verify", err)
	}
	return nil
}

// VerifyWithVK checks p against a serialized Groth16 verifying key,
// deserializing vk fresh on every call. It's the verification path for a
// caller that never talked to the prover that produced p — e.g.
// history.ServiceState.Apply, which only has the WrapperVK bytes a
// LocalClient.VerifyingKeys call (or a remote prover.Client.VerifyingKeys
// round trip) once handed it.
func VerifyWithVK(p Proof, vkBytes []byte) error {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return errs.NewProver("decode-vk", err)
	}
	return verifyProof(p, vk)
}

// proveAndSerialize creates a full witness for assignment, proves it
// against cs/pk, and returns the serialized proof alongside the
// serialized public-only witness a verifier needs.
func proveAndSerialize(cs constraint.ConstraintSystem, pk groth16.ProvingKey, assignment frontend.Circuit) ([]byte, []byte, error) {
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, errs.NewProver("create-witness", err)
	}

	proof, err := groth16.Prove(cs, pk, fullWitness)
	if err != nil {
		return nil, nil, errs.NewProver("prove", err)
	}

	publicWitness, err := fullWitness.Public()
	if err != nil {
		return nil, nil, errs.NewProver("extract-public-witness", err)
	}

	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return nil, nil, errs.NewProver("serialize-proof", err)
	}

	var witnessBuf bytes.Buffer
	if _, err := publicWitness.WriteTo(&witnessBuf); err != nil {
		return nil, nil, errs.NewProver("serialize-public-witness", err)
	}

	return proofBuf.Bytes(), witnessBuf.Bytes(), nil
}
