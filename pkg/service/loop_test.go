// Copyright 2025 Certen Protocol

package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen/eth-lc-coprocessor/pkg/circuit"
	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/history"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
	"github.com/certen/eth-lc-coprocessor/pkg/prover"
)

type fakeBeacon struct {
	bootstrapStore lcstate.Store
	bootstrapErr   error
	input          lcstate.Input
	inputErr       error
}

func (f *fakeBeacon) Bootstrap(ctx context.Context) (lcstate.Store, error) {
	return f.bootstrapStore, f.bootstrapErr
}

func (f *fakeBeacon) FetchInput(ctx context.Context, store lcstate.Store) (lcstate.Input, error) {
	return f.input, f.inputErr
}

type fakeProver struct {
	genesisCalls int
	proveCalls   int
	wrapCalls    int
	verifyCalls  int
	blockNumber  uint64

	genesisErr error
	proveErr   error
	wrapErr    error
	verifyErr  error
	keysErr    error
}

func (f *fakeProver) Genesis() (prover.Proof, error) {
	f.genesisCalls++
	if f.genesisErr != nil {
		return prover.Proof{}, f.genesisErr
	}
	return f.innerProof()
}

// innerProof returns a proof whose Public is a packed circuit.Inner at
// f.blockNumber, the shape history.Append decodes.
func (f *fakeProver) innerProof() (prover.Proof, error) {
	packed, err := codec.Pack(circuit.NewInner(lcstate.Store{
		FinalizedExecution: lcstate.ExecutionPayloadHeader{BlockNumber: f.blockNumber},
	}))
	if err != nil {
		return prover.Proof{}, err
	}
	return prover.Proof{Public: packed}, nil
}

func (f *fakeProver) Prove(priorPublic []byte, input lcstate.Input) (prover.Proof, error) {
	f.proveCalls++
	if f.proveErr != nil {
		return prover.Proof{}, f.proveErr
	}
	return f.innerProof()
}

func (f *fakeProver) Wrap(inner prover.Proof) (prover.Proof, error) {
	f.wrapCalls++
	if f.wrapErr != nil {
		return prover.Proof{}, f.wrapErr
	}
	return prover.Proof{Public: []byte("wrapper")}, nil
}

func (f *fakeProver) VerifyWrapper(p prover.Proof) error {
	f.verifyCalls++
	return f.verifyErr
}

func (f *fakeProver) VerifyingKeys() (innerVK, wrapperVK []byte, err error) {
	if f.keysErr != nil {
		return nil, nil, f.keysErr
	}
	return []byte("inner-vk"), []byte("wrapper-vk"), nil
}

func TestLoop_StepBootstrapsOnFirstIteration(t *testing.T) {
	b := &fakeBeacon{}
	p := &fakeProver{}
	l := New(Config{Beacon: b, Prover: p, History: history.New()})

	if err := l.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if p.genesisCalls != 1 {
		t.Fatalf("expected genesis to be called once, got %d", p.genesisCalls)
	}
	if p.proveCalls != 0 {
		t.Fatalf("expected prove not to be called on the bootstrap iteration")
	}
	if p.wrapCalls != 1 {
		t.Fatalf("expected wrap to be called once, got %d", p.wrapCalls)
	}
}

func TestLoop_StepFetchesAndProvesOnSubsequentIterations(t *testing.T) {
	b := &fakeBeacon{}
	p := &fakeProver{}
	l := New(Config{Beacon: b, Prover: p, History: history.New()})

	if err := l.step(context.Background()); err != nil {
		t.Fatalf("first step: %v", err)
	}
	if err := l.step(context.Background()); err != nil {
		t.Fatalf("second step: %v", err)
	}
	if p.genesisCalls != 1 {
		t.Fatalf("expected genesis to run only on the first iteration, got %d calls", p.genesisCalls)
	}
	if p.proveCalls != 1 {
		t.Fatalf("expected prove to run on the second iteration, got %d calls", p.proveCalls)
	}
}

func TestLoop_StepVerifiesWrapperBeforePublishing(t *testing.T) {
	b := &fakeBeacon{}
	p := &fakeProver{}
	h := history.New()
	l := New(Config{Beacon: b, Prover: p, History: h})

	if err := l.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if p.verifyCalls != 1 {
		t.Fatalf("expected the wrapper proof to be dry-run verified once, got %d calls", p.verifyCalls)
	}
	latest, ok := h.Latest()
	if !ok {
		t.Fatal("expected a published service state in history")
	}
	if len(latest.WrapperVK) == 0 || latest.WrapperVKBytes32 == "" {
		t.Fatal("expected the published service state to carry the prover's wrapper verifying key")
	}
}

func TestLoop_StepFailsWhenWrapperVerifyFails(t *testing.T) {
	b := &fakeBeacon{}
	p := &fakeProver{verifyErr: errs.NewProver("verify", context.DeadlineExceeded)}
	h := history.New()
	l := New(Config{Beacon: b, Prover: p, History: h})

	if err := l.step(context.Background()); err == nil {
		t.Fatal("expected a failing dry-run wrapper verification to fail the step")
	}
	if h.Len() != 0 {
		t.Fatal("expected history to stay empty when the wrapper proof fails verification")
	}
}

func TestLoop_RunIterationRecordsFailure(t *testing.T) {
	b := &fakeBeacon{bootstrapErr: errs.NewRemote("beacon", context.DeadlineExceeded)}
	p := &fakeProver{}
	reg := prometheus.NewRegistry()
	l := New(Config{Beacon: b, Prover: p, History: history.New(), Metrics: NewMetrics(reg)})

	l.runIteration(context.Background())

	status := l.Status()
	if status.State != LoopStateDegraded {
		t.Fatalf("expected degraded state after a failed iteration, got %s", status.State)
	}
	if status.LastError == "" {
		t.Fatal("expected the last error to be recorded")
	}
}

func TestLoop_RunIterationSucceedsAndUpdatesHistory(t *testing.T) {
	b := &fakeBeacon{}
	p := &fakeProver{}
	reg := prometheus.NewRegistry()
	h := history.New()
	l := New(Config{Beacon: b, Prover: p, History: h, Metrics: NewMetrics(reg)})

	l.runIteration(context.Background())

	status := l.Status()
	if status.State != LoopStateRunning {
		t.Fatalf("expected running state, got %s", status.State)
	}
	if status.Iterations != 1 {
		t.Fatalf("expected 1 recorded iteration, got %d", status.Iterations)
	}
}

func TestLoop_StopReturnsRun(t *testing.T) {
	b := &fakeBeacon{}
	p := &fakeProver{}
	l := New(Config{Beacon: b, Prover: p, History: history.New(), Interval: 0})
	// A zero interval would make time.NewTicker panic; give Run something
	// small but valid instead.
	l.interval = 1

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	l.Stop()

	if err := <-done; err != nil {
		t.Fatalf("expected Run to return cleanly after Stop, got %v", err)
	}
}
