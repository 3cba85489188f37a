// Copyright 2025 Certen Protocol
//
// Package service runs the long-lived fetch -> decode -> apply -> prove ->
// publish loop that keeps a coprocessor domain's light-client state
// advancing: pull the latest beacon-chain light-client data, fold it into
// the persisted Store, prove the resulting inner state, reduce it through
// the wrapper circuit, and publish the pair to the history ring (and, once
// advanced, to the host KV via the domain controller).
package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/domain"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/history"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
	"github.com/certen/eth-lc-coprocessor/pkg/prover"
)

// ProverClient is the subset of prover.LocalClient / prover.Client the loop
// depends on, so tests can substitute a fake without standing up gnark or
// a websocket connection.
type ProverClient interface {
	Genesis() (prover.Proof, error)
	Prove(priorPublic []byte, input lcstate.Input) (prover.Proof, error)
	Wrap(inner prover.Proof) (prover.Proof, error)
	VerifyWrapper(p prover.Proof) error
	VerifyingKeys() (innerVK, wrapperVK []byte, err error)
}

// BeaconClient is the subset of beacon.Client the loop depends on, so
// tests can substitute a fake without talking to a real beacon-node REST
// endpoint.
type BeaconClient interface {
	Bootstrap(ctx context.Context) (lcstate.Store, error)
	FetchInput(ctx context.Context, store lcstate.Store) (lcstate.Input, error)
}

// State is the run's current iteration state: the live lcstate.Store, and
// whatever the most recently proven inner proof was.
type State struct {
	Store       lcstate.Store
	LatestInner prover.Proof
}

// LoopState reports the loop's progress for the health endpoint.
type LoopState string

const (
	LoopStateStarting LoopState = "starting"
	LoopStateRunning  LoopState = "running"
	LoopStateDegraded LoopState = "degraded"
	LoopStateStopped  LoopState = "stopped"
)

// Loop drives the fetch/decode/apply/prove/publish cycle on a fixed
// interval, structurally grounded on pkg/batch/scheduler.go's
// mutex-guarded-state + interval-timer + structured-logger Scheduler shape.
type Loop struct {
	mu sync.RWMutex

	beacon     BeaconClient
	prover     ProverClient
	history    *history.History
	controller *domain.Controller
	interval   time.Duration
	logger     *log.Logger

	state       State
	genesisDone bool
	loopState   LoopState
	lastError   string
	iterations  uint64

	innerVK   []byte
	wrapperVK []byte
	vksLoaded bool

	metrics *Metrics

	stopCh chan struct{}
	doneCh chan struct{}
}

// Config bundles a Loop's dependencies.
type Config struct {
	Beacon     BeaconClient
	Prover     ProverClient
	History    *history.History
	Controller *domain.Controller
	Interval   time.Duration
	Logger     *log.Logger
	Metrics    *Metrics
}

// New constructs a Loop from cfg, filling in a default logger and history
// if the caller left them nil.
func New(cfg Config) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[service] ", log.LstdFlags|log.Lmicroseconds)
	}
	h := cfg.History
	if h == nil {
		h = history.New()
	}
	return &Loop{
		beacon:     cfg.Beacon,
		prover:     cfg.Prover,
		history:    h,
		controller: cfg.Controller,
		interval:   cfg.Interval,
		logger:     logger,
		metrics:    cfg.Metrics,
		loopState:  LoopStateStarting,
	}
}

// Run blocks, driving one iteration immediately and then one per interval,
// until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()
	defer close(l.doneCh)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.runIteration(ctx)

	for {
		select {
		case <-ctx.Done():
			l.setLoopState(LoopStateStopped)
			return ctx.Err()
		case <-l.stopCh:
			l.setLoopState(LoopStateStopped)
			return nil
		case <-ticker.C:
			l.runIteration(ctx)
		}
	}
}

// Stop signals Run to return and waits for it to do so.
func (l *Loop) Stop() {
	l.mu.RLock()
	stopCh := l.stopCh
	doneCh := l.doneCh
	l.mu.RUnlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-doneCh
}

// runIteration runs one fetch/decode/apply/prove/publish cycle, logging
// and recording failures rather than propagating them: a single bad
// beacon response should not kill the daemon, only delay its next
// success.
func (l *Loop) runIteration(ctx context.Context) {
	id := uuid.NewString()
	l.logger.Printf("iteration %s: starting", id)

	if l.metrics != nil {
		l.metrics.IterationsTotal.Inc()
	}
	start := time.Now()

	if err := l.step(ctx); err != nil {
		l.logger.Printf("iteration %s: failed: %v", id, err)
		l.mu.Lock()
		l.lastError = err.Error()
		l.loopState = LoopStateDegraded
		l.mu.Unlock()
		if l.metrics != nil {
			l.metrics.IterationFailures.WithLabelValues(stageOf(err)).Inc()
		}
		return
	}

	if l.metrics != nil {
		l.metrics.ProveDuration.Observe(time.Since(start).Seconds())
	}
	l.mu.Lock()
	l.iterations++
	l.loopState = LoopStateRunning
	l.lastError = ""
	l.mu.Unlock()
	l.logger.Printf("iteration %s: done", id)
}

// step performs the actual state advance: bootstrap once, then on every
// later iteration fetch the next round of updates, apply, prove, and
// publish.
func (l *Loop) step(ctx context.Context) error {
	l.mu.Lock()
	genesisDone := l.genesisDone
	store := l.state.Store
	l.mu.Unlock()

	if !genesisDone {
		boot, err := l.beacon.Bootstrap(ctx)
		if err != nil {
			return err
		}
		inner, err := l.prover.Genesis()
		if err != nil {
			return errs.NewProver("genesis", err)
		}
		l.mu.Lock()
		l.state.Store = boot
		l.state.LatestInner = inner
		l.genesisDone = true
		l.mu.Unlock()
		return l.publish(inner)
	}

	input, err := l.beacon.FetchInput(ctx, store)
	if err != nil {
		return err
	}

	l.mu.RLock()
	priorPublic := l.state.LatestInner.Public
	l.mu.RUnlock()

	if _, err := lcstate.Apply(&store, input); err != nil {
		return err
	}

	inner, err := l.prover.Prove(priorPublic, input)
	if err != nil {
		return errs.NewProver("inner", err)
	}

	l.mu.Lock()
	l.state.Store = store
	l.state.LatestInner = inner
	l.mu.Unlock()

	return l.publish(inner)
}

// verifyingKeys returns the prover's serialized inner/wrapper verifying
// keys, fetching and caching them on first use: a given prover's keys
// never change across a run, so there's no reason to pay a round trip (or
// a Groth16 key serialization) on every publish.
func (l *Loop) verifyingKeys() (innerVK, wrapperVK []byte, err error) {
	l.mu.RLock()
	if l.vksLoaded {
		innerVK, wrapperVK = l.innerVK, l.wrapperVK
		l.mu.RUnlock()
		return innerVK, wrapperVK, nil
	}
	l.mu.RUnlock()

	innerVK, wrapperVK, err = l.prover.VerifyingKeys()
	if err != nil {
		return nil, nil, err
	}

	l.mu.Lock()
	l.innerVK, l.wrapperVK, l.vksLoaded = innerVK, wrapperVK, true
	l.mu.Unlock()
	return innerVK, wrapperVK, nil
}

// publish wraps the latest inner proof, dry-run verifies the wrapper proof
// against the prover's own verifying key before trusting it, appends the
// resulting pair to the history ring, and hands the encoded result to the
// domain controller so an advancing proof gets persisted.
func (l *Loop) publish(inner prover.Proof) error {
	wrapper, err := l.prover.Wrap(inner)
	if err != nil {
		return errs.NewProver("wrapper", err)
	}
	if err := l.prover.VerifyWrapper(wrapper); err != nil {
		return errs.NewProver("wrapper-verify", err)
	}

	innerVK, wrapperVK, err := l.verifyingKeys()
	if err != nil {
		return err
	}
	wrapperVKHash := sha256.Sum256(wrapperVK)

	state := history.ServiceState{
		LatestInnerProof: inner,
		InnerVK:          innerVK,
		WrapperVK:        wrapperVK,
		WrapperVKBytes32: hex.EncodeToString(wrapperVKHash[:]),
	}
	if err := l.history.Append(state); err != nil {
		return err
	}
	if l.metrics != nil {
		l.metrics.HistoryDepth.Set(float64(l.history.Len()))
		if number, ok := l.history.LatestBlock(); ok {
			l.metrics.LatestBlockNumber.Set(float64(number))
		}
	}

	if l.controller == nil {
		return nil
	}

	servicePacked, err := codec.Pack(state)
	if err != nil {
		return err
	}
	proven := history.ProvenState{Inner: inner, Wrapper: wrapper}
	provenPacked, err := codec.Pack(proven)
	if err != nil {
		return err
	}

	_, err = l.controller.ValidateBlock(domain.ModeLightClient, nil, nil, &domain.LightClientArgs{
		Service: base64.StdEncoding.EncodeToString(servicePacked),
		Proof:   base64.StdEncoding.EncodeToString(provenPacked),
	})
	return err
}

// Status is a snapshot of the loop's progress for the health endpoint.
type Status struct {
	State      LoopState `json:"state"`
	Iterations uint64    `json:"iterations"`
	LastError  string    `json:"last_error,omitempty"`
	HistoryLen int        `json:"history_len"`
}

// Status returns a snapshot safe to serialize for /healthz.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Status{
		State:      l.loopState,
		Iterations: l.iterations,
		LastError:  l.lastError,
		HistoryLen: l.history.Len(),
	}
}

func (l *Loop) setLoopState(s LoopState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loopState = s
}

// stageOf extracts the error-kind label a failed iteration should be
// counted under, falling back to "unknown" for anything not in the typed
// taxonomy.
func stageOf(err error) string {
	switch err.(type) {
	case *errs.RemoteError:
		return "remote"
	case *errs.ProverError:
		return "prover"
	case *errs.ConsensusError:
		return "consensus"
	case *errs.CodecError:
		return "codec"
	case *errs.InvariantError:
		return "invariant"
	default:
		return "unknown"
	}
}
