// Copyright 2025 Certen Protocol

package domain

import (
	"encoding/base64"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/certen/eth-lc-coprocessor/pkg/circuit"
	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/history"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
	"github.com/certen/eth-lc-coprocessor/pkg/prover"
)

type memKV struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newMemKV() *memKV { return &memKV{store: make(map[string][]byte)} }

func (m *memKV) Get(key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[string(key)], nil
}

func (m *memKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[string(key)] = value
	return nil
}

func TestController_IdentifierIsDeterministic(t *testing.T) {
	c1 := NewController("ethereum-electra-alpha", newMemKV())
	c2 := NewController("ethereum-electra-alpha", newMemKV())
	if c1.Identifier() != c2.Identifier() {
		t.Fatal("expected the same domain name to hash to the same identifier")
	}

	other := NewController("ethereum-mainnet", newMemKV())
	if c1.Identifier() == other.Identifier() {
		t.Fatal("expected different domain names to hash to different identifiers")
	}
}

func TestValidateBlock_PassThrough(t *testing.T) {
	c := NewController("ethereum", newMemKV())
	out, err := c.ValidateBlock(ModePassThrough, &PassThroughArgs{
		BlockNumber: 22_000_000,
		StateRoot:   codec.Hash32{1, 2, 3},
		Payload:     []byte("payload"),
	}, nil, nil)
	if err != nil {
		t.Fatalf("validate block: %v", err)
	}
	if out.Number != 22_000_000 {
		t.Fatalf("expected block number to round-trip, got %d", out.Number)
	}
}

func TestValidateBlock_Raw(t *testing.T) {
	c := NewController("ethereum", newMemKV())

	var raw [40]byte
	for i := 0; i < 32; i++ {
		raw[i] = byte(i)
	}
	binary.LittleEndian.PutUint64(raw[32:], 12345)

	input := base64.StdEncoding.EncodeToString(raw[:])
	out, err := c.ValidateBlock(ModeRaw, nil, &RawArgs{Input: input}, nil)
	if err != nil {
		t.Fatalf("validate block: %v", err)
	}
	if out.Number != 12345 {
		t.Fatalf("expected decoded block number 12345, got %d", out.Number)
	}
	if out.Root[0] != 0 || out.Root[31] != 31 {
		t.Fatalf("unexpected decoded root: %v", out.Root)
	}
}

// newTestProver builds and initializes a LocalClient once per test so
// every buildProvenState call for that test checks against the same
// verifying keys a real ServiceState.Apply would have to match.
func newTestProver(t *testing.T) *prover.LocalClient {
	t.Helper()
	c := prover.NewLocalClient()
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize prover: %v", err)
	}
	return c
}

// buildProvenState produces a genuinely Groth16-verifiable wrapper proof
// for blockNumber: LocalClient.Wrap only reads inner.Public to build the
// wrapper's assignment, so a fabricated (unproven) inner commitment is
// enough to exercise a real wrapper proof/verify round trip without also
// running the much heavier sync-committee update path.
func buildProvenState(t *testing.T, c *prover.LocalClient, blockNumber uint64) ([]byte, []byte) {
	t.Helper()

	in := circuit.NewInner(lcstate.Store{
		FinalizedExecution: lcstate.ExecutionPayloadHeader{BlockNumber: blockNumber, StateRoot: codec.Hash32{9}},
	})
	innerPacked, err := codec.Pack(in)
	if err != nil {
		t.Fatalf("pack inner: %v", err)
	}

	innerProof := prover.Proof{Public: innerPacked}
	wrapper, err := c.Wrap(innerProof)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	proven := history.ProvenState{Inner: innerProof, Wrapper: wrapper}
	provenPacked, err := codec.Pack(proven)
	if err != nil {
		t.Fatalf("pack proven state: %v", err)
	}

	innerVK, wrapperVK, err := c.VerifyingKeys()
	if err != nil {
		t.Fatalf("verifying keys: %v", err)
	}
	service := history.ServiceState{LatestInnerProof: innerProof, InnerVK: innerVK, WrapperVK: wrapperVK}
	servicePacked, err := codec.Pack(service)
	if err != nil {
		t.Fatalf("pack service state: %v", err)
	}

	return servicePacked, provenPacked
}

func TestValidateBlock_LightClientPersistsAdvance(t *testing.T) {
	kv := newMemKV()
	c := NewController("ethereum", kv)
	prv := newTestProver(t)

	service, proven := buildProvenState(t, prv, 100)
	out, err := c.ValidateBlock(ModeLightClient, nil, nil, &LightClientArgs{
		Service: base64.StdEncoding.EncodeToString(service),
		Proof:   base64.StdEncoding.EncodeToString(proven),
	})
	if err != nil {
		t.Fatalf("validate block: %v", err)
	}
	if out.Number != 100 {
		t.Fatalf("expected block 100, got %d", out.Number)
	}

	stored, err := kv.Get(c.historyKey())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored == nil {
		t.Fatal("expected the service state to be persisted")
	}
}

func TestValidateBlock_LightClientRejectsStaleUpdate(t *testing.T) {
	kv := newMemKV()
	c := NewController("ethereum", kv)
	prv := newTestProver(t)

	service, proven := buildProvenState(t, prv, 200)
	if _, err := c.ValidateBlock(ModeLightClient, nil, nil, &LightClientArgs{
		Service: base64.StdEncoding.EncodeToString(service),
		Proof:   base64.StdEncoding.EncodeToString(proven),
	}); err != nil {
		t.Fatalf("validate block: %v", err)
	}
	firstStored, err := kv.Get(c.historyKey())
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	staleService, staleProven := buildProvenState(t, prv, 150)
	if _, err := c.ValidateBlock(ModeLightClient, nil, nil, &LightClientArgs{
		Service: base64.StdEncoding.EncodeToString(staleService),
		Proof:   base64.StdEncoding.EncodeToString(staleProven),
	}); err != nil {
		t.Fatalf("validate block: %v", err)
	}

	secondStored, err := kv.Get(c.historyKey())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(firstStored) != string(secondStored) {
		t.Fatal("expected a stale update to leave the persisted service state untouched")
	}
}

func TestValidateBlock_LightClientRejectsUnverifiableWrapper(t *testing.T) {
	kv := newMemKV()
	c := NewController("ethereum", kv)
	prv := newTestProver(t)

	service, proven := buildProvenState(t, prv, 100)

	var tampered history.ProvenState
	if err := codec.Unpack(proven, &tampered); err != nil {
		t.Fatalf("unpack proven fixture: %v", err)
	}
	tampered.Wrapper.Bytes = append([]byte(nil), tampered.Wrapper.Bytes...)
	tampered.Wrapper.Bytes[0] ^= 0xff
	tamperedPacked, err := codec.Pack(tampered)
	if err != nil {
		t.Fatalf("pack tampered proven state: %v", err)
	}

	if _, err := c.ValidateBlock(ModeLightClient, nil, nil, &LightClientArgs{
		Service: base64.StdEncoding.EncodeToString(service),
		Proof:   base64.StdEncoding.EncodeToString(tamperedPacked),
	}); err == nil {
		t.Fatal("expected a bit-flipped wrapper proof to fail verification")
	}

	if stored, _ := kv.Get(c.historyKey()); stored != nil {
		t.Fatal("expected a failed verification to leave nothing persisted")
	}
}
