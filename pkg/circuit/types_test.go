// Copyright 2025 Certen Protocol

package circuit

import (
	"reflect"
	"testing"

	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
)

func TestValidatedBlock_PackUnpackRoundTrip(t *testing.T) {
	want := ValidatedBlock{
		Number:  22_000_000,
		Root:    codec.Hash32{0xaa, 0xbb, 0xcc},
		Payload: []byte{0x01, 0x02},
	}

	packed, err := codec.Pack(want)
	if err != nil {
		t.Fatalf("pack validated block: %v", err)
	}
	var got ValidatedBlock
	if err := codec.Unpack(packed, &got); err != nil {
		t.Fatalf("unpack validated block: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestWitness_OpenGenesis(t *testing.T) {
	w := NewGenesisWitness()
	open, err := w.Open()
	if err != nil {
		t.Fatalf("open genesis witness: %v", err)
	}
	if open.VK != EmbeddedVKHash() {
		t.Fatal("expected genesis witness to bind the embedded VK")
	}
	if open.Digest != nil {
		t.Fatal("expected genesis witness to carry no prior digest")
	}
}

func TestWitness_OpenUpdate(t *testing.T) {
	prior := NewInner(lcstate.Store{FinalizedHeader: lcstate.Header{Slot: 64}})
	priorPacked, err := codec.Pack(prior)
	if err != nil {
		t.Fatalf("pack prior inner: %v", err)
	}

	input := lcstate.Input{ExpectedCurrentSlot: 100}
	w := NewUpdateWitness(priorPacked, input)

	open, err := w.Open()
	if err != nil {
		t.Fatalf("open update witness: %v", err)
	}
	if open.Digest == nil {
		t.Fatal("expected an update witness to carry the prior digest")
	}
	if open.State.FinalizedHeader.Slot != 64 {
		t.Fatalf("expected the decoded prior state to round-trip, got slot %d", open.State.FinalizedHeader.Slot)
	}
	if open.Input == nil || open.Input.ExpectedCurrentSlot != 100 {
		t.Fatal("expected the folded-in input to round-trip")
	}
}

func TestWitness_OpenUpdateRejectsForeignVK(t *testing.T) {
	foreign := Inner{VK: [8]uint32{1, 2, 3, 4, 5, 6, 7, 8}}
	packed, err := codec.Pack(foreign)
	if err != nil {
		t.Fatalf("pack foreign inner: %v", err)
	}

	w := NewUpdateWitness(packed, lcstate.Input{})
	if _, err := w.Open(); err == nil {
		t.Fatal("expected a foreign VK to be rejected")
	}
}

func TestInner_DigestIsDeterministic(t *testing.T) {
	in := NewInner(lcstate.Store{FinalizedHeader: lcstate.Header{Slot: 32}})
	d1, err := in.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, err := in.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d1 != d2 {
		t.Fatal("expected repeated digests of the same Inner to be identical")
	}
}
