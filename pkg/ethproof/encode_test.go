// Copyright 2025 Certen Protocol

package ethproof

import (
	"testing"

	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/mpt"
)

func sampleResult() EIP1186Result {
	return EIP1186Result{
		Address:      "0x1111111111111111111111111111111111111111"[:42],
		AccountProof: []string{"0xaabb", "0xccdd"},
		Balance:      "0x2540be400", // 10_000_000_000
		CodeHash:     "0x" + repeatHex("11", 32),
		Nonce:        "0x7",
		StorageHash:  "0x" + repeatHex("22", 32),
		StorageProof: []EIP1186StorageProof{
			{
				Key:   "0x" + repeatHex("00", 31) + "01",
				Value: "0x2a",
				Proof: []string{"0xeeff"},
			},
			{
				Key:   "0x" + repeatHex("00", 31) + "02",
				Value: "0x0",
				Proof: []string{"0x1234"},
			},
		},
	}
}

func repeatHex(pair string, n int) string {
	out := make([]byte, 0, len(pair)*n)
	for i := 0; i < n; i++ {
		out = append(out, pair...)
	}
	return string(out)
}

func storageArgs() []mpt.StorageProofArg {
	key1 := make([]byte, 32)
	key1[31] = 1
	key2 := make([]byte, 32)
	key2[31] = 2
	return []mpt.StorageProofArg{
		{Key: key1, Value: []byte{0x2a}},
		{Key: key2, Value: nil},
	}
}

func TestEncode_RoundTripFields(t *testing.T) {
	args := StateProofArgs{
		Address: "0x1111111111111111111111111111111111111111",
		Block:   12345,
		Root:    [32]byte{0x01},
		Storage: storageArgs(),
		Payload: []byte("hello"),
	}

	out, err := Encode(args, sampleResult(), [32]byte{0xaa})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if out.Number != 12345 {
		t.Fatalf("expected number 12345, got %d", out.Number)
	}
	if string(out.Payload) != "hello" {
		t.Fatalf("expected payload to pass through unchanged, got %q", out.Payload)
	}
	if out.StateRoot != ([32]byte{0x01}) {
		t.Fatalf("expected state root to pass through unchanged")
	}
	if out.Domain != ([32]byte{0xaa}) {
		t.Fatalf("expected domain id to pass through unchanged")
	}
	if len(out.Proof) == 0 {
		t.Fatal("expected non-empty packed proof bytes")
	}

	var unpacked mpt.StateProof
	if err := codec.Unpack(out.Proof, &unpacked); err != nil {
		t.Fatalf("unpack packed proof: %v", err)
	}
	if unpacked.Nonce != 7 {
		t.Fatalf("expected nonce 7, got %d", unpacked.Nonce)
	}
	if unpacked.Balance != 10_000_000_000 {
		t.Fatalf("expected balance 10000000000, got %d", unpacked.Balance)
	}
	if len(unpacked.StorageProofs) != 2 {
		t.Fatalf("expected 2 storage proofs, got %d", len(unpacked.StorageProofs))
	}
}

func TestEncode_BalanceOverflowRejected(t *testing.T) {
	args := StateProofArgs{Address: "0x1111111111111111111111111111111111111111", Root: [32]byte{}}
	resp := sampleResult()
	// 2^64, one past the u64 ceiling.
	resp.Balance = "0x10000000000000000"

	if _, err := Encode(args, resp, [32]byte{}); err == nil {
		t.Fatal("expected an error for a balance that overflows u64")
	}
}

func TestEncode_StorageMatchedByKeyNotPosition(t *testing.T) {
	args := StateProofArgs{
		Address: "0x1111111111111111111111111111111111111111",
		Root:    [32]byte{},
		// Request the args in the opposite order from how the host returned them.
		Storage: []mpt.StorageProofArg{storageArgs()[1], storageArgs()[0]},
	}

	out, err := Encode(args, sampleResult(), [32]byte{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var unpacked mpt.StateProof
	if err := codec.Unpack(out.Proof, &unpacked); err != nil {
		t.Fatalf("unpack: %v", err)
	}

	// First requested arg (key ...02) must carry a nil value (absent slot),
	// matched by key, not by the position it appeared in eth_getProof's list.
	if unpacked.StorageProofs[0].Value != nil {
		t.Fatalf("expected first matched slot (key ...02) to be absent, got %x", unpacked.StorageProofs[0].Value)
	}
	if unpacked.StorageProofs[1].Value == nil {
		t.Fatal("expected second matched slot (key ...01) to carry its value")
	}
}

func TestEncode_MissingStorageProofRejected(t *testing.T) {
	key3 := make([]byte, 32)
	key3[31] = 3
	args := StateProofArgs{
		Address: "0x1111111111111111111111111111111111111111",
		Root:    [32]byte{},
		Storage: []mpt.StorageProofArg{{Key: key3, Value: nil}},
	}

	if _, err := Encode(args, sampleResult(), [32]byte{}); err == nil {
		t.Fatal("expected an error when the host has no proof for a requested key")
	}
}
