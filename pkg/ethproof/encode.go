// Copyright 2025 Certen Protocol

package ethproof

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/mpt"
)

// EncodedProof is the output of the proof encoder: the canonical packed
// StateProof-wire bytes plus the metadata a host publishes alongside it
// (spec §4.3: "domain = identifier_from_parts(domain_name), state_root =
// args.root, number = args.block, payload = args.payload, proof =
// pack(StateProof-wire)").
type EncodedProof struct {
	Domain    codec.Hash32
	StateRoot codec.Hash32
	Number    uint64
	Payload   []byte
	Proof     []byte
}

// Encode normalizes a raw eth_getProof response and the caller-supplied
// StateProofArgs into a canonical StateProof blob. Storage proofs are
// matched to caller-supplied arguments by key (spec §9's recommended
// alternative to positional zip), which is robust against the host
// returning storage proofs in a different order than the caller requested
// them.
func Encode(args StateProofArgs, resp EIP1186Result, domainID [32]byte) (*EncodedProof, error) {
	addr, err := decodeAddress(resp.Address)
	if err != nil {
		return nil, errs.NewInvariant(fmt.Sprintf("invalid account address: %v", err))
	}

	nonce, err := hexToUint64(resp.Nonce)
	if err != nil {
		return nil, errs.NewInvariant(fmt.Sprintf("invalid nonce: %v", err))
	}

	balanceBig, err := hexToBigInt(resp.Balance)
	if err != nil {
		return nil, errs.NewInvariant(fmt.Sprintf("invalid balance: %v", err))
	}
	// Balance is 256-bit on Ethereum but narrowed to u64 on the wire (spec
	// §9): assert rather than silently truncate.
	if !balanceBig.IsUint64() {
		return nil, errs.NewInvariant(fmt.Sprintf("balance %s does not fit in u64", balanceBig.String()))
	}
	balance := balanceBig.Uint64()

	storageRoot, err := decodeHash(resp.StorageHash)
	if err != nil {
		return nil, errs.NewInvariant(fmt.Sprintf("invalid storage hash: %v", err))
	}
	codeHash, err := decodeHash(resp.CodeHash)
	if err != nil {
		return nil, errs.NewInvariant(fmt.Sprintf("invalid code hash: %v", err))
	}

	accountProof, err := decodeHexList(resp.AccountProof)
	if err != nil {
		return nil, errs.NewInvariant(fmt.Sprintf("invalid account proof: %v", err))
	}

	storageProofs, err := matchStorageProofs(args.Storage, resp.StorageProof)
	if err != nil {
		return nil, err
	}

	wire := mpt.StateProof{
		StateRoot:     args.Root,
		Account:       addr,
		Nonce:         nonce,
		Balance:       balance,
		StorageRoot:   storageRoot,
		CodeHash:      codeHash,
		AccountProof:  accountProof,
		StorageProofs: storageProofs,
	}

	packed, err := codec.Pack(wire)
	if err != nil {
		return nil, err
	}

	return &EncodedProof{
		Domain:    domainID,
		StateRoot: args.Root,
		Number:    args.Block,
		Payload:   args.Payload,
		Proof:     packed,
	}, nil
}

// matchStorageProofs pairs each caller-requested storage arg with the
// host-returned proof for the same normalized key.
func matchStorageProofs(requested []mpt.StorageProofArg, returned []EIP1186StorageProof) ([]mpt.StorageProof, error) {
	byKey := make(map[[32]byte]EIP1186StorageProof, len(returned))
	for _, sp := range returned {
		key, err := normalizeKey(sp.Key)
		if err != nil {
			return nil, errs.NewInvariant(fmt.Sprintf("invalid storage proof key: %v", err))
		}
		byKey[key] = sp
	}

	out := make([]mpt.StorageProof, 0, len(requested))
	for _, req := range requested {
		var key [32]byte
		if len(req.Key) != 32 {
			return nil, errs.NewInvariant(fmt.Sprintf("storage key must be 32 bytes, got %d", len(req.Key)))
		}
		copy(key[:], req.Key)

		hostProof, ok := byKey[key]
		if !ok {
			return nil, errs.NewInvariant(fmt.Sprintf("no host storage proof for key %x", key))
		}

		proofNodes, err := decodeHexList(hostProof.Proof)
		if err != nil {
			return nil, errs.NewInvariant(fmt.Sprintf("invalid storage proof nodes: %v", err))
		}

		value, err := normalizeStorageValue(hostProof.Value)
		if err != nil {
			return nil, errs.NewInvariant(fmt.Sprintf("invalid storage value: %v", err))
		}

		out = append(out, mpt.StorageProof{
			StorageProofArg: mpt.StorageProofArg{Key: req.Key, Value: value},
			Proof:           proofNodes,
		})
	}
	return out, nil
}

// normalizeStorageValue drops empty values (the "0x0"/"0x" non-membership
// convention eth_getProof uses) to nil, and otherwise returns the RLP
// encoding of the value with leading zero bytes trimmed, the form a
// storage-trie leaf holds.
func normalizeStorageValue(hexVal string) ([]byte, error) {
	trimmed := strings.TrimPrefix(hexVal, "0x")
	if trimmed == "" || trimmed == "0" {
		return nil, nil
	}
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, err
	}
	for i, c := range b {
		if c != 0 {
			return rlp.EncodeToBytes(b[i:])
		}
	}
	return nil, nil
}

func normalizeKey(hexKey string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(hexKey, "0x")
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, err
	}
	if len(b) > 32 {
		return out, fmt.Errorf("key longer than 32 bytes")
	}
	copy(out[32-len(b):], b)
	return out, nil
}

func decodeAddress(hexAddr string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimPrefix(hexAddr, "0x")
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, err
	}
	if len(b) != 20 {
		return out, fmt.Errorf("address must be 20 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decodeHash(hexHash string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(hexHash, "0x")
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decodeHexList(list []string) ([][]byte, error) {
	out := make([][]byte, len(list))
	for i, s := range list {
		trimmed := strings.TrimPrefix(s, "0x")
		b, err := hex.DecodeString(trimmed)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func hexToUint64(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return 0, nil
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex integer %q", s)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("value %s does not fit in u64", v.String())
	}
	return v.Uint64(), nil
}

func hexToBigInt(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex integer %q", s)
	}
	return v, nil
}
