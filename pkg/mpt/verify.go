// Copyright 2025 Certen Protocol

package mpt

import (
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/certen/eth-lc-coprocessor/pkg/errs"
)

// proofDB builds an in-memory key-value store of proof nodes keyed by their
// own keccak256 hash, which is the shape trie.VerifyProof expects: each
// node in an MPT proof is addressed by the hash its parent references.
func proofDB(nodes [][]byte) *memorydb.Database {
	db := memorydb.New()
	for _, n := range nodes {
		h := crypto.Keccak256(n)
		// memorydb.Put never fails for an in-memory store.
		_ = db.Put(h, n)
	}
	return db
}

// VerifyAccount verifies that the account identified by addr, with the
// given nonce/balance/storageRoot/codeHash, is included under stateRoot,
// per spec §4.2 steps 1-3. It is pure, deterministic, and side-effect-free.
func VerifyAccount(stateRoot [32]byte, addr [20]byte, nonce uint64, balance *big.Int, storageRoot, codeHash [32]byte, accountProof [][]byte) error {
	key := crypto.Keccak256(addr[:])

	encoded, err := EncodeAccount(nonce, balance, storageRoot, codeHash)
	if err != nil {
		return errs.NewTrieAccount(fmt.Errorf("rlp-encode account: %w", err))
	}

	db := proofDB(accountProof)
	value, err := trie.VerifyProof(common.Hash(stateRoot), key, db)
	if err != nil {
		return errs.NewTrieAccount(err)
	}
	if value == nil {
		return errs.NewTrieAccount(fmt.Errorf("no exclusion proof is accepted for accounts"))
	}
	if subtle.ConstantTimeCompare(value, encoded) != 1 {
		return errs.NewTrieAccount(fmt.Errorf("leaf value does not match encoded account"))
	}
	return nil
}

// VerifyStorage verifies a single storage-slot claim against storageRoot,
// per spec §4.2 step 4. A nil arg.Value claims non-membership and must be
// backed by an exclusion proof; a non-nil value must be backed by an
// inclusion proof whose leaf equals that value exactly.
func VerifyStorage(storageRoot [32]byte, arg StorageProofArg, proof [][]byte) error {
	if len(arg.Key) != 32 {
		return errs.NewInvariant(fmt.Sprintf("storage key must be 32 bytes, got %d", len(arg.Key)))
	}

	key := crypto.Keccak256(arg.Key)
	db := proofDB(proof)

	value, err := trie.VerifyProof(common.Hash(storageRoot), key, db)
	if err != nil {
		return errs.NewTrieStorage(0, err)
	}

	if arg.Value == nil {
		if value != nil {
			return errs.NewTrieStorage(0, fmt.Errorf("expected exclusion proof but slot is present"))
		}
		return nil
	}

	if value == nil {
		return errs.NewTrieStorage(0, fmt.Errorf("expected inclusion proof but slot is absent"))
	}
	if subtle.ConstantTimeCompare(value, arg.Value) != 1 {
		return errs.NewTrieStorage(0, fmt.Errorf("leaf value does not match claimed storage value"))
	}
	return nil
}

// VerifyStateProof verifies the full StateProof: the account binding, then
// every storage-slot claim, returning the ProvenAccount on success.
// Flipping any byte of state_root, account, any account_proof entry, or any
// storage_proofs[j].proof[k] entry causes verification to fail (spec §8.2).
func VerifyStateProof(sp *StateProof, payload []byte) (*ProvenAccount, error) {
	balance := new(big.Int).SetUint64(sp.Balance)

	if err := VerifyAccount(sp.StateRoot, sp.Account, sp.Nonce, balance, sp.StorageRoot, sp.CodeHash, sp.AccountProof); err != nil {
		return nil, err
	}

	storage := make([]StorageProofArg, 0, len(sp.StorageProofs))
	for i, p := range sp.StorageProofs {
		if err := VerifyStorage(sp.StorageRoot, p.StorageProofArg, p.Proof); err != nil {
			if te, ok := err.(*errs.TrieError); ok {
				te.Index = i
			}
			return nil, err
		}
		storage = append(storage, p.StorageProofArg)
	}

	return &ProvenAccount{
		Account: sp.Account,
		Storage: storage,
		Payload: payload,
	}, nil
}
