// Copyright 2025 Certen Protocol

package mpt

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// rlpAccount is the canonical Ethereum account record in its RLP field
// order: nonce, balance, storage root, code hash. Defined locally rather
// than imported from go-ethereum/core/types so the encoding contract here
// does not drift if that internal type's representation changes upstream;
// the rlp package itself — the thing actually being grounded on — is used
// directly.
type rlpAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     [32]byte
	CodeHash []byte
}

// EncodeAccount RLP-encodes an account in canonical Ethereum order, per
// spec §4.2 step 2. balance is represented as a 256-bit unsigned integer on
// the wire even though the coprocessor's own StateProof narrows it to
// uint64 (see pkg/ethproof for that narrowing and its invariant check).
func EncodeAccount(nonce uint64, balance *big.Int, storageRoot, codeHash [32]byte) ([]byte, error) {
	acct := rlpAccount{
		Nonce:    nonce,
		Balance:  balance,
		Root:     storageRoot,
		CodeHash: codeHash[:],
	}
	return rlp.EncodeToBytes(&acct)
}
