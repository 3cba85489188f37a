// Package errs defines the coprocessor's error taxonomy: a small set of
// typed error kinds that downstream callers (the service loop, the domain
// controller, the circuits) branch on by type, not by string matching.
package errs

import "fmt"

// CodecError wraps a failure to pack or unpack a canonical wire value:
// malformed packed blob, base64, or CBOR.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string { return fmt.Sprintf("codec: %s: %v", e.Op, e.Err) }
func (e *CodecError) Unwrap() error { return e.Err }

// NewCodec constructs a CodecError.
func NewCodec(op string, err error) *CodecError { return &CodecError{Op: op, Err: err} }

// InvariantError reports a violated data-model invariant: a hash of the
// wrong length, a slot pre-image not exactly 32 bytes, a non-monotonic
// block number, or a value that cannot be narrowed without loss.
type InvariantError struct {
	What string
}

func (e *InvariantError) Error() string { return fmt.Sprintf("invariant violated: %s", e.What) }

// NewInvariant constructs an InvariantError.
func NewInvariant(what string) *InvariantError { return &InvariantError{What: what} }

// TrieSubject identifies which half of a StateProof a TrieError concerns.
type TrieSubject int

const (
	TrieSubjectAccount TrieSubject = iota
	TrieSubjectStorage
)

// TrieError reports an MPT inclusion/exclusion verification failure.
type TrieError struct {
	Subject  TrieSubject
	Index    int // meaningful only when Subject == TrieSubjectStorage
	Upstream error
}

func (e *TrieError) Error() string {
	if e.Subject == TrieSubjectStorage {
		return fmt.Sprintf("trie: storage proof %d invalid: %v", e.Index, e.Upstream)
	}
	return fmt.Sprintf("trie: account proof invalid: %v", e.Upstream)
}
func (e *TrieError) Unwrap() error { return e.Upstream }

// NewTrieAccount constructs a TrieError for the account proof.
func NewTrieAccount(upstream error) *TrieError {
	return &TrieError{Subject: TrieSubjectAccount, Upstream: upstream}
}

// NewTrieStorage constructs a TrieError for storage proof at index i.
func NewTrieStorage(i int, upstream error) *TrieError {
	return &TrieError{Subject: TrieSubjectStorage, Index: i, Upstream: upstream}
}

// ConsensusErrorKind enumerates the update-verifier error kinds this system
// cares about. Only the first four are ever tolerated; everything else maps
// to KindFatal.
type ConsensusErrorKind int

const (
	KindInvalidTimestamp ConsensusErrorKind = iota
	KindInvalidPeriod
	KindNotRelevant
	KindCheckpointTooOld
	KindFatal
)

func (k ConsensusErrorKind) String() string {
	switch k {
	case KindInvalidTimestamp:
		return "InvalidTimestamp"
	case KindInvalidPeriod:
		return "InvalidPeriod"
	case KindNotRelevant:
		return "NotRelevant"
	case KindCheckpointTooOld:
		return "CheckpointTooOld"
	default:
		return "Fatal"
	}
}

// Tolerated reports whether this kind must be skipped rather than aborting
// the state transition (spec §4.5 / §7).
func (k ConsensusErrorKind) Tolerated() bool {
	switch k {
	case KindInvalidTimestamp, KindInvalidPeriod, KindNotRelevant, KindCheckpointTooOld:
		return true
	default:
		return false
	}
}

// ConsensusError reports a sync-committee/finality update verification
// failure, tagged with the kind so the LC state-transition filter can
// decide tolerated-vs-fatal without string matching.
type ConsensusError struct {
	Kind    ConsensusErrorKind
	Message string
}

func (e *ConsensusError) Error() string {
	return fmt.Sprintf("consensus(%s): %s", e.Kind, e.Message)
}

// NewConsensus constructs a ConsensusError.
func NewConsensus(kind ConsensusErrorKind, message string) *ConsensusError {
	return &ConsensusError{Kind: kind, Message: message}
}

// ProverError reports a witness-generation, recursive-proof-assembly, or
// Groth16 verification failure.
type ProverError struct {
	Stage string // "witness" | "inner" | "wrapper" | "verify"
	Err   error
}

func (e *ProverError) Error() string { return fmt.Sprintf("prover(%s): %v", e.Stage, e.Err) }
func (e *ProverError) Unwrap() error { return e.Err }

// NewProver constructs a ProverError.
func NewProver(stage string, err error) *ProverError { return &ProverError{Stage: stage, Err: err} }

// RemoteError reports a beacon/execution RPC or host KV call failure. These
// are retried by the service loop, never fatal on their own.
type RemoteError struct {
	Endpoint string
	Err      error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("remote(%s): %v", e.Endpoint, e.Err) }
func (e *RemoteError) Unwrap() error { return e.Err }

// NewRemote constructs a RemoteError.
func NewRemote(endpoint string, err error) *RemoteError { return &RemoteError{Endpoint: endpoint, Err: err} }

// ConfigurationError reports a missing environment variable or bad CLI
// argument; fatal at startup, never recovered at runtime.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration(%s): %v", e.Field, e.Err)
}
func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfiguration constructs a ConfigurationError.
func NewConfiguration(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: err}
}
