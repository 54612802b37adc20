// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorCode enumerates the validator engine's error taxonomy (spec.md
// §7). Each kind is distinct and testable.
type ErrorCode int

const (
	// Structural
	ErrMalformedEncoding ErrorCode = iota
	ErrMissingSignatures
	ErrArityMismatch

	// Cryptographic
	ErrInvalidSignature
	ErrInvalidZkProof
	ErrCommitmentMismatch

	// State
	ErrBlockAlreadyExists
	ErrBlockPreviousMissing
	ErrVerifyingSlotMismatch
	ErrDoubleSpend
	ErrTreeFull

	// Consensus-timing
	ErrNotGenesisSlot
	ErrBeforeGracePeriod
	ErrDuplicateStake
	ErrConsensusTimingViolation

	// Fatal
	ErrRuntimeTrap
	ErrStorageCorruption
)

func (c ErrorCode) String() string {
	switch c {
	case ErrMalformedEncoding:
		return "MalformedEncoding"
	case ErrMissingSignatures:
		return "MissingSignatures"
	case ErrArityMismatch:
		return "ArityMismatch"
	case ErrInvalidSignature:
		return "InvalidSignature"
	case ErrInvalidZkProof:
		return "InvalidZkProof"
	case ErrCommitmentMismatch:
		return "CommitmentMismatch"
	case ErrBlockAlreadyExists:
		return "BlockAlreadyExists"
	case ErrBlockPreviousMissing:
		return "BlockPreviousMissing"
	case ErrVerifyingSlotMismatch:
		return "VerifyingSlotMismatch"
	case ErrDoubleSpend:
		return "DoubleSpend"
	case ErrTreeFull:
		return "TreeFull"
	case ErrNotGenesisSlot:
		return "NotGenesisSlot"
	case ErrBeforeGracePeriod:
		return "BeforeGracePeriod"
	case ErrDuplicateStake:
		return "DuplicateStake"
	case ErrConsensusTimingViolation:
		return "ConsensusTimingViolation"
	case ErrRuntimeTrap:
		return "RuntimeTrap"
	case ErrStorageCorruption:
		return "StorageCorruption"
	default:
		return "Unknown"
	}
}

// RuleError is a validation failure attributable to the data under
// review (a malformed block, an invalid signature, a double spend) as
// opposed to a bug in the validator itself. It carries a machine
// readable ErrorCode so callers can distinguish "invalid now" from
// "invalid forever" (spec.md §6, "Error taxonomy on the wire").
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule error (%s): %s", e.ErrorCode, e.Description)
}

// NewRuleError constructs a RuleError with the given code and message.
func NewRuleError(code ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: code, Description: desc}
}

// ErrorIs reports whether err is a RuleError carrying the given code.
func ErrorIs(err error, code ErrorCode) bool {
	re, ok := err.(RuleError)
	if !ok {
		return false
	}
	return re.ErrorCode == code
}

// OrphanBlockError indicates the candidate block's parent is not yet
// present in ChainStore; it may become valid once the parent connects.
type OrphanBlockError struct {
	Description string
}

func (e OrphanBlockError) Error() string {
	return fmt.Sprintf("orphan block: %s", e.Description)
}

// FatalError wraps an error the validator cannot recover from
// (RuntimeTrap, StorageCorruption): the block-verify must abort and its
// Overlay must be discarded rather than partially committed.
type FatalError struct {
	ErrorCode ErrorCode
	Err       error
}

func (e FatalError) Error() string {
	return fmt.Sprintf("fatal error (%s): %v", e.ErrorCode, e.Err)
}

func (e FatalError) Unwrap() error { return e.Err }
