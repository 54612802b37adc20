// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package runtime implements the three-phase contract ABI
// (metadata/exec/apply) spec.md §4.4 defines, dispatching each call by
// ContractId to either a statically registered native Go
// implementation (Money, Consensus, Deploy) or a sandboxed
// runtime/lurk program loaded from Overlay-stored bytecode. This is
// DarkFi's own "native contracts are compiled in, user contracts are
// interpreted" split (SPEC_FULL.md §3.2), not WASM-style dynamic
// loading for either.
package runtime

import (
	"math/big"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/runtime/lurk"
	"github.com/shroud-chain/shroudd/types"
)

// ZkRequirement names one ZK proof a call requires: the zkas namespace
// to fetch the VerifyingKey for, and the ordered public inputs the
// proof must be checked against (spec.md §4.4 step 1).
type ZkRequirement struct {
	Namespace    string
	PublicInputs []*big.Int
}

// CallMetadata is metadata's deterministic return value (spec.md §4.4
// step 1): the ZK proofs and signing keys this call requires, in the
// order TxVerifier must check them against tx.Proofs[i]/tx.Signatures[i].
type CallMetadata struct {
	ZkProofs    []ZkRequirement
	SigningKeys []*crypto.ValidatorPublicKey
}

// CallContext is the shared per-call frame handed to every phase:
// call index, the full sibling-call list (so a contract may
// cross-reference, e.g. an atomic swap's counterparty call), the
// current slot, the Overlay the call executes against, and the
// coin-commitment accumulator new outputs are appended to.
type CallContext struct {
	Overlay     *blockchain.Overlay
	Accumulator *blockchain.CommitmentTree
	Calls       []*types.ContractCall
	CallIndex   int
	Slot        types.Slot
}

// Call returns the ContractCall this context's phase is being invoked
// for.
func (c *CallContext) Call() *types.ContractCall { return c.Calls[c.CallIndex] }

// Contract is the three-entry-point ABI every contract — native or
// lurk-interpreted — implements (spec.md §4.4).
type Contract interface {
	// Metadata is read-only over Overlay; no side effects.
	Metadata(ctx *CallContext) (*CallMetadata, error)
	// Exec is a pure function of Overlay state; it must not write
	// Overlay directly, returning an opaque state_update blob instead.
	Exec(ctx *CallContext) ([]byte, error)
	// Apply writes stateUpdate to Overlay. Failure here is fatal.
	Apply(ctx *CallContext, stateUpdate []byte) error
}

var nativeRegistry = make(map[types.ContractId]Contract)

// RegisterNative installs a statically linked contract implementation
// under id, called from each contracts/* package's init(). Native ids
// are the process-wide constants in types/id.go; this registry itself
// is read-only after process init, never mutated per-batch.
func RegisterNative(id types.ContractId, c Contract) {
	nativeRegistry[id] = c
}

// Runtime loads and dispatches contract calls for one TxVerifier pass
// (spec.md §4.4/§4.5). VerifyTransaction creates a fresh Runtime for
// each call's metadata and exec/apply steps, so no state leaks across
// calls within or across transactions.
type Runtime struct {
	overlay *blockchain.Overlay
}

// New returns a Runtime bound to overlay.
func New(overlay *blockchain.Overlay) *Runtime {
	return &Runtime{overlay: overlay}
}

func (r *Runtime) resolve(id types.ContractId) (Contract, error) {
	if c, ok := nativeRegistry[id]; ok {
		return c, nil
	}
	code, found, err := r.overlay.GetContractBytecode(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &TrapError{ContractID: id.String(), Phase: "resolve", Err: errNoSuchContract}
	}
	prog, err := lurk.Load(string(code))
	if err != nil {
		return nil, &TrapError{ContractID: id.String(), Phase: "load", Err: err}
	}
	return &lurkContract{id: id, program: prog, overlay: r.overlay}, nil
}

// Metadata invokes the named call's metadata phase (spec.md §4.4
// step 1).
//
// TODO: no check here (or in any contract's Metadata) asserts that a
// call's params decode consumes every byte of call.Payload[1:]
// (spec.md §9(d)). A payload with trailing garbage past a
// well-formed params encoding currently decodes successfully and
// silently ignores the tail instead of being rejected.
func (r *Runtime) Metadata(ctx *CallContext) (*CallMetadata, error) {
	c, err := r.resolve(ctx.Call().ContractID)
	if err != nil {
		return nil, err
	}
	md, err := c.Metadata(ctx)
	if err != nil {
		return nil, &TrapError{ContractID: ctx.Call().ContractID.String(), Phase: "metadata", Err: err}
	}
	return md, nil
}

// Exec invokes the named call's exec phase (spec.md §4.4 step 2).
func (r *Runtime) Exec(ctx *CallContext) ([]byte, error) {
	c, err := r.resolve(ctx.Call().ContractID)
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx)
}

// Apply invokes the named call's apply phase (spec.md §4.4 step 3).
// A failure here is always fatal: exec already committed to a
// state_update derived from the current Overlay view.
func (r *Runtime) Apply(ctx *CallContext, stateUpdate []byte) error {
	c, err := r.resolve(ctx.Call().ContractID)
	if err != nil {
		return err
	}
	if err := c.Apply(ctx, stateUpdate); err != nil {
		return &TrapError{ContractID: ctx.Call().ContractID.String(), Phase: "apply", Err: err}
	}
	return nil
}

var errNoSuchContract = trapSentinel("no contract registered or deployed at this id")

type trapSentinel string

func (e trapSentinel) Error() string { return string(e) }
