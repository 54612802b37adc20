// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package validate implements TxVerifier (spec.md §4.5) and
// BlockVerifier (§4.6) on top of blockchain's ChainStore/Overlay/
// CommitmentTree and runtime's contract dispatch. It lives outside
// package blockchain because runtime already imports blockchain for
// the Overlay/CommitmentTree types a CallContext carries — folding
// TxVerifier into blockchain itself would close that into an import
// cycle, so the orchestration layer sits one level up instead,
// grounded on ilxd's verification.rs playing the same role over its
// own blockchain/vm split.
package validate

import (
	"go.uber.org/zap"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/runtime"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/zk"
)

var log = zap.S()

// UpdateLogger swaps the package-level logger, the per-package
// convention ilxd's log.go applies across its tree.
func UpdateLogger(l *zap.SugaredLogger) { log = l }

// VerifyTransaction validates and applies tx against overlay/acc at
// slot, following spec.md §4.5's fixed ordering: metadata for every
// call (populating vkCache along the way), then exec+apply for every
// call, then signatures, then ZK proofs.
func VerifyTransaction(overlay *blockchain.Overlay, acc *blockchain.CommitmentTree, vkCache *zk.VKCache, tx *types.Transaction, slot types.Slot) error {
	calls := tx.Calls

	zkReqs := make([][]runtime.ZkRequirement, len(calls))
	signers := make([][]*crypto.ValidatorPublicKey, len(calls))

	for i, call := range calls {
		ctx := &runtime.CallContext{Overlay: overlay, Accumulator: acc, Calls: calls, CallIndex: i, Slot: slot}
		rt := runtime.New(overlay)
		md, err := rt.Metadata(ctx)
		if err != nil {
			return err
		}
		zkReqs[i] = md.ZkProofs
		signers[i] = md.SigningKeys

		for _, zr := range md.ZkProofs {
			cid := [32]byte(call.ContractID)
			if _, ok := vkCache.Get(cid, zr.Namespace); ok {
				continue
			}
			entry, found, err := overlay.GetZkas(call.ContractID, zr.Namespace)
			if err != nil {
				return err
			}
			if !found {
				return blockchain.NewRuleError(blockchain.ErrInvalidZkProof, "no verifying key registered for "+zr.Namespace)
			}
			vk, err := zk.LoadVerifyingKey(entry.VerifyingKey)
			if err != nil {
				return blockchain.NewRuleError(blockchain.ErrInvalidZkProof, "malformed verifying key for "+zr.Namespace)
			}
			vkCache.Insert(cid, zr.Namespace, vk)
		}
	}

	// TODO: fee enforcement (spec.md §9(b)). Money.TransferParams.Fee is
	// bound inside zk/circuits/standard.StandardCircuit's value-
	// conservation check (inputs == outputs + fee), but nothing past
	// that point collects, floors, or credits the declared fee —
	// mempool.checkFee only gates admission into one node's local
	// mempool, a policy choice that is not itself a consensus rule, and
	// no call site here sums Fee across a block or routes it to a
	// block's proposer.
	for i := range calls {
		ctx := &runtime.CallContext{Overlay: overlay, Accumulator: acc, Calls: calls, CallIndex: i, Slot: slot}
		rt := runtime.New(overlay)
		stateUpdate, err := rt.Exec(ctx)
		if err != nil {
			return err
		}
		if err := rt.Apply(ctx, stateUpdate); err != nil {
			return blockchain.FatalError{ErrorCode: blockchain.ErrRuntimeTrap, Err: err}
		}
	}

	if len(tx.Signatures) != len(calls) {
		return blockchain.NewRuleError(blockchain.ErrMissingSignatures, "per-call signature list length mismatch")
	}
	for i := range calls {
		if len(tx.Signatures[i]) != len(signers[i]) {
			return blockchain.NewRuleError(blockchain.ErrMissingSignatures, "signer count mismatch on call")
		}
	}

	msg, err := tx.SigningPayload()
	if err != nil {
		return err
	}
	for i := range calls {
		for j, pk := range signers[i] {
			if err := pk.Verify(msg, tx.Signatures[i][j]); err != nil {
				return blockchain.NewRuleError(blockchain.ErrInvalidSignature, "signature verification failed")
			}
		}
	}

	if len(tx.Proofs) != len(calls) {
		return blockchain.NewRuleError(blockchain.ErrInvalidZkProof, "per-call proof list length mismatch")
	}
	for i, call := range calls {
		if len(tx.Proofs[i]) != len(zkReqs[i]) {
			return blockchain.NewRuleError(blockchain.ErrInvalidZkProof, "proof count mismatch on call")
		}
		cid := [32]byte(call.ContractID)
		for j, zr := range zkReqs[i] {
			vk, ok := vkCache.Get(cid, zr.Namespace)
			if !ok {
				return blockchain.NewRuleError(blockchain.ErrInvalidZkProof, "verifying key not cached for "+zr.Namespace)
			}
			proof, err := zk.LoadProof(tx.Proofs[i][j])
			if err != nil {
				return blockchain.NewRuleError(blockchain.ErrInvalidZkProof, "malformed proof for "+zr.Namespace)
			}
			if err := zk.Verify(vk, proof, zr.PublicInputs); err != nil {
				return blockchain.NewRuleError(blockchain.ErrInvalidZkProof, "proof verification failed for "+zr.Namespace)
			}
		}
	}

	return nil
}
