// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package validate

import (
	"bytes"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/contracts/consensus"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/zk"
)

// TxOutcome records one user transaction's verification result within
// a block: Err is nil on success, or the RuleError that caused its
// checkpoint to be reverted (spec.md §4.6 step 5, "other txs still
// apply").
type TxOutcome struct {
	TxID types.ID
	Err  error
}

// nextSlot returns the slot a new block must carry given the chain's
// current tip: 0 for an empty chain, else bestSlot+1.
func nextSlot(cs *blockchain.ChainStore) types.Slot {
	bestSlot, bestHash := cs.BestSlotHash()
	if bestHash.IsZero() {
		return 0
	}
	return bestSlot + 1
}

// VerifyBlock validates candidate block blk against cs, optionally
// linking to previous, and — unless testing — verifying its proposal
// transaction (spec.md §4.6). On success it commits blk and its
// accumulated state to cs and returns the per-user-tx outcomes; a
// failing user tx is recorded but does not abort the block, while a
// FatalError anywhere aborts immediately and nothing is committed.
func VerifyBlock(cs *blockchain.ChainStore, acc *blockchain.CommitmentTree, vkCache *zk.VKCache, blk *types.Block, previous *types.Block, testing bool) ([]TxOutcome, error) {
	id, err := blk.ID()
	if err != nil {
		return nil, err
	}
	has, err := cs.HasBlock(id)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, blockchain.NewRuleError(blockchain.ErrBlockAlreadyExists, "block already present in chain store")
	}

	if blk.Header.Slot != nextSlot(cs) {
		return nil, blockchain.NewRuleError(blockchain.ErrVerifyingSlotMismatch, "block slot does not match verifying slot")
	}

	if blk.Header.Slot != 0 {
		if previous == nil {
			return nil, blockchain.NewRuleError(blockchain.ErrBlockPreviousMissing, "previous block required past slot 0")
		}
		prevID, err := previous.ID()
		if err != nil {
			return nil, err
		}
		if blk.Header.Parent != prevID {
			return nil, blockchain.NewRuleError(blockchain.ErrBlockPreviousMissing, "header parent does not link to previous block")
		}
		root, err := types.ComputeTxRoot(blk.Transactions)
		if err != nil {
			return nil, err
		}
		if root != blk.Header.TxRoot {
			return nil, blockchain.NewRuleError(blockchain.ErrCommitmentMismatch, "header tx root does not match transaction list")
		}
	}

	overlay := blockchain.NewOverlay(cs)

	if err := verifyProposal(overlay, acc, vkCache, blk, testing); err != nil {
		return nil, err
	}

	outcomes := make([]TxOutcome, 0, len(blk.Transactions))
	for _, tx := range blk.Transactions {
		txID, err := tx.ID()
		if err != nil {
			return nil, err
		}
		tok := overlay.Checkpoint()
		acc.Checkpoint(uint64(tok))

		verr := VerifyTransaction(overlay, acc, vkCache, tx, blk.Header.Slot)
		if verr != nil {
			if fatal, ok := verr.(blockchain.FatalError); ok {
				return nil, fatal
			}
			overlay.RevertToCheckpoint(tok)
			if rerr := acc.Rewind(); rerr != nil {
				return nil, rerr
			}
			outcomes = append(outcomes, TxOutcome{TxID: txID, Err: verr})
			continue
		}
		outcomes = append(outcomes, TxOutcome{TxID: txID})
	}

	update := overlay.Commit()
	if err := cs.AppendBlock(blk, update); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// verifyProposal enforces spec.md §4.6 step 4: in production mode the
// proposal must be exactly one Consensus/Proposal(0x02) call (or the
// canonical empty default at slot 0), and must itself pass TxVerifier.
func verifyProposal(overlay *blockchain.Overlay, acc *blockchain.CommitmentTree, vkCache *zk.VKCache, blk *types.Block, testing bool) error {
	if testing {
		return nil
	}
	if blk.Header.Slot == 0 {
		got, err := serial.Encode(blk.ProposalTx)
		if err != nil {
			return err
		}
		want, err := serial.Encode(types.EmptyProposal())
		if err != nil {
			return err
		}
		if !bytes.Equal(got, want) {
			return blockchain.NewRuleError(blockchain.ErrCommitmentMismatch, "genesis proposal must equal the canonical empty default")
		}
		return nil
	}
	if len(blk.ProposalTx.Calls) != 1 {
		return blockchain.NewRuleError(blockchain.ErrArityMismatch, "proposal transaction must contain exactly one call")
	}
	call := blk.ProposalTx.Calls[0]
	if call.ContractID != types.ConsensusContractID || call.Selector() != consensus.SelectorProposal {
		return blockchain.NewRuleError(blockchain.ErrArityMismatch, "proposal transaction must call Consensus.Proposal")
	}
	return VerifyTransaction(overlay, acc, vkCache, blk.ProposalTx, blk.Header.Slot)
}
