// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package harness

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/shroud-chain/shroudd/contracts/money"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/validate"
	"github.com/shroud-chain/shroudd/zk/circuits/standard"
)

// TransferOutput names the recipient and value of one output the
// caller wants BuildTransferTx to mint.
type TransferOutput struct {
	PubKey *crypto.ValidatorPublicKey
	Value  types.Amount
}

// PendingTransfer bundles a built Money.Transfer transaction with the
// two fresh output notes it proposes to mint, kept separate from
// TestHarness's own bookkeeping until the block that carries the
// transaction actually commits (generate.go's separation of "build"
// from "commit" mirrors ilxd/blockchain/harness/generate.go's own
// two-phase spend-then-chain flow).
type PendingTransfer struct {
	Tx       *types.Transaction
	NewNotes [standard.MaxOutputs]*SpendableNote
}

// BuildTransferTx spends exactly two owned inputs into exactly two
// outputs (one of which may carry a zero value), producing a real
// Groth16 proof against the harness's standard-circuit proving key.
// Padding unused input/output slots with zero values is deliberately
// never supported: StandardCircuit enforces a Merkle-inclusion check
// for every input slot unconditionally, so a zero-valued "empty" input
// would still need a valid witness against the live root, something a
// genuinely unused slot cannot supply.
func (h *TestHarness) BuildTransferTx(inputs [standard.MaxInputs]*SpendableNote, outputs [standard.MaxOutputs]TransferOutput, fee types.Amount) (*PendingTransfer, error) {
	root := h.acc.Root()

	var params money.TransferParams
	params.Fee = fee

	var circuitInputs [standard.MaxInputs]standard.Input
	for i, in := range inputs {
		nullifier, err := in.Nullifier()
		if err != nil {
			return nil, err
		}
		params.Nullifiers[i] = nullifier

		x, y, err := in.PubKey.ToXY()
		if err != nil {
			return nil, err
		}
		secretBytes, err := in.SecretKey.Bytes()
		if err != nil {
			return nil, err
		}

		hashes, err := h.acc.Witness(in.LeafIndex)
		if err != nil {
			return nil, err
		}
		var hashVars [standard.TreeDepth]frontend.Variable
		var flagVars [standard.TreeDepth]frontend.Variable
		idx := in.LeafIndex
		for lvl := 0; lvl < standard.TreeDepth; lvl++ {
			hashVars[lvl] = crypto.BytesToField(hashes[lvl][:])
			flagVars[lvl] = idx & 1
			idx >>= 1
		}

		circuitInputs[i] = standard.Input{
			PubX:      x,
			PubY:      y,
			Value:     uint64(in.Note.Value),
			TokenID:   crypto.BytesToField(in.Note.TokenID[:]),
			Serial:    crypto.BytesToField(in.Note.Serial[:]),
			SecretKey: crypto.BytesToField(secretBytes),
			InclusionProof: standard.InclusionProof{
				Hashes: hashVars,
				Flags:  flagVars,
			},
		}
	}

	var circuitOutputs [standard.MaxOutputs]standard.Output
	newNotes := [standard.MaxOutputs]*SpendableNote{}
	for i, out := range outputs {
		var serialBytes [32]byte
		if _, err := rand.Read(serialBytes[:]); err != nil {
			return nil, err
		}
		note := types.Note{Value: out.Value, Serial: serialBytes}
		coin, err := types.ComputeCoinCommitment(out.PubKey, &note)
		if err != nil {
			return nil, err
		}
		params.Outputs[i] = coin

		x, y, err := out.PubKey.ToXY()
		if err != nil {
			return nil, err
		}
		circuitOutputs[i] = standard.Output{
			PubX:    x,
			PubY:    y,
			Value:   uint64(out.Value),
			TokenID: crypto.BytesToField(note.TokenID[:]),
			Serial:  crypto.BytesToField(note.Serial[:]),
		}

		newNotes[i] = &SpendableNote{
			Note:   note,
			PubKey: out.PubKey,
			Coin:   coin,
		}
	}

	assignment := &standard.StandardCircuit{
		TxoRoot: crypto.BytesToField(root[:]),
		Fee:     uint64(fee),
		Inputs:  circuitInputs,
		Outputs: circuitOutputs,
	}
	for i, n := range params.Nullifiers {
		assignment.Nullifiers[i] = crypto.BytesToField(n[:])
	}
	for i, c := range params.Outputs {
		assignment.Commitments[i] = crypto.BytesToField(c.Commitment[:])
	}

	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}
	proof, err := groth16.Prove(h.ccs, h.pk, w)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return nil, err
	}

	payload, err := serial.Encode(&params)
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{
		Calls: []*types.ContractCall{{
			ContractID: types.MoneyContractID,
			Payload:    append([]byte{money.SelectorTransfer}, payload...),
		}},
		Proofs:     [][][]byte{{proofBuf.Bytes()}},
		Signatures: [][][]byte{{}},
	}

	return &PendingTransfer{Tx: tx, NewNotes: newNotes}, nil
}

// GenerateBlock assembles pending transfers into a block at the
// chain's next slot with the canonical empty proposal, verifies it
// with testing=true (the Consensus contract's leader-election proposal
// is out of scope here, spec.md's Non-goals for consensus policy), and
// on success marks each successful transfer's new outputs as spendable
// at their now-known leaf positions.
func (h *TestHarness) GenerateBlock(pending []*PendingTransfer) (*types.Block, []validate.TxOutcome, error) {
	txs := make([]*types.Transaction, len(pending))
	for i, p := range pending {
		txs[i] = p.Tx
	}

	slot, parent := h.nextSlotAndParent()
	var previous *types.Block
	if slot != 0 {
		blk, err := h.chain.GetBlock(parent)
		if err != nil {
			return nil, nil, err
		}
		previous = blk
	}

	txRoot, err := types.ComputeTxRoot(txs)
	if err != nil {
		return nil, nil, err
	}
	blk := &types.Block{
		Header: &types.BlockHeader{
			Slot:       slot,
			Parent:     parent,
			TxRoot:     txRoot,
			ProducerID: types.ContractId{},
			Version:    1,
		},
		ProposalTx:   types.EmptyProposal(),
		Transactions: txs,
	}

	startPos := h.acc.NumLeaves()
	outcomes, err := validate.VerifyBlock(h.chain, h.acc, h.vkCache, blk, previous, true)
	if err != nil {
		return nil, nil, err
	}

	pos := startPos
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			continue
		}
		for _, note := range pending[i].NewNotes {
			note.LeafIndex = pos
			h.acc.Mark(pos)
			pos++
			h.spendableNotes = append(h.spendableNotes, note)
		}
	}

	if err := h.chain.PersistAccumulator(h.acc); err != nil {
		return nil, nil, err
	}
	return blk, outcomes, nil
}

func (h *TestHarness) nextSlotAndParent() (types.Slot, types.ID) {
	bestSlot, bestHash := h.chain.BestSlotHash()
	if bestHash.IsZero() {
		return 0, types.ID{}
	}
	return bestSlot + 1, bestHash
}
