// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package validate_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	cs_constraint "github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/contracts/consensus"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/validate"
	"github.com/shroud-chain/shroudd/zk"
	"github.com/shroud-chain/shroudd/zk/circuits/stake"
)

// stakeHarness drives the Consensus contract's lifecycle (spec.md
// §4.7 / §8 scenarios 1-5) through real VerifyBlock calls, performing
// a real Groth16 trusted setup for stake.StakeCircuit so Proposal/
// UnstakeRequest/Unstake calls carry genuine proofs rather than
// bypassing verification, the same shape harness.TestHarness uses for
// the Money transfer circuit.
type stakeHarness struct {
	t         *testing.T
	cs        *blockchain.ChainStore
	acc       *blockchain.CommitmentTree
	vkCache   *zk.VKCache
	netParams *params.NetworkParams

	ccs cs_constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// newStakeHarness compiles and sets up stake.StakeCircuit, then
// commits a slot-0 block carrying genesisTxs (typically one or more
// Consensus.GenesisStake calls, which require no proof) alongside the
// circuit's verifying key registered under all three proof-requiring
// Consensus namespaces, mirroring harness.TestHarness.buildGenesis's
// "zkas registration and the first real calls share one genesis
// block" shape.
func newStakeHarness(t *testing.T, genesisTxs ...*types.Transaction) *stakeHarness {
	t.Helper()
	netParams := &params.RegtestParams

	var circuit stake.StakeCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	require.NoError(t, err)
	pk, vk, err := groth16.Setup(ccs)
	require.NoError(t, err)

	cs, acc, vkCache := newTestChain(t)

	var vkBuf bytes.Buffer
	_, err = vk.WriteTo(&vkBuf)
	require.NoError(t, err)
	vkEntry := &blockchain.ZkasEntry{VerifyingKey: vkBuf.Bytes()}

	overlay := blockchain.NewOverlay(cs)
	for _, ns := range []string{"consensus/proposal", "consensus/unstake_request", "consensus/unstake"} {
		require.NoError(t, overlay.DeployZkas(types.ConsensusContractID, ns, vkEntry))
	}
	for _, tx := range genesisTxs {
		require.NoError(t, validate.VerifyTransaction(overlay, acc, vkCache, tx, 0))
	}
	update := overlay.Commit()

	txRoot, err := types.ComputeTxRoot(genesisTxs)
	require.NoError(t, err)
	genesis := &types.Block{
		Header: &types.BlockHeader{
			Slot:    0,
			Parent:  types.ID{},
			TxRoot:  txRoot,
			Version: 1,
		},
		ProposalTx:   types.EmptyProposal(),
		Transactions: genesisTxs,
	}
	require.NoError(t, cs.AppendBlock(genesis, update))
	for i := range genesisTxs {
		acc.Mark(uint64(i))
	}

	return &stakeHarness{
		t: t, cs: cs, acc: acc, vkCache: vkCache, netParams: netParams,
		ccs: ccs, pk: pk, vk: vk,
	}
}

// nextBlockAfter builds and verifies (testing=true, the Consensus
// proposal circuit itself is out of scope per harness.TestHarness's
// own doc comment) a block at slot containing txs, linked to parent.
func (h *stakeHarness) nextBlockAfter(parent *types.Block, slot types.Slot, txs []*types.Transaction) (*types.Block, []validate.TxOutcome) {
	h.t.Helper()
	parentID, err := parent.ID()
	require.NoError(h.t, err)
	txRoot, err := types.ComputeTxRoot(txs)
	require.NoError(h.t, err)
	blk := &types.Block{
		Header: &types.BlockHeader{
			Slot:    slot,
			Parent:  parentID,
			TxRoot:  txRoot,
			Version: 1,
		},
		ProposalTx:   types.EmptyProposal(),
		Transactions: txs,
	}
	outcomes, err := validate.VerifyBlock(h.cs, h.acc, h.vkCache, blk, parent, true)
	require.NoError(h.t, err)
	return blk, outcomes
}

// genesisBlock returns the slot-0 block newStakeHarness committed,
// needed as the parent to link the next block against.
func (h *stakeHarness) genesisBlock() *types.Block {
	return h.mustGetBlockAtSlot(0)
}

// stakedCoin bundles a staked note with everything needed to prove a
// later Proposal/UnstakeRequest/Unstake call against it.
type stakedCoin struct {
	note      types.Note
	priv      *crypto.ValidatorPrivateKey
	pub       *crypto.ValidatorPublicKey
	commit    types.Coin
	leafIndex uint64
}

func newStakedNote(t *testing.T, value uint64) (*stakedCoin, *types.Transaction) {
	t.Helper()
	priv, pub, err := crypto.GenerateValidatorKey(rand.Reader)
	require.NoError(t, err)

	var serialBytes [32]byte
	_, err = rand.Read(serialBytes[:])
	require.NoError(t, err)
	note := types.Note{Value: types.Amount(value), Serial: serialBytes}
	coin, err := types.ComputeCoinCommitment(pub, &note)
	require.NoError(t, err)

	var nullifierSeed [32]byte
	_, err = rand.Read(nullifierSeed[:])
	require.NoError(t, err)

	p := &consensus.GenesisStakeParams{Nullifier: types.Nullifier(nullifierSeed), Output: coin}
	payload, err := serial.Encode(p)
	require.NoError(t, err)
	tx := &types.Transaction{
		Calls: []*types.ContractCall{{
			ContractID: types.ConsensusContractID,
			Payload:    append([]byte{consensus.SelectorGenesisStake}, payload...),
		}},
		Proofs:     [][][]byte{{}},
		Signatures: [][][]byte{{}},
	}
	return &stakedCoin{note: note, priv: priv, pub: pub, commit: coin}, tx
}

// proveStakeCall builds a real Groth16 proof of stake.StakeCircuit for
// spending sc (proving inclusion of sc.commit under the harness's
// current root and ownership via sc.priv/sc.pub), the same witness
// shape for Proposal, UnstakeRequest, and Unstake.
func (h *stakeHarness) proveStakeCall(sc *stakedCoin, nullifier types.Nullifier) []byte {
	h.t.Helper()
	root := h.acc.Root()
	hashes, err := h.acc.Witness(sc.leafIndex)
	require.NoError(h.t, err)

	var hashVars [stake.TreeDepth]frontend.Variable
	var flagVars [stake.TreeDepth]frontend.Variable
	idx := sc.leafIndex
	for lvl := 0; lvl < stake.TreeDepth; lvl++ {
		hashVars[lvl] = crypto.BytesToField(hashes[lvl][:])
		flagVars[lvl] = idx & 1
		idx >>= 1
	}

	x, y, err := sc.pub.ToXY()
	require.NoError(h.t, err)
	secretBytes, err := sc.priv.Bytes()
	require.NoError(h.t, err)

	assignment := &stake.StakeCircuit{
		TxoRoot:   crypto.BytesToField(root[:]),
		Nullifier: crypto.BytesToField(nullifier[:]),
		PubX:      x,
		PubY:      y,
		MinStake:  h.netParams.MinStake,
		Value:     uint64(sc.note.Value),
		TokenID:   crypto.BytesToField(sc.note.TokenID[:]),
		Serial:    crypto.BytesToField(sc.note.Serial[:]),
		SecretKey: crypto.BytesToField(secretBytes),
		InclusionProof: stake.InclusionProof{
			Hashes: hashVars,
			Flags:  flagVars,
		},
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	require.NoError(h.t, err)
	proof, err := groth16.Prove(h.ccs, h.pk, w)
	require.NoError(h.t, err)
	var buf bytes.Buffer
	_, err = proof.WriteTo(&buf)
	require.NoError(h.t, err)
	return buf.Bytes()
}

func pubKeyBytes(t *testing.T, pub *crypto.ValidatorPublicKey) []byte {
	t.Helper()
	b, err := pub.Bytes()
	require.NoError(t, err)
	return b
}

// TestGenesisStakeAccepted covers scenario 1 of spec.md §8: a
// GenesisStake call at slot 0 locks a coin as a validator stake.
func TestGenesisStakeAccepted(t *testing.T) {
	_, tx := newStakedNote(t, 1000)
	h := newStakeHarness(t, tx)
	// newStakeHarness's require.NoError(VerifyTransaction(...)) above
	// already proves the call succeeded; confirm the leaf it minted is
	// live in the accumulator.
	assert.Equal(t, uint64(1), h.acc.NumLeaves())
}

// TestGenesisStakeRejectsDuplicateCoin covers scenario 2: a second
// GenesisStake call reusing the same output commitment within the
// same slot-0 block must fail while the first succeeds.
func TestGenesisStakeRejectsDuplicateCoin(t *testing.T) {
	cs, acc, vkCache := newTestChain(t)

	_, pub, err := crypto.GenerateValidatorKey(rand.Reader)
	require.NoError(t, err)
	var serialBytes [32]byte
	_, err = rand.Read(serialBytes[:])
	require.NoError(t, err)
	note := types.Note{Value: 1000, Serial: serialBytes}
	coin, err := types.ComputeCoinCommitment(pub, &note)
	require.NoError(t, err)

	buildTx := func(nullifierSeed byte) *types.Transaction {
		var n types.Nullifier
		n[0] = nullifierSeed
		p := &consensus.GenesisStakeParams{Nullifier: n, Output: coin}
		payload, err := serial.Encode(p)
		require.NoError(t, err)
		return &types.Transaction{
			Calls: []*types.ContractCall{{
				ContractID: types.ConsensusContractID,
				Payload:    append([]byte{consensus.SelectorGenesisStake}, payload...),
			}},
			Proofs:     [][][]byte{{}},
			Signatures: [][][]byte{{}},
		}
	}
	firstTx := buildTx(1)
	secondTx := buildTx(2) // distinct nullifier, same Output commitment

	txRoot, err := types.ComputeTxRoot([]*types.Transaction{firstTx, secondTx})
	require.NoError(t, err)
	blk := &types.Block{
		Header:       &types.BlockHeader{Slot: 0, Parent: types.ID{}, TxRoot: txRoot, Version: 1},
		ProposalTx:   types.EmptyProposal(),
		Transactions: []*types.Transaction{firstTx, secondTx},
	}
	outcomes, err := validate.VerifyBlock(cs, acc, vkCache, blk, nil, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
}

// TestGenesisStakeRejectsNonGenesisSlot covers scenario 3: a
// GenesisStake call at slot 1 must be rejected, even against an
// otherwise empty chain.
func TestGenesisStakeRejectsNonGenesisSlot(t *testing.T) {
	cs, acc, vkCache := newTestChain(t)
	genesis := &types.Block{
		Header:     &types.BlockHeader{Slot: 0, Version: 1},
		ProposalTx: types.EmptyProposal(),
	}
	_, err := validate.VerifyBlock(cs, acc, vkCache, genesis, nil, true)
	require.NoError(t, err)

	_, tx := newStakedNote(t, 1000)
	txRoot, err := types.ComputeTxRoot([]*types.Transaction{tx})
	require.NoError(t, err)
	genesisID, err := genesis.ID()
	require.NoError(t, err)
	blk := &types.Block{
		Header:       &types.BlockHeader{Slot: 1, Parent: genesisID, TxRoot: txRoot, Version: 1},
		ProposalTx:   types.EmptyProposal(),
		Transactions: []*types.Transaction{tx},
	}
	outcomes, err := validate.VerifyBlock(cs, acc, vkCache, blk, genesis, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
}

// TestProposalAppliesReward covers scenario 4: after a genesis stake,
// a Proposal call at a later slot spends the staked coin and mints a
// new one carrying value+BlockReward, proved against
// zk/circuits/stake.StakeCircuit.
func TestProposalAppliesReward(t *testing.T) {
	const staked = 1000
	sc, genesisTx := newStakedNote(t, staked)
	h := newStakeHarness(t, genesisTx)

	parent := h.genesisBlock()

	nullifier, err := types.ComputeNullifier(sc.priv, &sc.note)
	require.NoError(t, err)

	newValue := types.Amount(staked + h.netParams.BlockReward)
	var outSerial [32]byte
	_, err = rand.Read(outSerial[:])
	require.NoError(t, err)
	outNote := types.Note{Value: newValue, Serial: outSerial}
	outCoin, err := types.ComputeCoinCommitment(sc.pub, &outNote)
	require.NoError(t, err)

	p := &consensus.ProposalParams{
		OldCommitment: sc.commit.Commitment,
		Nullifier:     nullifier,
		Output:        outCoin,
		PubKey:        pubKeyBytes(t, sc.pub),
	}
	payload, err := serial.Encode(p)
	require.NoError(t, err)
	proof := h.proveStakeCall(sc, nullifier)
	tx := &types.Transaction{
		Calls: []*types.ContractCall{{
			ContractID: types.ConsensusContractID,
			Payload:    append([]byte{consensus.SelectorProposal}, payload...),
		}},
		Proofs:     [][][]byte{{proof}},
		Signatures: [][][]byte{{}},
	}

	_, outcomes := h.nextBlockAfter(parent, 1, []*types.Transaction{tx})
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
}

// TestUnstakeOrdering covers scenario 5: UnstakeRequest before the
// grace period elapses is rejected, accepted after; the final Unstake
// before its own additional delay is rejected, accepted after.
func TestUnstakeOrdering(t *testing.T) {
	const staked = 1000
	sc, genesisTx := newStakedNote(t, staked)
	h := newStakeHarness(t, genesisTx)

	parent := h.genesisBlock()
	gracePeriodSlots := types.Slot(h.netParams.GracePeriod * h.netParams.EpochLength)

	// UnstakeRequest one slot too early (since_slot=0, grace period not
	// yet elapsed at slot gracePeriodSlots-1).
	tooEarlySlot := gracePeriodSlots - 1
	for s := types.Slot(1); s < tooEarlySlot; s++ {
		parent = advanceEmptySlot(t, h, parent, s)
	}

	earlyNullifier, err := types.ComputeNullifier(sc.priv, &sc.note)
	require.NoError(t, err)
	var earlyOutSerial [32]byte
	_, err = rand.Read(earlyOutSerial[:])
	require.NoError(t, err)
	earlyOutNote := types.Note{Value: staked, Serial: earlyOutSerial}
	earlyOutCoin, err := types.ComputeCoinCommitment(sc.pub, &earlyOutNote)
	require.NoError(t, err)
	earlyReq := &consensus.UnstakeRequestParams{
		OldCommitment: sc.commit.Commitment,
		Nullifier:     earlyNullifier,
		Output:        earlyOutCoin,
		PubKey:        pubKeyBytes(t, sc.pub),
	}
	earlyPayload, err := serial.Encode(earlyReq)
	require.NoError(t, err)
	earlyProof := h.proveStakeCall(sc, earlyNullifier)
	earlyTx := &types.Transaction{
		Calls: []*types.ContractCall{{
			ContractID: types.ConsensusContractID,
			Payload:    append([]byte{consensus.SelectorUnstakeRequest}, earlyPayload...),
		}},
		Proofs:     [][][]byte{{earlyProof}},
		Signatures: [][][]byte{{}},
	}
	_, outcomes := h.nextBlockAfter(parent, tooEarlySlot, []*types.Transaction{earlyTx})
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err, "UnstakeRequest before the grace period must be rejected")
	parent = h.mustGetBlockAtSlot(tooEarlySlot)

	// Advance to exactly the grace period boundary and retry.
	onTimeSlot := gracePeriodSlots
	for s := tooEarlySlot + 1; s < onTimeSlot; s++ {
		parent = advanceEmptySlot(t, h, parent, s)
	}

	reqN, err := types.ComputeNullifier(sc.priv, &sc.note)
	require.NoError(t, err)
	var reqOutSerial [32]byte
	_, err = rand.Read(reqOutSerial[:])
	require.NoError(t, err)
	reqOutNote := types.Note{Value: staked, Serial: reqOutSerial}
	reqOutCoin, err := types.ComputeCoinCommitment(sc.pub, &reqOutNote)
	require.NoError(t, err)
	req := &consensus.UnstakeRequestParams{
		OldCommitment: sc.commit.Commitment,
		Nullifier:     reqN,
		Output:        reqOutCoin,
		PubKey:        pubKeyBytes(t, sc.pub),
	}
	reqPayload, err := serial.Encode(req)
	require.NoError(t, err)
	reqProof := h.proveStakeCall(sc, reqN)
	reqTx := &types.Transaction{
		Calls: []*types.ContractCall{{
			ContractID: types.ConsensusContractID,
			Payload:    append([]byte{consensus.SelectorUnstakeRequest}, reqPayload...),
		}},
		Proofs:     [][][]byte{{reqProof}},
		Signatures: [][][]byte{{}},
	}
	_, outcomes = h.nextBlockAfter(parent, onTimeSlot, []*types.Transaction{reqTx})
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err, "UnstakeRequest at the grace period boundary must be accepted")
	parent = h.mustGetBlockAtSlot(onTimeSlot)

	reqCoin := &stakedCoin{note: reqOutNote, priv: sc.priv, pub: sc.pub, commit: reqOutCoin, leafIndex: 1}
	h.acc.Mark(1)

	// Unstake one slot before the additional delay elapses must fail.
	unstakeDelaySlots := types.Slot(h.netParams.GracePeriod*h.netParams.EpochLength + h.netParams.EpochLength)
	tooEarlyUnstakeSlot := onTimeSlot + unstakeDelaySlots - 1
	for s := onTimeSlot + 1; s < tooEarlyUnstakeSlot; s++ {
		parent = advanceEmptySlot(t, h, parent, s)
	}

	eun, err := types.ComputeNullifier(reqCoin.priv, &reqCoin.note)
	require.NoError(t, err)
	var finalOutSerial [32]byte
	_, err = rand.Read(finalOutSerial[:])
	require.NoError(t, err)
	finalOutNote := types.Note{Value: staked, Serial: finalOutSerial}
	finalOutCoin, err := types.ComputeCoinCommitment(reqCoin.pub, &finalOutNote)
	require.NoError(t, err)
	earlyUnstake := &consensus.UnstakeParams{
		OldCommitment: reqCoin.commit.Commitment,
		Nullifier:     eun,
		Output:        finalOutCoin,
		PubKey:        pubKeyBytes(t, reqCoin.pub),
	}
	earlyUnstakePayload, err := serial.Encode(earlyUnstake)
	require.NoError(t, err)
	earlyUnstakeProof := h.proveStakeCall(reqCoin, eun)
	earlyUnstakeTx := &types.Transaction{
		Calls: []*types.ContractCall{{
			ContractID: types.ConsensusContractID,
			Payload:    append([]byte{consensus.SelectorUnstake}, earlyUnstakePayload...),
		}},
		Proofs:     [][][]byte{{earlyUnstakeProof}},
		Signatures: [][][]byte{{}},
	}
	_, outcomes = h.nextBlockAfter(parent, tooEarlyUnstakeSlot, []*types.Transaction{earlyUnstakeTx})
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err, "Unstake before its delay must be rejected")
	parent = h.mustGetBlockAtSlot(tooEarlyUnstakeSlot)

	// Advance one more slot and retry: must succeed.
	onTimeUnstakeSlot := tooEarlyUnstakeSlot + 1

	fn, err := types.ComputeNullifier(reqCoin.priv, &reqCoin.note)
	require.NoError(t, err)
	var lastOutSerial [32]byte
	_, err = rand.Read(lastOutSerial[:])
	require.NoError(t, err)
	lastOutNote := types.Note{Value: staked, Serial: lastOutSerial}
	lastOutCoin, err := types.ComputeCoinCommitment(reqCoin.pub, &lastOutNote)
	require.NoError(t, err)
	finalUnstake := &consensus.UnstakeParams{
		OldCommitment: reqCoin.commit.Commitment,
		Nullifier:     fn,
		Output:        lastOutCoin,
		PubKey:        pubKeyBytes(t, reqCoin.pub),
	}
	finalPayload, err := serial.Encode(finalUnstake)
	require.NoError(t, err)
	finalProof := h.proveStakeCall(reqCoin, fn)
	finalTx := &types.Transaction{
		Calls: []*types.ContractCall{{
			ContractID: types.ConsensusContractID,
			Payload:    append([]byte{consensus.SelectorUnstake}, finalPayload...),
		}},
		Proofs:     [][][]byte{{finalProof}},
		Signatures: [][][]byte{{}},
	}
	_, outcomes = h.nextBlockAfter(parent, onTimeUnstakeSlot, []*types.Transaction{finalTx})
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err, "Unstake after its delay must be accepted")
}

// advanceEmptySlot commits an empty block at slot, returning it as the
// next parent, so a scenario can walk the chain forward to a precise
// slot boundary without any contract call.
func advanceEmptySlot(t *testing.T, h *stakeHarness, parent *types.Block, slot types.Slot) *types.Block {
	t.Helper()
	blk, outcomes := h.nextBlockAfter(parent, slot, nil)
	require.Len(t, outcomes, 0)
	return blk
}

func (h *stakeHarness) mustGetBlockAtSlot(slot types.Slot) *types.Block {
	h.t.Helper()
	id, ok, err := h.cs.GetBlockHashBySlot(slot)
	require.NoError(h.t, err)
	require.True(h.t, ok)
	blk, err := h.cs.GetBlock(id)
	require.NoError(h.t, err)
	return blk
}
