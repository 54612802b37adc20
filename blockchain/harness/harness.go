// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package harness builds a disposable ChainStore/CommitmentTree pair
// seeded with a real Groth16 proving/verifying keypair for the Money
// contract's transfer circuit, plus an initial set of spendable coins,
// so tests can generate and verify real blocks end to end without a
// running node. Grounded on ilxd/blockchain/harness/generate.go's
// TestHarness, adapted from its Nova/lurk spend-note model to this
// engine's Note/Coin/OwnCoin model (types/coin.go) and its gnark
// Groth16 standard circuit (zk/circuits/standard).
package harness

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	cs_constraint "github.com/consensys/gnark/constraint"

	ds "github.com/ipfs/go-datastore"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/contracts/money"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/validate"
	"github.com/shroud-chain/shroudd/zk"
	"github.com/shroud-chain/shroudd/zk/circuits/standard"
)

// SpendableNote bundles a Note the harness can spend with the secret
// key controlling it and its live position in the commitment tree
// (spec.md §3, "OwnCoin").
type SpendableNote struct {
	Note      types.Note
	SecretKey *crypto.ValidatorPrivateKey
	PubKey    *crypto.ValidatorPublicKey
	Coin      types.Coin
	LeafIndex uint64
}

// Nullifier derives this note's nullifier under its own secret key.
func (n *SpendableNote) Nullifier() (types.Nullifier, error) {
	return types.ComputeNullifier(n.SecretKey, &n.Note)
}

// TestHarness drives a real ChainStore through genesis and subsequent
// blocks, generating real Groth16 proofs for every Money.Transfer call
// it builds. It always calls validate.VerifyBlock with testing=true and
// carries the canonical empty proposal at every slot: it registers no
// verifying key for the Consensus circuits and stakes no coin, so it
// has no Consensus.Proposal call it could prove (spec.md's
// leader-election policy is an explicit Non-goal).
type TestHarness struct {
	chain     *blockchain.ChainStore
	acc       *blockchain.CommitmentTree
	vkCache   *zk.VKCache
	netParams *params.NetworkParams

	ccs cs_constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey

	genesisNotes   []*SpendableNote
	spendableNotes []*SpendableNote
}

// NewTestHarness performs a real Groth16 trusted setup for the Money
// transfer circuit, seeds a fresh in-memory ChainStore with that
// circuit's verifying key under (MoneyContractID, "money/transfer"),
// and mints a genesis block of initialCoins split across two
// spendable notes owned by a single freshly generated key.
func NewTestHarness(initialCoins uint64) (*TestHarness, error) {
	netParams := &params.RegtestParams

	var circuit standard.StandardCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("compile standard circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}

	datastore := ds.NewMapDatastore()
	chain, err := blockchain.NewChainStore(
		blockchain.Params(netParams),
		blockchain.WithDatastore(datastore),
		blockchain.MaxNullifiers(blockchain.DefaultMaxNullifiers),
		blockchain.MaxBlockVerifyBudgetMillis(netParams.MaxBlockVerifyBudgetMillis),
	)
	if err != nil {
		return nil, err
	}
	acc := blockchain.NewCommitmentTree(netParams.TreeDepth, netParams.MaxCheckpoints)

	h := &TestHarness{
		chain:     chain,
		acc:       acc,
		vkCache:   zk.NewVKCache(),
		netParams: netParams,
		ccs:       ccs,
		pk:        pk,
		vk:        vk,
	}

	if err := h.buildGenesis(initialCoins); err != nil {
		return nil, err
	}
	return h, nil
}

// ChainStore returns the harness's backing store.
func (h *TestHarness) ChainStore() *blockchain.ChainStore { return h.chain }

// Accumulator returns the harness's live commitment tree.
func (h *TestHarness) Accumulator() *blockchain.CommitmentTree { return h.acc }

// VKCache returns the harness's verifying-key cache.
func (h *TestHarness) VKCache() *zk.VKCache { return h.vkCache }

// GenesisNotes returns the spendable notes minted in the genesis block.
func (h *TestHarness) GenesisNotes() []*SpendableNote { return h.genesisNotes }

// Spendable returns every note the harness has minted so far, in
// mint order: the two genesis notes followed by every transfer
// output confirmed by a later GenerateBlock call. It does not drop a
// note once its nullifier has been spent — callers that build their
// own transfer sequences are responsible for not reusing one.
func (h *TestHarness) Spendable() []*SpendableNote {
	all := make([]*SpendableNote, 0, len(h.genesisNotes)+len(h.spendableNotes))
	all = append(all, h.genesisNotes...)
	all = append(all, h.spendableNotes...)
	return all
}

// buildGenesis mints two notes worth initialCoins/2 each to a single
// fresh key and commits them in the slot-0 block, registering the
// Money transfer circuit's verifying key in the same commit. A normal
// block goes through validate.VerifyBlock; genesis additionally has to
// seed a native contract's zkas entry, something only deployed user
// contracts can do for themselves through the Deploy contract (spec.md
// §3's ContractId derivation applies only to user contracts), so this
// one time the harness drives ChainStore/Overlay directly instead.
func (h *TestHarness) buildGenesis(initialCoins uint64) error {
	priv, pub, err := crypto.GenerateValidatorKey(rand.Reader)
	if err != nil {
		return err
	}

	half := initialCoins / 2
	notes := make([]*types.Note, 2)
	coins := make([]types.Coin, 2)
	for i, amt := range []uint64{half, initialCoins - half} {
		var serialBytes [32]byte
		if _, err := rand.Read(serialBytes[:]); err != nil {
			return err
		}
		note := &types.Note{Value: types.Amount(amt), Serial: serialBytes}
		coin, err := types.ComputeCoinCommitment(pub, note)
		if err != nil {
			return err
		}
		notes[i] = note
		coins[i] = coin
	}

	mintCalls := make([]*types.ContractCall, len(coins))
	for i, coin := range coins {
		p := &money.MintParams{Output: coin}
		payload, err := serial.Encode(p)
		if err != nil {
			return err
		}
		mintCalls[i] = &types.ContractCall{
			ContractID: types.MoneyContractID,
			Payload:    append([]byte{money.SelectorMint}, payload...),
		}
	}
	mintTx := &types.Transaction{
		Calls:      mintCalls,
		Proofs:     [][][]byte{{}, {}},
		Signatures: [][][]byte{{}, {}},
	}

	vkBytes, err := encodeVerifyingKey(h.vk)
	if err != nil {
		return err
	}

	overlay := blockchain.NewOverlay(h.chain)
	if err := overlay.DeployZkas(types.MoneyContractID, "money/transfer", &blockchain.ZkasEntry{VerifyingKey: vkBytes}); err != nil {
		return err
	}
	if err := validate.VerifyTransaction(overlay, h.acc, h.vkCache, mintTx, 0); err != nil {
		return fmt.Errorf("genesis mint: %w", err)
	}
	update := overlay.Commit()

	txRoot, err := types.ComputeTxRoot([]*types.Transaction{mintTx})
	if err != nil {
		return err
	}
	genesis := &types.Block{
		Header: &types.BlockHeader{
			Slot:       0,
			Parent:     types.ID{},
			TxRoot:     txRoot,
			ProducerID: types.ContractId{},
			Version:    1,
		},
		ProposalTx:   types.EmptyProposal(),
		Transactions: []*types.Transaction{mintTx},
	}
	if err := h.chain.AppendBlock(genesis, update); err != nil {
		return err
	}

	h.acc.Mark(0)
	h.acc.Mark(1)
	h.genesisNotes = make([]*SpendableNote, 2)
	for i, note := range notes {
		h.genesisNotes[i] = &SpendableNote{
			Note:      *note,
			SecretKey: priv,
			PubKey:    pub,
			Coin:      coins[i],
			LeafIndex: uint64(i),
		}
	}
	return nil
}

func encodeVerifyingKey(vk groth16.VerifyingKey) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
