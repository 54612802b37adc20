// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package validate_test

import (
	"crypto/rand"
	"testing"

	ds "github.com/ipfs/go-datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/contracts/deploy"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/validate"
	"github.com/shroud-chain/shroudd/zk"
)

// newTestChain builds a fresh in-memory ChainStore/CommitmentTree/VKCache
// triple, the same ds.NewMapDatastore() convention repo.Config's own
// doc comment names for tests, without paying for a gnark trusted
// setup — these tests exercise BlockVerifier/TxVerifier's control flow
// via the Deploy contract, which requires a signature but no ZK proof.
func newTestChain(t *testing.T) (*blockchain.ChainStore, *blockchain.CommitmentTree, *zk.VKCache) {
	t.Helper()
	netParams := &params.RegtestParams
	cs, err := blockchain.NewChainStore(
		blockchain.Params(netParams),
		blockchain.WithDatastore(ds.NewMapDatastore()),
		blockchain.MaxNullifiers(blockchain.DefaultMaxNullifiers),
		blockchain.MaxBlockVerifyBudgetMillis(netParams.MaxBlockVerifyBudgetMillis),
	)
	require.NoError(t, err)
	acc := blockchain.NewCommitmentTree(netParams.TreeDepth, netParams.MaxCheckpoints)
	return cs, acc, zk.NewVKCache()
}

func deployTx(t *testing.T, priv *crypto.ValidatorPrivateKey, pub *crypto.ValidatorPublicKey, salt [32]byte) *types.Transaction {
	t.Helper()
	pubBytes, err := pub.Bytes()
	require.NoError(t, err)

	deployParams := &deploy.DeployParams{PubKey: pubBytes, Salt: salt, Bytecode: []byte("(lambda (x) x)")}
	payload, err := serial.Encode(deployParams)
	require.NoError(t, err)

	tx := &types.Transaction{
		Calls: []*types.ContractCall{{
			ContractID: types.DeployContractID,
			Payload:    append([]byte{deploy.SelectorDeploy}, payload...),
		}},
		Proofs: [][][]byte{{}},
	}
	msg, err := tx.SigningPayload()
	require.NoError(t, err)
	sig, err := priv.Sign(msg)
	require.NoError(t, err)
	tx.Signatures = [][][]byte{{sig}}
	return tx
}

func genesisBlockWith(t *testing.T, tx *types.Transaction) *types.Block {
	t.Helper()
	txRoot, err := types.ComputeTxRoot([]*types.Transaction{tx})
	require.NoError(t, err)
	return &types.Block{
		Header: &types.BlockHeader{
			Slot:    0,
			Parent:  types.ID{},
			TxRoot:  txRoot,
			Version: 1,
		},
		ProposalTx:   types.EmptyProposal(),
		Transactions: []*types.Transaction{tx},
	}
}

func TestVerifyBlockAcceptsValidSignature(t *testing.T) {
	cs, acc, vkCache := newTestChain(t)

	var salt [32]byte
	privKey, pubKey, err := crypto.GenerateValidatorKey(rand.Reader)
	require.NoError(t, err)
	tx := deployTx(t, privKey, pubKey, salt)
	blk := genesisBlockWith(t, tx)

	outcomes, err := validate.VerifyBlock(cs, acc, vkCache, blk, nil, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
}

func TestVerifyBlockRejectsTamperedSignature(t *testing.T) {
	cs, acc, vkCache := newTestChain(t)
	var salt [32]byte
	privKey, pubKey, err := crypto.GenerateValidatorKey(rand.Reader)
	require.NoError(t, err)
	tx := deployTx(t, privKey, pubKey, salt)
	tx.Signatures[0][0][0] ^= 0xff // flip a bit in the signature
	blk := genesisBlockWith(t, tx)

	outcomes, err := validate.VerifyBlock(cs, acc, vkCache, blk, nil, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
}

func TestVerifyBlockRejectsMissingSignature(t *testing.T) {
	cs, acc, vkCache := newTestChain(t)
	var salt [32]byte
	privKey, pubKey, err := crypto.GenerateValidatorKey(rand.Reader)
	require.NoError(t, err)
	tx := deployTx(t, privKey, pubKey, salt)
	tx.Signatures = [][][]byte{{}}
	blk := genesisBlockWith(t, tx)

	outcomes, err := validate.VerifyBlock(cs, acc, vkCache, blk, nil, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
}

func TestVerifyBlockRejectsWrongSlot(t *testing.T) {
	cs, acc, vkCache := newTestChain(t)
	blk := &types.Block{
		Header:     &types.BlockHeader{Slot: 1, Version: 1},
		ProposalTx: types.EmptyProposal(),
	}
	_, err := validate.VerifyBlock(cs, acc, vkCache, blk, nil, true)
	assert.Error(t, err)
}

func TestVerifyBlockRejectsMissingPrevious(t *testing.T) {
	cs, acc, vkCache := newTestChain(t)
	genesis := &types.Block{
		Header:     &types.BlockHeader{Slot: 0, Version: 1},
		ProposalTx: types.EmptyProposal(),
	}
	_, err := validate.VerifyBlock(cs, acc, vkCache, genesis, nil, true)
	require.NoError(t, err)

	next := &types.Block{
		Header:     &types.BlockHeader{Slot: 1, Version: 1},
		ProposalTx: types.EmptyProposal(),
	}
	_, err = validate.VerifyBlock(cs, acc, vkCache, next, nil, true)
	assert.Error(t, err)
}

func TestVerifyBlockRejectsAlreadyCommittedBlock(t *testing.T) {
	cs, acc, vkCache := newTestChain(t)
	genesis := &types.Block{
		Header:     &types.BlockHeader{Slot: 0, Version: 1},
		ProposalTx: types.EmptyProposal(),
	}
	_, err := validate.VerifyBlock(cs, acc, vkCache, genesis, nil, true)
	require.NoError(t, err)

	_, err = validate.VerifyBlock(cs, acc, vkCache, genesis, nil, true)
	assert.Error(t, err)
}
