// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	blk := &Block{
		Header: &BlockHeader{
			Slot:       7,
			Parent:     ID{0x01, 0x02},
			TxRoot:     [32]byte{0x03},
			ProducerID: ContractId{0x04},
			Version:    1,
		},
		ProposalTx: EmptyProposal(),
		Transactions: []*Transaction{
			{
				Calls:      []*ContractCall{{ContractID: MoneyContractID, Payload: []byte{0x02, 9}}},
				Proofs:     [][][]byte{{{1, 2}}},
				Signatures: [][][]byte{{}},
			},
		},
	}

	var buf bytes.Buffer
	_, err := blk.Encode(&buf)
	require.NoError(t, err)

	decoded := &Block{}
	require.NoError(t, decoded.Decode(&buf))

	assert.Equal(t, blk.Header, decoded.Header)
	assert.Equal(t, blk.ProposalTx, decoded.ProposalTx)
	assert.Equal(t, blk.Transactions, decoded.Transactions)
}

func TestBlockIDMatchesHeaderHash(t *testing.T) {
	blk := &Block{
		Header:     &BlockHeader{Slot: 0, Version: 1},
		ProposalTx: EmptyProposal(),
	}
	id, err := blk.ID()
	require.NoError(t, err)

	headerHash, err := blk.Header.Hash()
	require.NoError(t, err)
	assert.Equal(t, headerHash, id)
}

func TestComputeTxRootEmptyIsZero(t *testing.T) {
	root, err := ComputeTxRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, root)
}

func TestComputeTxRootDeterministic(t *testing.T) {
	txs := []*Transaction{
		{Calls: []*ContractCall{{ContractID: MoneyContractID, Payload: []byte{0x01}}}, Proofs: [][][]byte{{}}, Signatures: [][][]byte{{}}},
		{Calls: []*ContractCall{{ContractID: MoneyContractID, Payload: []byte{0x02}}}, Proofs: [][][]byte{{}}, Signatures: [][][]byte{{}}},
	}
	root1, err := ComputeTxRoot(txs)
	require.NoError(t, err)
	root2, err := ComputeTxRoot(txs)
	require.NoError(t, err)
	assert.Equal(t, root1, root2)
	assert.NotEqual(t, [32]byte{}, root1)

	reordered := []*Transaction{txs[1], txs[0]}
	root3, err := ComputeTxRoot(reordered)
	require.NoError(t, err)
	assert.NotEqual(t, root1, root3)
}

func TestEmptyProposalIsCanonical(t *testing.T) {
	p1 := EmptyProposal()
	p2 := EmptyProposal()
	assert.Equal(t, p1, p2)
	assert.Len(t, p1.Calls, 1)
	assert.Equal(t, ConsensusContractID, p1.Calls[0].ContractID)
}
