// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package harness

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/types"
)

func TestNewTestHarnessBuildsGenesis(t *testing.T) {
	h, err := NewTestHarness(1000)
	require.NoError(t, err)

	notes := h.GenesisNotes()
	require.Len(t, notes, 2)

	var total types.Amount
	for _, n := range notes {
		total += n.Note.Value
	}
	assert.Equal(t, types.Amount(1000), total)

	best, hash := h.ChainStore().BestSlotHash()
	assert.Equal(t, types.Slot(0), best)
	assert.False(t, hash.IsZero())

	entry, err := h.ChainStore().GetZkas(types.MoneyContractID, "money/transfer")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotEmpty(t, entry.VerifyingKey)
}

func TestGenerateBlockTransfersRealProof(t *testing.T) {
	h, err := NewTestHarness(1000)
	require.NoError(t, err)

	genesis := h.GenesisNotes()
	require.Len(t, genesis, 2)

	_, recipient, err := crypto.GenerateValidatorKey(rand.Reader)
	require.NoError(t, err)

	inputs := [2]*SpendableNote{genesis[0], genesis[1]}
	outputs := [2]TransferOutput{
		{PubKey: recipient, Value: genesis[0].Note.Value + genesis[1].Note.Value},
		{PubKey: recipient, Value: 0},
	}

	pending, err := h.BuildTransferTx(inputs, outputs, 0)
	require.NoError(t, err)

	blk, outcomes, err := h.GenerateBlock([]*PendingTransfer{pending})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, types.Slot(1), blk.Header.Slot)

	spendable := h.Spendable()
	assert.Len(t, spendable, 4)
}

// TestGenerateBlockRejectsDoubleSpendAcrossBlocks spends the same two
// genesis notes in one block, then replays an independently-built
// transfer over the same now-spent notes in the next block: the
// replay's nullifiers are already present from the first block, so it
// must fail without aborting the block around it.
func TestGenerateBlockRejectsDoubleSpendAcrossBlocks(t *testing.T) {
	h, err := NewTestHarness(1000)
	require.NoError(t, err)

	genesis := h.GenesisNotes()
	_, recipient, err := crypto.GenerateValidatorKey(rand.Reader)
	require.NoError(t, err)

	inputs := [2]*SpendableNote{genesis[0], genesis[1]}
	outputs := [2]TransferOutput{
		{PubKey: recipient, Value: genesis[0].Note.Value},
		{PubKey: recipient, Value: genesis[1].Note.Value},
	}

	replaySpend, err := h.BuildTransferTx(inputs, outputs, 0)
	require.NoError(t, err)

	firstSpend, err := h.BuildTransferTx(inputs, outputs, 0)
	require.NoError(t, err)
	_, outcomes, err := h.GenerateBlock([]*PendingTransfer{firstSpend})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)

	_, recipient2, err := crypto.GenerateValidatorKey(rand.Reader)
	require.NoError(t, err)
	harmlessInputs := [2]*SpendableNote{h.Spendable()[2], h.Spendable()[3]}
	harmlessOutputs := [2]TransferOutput{
		{PubKey: recipient2, Value: harmlessInputs[0].Note.Value},
		{PubKey: recipient2, Value: harmlessInputs[1].Note.Value},
	}
	harmless, err := h.BuildTransferTx(harmlessInputs, harmlessOutputs, 0)
	require.NoError(t, err)

	blk, outcomes2, err := h.GenerateBlock([]*PendingTransfer{replaySpend, harmless})
	require.NoError(t, err)
	require.Len(t, outcomes2, 2)
	assert.Error(t, outcomes2[0].Err)
	assert.NoError(t, outcomes2[1].Err)
	assert.Equal(t, types.Slot(2), blk.Header.Slot)
}
