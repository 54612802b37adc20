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

func TestContractCallSelector(t *testing.T) {
	c := &ContractCall{Payload: []byte{0x02, 0xaa, 0xbb}}
	assert.Equal(t, byte(0x02), c.Selector())

	empty := &ContractCall{}
	assert.Equal(t, byte(0), empty.Selector())
}

func TestTransactionEncodeDecodeRoundTrip(t *testing.T) {
	tx := &Transaction{
		Calls: []*ContractCall{
			{ContractID: MoneyContractID, Payload: []byte{0x02, 1, 2, 3}},
			{ContractID: DeployContractID, Payload: []byte{0x01}},
		},
		Proofs:     [][][]byte{{{0xde, 0xad}}, {}},
		Signatures: [][][]byte{{}, {{0xbe, 0xef}}},
	}

	var buf bytes.Buffer
	_, err := tx.Encode(&buf)
	require.NoError(t, err)

	decoded := &Transaction{}
	require.NoError(t, decoded.Decode(&buf))

	assert.Equal(t, tx.Calls, decoded.Calls)
	assert.Equal(t, tx.Proofs, decoded.Proofs)
	assert.Equal(t, tx.Signatures, decoded.Signatures)
}

func TestTransactionIDStableUnderReEncode(t *testing.T) {
	tx := &Transaction{
		Calls:      []*ContractCall{{ContractID: MoneyContractID, Payload: []byte{0x01}}},
		Proofs:     [][][]byte{{}},
		Signatures: [][][]byte{{}},
	}
	id1, err := tx.ID()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = tx.Encode(&buf)
	require.NoError(t, err)
	decoded := &Transaction{}
	require.NoError(t, decoded.Decode(&buf))

	id2, err := decoded.ID()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestSigningPayloadExcludesProofsAndSignatures(t *testing.T) {
	base := &Transaction{
		Calls:      []*ContractCall{{ContractID: MoneyContractID, Payload: []byte{0x02}}},
		Proofs:     [][][]byte{{}},
		Signatures: [][][]byte{{}},
	}
	withAttachments := &Transaction{
		Calls:      base.Calls,
		Proofs:     [][][]byte{{{1, 2, 3}}},
		Signatures: [][][]byte{{{4, 5, 6}}},
	}

	msg1, err := base.SigningPayload()
	require.NoError(t, err)
	msg2, err := withAttachments.SigningPayload()
	require.NoError(t, err)
	assert.Equal(t, msg1, msg2)
}
