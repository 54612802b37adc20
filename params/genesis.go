// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package params

import (
	"github.com/shroud-chain/shroudd/types"
)

// RegtestGenesisBlock is the slot-0 block for local development and the
// seed-test scenarios of spec.md §8: an empty proposal transaction and
// no user transactions. Per spec.md §3, genesis "carries an empty
// default proposal" rather than a real Consensus leadership claim.
var RegtestGenesisBlock = &types.Block{
	Header: &types.BlockHeader{
		Slot:       0,
		Parent:     types.ID{},
		TxRoot:     [32]byte{},
		ProducerID: types.ContractId{},
		Version:    1,
	},
	ProposalTx:   types.EmptyProposal(),
	Transactions: nil,
}
