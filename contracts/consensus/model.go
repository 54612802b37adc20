// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package consensus

import (
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/types"
)

// reward returns the amount added to a staked coin's value on every
// successful Proposal call (spec.md §4.7, "value += REWARD").
func reward(p *params.NetworkParams) types.Amount {
	return types.Amount(p.BlockReward)
}

// gracePeriodSlots returns the number of slots a staked coin must wait
// after its last state change before UnstakeRequest is valid
// (spec.md §4.7, "grace_period × EPOCH_LENGTH").
func gracePeriodSlots(p *params.NetworkParams) uint64 {
	return uint64(p.GracePeriod) * p.EpochLength
}

// unstakeDelaySlots returns the additional wait after UnstakeRequest
// before Unstake is valid (spec.md §4.7, "an additional
// grace_period × EPOCH_LENGTH + EPOCH_LENGTH slots").
func unstakeDelaySlots(p *params.NetworkParams) uint64 {
	return gracePeriodSlots(p) + p.EpochLength
}
