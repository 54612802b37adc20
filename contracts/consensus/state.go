// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package consensus

import (
	"bytes"
	"io"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/runtime"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

type coinStatus byte

const (
	statusStaked coinStatus = iota
	statusUnstakeRequested
)

// CoinState is the per-staked-coin record this contract keeps in
// contract state, keyed by the coin's own commitment (spec.md §4.7's
// per-coin state machine: Unstaked -> Staked(since_slot) ->
// UnstakeRequested(req_slot) -> Unstaked').
type CoinState struct {
	Status    coinStatus
	SinceSlot types.Slot
}

func (s *CoinState) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteU8(byte(s.Status))
	wr.WriteU64(uint64(s.SinceSlot))
	return wr.Result()
}

func (s *CoinState) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	s.Status = coinStatus(rd.ReadU8())
	s.SinceSlot = types.Slot(rd.ReadU64())
	return rd.Err()
}

func readCoinState(ctx *runtime.CallContext, commitment [32]byte) (*CoinState, bool, error) {
	b, found, err := ctx.Overlay.ReadState(types.ConsensusContractID, commitment[:])
	if err != nil || !found {
		return nil, found, err
	}
	cs := &CoinState{}
	if err := cs.Decode(bytes.NewReader(b)); err != nil {
		return nil, false, err
	}
	return cs, true, nil
}

// update is the opaque state_update blob exec hands to apply: the
// nullifier to insert, the leaf to append to the shared commitment
// accumulator, and the new CoinState record to write (absent once a
// coin has fully exited consensus via Unstake).
type update struct {
	Nullifier   types.Nullifier
	OutputLeaf  [32]byte
	NewState    *CoinState
	NewStateKey [32]byte
}

func (u *update) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(u.Nullifier[:])
	wr.WriteRaw(u.OutputLeaf[:])
	if u.NewState == nil {
		wr.WriteBool(false)
	} else {
		wr.WriteBool(true)
		wr.WriteRaw(u.NewStateKey[:])
		wr.WriteU8(byte(u.NewState.Status))
		wr.WriteU64(uint64(u.NewState.SinceSlot))
	}
	return wr.Result()
}

func (u *update) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(u.Nullifier[:])
	rd.ReadRaw(u.OutputLeaf[:])
	if rd.ReadBool() {
		rd.ReadRaw(u.NewStateKey[:])
		u.NewState = &CoinState{
			Status:    coinStatus(rd.ReadU8()),
			SinceSlot: types.Slot(rd.ReadU64()),
		}
	}
	return rd.Err()
}

func (u *update) apply(ctx *runtime.CallContext) error {
	ctx.Overlay.InsertNullifier(u.Nullifier)
	if _, err := ctx.Accumulator.Append(u.OutputLeaf); err != nil {
		return err
	}
	if u.NewState != nil {
		b, err := serial.Encode(u.NewState)
		if err != nil {
			return err
		}
		ctx.Overlay.WriteState(types.ConsensusContractID, u.NewStateKey[:], b)
	}
	return nil
}

func (c *Contract) execGenesisStake(ctx *runtime.CallContext, payload []byte) ([]byte, error) {
	p := &GenesisStakeParams{}
	if err := p.Decode(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	if ctx.Slot != 0 {
		return nil, blockchain.NewRuleError(blockchain.ErrNotGenesisSlot, "genesis stake outside slot 0")
	}
	has, err := ctx.Overlay.HasNullifier(p.Nullifier)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, blockchain.NewRuleError(blockchain.ErrDoubleSpend, "genesis stake nullifier already seen")
	}
	if _, found, err := readCoinState(ctx, p.Output.Commitment); err != nil {
		return nil, err
	} else if found {
		return nil, blockchain.NewRuleError(blockchain.ErrDuplicateStake, "coin already staked")
	}
	u := &update{
		Nullifier:   p.Nullifier,
		OutputLeaf:  p.Output.Commitment,
		NewState:    &CoinState{Status: statusStaked, SinceSlot: 0},
		NewStateKey: p.Output.Commitment,
	}
	return serial.Encode(u)
}

func (c *Contract) execProposal(ctx *runtime.CallContext, payload []byte) ([]byte, error) {
	p := &ProposalParams{}
	if err := p.Decode(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	state, found, err := readCoinState(ctx, p.OldCommitment)
	if err != nil {
		return nil, err
	}
	if !found || state.Status != statusStaked {
		return nil, blockchain.NewRuleError(blockchain.ErrConsensusTimingViolation, "proposal on non-staked coin")
	}
	has, err := ctx.Overlay.HasNullifier(p.Nullifier)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, blockchain.NewRuleError(blockchain.ErrDoubleSpend, "proposal nullifier already seen")
	}
	u := &update{
		Nullifier:   p.Nullifier,
		OutputLeaf:  p.Output.Commitment,
		NewState:    &CoinState{Status: statusStaked, SinceSlot: ctx.Slot},
		NewStateKey: p.Output.Commitment,
	}
	return serial.Encode(u)
}

func (c *Contract) execUnstakeRequest(ctx *runtime.CallContext, payload []byte) ([]byte, error) {
	p := &UnstakeRequestParams{}
	if err := p.Decode(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	state, found, err := readCoinState(ctx, p.OldCommitment)
	if err != nil {
		return nil, err
	}
	if !found || state.Status != statusStaked {
		return nil, blockchain.NewRuleError(blockchain.ErrConsensusTimingViolation, "unstake request on non-staked coin")
	}
	if ctx.Slot < state.SinceSlot+types.Slot(gracePeriodSlots(c.params)) {
		return nil, blockchain.NewRuleError(blockchain.ErrBeforeGracePeriod, "unstake request before grace period elapsed")
	}
	has, err := ctx.Overlay.HasNullifier(p.Nullifier)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, blockchain.NewRuleError(blockchain.ErrDoubleSpend, "unstake request nullifier already seen")
	}
	u := &update{
		Nullifier:   p.Nullifier,
		OutputLeaf:  p.Output.Commitment,
		NewState:    &CoinState{Status: statusUnstakeRequested, SinceSlot: ctx.Slot},
		NewStateKey: p.Output.Commitment,
	}
	return serial.Encode(u)
}

func (c *Contract) execUnstake(ctx *runtime.CallContext, payload []byte) ([]byte, error) {
	p := &UnstakeParams{}
	if err := p.Decode(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	state, found, err := readCoinState(ctx, p.OldCommitment)
	if err != nil {
		return nil, err
	}
	if !found || state.Status != statusUnstakeRequested {
		return nil, blockchain.NewRuleError(blockchain.ErrConsensusTimingViolation, "unstake on coin not in unstake-requested state")
	}
	if ctx.Slot < state.SinceSlot+types.Slot(unstakeDelaySlots(c.params)) {
		return nil, blockchain.NewRuleError(blockchain.ErrBeforeGracePeriod, "unstake before delay elapsed")
	}
	has, err := ctx.Overlay.HasNullifier(p.Nullifier)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, blockchain.NewRuleError(blockchain.ErrDoubleSpend, "unstake nullifier already seen")
	}
	// No NewState: the output coin exits consensus entirely and
	// becomes a plain Money-spendable coin.
	u := &update{
		Nullifier:  p.Nullifier,
		OutputLeaf: p.Output.Commitment,
	}
	return serial.Encode(u)
}
