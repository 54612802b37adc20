// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package consensus implements the native Consensus contract: the
// staked-coin lifecycle state machine spec.md §4.7 defines
// (GenesisStake, Proposal, UnstakeRequest, Unstake), grounded on
// original_source/src/contract/consensus/tests/genesis_stake_unstake.rs
// for exact transition windows and on
// ilxd/blockchain/harness/generate.go's stake.PrivateParams/PublicParams
// call shape for the proof side.
package consensus

import (
	"bytes"
	"math/big"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/runtime"
	"github.com/shroud-chain/shroudd/types"
)

// Function selectors, the first byte of a Consensus ContractCall's
// payload (spec.md §3). Proposal is pinned to 0x02 by spec.md §4.6
// step 4's literal text; Empty is the canonical genesis placeholder
// types.EmptyProposal carries.
const (
	SelectorEmpty          byte = 0x00
	SelectorGenesisStake   byte = 0x01
	SelectorProposal       byte = 0x02
	SelectorUnstakeRequest byte = 0x03
	SelectorUnstake        byte = 0x04
)

func init() {
	runtime.RegisterNative(types.ConsensusContractID, &Contract{params: &params.RegtestParams})
}

// Contract is the native Consensus contract implementation.
type Contract struct {
	params *params.NetworkParams
}

// SetParams lets the hosting process swap in mainnet/regtest network
// parameters after init(); the registry is populated before a
// NetworkParams choice is known.
func (c *Contract) SetParams(p *params.NetworkParams) { c.params = p }

func (c *Contract) Metadata(ctx *runtime.CallContext) (*runtime.CallMetadata, error) {
	call := ctx.Call()
	switch call.Selector() {
	case SelectorEmpty:
		return &runtime.CallMetadata{}, nil
	case SelectorGenesisStake:
		p := &GenesisStakeParams{}
		if err := p.Decode(bytes.NewReader(call.Payload[1:])); err != nil {
			return nil, err
		}
		// No ZkProofs: see GenesisStakeParams's doc comment — genesis
		// stake mints a staked coin with no corresponding spend, the
		// same trusted-bootstrap shape as Money's Mint selector.
		return &runtime.CallMetadata{}, nil
	case SelectorProposal:
		p := &ProposalParams{}
		if err := p.Decode(bytes.NewReader(call.Payload[1:])); err != nil {
			return nil, err
		}
		inputs, err := c.stakeWitnessInputs(ctx, p.Nullifier, p.PubKey)
		if err != nil {
			return nil, err
		}
		return &runtime.CallMetadata{ZkProofs: []runtime.ZkRequirement{
			{Namespace: "consensus/proposal", PublicInputs: inputs},
		}}, nil
	case SelectorUnstakeRequest:
		p := &UnstakeRequestParams{}
		if err := p.Decode(bytes.NewReader(call.Payload[1:])); err != nil {
			return nil, err
		}
		inputs, err := c.stakeWitnessInputs(ctx, p.Nullifier, p.PubKey)
		if err != nil {
			return nil, err
		}
		return &runtime.CallMetadata{ZkProofs: []runtime.ZkRequirement{
			{Namespace: "consensus/unstake_request", PublicInputs: inputs},
		}}, nil
	case SelectorUnstake:
		p := &UnstakeParams{}
		if err := p.Decode(bytes.NewReader(call.Payload[1:])); err != nil {
			return nil, err
		}
		inputs, err := c.stakeWitnessInputs(ctx, p.Nullifier, p.PubKey)
		if err != nil {
			return nil, err
		}
		return &runtime.CallMetadata{ZkProofs: []runtime.ZkRequirement{
			{Namespace: "consensus/unstake", PublicInputs: inputs},
		}}, nil
	default:
		return nil, blockchain.NewRuleError(blockchain.ErrArityMismatch, "unknown consensus selector")
	}
}

// stakeWitnessInputs builds the 5 public-input field elements
// zk/circuits/stake.StakeCircuit declares, in its exact order
// (TxoRoot, Nullifier, PubX, PubY, MinStake), for any selector that
// proves inclusion of an existing staked coin: Proposal,
// UnstakeRequest, and Unstake all spend one coin already committed
// under the shared commitment tree, so all three share this witness
// shape.
func (c *Contract) stakeWitnessInputs(ctx *runtime.CallContext, nullifier types.Nullifier, pubKeyBytes []byte) ([]*big.Int, error) {
	pubKey, err := crypto.UnmarshalValidatorPublicKey(pubKeyBytes)
	if err != nil {
		return nil, err
	}
	x, y, err := pubKey.ToXY()
	if err != nil {
		return nil, err
	}
	root := ctx.Accumulator.Root()
	return []*big.Int{
		crypto.BytesToField(root[:]),
		crypto.BytesToField(nullifier[:]),
		x,
		y,
		new(big.Int).SetUint64(c.params.MinStake),
	}, nil
}

func (c *Contract) Exec(ctx *runtime.CallContext) ([]byte, error) {
	call := ctx.Call()
	switch call.Selector() {
	case SelectorEmpty:
		return nil, nil
	case SelectorGenesisStake:
		return c.execGenesisStake(ctx, call.Payload[1:])
	case SelectorProposal:
		return c.execProposal(ctx, call.Payload[1:])
	case SelectorUnstakeRequest:
		return c.execUnstakeRequest(ctx, call.Payload[1:])
	case SelectorUnstake:
		return c.execUnstake(ctx, call.Payload[1:])
	default:
		return nil, blockchain.NewRuleError(blockchain.ErrArityMismatch, "unknown consensus selector")
	}
}

func (c *Contract) Apply(ctx *runtime.CallContext, stateUpdate []byte) error {
	if len(stateUpdate) == 0 {
		return nil
	}
	upd := &update{}
	if err := upd.Decode(bytes.NewReader(stateUpdate)); err != nil {
		return err
	}
	return upd.apply(ctx)
}
