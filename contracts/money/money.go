// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package money implements the native Money contract: coin transfer
// (burn up to standard.MaxInputs coins, mint up to standard.MaxOutputs)
// proved by zk/circuits/standard, plus a genesis-only Mint selector for
// seeding initial supply. Grounded on ilxd/blockchain/harness/generate.go's
// standard.PrivateParams/PublicParams call shape and on spec.md §3's
// Coin/OwnCoin definition.
package money

import (
	"bytes"
	"math/big"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/runtime"
	"github.com/shroud-chain/shroudd/types"
)

// Function selectors, the first byte of a Money ContractCall's payload.
const (
	SelectorMint     byte = 0x01
	SelectorTransfer byte = 0x02
)

func init() {
	runtime.RegisterNative(types.MoneyContractID, &Contract{})
}

// Contract is the native Money contract implementation.
type Contract struct{}

func (c *Contract) Metadata(ctx *runtime.CallContext) (*runtime.CallMetadata, error) {
	call := ctx.Call()
	switch call.Selector() {
	case SelectorMint:
		p := &MintParams{}
		if err := p.Decode(bytes.NewReader(call.Payload[1:])); err != nil {
			return nil, err
		}
		return &runtime.CallMetadata{}, nil
	case SelectorTransfer:
		p := &TransferParams{}
		if err := p.Decode(bytes.NewReader(call.Payload[1:])); err != nil {
			return nil, err
		}
		root := ctx.Accumulator.Root()
		inputs := []*big.Int{crypto.BytesToField(root[:])}
		for _, n := range p.Nullifiers {
			inputs = append(inputs, crypto.BytesToField(n[:]))
		}
		for _, o := range p.Outputs {
			inputs = append(inputs, crypto.BytesToField(o.Commitment[:]))
		}
		inputs = append(inputs, new(big.Int).SetUint64(uint64(p.Fee)))
		return &runtime.CallMetadata{ZkProofs: []runtime.ZkRequirement{
			{Namespace: "money/transfer", PublicInputs: inputs},
		}}, nil
	default:
		return nil, blockchain.NewRuleError(blockchain.ErrArityMismatch, "unknown money selector")
	}
}

func (c *Contract) Exec(ctx *runtime.CallContext) ([]byte, error) {
	call := ctx.Call()
	switch call.Selector() {
	case SelectorMint:
		return c.execMint(ctx, call.Payload[1:])
	case SelectorTransfer:
		return c.execTransfer(ctx, call.Payload[1:])
	default:
		return nil, blockchain.NewRuleError(blockchain.ErrArityMismatch, "unknown money selector")
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

func (c *Contract) execMint(ctx *runtime.CallContext, payload []byte) ([]byte, error) {
	p := &MintParams{}
	if err := p.Decode(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	if ctx.Slot != 0 {
		return nil, blockchain.NewRuleError(blockchain.ErrNotGenesisSlot, "mint outside slot 0")
	}
	u := &update{Outputs: []types.Coin{p.Output}}
	return encode(u)
}

func (c *Contract) execTransfer(ctx *runtime.CallContext, payload []byte) ([]byte, error) {
	p := &TransferParams{}
	if err := p.Decode(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	u := &update{}
	for _, n := range p.Nullifiers {
		if n == (types.Nullifier{}) {
			continue
		}
		has, err := ctx.Overlay.HasNullifier(n)
		if err != nil {
			return nil, err
		}
		if has {
			return nil, blockchain.NewRuleError(blockchain.ErrDoubleSpend, "input nullifier already seen")
		}
		u.Nullifiers = append(u.Nullifiers, n)
	}
	for _, o := range p.Outputs {
		if o.Commitment == ([32]byte{}) {
			continue
		}
		u.Outputs = append(u.Outputs, o)
	}
	return encode(u)
}
