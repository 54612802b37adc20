// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package money

import (
	"io"

	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/zk/circuits/standard"
)

func encodeCoin(wr *serial.Writer, c types.Coin) { wr.WriteRaw(c.Commitment[:]) }

func decodeCoin(rd *serial.Reader) types.Coin {
	var c types.Coin
	rd.ReadRaw(c.Commitment[:])
	return c
}

// MintParams is the genesis-only Mint call payload: a single coin
// created with no corresponding spend.
type MintParams struct {
	Output types.Coin
}

func (p *MintParams) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	encodeCoin(wr, p.Output)
	return wr.Result()
}

func (p *MintParams) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	p.Output = decodeCoin(rd)
	return rd.Err()
}

// TransferParams is the Transfer call payload: up to
// standard.MaxInputs nullifiers being spent and up to
// standard.MaxOutputs coins being minted, plus the declared fee. Zero
// nullifiers/commitments mark unused witness slots, matching the
// circuit's fixed-size Inputs/Outputs arrays.
//
// TODO: no per-output spend_hook_recv/user_data_recv fields exist here
// (spec.md §9(a)). The source this spec was distilled from threads a
// spend_hook/user_data pair through each output so a receiving
// contract can react to being paid (e.g. an atomic swap claiming its
// counter-leg); this contract has no swap call path at all, so those
// fields were left out rather than added unused.
type TransferParams struct {
	Nullifiers [standard.MaxInputs]types.Nullifier
	Outputs    [standard.MaxOutputs]types.Coin
	Fee        types.Amount
}

func (p *TransferParams) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	for _, n := range p.Nullifiers {
		wr.WriteRaw(n[:])
	}
	for _, o := range p.Outputs {
		encodeCoin(wr, o)
	}
	wr.WriteU64(uint64(p.Fee))
	return wr.Result()
}

func (p *TransferParams) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	for i := range p.Nullifiers {
		rd.ReadRaw(p.Nullifiers[i][:])
	}
	for i := range p.Outputs {
		p.Outputs[i] = decodeCoin(rd)
	}
	p.Fee = types.Amount(rd.ReadU64())
	return rd.Err()
}
