// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package money

import (
	"io"

	"github.com/shroud-chain/shroudd/runtime"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

// update is the opaque state_update blob exec hands to apply: the
// nullifiers to insert and the coins to append to the shared
// commitment accumulator.
type update struct {
	Nullifiers []types.Nullifier
	Outputs    []types.Coin
}

func encode(u *update) ([]byte, error) { return serial.Encode(u) }

func (u *update) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteVarint(uint64(len(u.Nullifiers)))
	for _, n := range u.Nullifiers {
		wr.WriteRaw(n[:])
	}
	wr.WriteVarint(uint64(len(u.Outputs)))
	for _, o := range u.Outputs {
		encodeCoin(wr, o)
	}
	return wr.Result()
}

func (u *update) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	n := rd.ReadVarint()
	u.Nullifiers = make([]types.Nullifier, n)
	for i := range u.Nullifiers {
		rd.ReadRaw(u.Nullifiers[i][:])
	}
	m := rd.ReadVarint()
	u.Outputs = make([]types.Coin, m)
	for i := range u.Outputs {
		u.Outputs[i] = decodeCoin(rd)
	}
	return rd.Err()
}

func (u *update) apply(ctx *runtime.CallContext) error {
	for _, n := range u.Nullifiers {
		ctx.Overlay.InsertNullifier(n)
	}
	for _, o := range u.Outputs {
		if _, err := ctx.Accumulator.Append(o.Commitment); err != nil {
			return err
		}
	}
	return nil
}
