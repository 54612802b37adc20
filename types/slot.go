// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"io"

	"github.com/shroud-chain/shroudd/serial"
)

// Slot is the discrete, monotonically increasing consensus time unit
// (spec.md §3, "Slot/Epoch"). Slot 0 is genesis.
type Slot uint64

// Epoch returns the fixed-length epoch containing s, given epochLength
// slots per epoch.
func (s Slot) Epoch(epochLength uint64) Epoch {
	if epochLength == 0 {
		return 0
	}
	return Epoch(uint64(s) / epochLength)
}

// Encode implements serial.Encodable.
func (s Slot) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteU64(uint64(s))
	return wr.Result()
}

// Decode implements serial.Decodable.
func (s *Slot) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	*s = Slot(rd.ReadU64())
	return rd.Err()
}

// Epoch is a fixed consecutive run of slots (EPOCH_LENGTH slots wide).
type Epoch uint64

// FirstSlot returns the first slot belonging to epoch e.
func (e Epoch) FirstSlot(epochLength uint64) Slot {
	return Slot(uint64(e) * epochLength)
}
