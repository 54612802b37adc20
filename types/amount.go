// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"io"

	"github.com/shroud-chain/shroudd/serial"
)

// Amount is a coin value in the smallest denomination. Unsigned to match
// the wire encoding's u64 field and to rule out negative-value coins at
// the type level.
type Amount uint64

// Encode implements serial.Encodable.
func (a Amount) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteU64(uint64(a))
	return wr.Result()
}

// Decode implements serial.Decodable.
func (a *Amount) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	*a = Amount(rd.ReadU64())
	return rd.Err()
}
