// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package runtime

import (
	"bytes"

	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

// buildPayload frames a call's input exactly as spec.md §4.4 names it:
// write_u32(call_index) || encode(tx.calls), so a contract may
// cross-reference sibling calls (atomic-swap uses this).
func buildPayload(ctx *CallContext) ([]byte, error) {
	var buf bytes.Buffer
	wr := serial.NewWriter(&buf)
	wr.WriteU32(uint32(ctx.CallIndex))
	if _, err := wr.Result(); err != nil {
		return nil, err
	}
	wr2 := serial.NewWriter(&buf)
	wr2.WriteVarint(uint64(len(ctx.Calls)))
	if _, err := wr2.Result(); err != nil {
		return nil, err
	}
	for _, c := range ctx.Calls {
		if _, err := c.Encode(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// decodeCallsFromPayload is the inverse of buildPayload. Nothing in
// the module calls it; native contracts read sibling calls from
// CallContext.Calls instead.
func decodeCallsFromPayload(payload []byte) (callIndex uint32, calls []*types.ContractCall, err error) {
	r := bytes.NewReader(payload)
	rd := serial.NewReader(r)
	callIndex = rd.ReadU32()
	n := rd.ReadVarint()
	if err := rd.Err(); err != nil {
		return 0, nil, err
	}
	calls = make([]*types.ContractCall, n)
	for i := range calls {
		c := &types.ContractCall{}
		if derr := c.Decode(r); derr != nil {
			return 0, nil, derr
		}
		calls[i] = c
	}
	return callIndex, calls, nil
}
