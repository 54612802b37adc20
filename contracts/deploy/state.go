// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package deploy

import (
	"io"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/runtime"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

// update is the opaque state_update blob exec hands to apply: the
// derived ContractId together with the bytecode and zkas entries to
// register under it.
type update struct {
	ContractID types.ContractId
	Bytecode   []byte
	Zkas       []ZkasNamespaceEntry
}

func (u *update) encodeBlob() ([]byte, error) { return serial.Encode(u) }

func (u *update) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(u.ContractID[:])
	wr.WriteBytes(u.Bytecode)
	wr.WriteVarint(uint64(len(u.Zkas)))
	for i := range u.Zkas {
		u.Zkas[i].encode(wr)
	}
	return wr.Result()
}

func (u *update) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(u.ContractID[:])
	u.Bytecode = rd.ReadBytes()
	n := rd.ReadVarint()
	u.Zkas = make([]ZkasNamespaceEntry, n)
	for i := range u.Zkas {
		u.Zkas[i].decode(rd)
	}
	return rd.Err()
}

func (u *update) apply(ctx *runtime.CallContext) error {
	ctx.Overlay.DeployBytecode(u.ContractID, u.Bytecode)
	for _, z := range u.Zkas {
		entry := &blockchain.ZkasEntry{Bincode: z.Bincode, VerifyingKey: z.VerifyingKey}
		if err := ctx.Overlay.DeployZkas(u.ContractID, z.Namespace, entry); err != nil {
			return err
		}
	}
	return nil
}
