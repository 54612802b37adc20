// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package deploy

import (
	"io"

	"github.com/shroud-chain/shroudd/serial"
)

// ZkasNamespaceEntry pairs a circuit namespace with its compiled form
// and verifying key, the unit Deploy registers per zk.VKCache (§4.3).
type ZkasNamespaceEntry struct {
	Namespace    string
	Bincode      []byte
	VerifyingKey []byte
}

func (e *ZkasNamespaceEntry) encode(wr *serial.Writer) {
	wr.WriteBytes([]byte(e.Namespace))
	wr.WriteBytes(e.Bincode)
	wr.WriteBytes(e.VerifyingKey)
}

func (e *ZkasNamespaceEntry) decode(rd *serial.Reader) {
	e.Namespace = string(rd.ReadBytes())
	e.Bincode = rd.ReadBytes()
	e.VerifyingKey = rd.ReadBytes()
}

// DeployParams is the Deploy call payload: the deployer's public key
// and a salt (together deriving the new ContractId), the contract's
// lurk source bytecode, and its zkas circuit entries.
type DeployParams struct {
	PubKey   []byte
	Salt     [32]byte
	Bytecode []byte
	Zkas     []ZkasNamespaceEntry
}

func (p *DeployParams) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteBytes(p.PubKey)
	wr.WriteRaw(p.Salt[:])
	wr.WriteBytes(p.Bytecode)
	wr.WriteVarint(uint64(len(p.Zkas)))
	for i := range p.Zkas {
		p.Zkas[i].encode(wr)
	}
	return wr.Result()
}

func (p *DeployParams) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	p.PubKey = rd.ReadBytes()
	rd.ReadRaw(p.Salt[:])
	p.Bytecode = rd.ReadBytes()
	n := rd.ReadVarint()
	p.Zkas = make([]ZkasNamespaceEntry, n)
	for i := range p.Zkas {
		p.Zkas[i].decode(rd)
	}
	return rd.Err()
}
