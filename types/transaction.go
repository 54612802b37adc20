// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"crypto/sha256"
	"io"

	"github.com/shroud-chain/shroudd/serial"
)

// ContractCall is one call inside a transaction: the contract being
// invoked and an opaque payload whose first byte is the function
// selector (spec.md §3, "Transaction").
type ContractCall struct {
	ContractID ContractId
	Payload    []byte
}

// Selector returns the call's function selector, the first payload
// byte. Calling Selector on an empty payload returns 0.
func (c *ContractCall) Selector() byte {
	if len(c.Payload) == 0 {
		return 0
	}
	return c.Payload[0]
}

// Encode implements serial.Encodable.
func (c *ContractCall) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(c.ContractID[:])
	wr.WriteBytes(c.Payload)
	return wr.Result()
}

// Decode implements serial.Decodable.
func (c *ContractCall) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(c.ContractID[:])
	c.Payload = rd.ReadBytes()
	return rd.Err()
}

// Transaction is an ordered list of ContractCalls plus a parallel
// list-of-lists of ZK proofs and signatures, one inner list per call
// (spec.md §3). Invariant: len(Signatures) == len(Calls), and each
// inner list's length equals that call's metadata-declared signer
// count — enforced by TxVerifier, not by this type.
type Transaction struct {
	Calls      []*ContractCall
	Proofs     [][][]byte
	Signatures [][][]byte
}

// Encode implements serial.Encodable.
func (t *Transaction) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteVarint(uint64(len(t.Calls)))
	total, err := wr.Result()
	if err != nil {
		return total, err
	}
	for _, c := range t.Calls {
		cn, cerr := c.Encode(w)
		total += cn
		if cerr != nil {
			return total, cerr
		}
	}
	wr2 := serial.NewWriter(w)
	encodeByteMatrix(wr2, t.Proofs)
	encodeByteMatrix(wr2, t.Signatures)
	n2, err2 := wr2.Result()
	return total + n2, err2
}

func encodeByteMatrix(wr *serial.Writer, m [][][]byte) {
	wr.WriteVarint(uint64(len(m)))
	for _, inner := range m {
		wr.WriteVarint(uint64(len(inner)))
		for _, b := range inner {
			wr.WriteBytes(b)
		}
	}
}

func decodeByteMatrix(rd *serial.Reader) [][][]byte {
	n := rd.ReadVarint()
	out := make([][][]byte, n)
	for i := range out {
		m := rd.ReadVarint()
		inner := make([][]byte, m)
		for j := range inner {
			inner[j] = rd.ReadBytes()
		}
		out[i] = inner
	}
	return out
}

// Decode implements serial.Decodable.
func (t *Transaction) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	n := rd.ReadVarint()
	t.Calls = make([]*ContractCall, n)
	for i := range t.Calls {
		c := &ContractCall{}
		if err := c.Decode(r); err != nil {
			return err
		}
		t.Calls[i] = c
	}
	t.Proofs = decodeByteMatrix(rd)
	t.Signatures = decodeByteMatrix(rd)
	return rd.Err()
}

// ID returns the transaction's content hash, used as its wire identity
// (spec.md §3, "Identity = content hash").
func (t *Transaction) ID() (ID, error) {
	b, err := serial.Encode(t)
	if err != nil {
		return ID{}, err
	}
	return ID(sha256.Sum256(b)), nil
}

// SigningPayload returns the bytes each per-call signature in
// Signatures signs over: the call list alone, excluding Proofs and
// Signatures themselves so a signer can produce its signature before
// the transaction's proofs are attached.
func (t *Transaction) SigningPayload() ([]byte, error) {
	var buf bytes.Buffer
	wr := serial.NewWriter(&buf)
	wr.WriteVarint(uint64(len(t.Calls)))
	if _, err := wr.Result(); err != nil {
		return nil, err
	}
	for _, c := range t.Calls {
		if _, err := c.Encode(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
