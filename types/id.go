// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"encoding/hex"
	"io"

	"github.com/shroud-chain/shroudd/serial"
)

// IDSize is the fixed length, in bytes, of every content-addressed
// identifier in the chain (block ids, tx ids, contract ids, nullifiers).
const IDSize = 32

// ID is a 32-byte content hash used to identify blocks and transactions.
type ID [IDSize]byte

// String renders the id as lowercase hex.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether id is the all-zero sentinel (used for the
// genesis block's previous-hash field).
func (id ID) IsZero() bool { return id == ID{} }

// Encode implements serial.Encodable.
func (id ID) Encode(w io.Writer) (int, error) {
	n, err := w.Write(id[:])
	return n, err
}

// Decode implements serial.Decodable.
func (id *ID) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, id[:])
	return err
}

// ContractId identifies a deployed contract: either one of the three
// fixed native ids below, or derived from a deploying public key.
type ContractId [IDSize]byte

// String renders the id as lowercase hex.
func (c ContractId) String() string { return hex.EncodeToString(c[:]) }

// Encode implements serial.Encodable.
func (c ContractId) Encode(w io.Writer) (int, error) {
	return w.Write(c[:])
}

// Decode implements serial.Decodable.
func (c *ContractId) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, c[:])
	return err
}

// Native contract ids are process-wide immutable constants (spec.md §9,
// "Global state"), never a batch-scoped or mutable registry entry.
var (
	MoneyContractID     = ContractId{0x01}
	ConsensusContractID = ContractId{0x02}
	DeployContractID    = ContractId{0x03}
)

// Nullifier is the one-time spend marker derived from a coin's secret
// material. Once present in ChainStore it may never reappear (§3).
type Nullifier [IDSize]byte

// String renders the nullifier as lowercase hex.
func (n Nullifier) String() string { return hex.EncodeToString(n[:]) }

// Encode implements serial.Encodable.
func (n Nullifier) Encode(w io.Writer) (int, error) {
	return w.Write(n[:])
}

// Decode implements serial.Decodable.
func (n *Nullifier) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, n[:])
	return err
}

var _ serial.Encodable = ID{}
var _ serial.Decodable = (*ID)(nil)
