// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package sync

import (
	"io"

	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

// GetTipResp reports a peer's current chain tip.
type GetTipResp struct {
	Slot types.Slot
	Hash types.ID
}

func (m *GetTipResp) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteU64(uint64(m.Slot))
	wr.WriteRaw(m.Hash[:])
	return wr.Result()
}

func (m *GetTipResp) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	m.Slot = types.Slot(rd.ReadU64())
	rd.ReadRaw(m.Hash[:])
	return rd.Err()
}

// GetBlockReq asks a peer for a full block by id.
type GetBlockReq struct {
	BlockID types.ID
}

func (m *GetBlockReq) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(m.BlockID[:])
	return wr.Result()
}

func (m *GetBlockReq) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(m.BlockID[:])
	return rd.Err()
}

// GetBlockTxsReq asks a peer for a subset of a block's transactions by
// index, the shape xthinner-style block reconstruction needs.
type GetBlockTxsReq struct {
	BlockID   types.ID
	TxIndexes []uint32
}

func (m *GetBlockTxsReq) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(m.BlockID[:])
	wr.WriteVarint(uint64(len(m.TxIndexes)))
	for _, idx := range m.TxIndexes {
		wr.WriteU32(idx)
	}
	return wr.Result()
}

func (m *GetBlockTxsReq) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(m.BlockID[:])
	n := rd.ReadVarint()
	m.TxIndexes = make([]uint32, n)
	for i := range m.TxIndexes {
		m.TxIndexes[i] = rd.ReadU32()
	}
	return rd.Err()
}

// GetBlockTxsResp carries the requested transactions, in request order.
type GetBlockTxsResp struct {
	Transactions []*types.Transaction
}

func (m *GetBlockTxsResp) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteVarint(uint64(len(m.Transactions)))
	n, err := wr.Result()
	if err != nil {
		return n, err
	}
	total := n
	for _, tx := range m.Transactions {
		n, err := tx.Encode(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (m *GetBlockTxsResp) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	count := rd.ReadVarint()
	if err := rd.Err(); err != nil {
		return err
	}
	m.Transactions = make([]*types.Transaction, count)
	for i := range m.Transactions {
		tx := new(types.Transaction)
		if err := tx.Decode(r); err != nil {
			return err
		}
		m.Transactions[i] = tx
	}
	return nil
}

// GetBlockTxidsReq asks a peer for the id list of every tx in a block.
type GetBlockTxidsReq struct {
	BlockID types.ID
}

func (m *GetBlockTxidsReq) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(m.BlockID[:])
	return wr.Result()
}

func (m *GetBlockTxidsReq) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(m.BlockID[:])
	return rd.Err()
}

// GetBlockTxidsResp carries a block's transaction ids in block order.
type GetBlockTxidsResp struct {
	Txids []types.ID
}

func (m *GetBlockTxidsResp) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteVarint(uint64(len(m.Txids)))
	for _, id := range m.Txids {
		wr.WriteRaw(id[:])
	}
	return wr.Result()
}

func (m *GetBlockTxidsResp) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	n := rd.ReadVarint()
	m.Txids = make([]types.ID, n)
	for i := range m.Txids {
		rd.ReadRaw(m.Txids[i][:])
	}
	return rd.Err()
}

// SubmitTxReq forwards a transaction to a peer for validation/relay.
type SubmitTxReq struct {
	Tx *types.Transaction
}

func (m *SubmitTxReq) Encode(w io.Writer) (int, error) {
	return m.Tx.Encode(w)
}

func (m *SubmitTxReq) Decode(r io.Reader) error {
	m.Tx = new(types.Transaction)
	return m.Tx.Decode(r)
}
