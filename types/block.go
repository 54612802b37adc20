// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"crypto/sha256"
	"io"

	"github.com/shroud-chain/shroudd/serial"
)

// BlockHeader carries the fields that identify and link a block,
// grounded on ilxd's params.BlockHeader shape (Producer_ID/Height/
// Parent/TxRoot/Signature) re-keyed to spec.md §3's slot-based model.
type BlockHeader struct {
	Slot       Slot
	Parent     ID
	TxRoot     [32]byte
	ProducerID ContractId
	Version    uint32
}

// Encode implements serial.Encodable.
func (h *BlockHeader) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteU64(uint64(h.Slot))
	wr.WriteRaw(h.Parent[:])
	wr.WriteRaw(h.TxRoot[:])
	wr.WriteRaw(h.ProducerID[:])
	wr.WriteU32(h.Version)
	return wr.Result()
}

// Decode implements serial.Decodable.
func (h *BlockHeader) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	h.Slot = Slot(rd.ReadU64())
	rd.ReadRaw(h.Parent[:])
	rd.ReadRaw(h.TxRoot[:])
	rd.ReadRaw(h.ProducerID[:])
	h.Version = rd.ReadU32()
	return rd.Err()
}

// Hash returns the header's content hash.
func (h *BlockHeader) Hash() (ID, error) {
	b, err := serial.Encode(h)
	if err != nil {
		return ID{}, err
	}
	return ID(sha256.Sum256(b)), nil
}

// Block is a header, a single producer-proposal transaction (a
// Consensus-contract Proposal call; the canonical empty default at slot
// 0), and an ordered list of user transactions (spec.md §3, "Block").
type Block struct {
	Header       *BlockHeader
	ProposalTx   *Transaction
	Transactions []*Transaction
}

// Encode implements serial.Encodable.
func (b *Block) Encode(w io.Writer) (int, error) {
	total := 0
	n, err := b.Header.Encode(w)
	total += n
	if err != nil {
		return total, err
	}
	n, err = b.ProposalTx.Encode(w)
	total += n
	if err != nil {
		return total, err
	}
	wr := serial.NewWriter(w)
	wr.WriteVarint(uint64(len(b.Transactions)))
	n, err = wr.Result()
	total += n
	if err != nil {
		return total, err
	}
	for _, tx := range b.Transactions {
		n, err = tx.Encode(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Decode implements serial.Decodable.
func (b *Block) Decode(r io.Reader) error {
	b.Header = &BlockHeader{}
	if err := b.Header.Decode(r); err != nil {
		return err
	}
	b.ProposalTx = &Transaction{}
	if err := b.ProposalTx.Decode(r); err != nil {
		return err
	}
	rd := serial.NewReader(r)
	n := rd.ReadVarint()
	if err := rd.Err(); err != nil {
		return err
	}
	b.Transactions = make([]*Transaction, n)
	for i := range b.Transactions {
		tx := &Transaction{}
		if err := tx.Decode(r); err != nil {
			return err
		}
		b.Transactions[i] = tx
	}
	return nil
}

// ID returns the block's content hash: the header hash, per spec.md §3
// ("Identity = content hash of header").
func (b *Block) ID() (ID, error) {
	return b.Header.Hash()
}

// EmptyProposal is the canonical empty default proposal transaction
// genesis (slot 0) must carry (spec.md §3, §4.6 step 4).
func EmptyProposal() *Transaction {
	return &Transaction{
		Calls:      []*ContractCall{{ContractID: ConsensusContractID, Payload: []byte{0x00}}},
		Proofs:     [][][]byte{{}},
		Signatures: [][][]byte{{}},
	}
}

// ComputeTxRoot folds a block's user transactions into a single
// Merkle root over their ids (BlockHeader.TxRoot, §4.6 step 3's
// "tx-Merkle-root match"). An empty list roots to the zero hash.
func ComputeTxRoot(txs []*Transaction) ([32]byte, error) {
	if len(txs) == 0 {
		return [32]byte{}, nil
	}
	level := make([][32]byte, len(txs))
	for i, tx := range txs {
		id, err := tx.ID()
		if err != nil {
			return [32]byte{}, err
		}
		level[i] = [32]byte(id)
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := range next {
			h := sha256.Sum256(append(append([]byte{}, level[2*i][:]...), level[2*i+1][:]...))
			next[i] = h
		}
		level = next
	}
	return level[0], nil
}
