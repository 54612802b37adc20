// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package consensus

import (
	"io"

	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

func encodeCoin(wr *serial.Writer, c types.Coin) { wr.WriteRaw(c.Commitment[:]) }

func decodeCoin(rd *serial.Reader) types.Coin {
	var c types.Coin
	rd.ReadRaw(c.Commitment[:])
	return c
}

// GenesisStakeParams is the Consensus contract's GenesisStake call
// payload: Nullifier uniquely identifies this stake (preventing
// replay/duplication, spec.md §4.7's "single application per coin"),
// Output is the newly staked coin. Like Money's genesis-only Mint,
// GenesisStake creates value with no corresponding spend and carries
// no ZK proof requirement: there is no pre-existing staked coin to
// prove inclusion of at slot 0, so it cannot use
// zk/circuits/stake.StakeCircuit's inclusion-proof shape the way
// Proposal/UnstakeRequest/Unstake do.
type GenesisStakeParams struct {
	Nullifier types.Nullifier
	Output    types.Coin
}

func (p *GenesisStakeParams) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(p.Nullifier[:])
	encodeCoin(wr, p.Output)
	return wr.Result()
}

func (p *GenesisStakeParams) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(p.Nullifier[:])
	p.Output = decodeCoin(rd)
	return rd.Err()
}

// ProposalParams is the Proposal call payload: burns the staked coin
// at OldCommitment (revealing Nullifier), mints Output with
// value += REWARD. PubKey is the marshaled public key of the staker
// proving ownership of OldCommitment, the source of the stake
// circuit's public PubX/PubY witness elements (zk/circuits/stake.
// StakeCircuit).
type ProposalParams struct {
	OldCommitment [32]byte
	Nullifier     types.Nullifier
	Output        types.Coin
	PubKey        []byte
}

func (p *ProposalParams) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(p.OldCommitment[:])
	wr.WriteRaw(p.Nullifier[:])
	encodeCoin(wr, p.Output)
	wr.WriteBytes(p.PubKey)
	return wr.Result()
}

func (p *ProposalParams) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(p.OldCommitment[:])
	rd.ReadRaw(p.Nullifier[:])
	p.Output = decodeCoin(rd)
	p.PubKey = rd.ReadBytes()
	return rd.Err()
}

// UnstakeRequestParams is the UnstakeRequest call payload: burns the
// staked coin at OldCommitment, mints Output marked UnstakeRequested.
// PubKey sources the stake circuit's public PubX/PubY, same as
// ProposalParams.
type UnstakeRequestParams struct {
	OldCommitment [32]byte
	Nullifier     types.Nullifier
	Output        types.Coin
	PubKey        []byte
}

func (p *UnstakeRequestParams) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(p.OldCommitment[:])
	wr.WriteRaw(p.Nullifier[:])
	encodeCoin(wr, p.Output)
	wr.WriteBytes(p.PubKey)
	return wr.Result()
}

func (p *UnstakeRequestParams) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(p.OldCommitment[:])
	rd.ReadRaw(p.Nullifier[:])
	p.Output = decodeCoin(rd)
	p.PubKey = rd.ReadBytes()
	return rd.Err()
}

// UnstakeParams is the final Unstake call payload: burns the
// UnstakeRequested coin at OldCommitment, mints Output as a plain,
// no-longer-staked coin spendable through the Money contract. PubKey
// sources the stake circuit's public PubX/PubY, same as
// ProposalParams.
type UnstakeParams struct {
	OldCommitment [32]byte
	Nullifier     types.Nullifier
	Output        types.Coin
	PubKey        []byte
}

func (p *UnstakeParams) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteRaw(p.OldCommitment[:])
	wr.WriteRaw(p.Nullifier[:])
	encodeCoin(wr, p.Output)
	wr.WriteBytes(p.PubKey)
	return wr.Result()
}

func (p *UnstakeParams) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	rd.ReadRaw(p.OldCommitment[:])
	rd.ReadRaw(p.Nullifier[:])
	p.Output = decodeCoin(rd)
	p.PubKey = rd.ReadBytes()
	return rd.Err()
}
