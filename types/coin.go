// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"io"
	"math/big"

	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/serial"
)

// TokenID identifies a fungible asset type (the native token has the
// zero TokenID).
type TokenID [IDSize]byte

// Note is the plaintext opener of a coin commitment: value, token type,
// serial number and the blinds used to hide value/token in the
// commitment, plus an optional memo (spec.md §3, "Coin / OwnCoin").
type Note struct {
	Value      Amount
	TokenID    TokenID
	Serial     [32]byte
	ValueBlind [32]byte
	TokenBlind [32]byte
	Memo       []byte
}

// Encode implements serial.Encodable.
func (n *Note) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteU64(uint64(n.Value))
	wr.WriteRaw(n.TokenID[:])
	wr.WriteRaw(n.Serial[:])
	wr.WriteRaw(n.ValueBlind[:])
	wr.WriteRaw(n.TokenBlind[:])
	wr.WriteBytes(n.Memo)
	return wr.Result()
}

// Decode implements serial.Decodable.
func (n *Note) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	n.Value = Amount(rd.ReadU64())
	rd.ReadRaw(n.TokenID[:])
	rd.ReadRaw(n.Serial[:])
	rd.ReadRaw(n.ValueBlind[:])
	rd.ReadRaw(n.TokenBlind[:])
	n.Memo = rd.ReadBytes()
	return rd.Err()
}

// ValueCommitment returns the Pedersen commitment to the note's value
// under its value blind.
func (n *Note) ValueCommitment() *big.Int {
	return crypto.PedersenCommit(new(big.Int).SetUint64(uint64(n.Value)), crypto.BytesToField(n.ValueBlind[:]))
}

// TokenCommitment returns the Pedersen commitment to the note's token id
// under its token blind.
func (n *Note) TokenCommitment() *big.Int {
	return crypto.PedersenCommit(crypto.BytesToField(n.TokenID[:]), crypto.BytesToField(n.TokenBlind[:]))
}

// Coin is the commitment leaf stored in the Money contract's Merkle
// tree: Poseidon(pubkey.x, pubkey.y, value, token-id, serial).
type Coin struct {
	Commitment [32]byte
}

// ComputeCoinCommitment derives the Coin leaf value for a note locked to
// pubkey, per spec.md §3.
func ComputeCoinCommitment(pubkey *crypto.ValidatorPublicKey, n *Note) (Coin, error) {
	x, y, err := pubkey.ToXY()
	if err != nil {
		return Coin{}, err
	}
	h := crypto.PoseidonHash(
		x, y,
		new(big.Int).SetUint64(uint64(n.Value)),
		crypto.BytesToField(n.TokenID[:]),
		crypto.BytesToField(n.Serial[:]),
	)
	fb := crypto.FieldToBytes(h)
	return Coin{Commitment: fb}, nil
}

// OwnCoin bundles a Coin with the secret material required to spend it:
// the opening note, the spending key, its position in the commitment
// tree, and the resulting nullifier (spec.md §3).
type OwnCoin struct {
	Coin       Coin
	Note       Note
	SecretKey  *crypto.ValidatorPrivateKey
	LeafIndex  uint64
	Nullifier  Nullifier
}

// ComputeNullifier derives the coin's nullifier deterministically from
// its secret key and serial number (spec.md §3, "Nullifier").
func ComputeNullifier(secret *crypto.ValidatorPrivateKey, n *Note) (Nullifier, error) {
	skBytes, err := secret.Bytes()
	if err != nil {
		return Nullifier{}, err
	}
	h := crypto.PoseidonHash(crypto.BytesToField(skBytes), crypto.BytesToField(n.Serial[:]))
	return Nullifier(crypto.FieldToBytes(h)), nil
}

// VerifyOpening checks the Coin/Invariant from §3: committing the
// OwnCoin's plaintext under its blinds must reproduce the on-chain
// value- and token-commitments carried by the associated output.
func (oc *OwnCoin) VerifyOpening(valueCommitment, tokenCommitment *big.Int) bool {
	return oc.Note.ValueCommitment().Cmp(valueCommitment) == 0 &&
		oc.Note.TokenCommitment().Cmp(tokenCommitment) == 0
}
