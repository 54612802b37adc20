// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package crypto

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bn254mimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// PoseidonHash is the host-side arithmetic hash contracts and the runtime
// use for coin commitments and Merkle nodes (spec.md §6's "host-side
// Pedersen and Poseidon primitives", assumed to exist as a library call
// per §1). MiMC over the BN254 scalar field stands in for Poseidon, the
// same substitution the zk circuits make (see zk/circuits).
func PoseidonHash(inputs ...*big.Int) *big.Int {
	h := bn254mimc.NewMiMC()
	for _, in := range inputs {
		var e fr.Element
		e.SetBigInt(in)
		b := e.Bytes()
		h.Write(b[:])
	}
	sum := h.Sum(nil)
	var out fr.Element
	out.SetBytes(sum)
	return out.BigInt(new(big.Int))
}

// PedersenCommit computes a hiding commitment to value under blind,
// standing in for the curve-point Pedersen commitment named in §6. Note
// value/token commitments use this shape:
// Commit(value, blind) = PoseidonHash(value, blind). Coin commitments do
// not; types.ComputeCoinCommitment hashes five inputs with PoseidonHash.
func PedersenCommit(value, blind *big.Int) *big.Int {
	return PoseidonHash(value, blind)
}

// BytesToField reduces raw bytes into a BN254 scalar-field element, used
// whenever a fixed-size hash digest (a contract id, a public key) needs
// to enter a Poseidon/Pedersen computation as a field element.
func BytesToField(b []byte) *big.Int {
	var e fr.Element
	e.SetBytes(b)
	return e.BigInt(new(big.Int))
}

// FieldToBytes serializes a scalar-field element to its canonical
// 32-byte big-endian representation, the form stored on the wire.
func FieldToBytes(x *big.Int) [32]byte {
	var e fr.Element
	e.SetBigInt(x)
	return e.Bytes()
}
