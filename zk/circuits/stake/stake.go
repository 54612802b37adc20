// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package stake defines the Consensus contract's one circuit,
// StakeCircuit, which Proposal, UnstakeRequest and Unstake calls all
// prove against. GenesisStake carries no proof and has no circuit here.
// Parameter shapes mirror ilxd/blockchain/harness/generate.go's usage
// of stake.PublicParams/PrivateParams at its stake-transaction call
// sites, adapted from a single spend/mint pair to this contract's
// lock/unlock semantics (spec.md §4.7).
package stake

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// TreeDepth matches standard.TreeDepth; duplicated here so this
// package has no compile-time dependency on the Money circuit.
const TreeDepth = 32

// InclusionProof is the authentication path from a staked coin's
// commitment leaf to the commitment-tree root.
type InclusionProof struct {
	Hashes [TreeDepth]frontend.Variable
	Flags  [TreeDepth]frontend.Variable
}

// StakeCircuit proves that a coin of value >= the minimum stake,
// committed under the public key (PubX, PubY), is included under the
// declared TXO root, and that the declared nullifier is derived from
// SecretKey and the coin's serial, without revealing the coin's
// position in the tree.
type StakeCircuit struct {
	// Public inputs
	TxoRoot    frontend.Variable `gnark:",public"`
	Nullifier  frontend.Variable `gnark:",public"`
	PubX, PubY frontend.Variable `gnark:",public"`
	MinStake   frontend.Variable `gnark:",public"`

	// Private witness
	Value          frontend.Variable
	TokenID        frontend.Variable
	Serial         frontend.Variable
	SecretKey      frontend.Variable
	InclusionProof InclusionProof
}

// Define implements frontend.Circuit.
func (c *StakeCircuit) Define(api frontend.API) error {
	commitment := poseidon5(api, c.PubX, c.PubY, c.Value, c.TokenID, c.Serial)
	verifyMerklePath(api, commitment, c.InclusionProof, c.TxoRoot)

	nullifier := poseidon2(api, c.SecretKey, c.Serial)
	api.AssertIsEqual(nullifier, c.Nullifier)

	api.AssertIsLessOrEqual(c.MinStake, c.Value)
	return nil
}

func poseidon5(api frontend.API, a, b, c, d, e frontend.Variable) frontend.Variable {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		panic(err)
	}
	h.Write(a, b, c, d, e)
	return h.Sum()
}

func poseidon2(api frontend.API, a, b frontend.Variable) frontend.Variable {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		panic(err)
	}
	h.Write(a, b)
	return h.Sum()
}

func verifyMerklePath(api frontend.API, leaf frontend.Variable, proof InclusionProof, root frontend.Variable) {
	cur := leaf
	for i := 0; i < TreeDepth; i++ {
		left := api.Select(proof.Flags[i], proof.Hashes[i], cur)
		right := api.Select(proof.Flags[i], cur, proof.Hashes[i])
		cur = poseidon2(api, left, right)
	}
	api.AssertIsEqual(cur, root)
}

// ProverInclusionProof is the prover-facing form of InclusionProof.
type ProverInclusionProof struct {
	Hashes [][32]byte
	Flags  []bool
}

// PrivateParams bundles the prover-side witness for a stake circuit
// call (proposal, unstake request, or unstake).
type PrivateParams struct {
	Value           uint64
	TokenID         []byte
	Serial          []byte
	SecretKey       []byte
	PubX, PubY      []byte
	CommitmentIndex uint64
	InclusionProof  ProverInclusionProof
}

// PublicParams bundles the public inputs a verifier checks a stake
// circuit proof against.
type PublicParams struct {
	TxoRoot    [32]byte
	Nullifier  [32]byte
	PubX, PubY []byte
	MinStake   uint64
}
