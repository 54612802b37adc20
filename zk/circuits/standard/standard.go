// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package standard defines the Money contract's transfer circuit: it
// proves that a set of spent coins opens to claimed commitments already
// present in the commitment tree, that their nullifiers are correctly
// derived, and that newly minted output commitments are well-formed,
// without revealing which inputs were spent. Parameter shapes
// (PrivateParams/PublicParams/PrivateInput/PrivateOutput/InclusionProof)
// are grounded on ilxd/blockchain/harness/generate.go's usage of
// standard.PrivateParams/PublicParams when building a standard
// transaction's witness.
package standard

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// TreeDepth is the fixed depth of the commitment-tree inclusion proof
// the circuit verifies (matches params.NetworkParams.TreeDepth).
const TreeDepth = 32

// MaxInputs and MaxOutputs bound the number of spends/mints a single
// transfer circuit instance proves in one call; a transaction with more
// coins splits across multiple calls.
const (
	MaxInputs  = 2
	MaxOutputs = 2
)

// InclusionProof is the authentication path from a leaf to the
// commitment-tree root: one sibling hash and left/right flag per level.
type InclusionProof struct {
	Hashes [TreeDepth]frontend.Variable
	Flags  [TreeDepth]frontend.Variable
}

// Input is one spent coin's private witness.
type Input struct {
	PubX, PubY      frontend.Variable
	Value           frontend.Variable
	TokenID         frontend.Variable
	Serial          frontend.Variable
	SecretKey       frontend.Variable
	InclusionProof  InclusionProof
}

// Output is one minted coin's private witness.
type Output struct {
	PubX, PubY frontend.Variable
	Value      frontend.Variable
	TokenID    frontend.Variable
	Serial     frontend.Variable
}

// StandardCircuit is the gnark circuit definition for a Money transfer:
// sum(inputs) == sum(outputs) + fee, each input's nullifier matches its
// declared public nullifier, each input commitment is included under
// the declared TXO root, and each output commitment is correctly
// formed.
type StandardCircuit struct {
	// Public inputs
	TxoRoot     frontend.Variable   `gnark:",public"`
	Nullifiers  [MaxInputs]frontend.Variable `gnark:",public"`
	Commitments [MaxOutputs]frontend.Variable `gnark:",public"`
	Fee         frontend.Variable   `gnark:",public"`

	// Private witness
	Inputs  [MaxInputs]Input
	Outputs [MaxOutputs]Output
}

// Define implements frontend.Circuit.
func (c *StandardCircuit) Define(api frontend.API) error {
	inSum := frontend.Variable(0)
	for i := 0; i < MaxInputs; i++ {
		in := c.Inputs[i]

		commitment := poseidon5(api, in.PubX, in.PubY, in.Value, in.TokenID, in.Serial)
		verifyMerklePath(api, commitment, in.InclusionProof, c.TxoRoot)

		nullifier := poseidon2(api, in.SecretKey, in.Serial)
		api.AssertIsEqual(nullifier, c.Nullifiers[i])

		inSum = api.Add(inSum, in.Value)
	}

	outSum := frontend.Variable(0)
	for i := 0; i < MaxOutputs; i++ {
		out := c.Outputs[i]
		commitment := poseidon5(api, out.PubX, out.PubY, out.Value, out.TokenID, out.Serial)
		api.AssertIsEqual(commitment, c.Commitments[i])
		outSum = api.Add(outSum, out.Value)
	}

	api.AssertIsEqual(inSum, api.Add(outSum, c.Fee))
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

// verifyMerklePath recomputes the root from leaf and path and asserts
// it matches root.
func verifyMerklePath(api frontend.API, leaf frontend.Variable, proof InclusionProof, root frontend.Variable) {
	cur := leaf
	for i := 0; i < TreeDepth; i++ {
		left := api.Select(proof.Flags[i], proof.Hashes[i], cur)
		right := api.Select(proof.Flags[i], cur, proof.Hashes[i])
		cur = poseidon2(api, left, right)
	}
	api.AssertIsEqual(cur, root)
}

// PrivateParams bundles the prover-side witness for one transfer
// transaction's standard circuit call.
type PrivateParams struct {
	Inputs  []PrivateInput
	Outputs []PrivateOutput
}

// PrivateInput is one spent coin's prover-side opener.
type PrivateInput struct {
	PubX, PubY       []byte
	Value            uint64
	TokenID          []byte
	Serial           []byte
	SecretKey        []byte
	CommitmentIndex  uint64
	InclusionProof   ProverInclusionProof
	ScriptCommitment []byte
	ScriptParams     [][]byte
	UnlockingParams  []byte
}

// PrivateOutput is one minted coin's prover-side opener.
type PrivateOutput struct {
	PubX, PubY []byte
	Value      uint64
	TokenID    []byte
	Serial     []byte
}

// ProverInclusionProof is the prover-facing form of InclusionProof
// (raw hash bytes plus direction flags), mirroring
// generate.go's `standard.InclusionProof{Hashes, Flags}`.
type ProverInclusionProof struct {
	Hashes [][32]byte
	Flags  []bool
}

// PublicParams bundles the public inputs a verifier checks a standard
// circuit proof against.
type PublicParams struct {
	TxoRoot     [32]byte
	Nullifiers  [][32]byte
	Commitments [][32]byte
	Fee         uint64
}
