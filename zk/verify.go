// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// ErrInvalidProof is returned by Verify when a Groth16 proof fails to
// check out against its verifying key and public inputs (surfaces as
// blockchain.ErrInvalidZkProof to callers, spec.md §4.5 step 5).
var ErrInvalidProof = errors.New("zk: invalid proof")

// Proof wraps a deserialized Groth16 proof.
type Proof struct {
	inner groth16.Proof
}

// LoadProof deserializes a proof from its wire bytes, grounded on
// certenIO-certen-validator's groth16 proof (de)serialization pattern.
func LoadProof(raw []byte) (*Proof, error) {
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return &Proof{inner: p}, nil
}

// Verify checks proof against vk and the ordered list of public input
// field elements a contract's metadata call declared for this ZK proof
// (spec.md §4.4, "a list of (zkas_namespace, public_inputs: [field])
// pairs"). TODO: exhaustive opcode accounting during verification is
// flagged as an open source-ambiguity in spec.md §9(c); this performs
// the groth16 pairing check only.
func Verify(vk *VerifyingKey, proof *Proof, publicInputs []*big.Int) error {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return err
	}
	vec := make([]interface{}, len(publicInputs))
	for i, in := range publicInputs {
		vec[i] = in
	}
	if err := w.Fill(0, len(vec), sliceIter(vec)); err != nil {
		return err
	}
	if err := groth16.Verify(proof.inner, vk.inner, w); err != nil {
		return ErrInvalidProof
	}
	return nil
}

func sliceIter(vec []interface{}) func() (interface{}, error) {
	i := 0
	return func() (interface{}, error) {
		if i >= len(vec) {
			return nil, errors.New("zk: exhausted public input iterator")
		}
		v := vec[i]
		i++
		return v, nil
	}
}
