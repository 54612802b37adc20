// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package runtime

import (
	"fmt"
	"math/big"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/runtime/lurk"
	"github.com/shroud-chain/shroudd/types"
)

// lurkContract adapts a loaded lurk.Program to the Contract interface,
// the sandbox path for user-deployed bytecode (spec.md §3.2/§4.4).
type lurkContract struct {
	id      types.ContractId
	program *lurk.Program
	overlay *blockchain.Overlay
}

func (lc *lurkContract) Metadata(ctx *CallContext) (*CallMetadata, error) {
	payload, err := buildPayload(ctx)
	if err != nil {
		return nil, err
	}
	host := &overlayHost{ctx: ctx, contractID: lc.id, writable: false}
	result, err := lc.program.Call("metadata", []lurk.Value{lurk.Bytes(payload)}, host)
	if err != nil {
		return nil, err
	}
	return decodeMetadataValue(result)
}

func (lc *lurkContract) Exec(ctx *CallContext) ([]byte, error) {
	payload, err := buildPayload(ctx)
	if err != nil {
		return nil, err
	}
	host := &overlayHost{ctx: ctx, contractID: lc.id, writable: false}
	result, err := lc.program.Call("exec", []lurk.Value{lurk.Bytes(payload)}, host)
	if err != nil {
		return nil, err
	}
	// The printed s-expression form is the opaque state_update blob;
	// apply reparses it with the program's own reader, a deterministic
	// round trip requiring no separate wire format for contract-defined
	// update shapes.
	return []byte(lurk.String(result)), nil
}

func (lc *lurkContract) Apply(ctx *CallContext, stateUpdate []byte) error {
	forms, err := lurk.ParseAll(string(stateUpdate))
	if err != nil || len(forms) != 1 {
		return fmt.Errorf("%w: malformed state_update", lurk.ErrTrap)
	}
	payload, err := buildPayload(ctx)
	if err != nil {
		return err
	}
	host := &overlayHost{ctx: ctx, contractID: lc.id, writable: true}
	_, err = lc.program.Call("apply", []lurk.Value{lurk.Bytes(payload), forms[0]}, host)
	return err
}

// decodeMetadataValue interprets metadata's return value as
// ((namespace (pubinput...)) ...) . (pubkey-bytes ...), i.e. a pair of
// the zk-requirement list and the signing-key list.
func decodeMetadataValue(v lurk.Value) (*CallMetadata, error) {
	pair, ok := v.(*lurk.Pair)
	if !ok {
		return nil, fmt.Errorf("%w: metadata must return (zkproofs . signers)", lurk.ErrTrap)
	}
	zkForms, err := lurk.ToSlice(pair.Car)
	if err != nil {
		return nil, err
	}
	md := &CallMetadata{}
	for _, zf := range zkForms {
		fields, err := lurk.ToSlice(zf)
		if err != nil || len(fields) != 2 {
			return nil, fmt.Errorf("%w: malformed zk requirement", lurk.ErrTrap)
		}
		ns, ok := fields[0].(lurk.Str)
		if !ok {
			return nil, fmt.Errorf("%w: zk requirement namespace must be a string", lurk.ErrTrap)
		}
		inputForms, err := lurk.ToSlice(fields[1])
		if err != nil {
			return nil, err
		}
		inputs := make([]*big.Int, len(inputForms))
		for i, in := range inputForms {
			b, ok := in.(lurk.Bytes)
			if !ok {
				return nil, fmt.Errorf("%w: public input must be bytes", lurk.ErrTrap)
			}
			inputs[i] = new(big.Int).SetBytes(b)
		}
		md.ZkProofs = append(md.ZkProofs, ZkRequirement{Namespace: string(ns), PublicInputs: inputs})
	}
	signerForms, err := lurk.ToSlice(pair.Cdr)
	if err != nil {
		return nil, err
	}
	for _, sf := range signerForms {
		b, ok := sf.(lurk.Bytes)
		if !ok {
			return nil, fmt.Errorf("%w: signer must be bytes", lurk.ErrTrap)
		}
		pub, err := crypto.UnmarshalValidatorPublicKey(b)
		if err != nil {
			return nil, err
		}
		md.SigningKeys = append(md.SigningKeys, pub)
	}
	return md, nil
}
