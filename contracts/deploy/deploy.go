// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package deploy implements the native Deploy contract: registers a new
// user contract's lurk bytecode and its zkas circuit entries under a
// ContractId derived from the deploying public key (spec.md §3,
// "ContractId... derives from the deploying public key for user
// contracts"). Grounded on blockchain/overlay.go's
// DeployBytecode/DeployZkas staging API (§4.2) and on the Consensus/
// Money contracts' exec/apply update-struct convention.
package deploy

import (
	"bytes"
	"crypto/sha256"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/runtime"
	"github.com/shroud-chain/shroudd/types"
)

// SelectorDeploy is the Deploy contract's only function selector.
const SelectorDeploy byte = 0x01

func init() {
	runtime.RegisterNative(types.DeployContractID, &Contract{})
}

// Contract is the native Deploy contract implementation.
type Contract struct{}

// DeriveContractId computes the ContractId a Deploy call registers its
// bytecode under: sha256(pubkey-bytes || salt), giving the deployer a
// fresh id per salt while keeping derivation deterministic and
// collision-resistant.
func DeriveContractId(pubkey *crypto.ValidatorPublicKey, salt [32]byte) (types.ContractId, error) {
	pb, err := pubkey.Bytes()
	if err != nil {
		return types.ContractId{}, err
	}
	h := sha256.New()
	h.Write(pb)
	h.Write(salt[:])
	var id types.ContractId
	copy(id[:], h.Sum(nil))
	return id, nil
}

func (c *Contract) Metadata(ctx *runtime.CallContext) (*runtime.CallMetadata, error) {
	call := ctx.Call()
	switch call.Selector() {
	case SelectorDeploy:
		p := &DeployParams{}
		if err := p.Decode(bytes.NewReader(call.Payload[1:])); err != nil {
			return nil, err
		}
		pubkey, err := crypto.UnmarshalValidatorPublicKey(p.PubKey)
		if err != nil {
			return nil, err
		}
		return &runtime.CallMetadata{SigningKeys: []*crypto.ValidatorPublicKey{pubkey}}, nil
	default:
		return nil, blockchain.NewRuleError(blockchain.ErrArityMismatch, "unknown deploy selector")
	}
}

func (c *Contract) Exec(ctx *runtime.CallContext) ([]byte, error) {
	call := ctx.Call()
	switch call.Selector() {
	case SelectorDeploy:
		return c.execDeploy(ctx, call.Payload[1:])
	default:
		return nil, blockchain.NewRuleError(blockchain.ErrArityMismatch, "unknown deploy selector")
	}
}

func (c *Contract) execDeploy(ctx *runtime.CallContext, payload []byte) ([]byte, error) {
	p := &DeployParams{}
	if err := p.Decode(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	pubkey, err := crypto.UnmarshalValidatorPublicKey(p.PubKey)
	if err != nil {
		return nil, err
	}
	id, err := DeriveContractId(pubkey, p.Salt)
	if err != nil {
		return nil, err
	}
	if _, found, err := ctx.Overlay.GetContractBytecode(id); err != nil {
		return nil, err
	} else if found {
		return nil, blockchain.NewRuleError(blockchain.ErrCommitmentMismatch, "contract id already deployed")
	}
	u := &update{
		ContractID: id,
		Bytecode:   p.Bytecode,
		Zkas:       p.Zkas,
	}
	return u.encodeBlob()
}

func (c *Contract) Apply(ctx *runtime.CallContext, stateUpdate []byte) error {
	if len(stateUpdate) == 0 {
		return nil
	}
	u := &update{}
	if err := u.Decode(bytes.NewReader(stateUpdate)); err != nil {
		return err
	}
	return u.apply(ctx)
}
