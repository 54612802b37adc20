// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package runtime

import (
	"fmt"
	"math/big"

	"github.com/shroud-chain/shroudd/crypto"
	"github.com/shroud-chain/shroudd/runtime/lurk"
	"github.com/shroud-chain/shroudd/types"
)

// overlayHost implements lurk.Host for one contract call, scoping
// every db-* call under the calling contract's own namespace so one
// user contract can never read or write another's state (spec.md §6).
// In read-only mode (metadata/exec) db-set/db-del return without
// touching Overlay (they do not trap), enforcing §4.4's "exec must not
// write Overlay directly" rule at the host boundary rather than
// trusting the program.
type overlayHost struct {
	ctx        *CallContext
	contractID types.ContractId
	writable   bool
}

func (h *overlayHost) namespacedKey(tree lurk.Symbol, key []byte) []byte {
	return append([]byte(string(tree)+"/"), key...)
}

func (h *overlayHost) DBLookup(tree lurk.Symbol, key []byte) ([]byte, bool, error) {
	return h.ctx.Overlay.ReadState(h.contractID, h.namespacedKey(tree, key))
}

func (h *overlayHost) DBGet(handle lurk.Value, key []byte) ([]byte, bool, error) {
	tree, ok := handle.(lurk.Symbol)
	if !ok {
		return nil, false, fmt.Errorf("%w: db-get handle must be a tree symbol", lurk.ErrTrap)
	}
	return h.DBLookup(tree, key)
}

func (h *overlayHost) DBSet(handle lurk.Value, key, value []byte) {
	if !h.writable {
		return
	}
	tree, ok := handle.(lurk.Symbol)
	if !ok {
		return
	}
	h.ctx.Overlay.WriteState(h.contractID, h.namespacedKey(tree, key), value)
}

func (h *overlayHost) DBDel(handle lurk.Value, key []byte) {
	if !h.writable {
		return
	}
	tree, ok := handle.(lurk.Symbol)
	if !ok {
		return
	}
	h.ctx.Overlay.DeleteState(h.contractID, h.namespacedKey(tree, key))
}

func (h *overlayHost) ZkasLookup(ns string) ([]byte, bool, error) {
	entry, found, err := h.ctx.Overlay.GetZkas(h.contractID, ns)
	if err != nil || !found {
		return nil, found, err
	}
	return entry.Bincode, true, nil
}

func (h *overlayHost) MerkleAdd(tree lurk.Symbol, leaf []byte) (uint64, error) {
	if !h.writable {
		return 0, fmt.Errorf("%w: merkle-add is only valid during apply", lurk.ErrTrap)
	}
	if h.ctx.Accumulator == nil {
		return 0, fmt.Errorf("%w: no commitment accumulator bound to this call", lurk.ErrTrap)
	}
	var leaf32 [32]byte
	copy(leaf32[:], leaf)
	pos, err := h.ctx.Accumulator.Append(leaf32)
	if err != nil {
		return 0, err
	}
	h.ctx.Accumulator.Mark(pos)
	return pos, nil
}

func (h *overlayHost) CurrentSlot() uint64 {
	return uint64(h.ctx.Slot)
}

func (h *overlayHost) Poseidon(inputs ...[]byte) []byte {
	fields := make([]*big.Int, len(inputs))
	for i, in := range inputs {
		fields[i] = crypto.BytesToField(in)
	}
	out := crypto.PoseidonHash(fields...)
	b := crypto.FieldToBytes(out)
	return b[:]
}

func (h *overlayHost) Pedersen(value, blind []byte) []byte {
	out := crypto.PedersenCommit(crypto.BytesToField(value), crypto.BytesToField(blind))
	b := crypto.FieldToBytes(out)
	return b[:]
}
