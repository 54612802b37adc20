// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"context"
	"encoding/hex"
	"sync"

	ds "github.com/ipfs/go-datastore"

	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

// tree names the logical partitions an Overlay stages writes for,
// mirroring ChainStore's partitions (spec.md §4.1/§4.2).
type tree int

const (
	treeContractState tree = iota
	treeNullifiers
	treeBytecode
	treeZkas
)

type layerKey struct {
	tree tree
	key  string
}

// layer is one staged write-map pushed by checkpoint() and either
// folded down by commit() or discarded by revert_to_checkpoint().
type layer struct {
	writes  map[layerKey][]byte
	deletes map[layerKey]bool
}

func newLayer() *layer {
	return &layer{
		writes:  make(map[layerKey][]byte),
		deletes: make(map[layerKey]bool),
	}
}

// CheckpointToken identifies a pushed layer so callers can assert they
// revert/commit the checkpoint they think they do.
type CheckpointToken int

// Overlay wraps ChainStore with a stack of staged write-maps, giving
// speculative block/tx execution a checkpoint/revert/commit lifecycle
// (spec.md §4.2). Created at block-verify start, destroyed at
// block-verify end.
type Overlay struct {
	mtx     sync.Mutex
	store   *ChainStore
	layers  []*layer
	newNull []types.Nullifier
}

// NewOverlay opens an Overlay over store with one base layer already
// pushed, so writes made before any explicit Checkpoint() call still
// have somewhere to land.
func NewOverlay(store *ChainStore) *Overlay {
	return &Overlay{
		store:  store,
		layers: []*layer{newLayer()},
	}
}

// Checkpoint pushes an empty layer and returns a token identifying it.
func (o *Overlay) Checkpoint() CheckpointToken {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.layers = append(o.layers, newLayer())
	return CheckpointToken(len(o.layers) - 1)
}

// RevertToCheckpoint pops and discards every layer at or above tok,
// making any observation staged since Checkpoint() invisible.
func (o *Overlay) RevertToCheckpoint(tok CheckpointToken) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	if int(tok) <= 0 || int(tok) >= len(o.layers) {
		return
	}
	o.layers = o.layers[:tok]
	kept := o.newNull[:0]
	for _, n := range o.newNull {
		lk := layerKey{tree: treeNullifiers, key: n.String()}
		for _, l := range o.layers {
			if _, ok := l.writes[lk]; ok {
				kept = append(kept, n)
				break
			}
		}
	}
	o.newNull = kept
}

// ReadState reads a contract-state value, scanning layers top-of-stack
// first and falling through to ChainStore (§4.2, "read").
func (o *Overlay) ReadState(contractID types.ContractId, key []byte) ([]byte, bool, error) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	lk := layerKey{tree: treeContractState, key: contractID.String() + "/" + string(key)}
	for i := len(o.layers) - 1; i >= 0; i-- {
		l := o.layers[i]
		if l.deletes[lk] {
			return nil, false, nil
		}
		if v, ok := l.writes[lk]; ok {
			return v, true, nil
		}
	}
	b, err := o.store.contractState.Get(context.Background(), ds.NewKey(lk.key))
	if err != nil {
		if err == ds.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// WriteState stages a contract-state write at the top layer.
func (o *Overlay) WriteState(contractID types.ContractId, key, value []byte) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	lk := layerKey{tree: treeContractState, key: contractID.String() + "/" + string(key)}
	top := o.layers[len(o.layers)-1]
	delete(top.deletes, lk)
	top.writes[lk] = value
}

// DeleteState stages a contract-state deletion at the top layer.
func (o *Overlay) DeleteState(contractID types.ContractId, key []byte) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	lk := layerKey{tree: treeContractState, key: contractID.String() + "/" + string(key)}
	top := o.layers[len(o.layers)-1]
	delete(top.writes, lk)
	top.deletes[lk] = true
}

// HasNullifier checks the staged layers before falling through to
// ChainStore.
func (o *Overlay) HasNullifier(n types.Nullifier) (bool, error) {
	o.mtx.Lock()
	lk := layerKey{tree: treeNullifiers, key: n.String()}
	for i := len(o.layers) - 1; i >= 0; i-- {
		if _, ok := o.layers[i].writes[lk]; ok {
			o.mtx.Unlock()
			return true, nil
		}
	}
	o.mtx.Unlock()
	return o.store.HasNullifier(n)
}

// InsertNullifier stages a nullifier insertion at the top layer.
func (o *Overlay) InsertNullifier(n types.Nullifier) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	lk := layerKey{tree: treeNullifiers, key: n.String()}
	o.layers[len(o.layers)-1].writes[lk] = []byte{1}
	o.newNull = append(o.newNull, n)
}

// GetContractBytecode reads bytecode through the staged layers,
// falling through to ChainStore (used for contracts deployed within
// the same Overlay lifetime, e.g. a Deploy call followed by a call to
// the newly-deployed contract in the same block).
func (o *Overlay) GetContractBytecode(id types.ContractId) ([]byte, bool, error) {
	o.mtx.Lock()
	lk := layerKey{tree: treeBytecode, key: id.String()}
	for i := len(o.layers) - 1; i >= 0; i-- {
		if v, ok := o.layers[i].writes[lk]; ok {
			o.mtx.Unlock()
			return v, true, nil
		}
	}
	o.mtx.Unlock()
	b, err := o.store.GetContractBytecode(id)
	if err != nil {
		if err == ds.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// DeployBytecode stages a new contract's bytecode at the top layer.
func (o *Overlay) DeployBytecode(id types.ContractId, code []byte) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	lk := layerKey{tree: treeBytecode, key: id.String()}
	o.layers[len(o.layers)-1].writes[lk] = code
}

// GetZkas reads a (contract-id, namespace) zkas entry through the
// staged layers, falling through to ChainStore — used by the Deploy
// contract's sibling calls within the same block and by TxVerifier's
// VK Cache population (§4.3).
func (o *Overlay) GetZkas(id types.ContractId, ns string) (*ZkasEntry, bool, error) {
	o.mtx.Lock()
	lk := layerKey{tree: treeZkas, key: id.String() + "/" + ns}
	for i := len(o.layers) - 1; i >= 0; i-- {
		if v, ok := o.layers[i].writes[lk]; ok {
			o.mtx.Unlock()
			entry := &ZkasEntry{}
			if err := entry.Decode(bytes.NewReader(v)); err != nil {
				return nil, false, err
			}
			return entry, true, nil
		}
	}
	o.mtx.Unlock()
	entry, err := o.store.GetZkas(id, ns)
	if err != nil {
		if err == ds.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry, true, nil
}

// DeployZkas stages a new (contract-id, namespace) zkas entry at the
// top layer.
func (o *Overlay) DeployZkas(id types.ContractId, ns string, entry *ZkasEntry) error {
	b, err := serial.Encode(entry)
	if err != nil {
		return err
	}
	o.mtx.Lock()
	defer o.mtx.Unlock()
	lk := layerKey{tree: treeZkas, key: id.String() + "/" + ns}
	o.layers[len(o.layers)-1].writes[lk] = b
	return nil
}

// Commit folds every layer into a single StateUpdate and hands it to
// the caller (normally BlockVerifier, which passes it to
// ChainStore.AppendBlock as a single atomic batch) — §4.2, "commit()".
func (o *Overlay) Commit() *StateUpdate {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	update := &StateUpdate{
		ContractState: make(map[string][]byte),
		NewBytecode:   make(map[types.ContractId][]byte),
		NewZkas:       make(map[string]*ZkasEntry),
	}
	deletedState := make(map[string]bool)
	for _, l := range o.layers {
		for lk, v := range l.writes {
			switch lk.tree {
			case treeContractState:
				update.ContractState[lk.key] = v
				delete(deletedState, lk.key)
			case treeBytecode:
				raw, herr := hex.DecodeString(lk.key)
				if herr != nil {
					continue
				}
				var cid types.ContractId
				copy(cid[:], raw)
				update.NewBytecode[cid] = v
			case treeZkas:
				entry := &ZkasEntry{}
				if derr := entry.Decode(bytes.NewReader(v)); derr != nil {
					continue
				}
				update.NewZkas[lk.key] = entry
			}
		}
		for lk := range l.deletes {
			if lk.tree == treeContractState {
				deletedState[lk.key] = true
				delete(update.ContractState, lk.key)
			}
		}
	}
	for k := range deletedState {
		update.ContractState[k] = nil
	}
	update.NewNullifiers = o.newNull
	return update
}
