// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package blockchain hosts every chain-related concern in one flat
// package, the convention ilxd itself follows: ChainStore (durable
// storage), Overlay (checkpoint/revert staging) and the bridge-tree
// commitment accumulator. TxVerifier and BlockVerifier live in package
// validate.
package blockchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	ds "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	"github.com/ipfs/go-datastore/query"
	"go.uber.org/zap"

	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/repo"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

var log = zap.S()

// UpdateLogger swaps the package-level logger, the per-package
// convention ilxd's log.go applies across its tree.
func UpdateLogger(l *zap.SugaredLogger) { log = l }

// Logical storage partitions (spec.md §4.1). One namespaced datastore
// per tree so keys from different concerns never collide.
var (
	nsBlocksByHash      = "/blocks/byhash/"
	nsBlockHashBySlot   = "/blocks/byslot/"
	nsTxByHash          = "/tx/byhash/"
	nsNullifiers        = "/nullifiers/"
	nsContractBytecode  = "/contracts/bytecode/"
	nsContractState     = "/contracts/state/"
	nsZkVerifyingKeys   = "/zk/vk/"
	nsAccumulator       = "/accumulator/"
)

// ChainStore is the durable, append-only store of blocks, transactions,
// contract state and the coin commitment tree (spec.md §4.1). Contract
// writes commit atomically per block via a single ds.Batch.
type ChainStore struct {
	params *params.NetworkParams
	store  repo.Datastore

	blocksByHash     ds.Datastore
	blockHashBySlot  ds.Datastore
	txByHash         ds.Datastore
	nullifiers       ds.Datastore
	contractBytecode ds.Datastore
	contractState    ds.Datastore
	zkVerifyingKeys  ds.Datastore
	accumulatorNS    ds.Datastore

	mtx           sync.RWMutex
	nullifierSeen *boundedSet
	bestSlot      types.Slot
	bestHash      types.ID
}

// NewChainStore constructs a ChainStore from the supplied options.
func NewChainStore(options ...Option) (*ChainStore, error) {
	cfg := &config{}
	if err := DefaultOptions()(cfg); err != nil {
		return nil, err
	}
	for _, opt := range options {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cs := &ChainStore{
		params:           cfg.params,
		store:            cfg.datastore,
		blocksByHash:     namespace.Wrap(cfg.datastore, ds.NewKey(nsBlocksByHash)),
		blockHashBySlot:  namespace.Wrap(cfg.datastore, ds.NewKey(nsBlockHashBySlot)),
		txByHash:         namespace.Wrap(cfg.datastore, ds.NewKey(nsTxByHash)),
		nullifiers:       namespace.Wrap(cfg.datastore, ds.NewKey(nsNullifiers)),
		contractBytecode: namespace.Wrap(cfg.datastore, ds.NewKey(nsContractBytecode)),
		contractState:    namespace.Wrap(cfg.datastore, ds.NewKey(nsContractState)),
		zkVerifyingKeys:  namespace.Wrap(cfg.datastore, ds.NewKey(nsZkVerifyingKeys)),
		accumulatorNS:    namespace.Wrap(cfg.datastore, ds.NewKey(nsAccumulator)),
		nullifierSeen:    newBoundedSet(cfg.maxNullifiers),
	}

	if err := cs.loadTip(); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *ChainStore) loadTip() error {
	res, err := cs.blockHashBySlot.Query(context.Background(), query.Query{KeysOnly: true})
	if err != nil {
		return err
	}
	defer res.Close()

	var best types.Slot
	var bestKey string
	found := false
	for entry := range res.Next() {
		if entry.Error != nil {
			return entry.Error
		}
		var s types.Slot
		if _, err := fmt.Sscanf(entry.Key, "/%d", &s); err != nil {
			continue
		}
		if !found || s > best {
			best = s
			bestKey = entry.Key
			found = true
		}
	}
	if !found {
		return nil
	}
	hashBytes, err := cs.blockHashBySlot.Get(context.Background(), ds.NewKey(bestKey))
	if err != nil {
		return err
	}
	var id types.ID
	copy(id[:], hashBytes)
	cs.bestSlot = best
	cs.bestHash = id
	return nil
}

// BestSlotHash returns the slot and block id of the current chain tip.
func (cs *ChainStore) BestSlotHash() (types.Slot, types.ID) {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()
	return cs.bestSlot, cs.bestHash
}

// HasBlock reports whether a block with the given id is already stored
// (spec.md §4.6, step 1).
func (cs *ChainStore) HasBlock(id types.ID) (bool, error) {
	return cs.blocksByHash.Has(context.Background(), ds.NewKey(id.String()))
}

// GetBlockHashBySlot returns the block hash committed at the given slot, if
// any.
func (cs *ChainStore) GetBlockHashBySlot(slot types.Slot) (types.ID, bool, error) {
	key := ds.NewKey(fmt.Sprintf("/%d", uint64(slot)))
	has, err := cs.blockHashBySlot.Has(context.Background(), key)
	if err != nil || !has {
		return types.ID{}, false, err
	}
	b, err := cs.blockHashBySlot.Get(context.Background(), key)
	if err != nil {
		return types.ID{}, false, err
	}
	var id types.ID
	copy(id[:], b)
	return id, true, nil
}

// GetBlock loads and decodes a block by id.
func (cs *ChainStore) GetBlock(id types.ID) (*types.Block, error) {
	b, err := cs.blocksByHash.Get(context.Background(), ds.NewKey(id.String()))
	if err != nil {
		return nil, err
	}
	blk := &types.Block{}
	if err := serial.Decode(b, blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// HasNullifier reports whether n has already been spent (§3,
// "a nullifier may appear at most once in ChainStore").
func (cs *ChainStore) HasNullifier(n types.Nullifier) (bool, error) {
	if cs.nullifierSeen.Has(n) {
		return true, nil
	}
	return cs.nullifiers.Has(context.Background(), ds.NewKey(n.String()))
}

// GetContractBytecode loads the bytecode registered for id.
func (cs *ChainStore) GetContractBytecode(id types.ContractId) ([]byte, error) {
	return cs.contractBytecode.Get(context.Background(), ds.NewKey(id.String()))
}

// ZkasEntry bundles a contract's compiled circuit bytes with its
// verifying key for one zkas namespace.
type ZkasEntry struct {
	Bincode      []byte
	VerifyingKey []byte
}

// GetZkas loads the compiled circuit and verifying key registered under
// (id, ns) — §4.1's get_zkas(id, ns).
func (cs *ChainStore) GetZkas(id types.ContractId, ns string) (*ZkasEntry, error) {
	key := ds.NewKey(id.String()).ChildString(ns)
	b, err := cs.zkVerifyingKeys.Get(context.Background(), key)
	if err != nil {
		return nil, err
	}
	entry := &ZkasEntry{}
	if err := serial.Decode(b, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Encode implements serial.Encodable for ZkasEntry.
func (z *ZkasEntry) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteBytes(z.Bincode)
	wr.WriteBytes(z.VerifyingKey)
	return wr.Result()
}

// Decode implements serial.Decodable for ZkasEntry.
func (z *ZkasEntry) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	z.Bincode = rd.ReadBytes()
	z.VerifyingKey = rd.ReadBytes()
	return rd.Err()
}

// StateUpdate is the atomic set of writes one block's worth of contract
// calls stage against ChainStore's partitions, folded in by AppendBlock.
type StateUpdate struct {
	ContractState map[string][]byte // ds key -> value, "" value means delete
	NewNullifiers []types.Nullifier
	NewBytecode   map[types.ContractId][]byte
	NewZkas       map[string]*ZkasEntry // "<contract-id>/<ns>" -> entry
}

// AppendBlock persists block, its transactions, and the accumulated
// state_update atomically: all trees commit together or none (§4.1,
// "Contract writes are atomic per block").
func (cs *ChainStore) AppendBlock(blk *types.Block, update *StateUpdate) error {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	id, err := blk.ID()
	if err != nil {
		return err
	}

	batch, err := cs.store.Batch(context.Background())
	if err != nil {
		return err
	}

	blkBytes, err := serial.Encode(blk)
	if err != nil {
		return err
	}
	if err := batch.Put(context.Background(), ds.NewKey(nsBlocksByHash).ChildString(id.String()), blkBytes); err != nil {
		return err
	}
	slotKey := ds.NewKey(nsBlockHashBySlot).ChildString(fmt.Sprintf("%d", uint64(blk.Header.Slot)))
	if err := batch.Put(context.Background(), slotKey, id[:]); err != nil {
		return err
	}

	allTxs := append([]*types.Transaction{blk.ProposalTx}, blk.Transactions...)
	for _, tx := range allTxs {
		txID, err := tx.ID()
		if err != nil {
			return err
		}
		txBytes, err := serial.Encode(tx)
		if err != nil {
			return err
		}
		if err := batch.Put(context.Background(), ds.NewKey(nsTxByHash).ChildString(txID.String()), txBytes); err != nil {
			return err
		}
	}

	for _, n := range update.NewNullifiers {
		if err := batch.Put(context.Background(), ds.NewKey(nsNullifiers).ChildString(n.String()), []byte{1}); err != nil {
			return err
		}
		cs.nullifierSeen.Add(n)
	}
	for cid, code := range update.NewBytecode {
		if err := batch.Put(context.Background(), ds.NewKey(nsContractBytecode).ChildString(cid.String()), code); err != nil {
			return err
		}
	}
	for key, entry := range update.NewZkas {
		b, err := serial.Encode(entry)
		if err != nil {
			return err
		}
		if err := batch.Put(context.Background(), ds.NewKey(nsZkVerifyingKeys).ChildString(key), b); err != nil {
			return err
		}
	}
	for key, val := range update.ContractState {
		k := ds.NewKey(nsContractState).ChildString(key)
		if len(val) == 0 {
			if err := batch.Delete(context.Background(), k); err != nil {
				return err
			}
			continue
		}
		if err := batch.Put(context.Background(), k, val); err != nil {
			return err
		}
	}

	if err := batch.Commit(context.Background()); err != nil {
		return err
	}

	cs.bestSlot = blk.Header.Slot
	cs.bestHash = id
	return nil
}

var accumulatorKey = ds.NewKey("/tree")

// PersistAccumulator snapshots tree's full state to the accumulator
// partition, so a restarting node can rebuild its CommitmentTree
// without replaying every block (spec.md §4.8's bridge-tree is
// in-memory; this is its only durable checkpoint).
func (cs *ChainStore) PersistAccumulator(tree *CommitmentTree) error {
	b, err := serial.Encode(tree)
	if err != nil {
		return err
	}
	return cs.accumulatorNS.Put(context.Background(), accumulatorKey, b)
}

// LoadAccumulator rebuilds a CommitmentTree from its last persisted
// snapshot. ok is false if nothing has been persisted yet (a fresh
// node, which should start from NewCommitmentTree instead).
func (cs *ChainStore) LoadAccumulator(depth uint8, maxCheckpoints uint32) (tree *CommitmentTree, ok bool, err error) {
	has, err := cs.accumulatorNS.Has(context.Background(), accumulatorKey)
	if err != nil || !has {
		return nil, false, err
	}
	b, err := cs.accumulatorNS.Get(context.Background(), accumulatorKey)
	if err != nil {
		return nil, false, err
	}
	tree = NewCommitmentTree(depth, maxCheckpoints)
	if err := tree.Decode(bytes.NewReader(b)); err != nil {
		return nil, false, err
	}
	return tree, true, nil
}

// Close releases the underlying datastore.
func (cs *ChainStore) Close() error {
	return cs.store.Close()
}
