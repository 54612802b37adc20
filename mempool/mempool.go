// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package mempool is the validation-only holding area a node runs
// incoming transactions through before they're eligible to appear in
// someone's proposal, ilxd/server.go's mempool wiring re-keyed onto
// this engine's own validate.VerifyTransaction (block production /
// transaction selection is an explicit Non-goal, spec.md §1 — this
// package never orders or picks, it only accepts or rejects).
package mempool

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/contracts/money"
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/validate"
	"github.com/shroud-chain/shroudd/zk"
)

var log = zap.S()

// UpdateLogger swaps the package-level logger.
func UpdateLogger(l *zap.SugaredLogger) { log = l }

type config struct {
	params        *params.NetworkParams
	chainStore    *blockchain.ChainStore
	accumulator   *blockchain.CommitmentTree
	vkCache       *zk.VKCache
	minFeePerByte uint64
}

// Option configures a Mempool.
type Option func(cfg *config) error

// Params identifies the network the mempool validates against.
//
// This option is required.
func Params(p *params.NetworkParams) Option {
	return func(cfg *config) error {
		cfg.params = p
		return nil
	}
}

// BlockchainView supplies the committed chain state a candidate
// transaction is checked against.
//
// This option is required.
func BlockchainView(cs *blockchain.ChainStore, acc *blockchain.CommitmentTree) Option {
	return func(cfg *config) error {
		cfg.chainStore = cs
		cfg.accumulator = acc
		return nil
	}
}

// VerifyingKeyCache supplies the shared VKCache TxVerifier consults
// when checking a transaction's ZK proofs.
//
// This option is required.
func VerifyingKeyCache(c *zk.VKCache) Option {
	return func(cfg *config) error {
		cfg.vkCache = c
		return nil
	}
}

// FeePerByte rejects transactions whose declared fee, divided by their
// encoded size, falls below this floor.
func FeePerByte(minFeePerByte uint64) Option {
	return func(cfg *config) error {
		cfg.minFeePerByte = minFeePerByte
		return nil
	}
}

// Mempool holds transactions that have individually passed
// validate.VerifyTransaction against the current chain tip, pending
// inclusion in a future proposal by whatever external process selects
// block contents.
type Mempool struct {
	mtx  sync.RWMutex
	pool map[types.ID]*types.Transaction
	cfg  config
}

// NewMempool validates the given options and returns a ready Mempool.
func NewMempool(opts ...Option) (*Mempool, error) {
	var cfg config
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.params == nil {
		return nil, fmt.Errorf("mempool: params option is required")
	}
	if cfg.chainStore == nil || cfg.accumulator == nil {
		return nil, fmt.Errorf("mempool: blockchain view option is required")
	}
	if cfg.vkCache == nil {
		return nil, fmt.Errorf("mempool: verifying key cache option is required")
	}
	return &Mempool{pool: make(map[types.ID]*types.Transaction), cfg: cfg}, nil
}

// ProcessTransaction validates tx against the current chain tip inside
// an isolated, always-reverted checkpoint (the mempool never commits
// state — only a verified block does that, spec.md §4.6) and, on
// success, admits it to the pool.
func (m *Mempool) ProcessTransaction(tx *types.Transaction) error {
	id, err := tx.ID()
	if err != nil {
		return err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, ok := m.pool[id]; ok {
		return nil
	}

	if err := m.checkFee(tx); err != nil {
		return err
	}

	overlay := blockchain.NewOverlay(m.cfg.chainStore)
	tok := overlay.Checkpoint()
	m.cfg.accumulator.Checkpoint(uint64(tok))
	defer func() {
		overlay.RevertToCheckpoint(tok)
		if err := m.cfg.accumulator.Rewind(); err != nil {
			log.Errorf("mempool: failed to rewind accumulator checkpoint: %s", err)
		}
	}()

	slot, _ := m.cfg.chainStore.BestSlotHash()
	if err := validate.VerifyTransaction(overlay, m.cfg.accumulator, m.cfg.vkCache, tx, slot+1); err != nil {
		return fmt.Errorf("mempool: transaction rejected: %w", err)
	}

	m.pool[id] = tx
	return nil
}

// checkFee sums the Fee declared by every Money.Transfer call in tx
// (the only native call that carries one) and rejects the transaction
// if that total falls below minFeePerByte times the transaction's
// encoded size. Transactions that touch no Money.Transfer call (e.g. a
// bare Consensus proposal) carry no fee concept and always pass.
func (m *Mempool) checkFee(tx *types.Transaction) error {
	if m.cfg.minFeePerByte == 0 {
		return nil
	}
	var totalFee uint64
	sawTransfer := false
	for _, call := range tx.Calls {
		if call.ContractID != types.MoneyContractID || call.Selector() != money.SelectorTransfer {
			continue
		}
		sawTransfer = true
		var p money.TransferParams
		if err := serial.Decode(call.Payload[1:], &p); err != nil {
			return fmt.Errorf("mempool: malformed transfer payload: %w", err)
		}
		totalFee += uint64(p.Fee)
	}
	if !sawTransfer {
		return nil
	}
	encoded, err := serial.Encode(tx)
	if err != nil {
		return err
	}
	size := uint64(len(encoded))
	if size == 0 || totalFee/size < m.cfg.minFeePerByte {
		return fmt.Errorf("mempool: fee per byte below network minimum")
	}
	return nil
}

// HaveTransaction reports whether id is already pooled.
func (m *Mempool) HaveTransaction(id types.ID) bool {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	_, ok := m.pool[id]
	return ok
}

// GetTransaction returns a pooled transaction by id.
func (m *Mempool) GetTransaction(id types.ID) (*types.Transaction, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	tx, ok := m.pool[id]
	return tx, ok
}

// RemoveTransaction evicts a transaction, e.g. once it has been
// included in a committed block.
func (m *Mempool) RemoveTransaction(id types.ID) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	delete(m.pool, id)
}

// Size returns the number of pooled transactions.
func (m *Mempool) Size() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.pool)
}

// Close releases the mempool's resources. Pooled transactions live only
// in memory, so there is nothing to flush.
func (m *Mempool) Close() {}
