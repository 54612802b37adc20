// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package zk wraps the ZK-proof verification pipeline: VerifyingKey
// construction/caching and Groth16 proof verification over BN254,
// standing in for the out-of-scope pallas/vesta Groth16/Halo2 backend
// named in spec.md §1/§6.
package zk

import (
	"bytes"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
)

// VerifyingKey is the opaque cryptographic artifact keyed by
// (contract-id, zkas-namespace), immutable once published (spec.md §3).
type VerifyingKey struct {
	inner groth16.VerifyingKey
}

// LoadVerifyingKey deserializes a verifying key from its wire bytes,
// grounded on certenIO-certen-validator's
// `groth16.NewVerifyingKey(ecc.BN254)` / `ReadFrom` construction.
func LoadVerifyingKey(raw []byte) (*VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return &VerifyingKey{inner: vk}, nil
}

// VKCache is a two-level map contract-id -> (namespace -> VerifyingKey),
// scoped to one transaction batch (spec.md §4.3). It must never be a
// process-wide singleton (spec.md §9, "Global state").
type VKCache struct {
	mtx   sync.Mutex
	store map[[32]byte]map[string]*VerifyingKey
}

// NewVKCache returns an empty, batch-scoped cache.
func NewVKCache() *VKCache {
	return &VKCache{store: make(map[[32]byte]map[string]*VerifyingKey)}
}

// Get returns the cached key for (contractID, ns), or ok=false if this
// batch hasn't loaded it yet.
func (c *VKCache) Get(contractID [32]byte, ns string) (*VerifyingKey, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	inner, ok := c.store[contractID]
	if !ok {
		return nil, false
	}
	vk, ok := inner[ns]
	return vk, ok
}

// Insert lazily populates the cache the first time (contractID, ns) is
// referenced in a batch; subsequent lookups reuse it (§4.3's
// rationale: a proposal with many calls often reuses the same
// circuit).
func (c *VKCache) Insert(contractID [32]byte, ns string, vk *VerifyingKey) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	inner, ok := c.store[contractID]
	if !ok {
		inner = make(map[string]*VerifyingKey)
		c.store[contractID] = inner
	}
	inner[ns] = vk
}
