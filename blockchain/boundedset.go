// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"container/list"
	"sync"

	"github.com/shroud-chain/shroudd/types"
)

// boundedSet is a fixed-capacity, FIFO-evicted membership cache of
// nullifiers, letting HasNullifier answer most lookups without a
// ChainStore round-trip. Standard library only (container/list): this
// is a small in-process bookkeeping structure, not a storage or
// transport concern any corpus library addresses.
type boundedSet struct {
	mtx      sync.Mutex
	capacity uint
	order    *list.List
	index    map[types.Nullifier]*list.Element
}

func newBoundedSet(capacity uint) *boundedSet {
	if capacity == 0 {
		capacity = 1
	}
	return &boundedSet{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[types.Nullifier]*list.Element),
	}
}

// Has reports whether n is present in the cache. A miss does not mean n
// is unspent, only that the caller must consult ChainStore.
func (b *boundedSet) Has(n types.Nullifier) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	_, ok := b.index[n]
	return ok
}

// Add records n as seen, evicting the oldest entry if at capacity.
func (b *boundedSet) Add(n types.Nullifier) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if _, ok := b.index[n]; ok {
		return
	}
	elem := b.order.PushBack(n)
	b.index[n] = elem
	if uint(b.order.Len()) > b.capacity {
		oldest := b.order.Front()
		if oldest != nil {
			b.order.Remove(oldest)
			delete(b.index, oldest.Value.(types.Nullifier))
		}
	}
}
