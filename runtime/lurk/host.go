// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package lurk

// Host is the fixed table of builtin symbols a lurk program may call
// into, resolved against the calling Overlay and VKCache rather than
// any global/process state (spec.md §6, SPEC_FULL.md §6). Read-only
// during metadata/exec: db-set/db-del calls made there have no effect
// and are not kept or replayed; only calls made during apply write.
type Host interface {
	DBLookup(tree Symbol, key []byte) ([]byte, bool, error)
	DBGet(handle Value, key []byte) ([]byte, bool, error)
	DBSet(handle Value, key, value []byte)
	DBDel(handle Value, key []byte)
	ZkasLookup(ns string) ([]byte, bool, error)
	MerkleAdd(tree Symbol, leaf []byte) (uint64, error)
	CurrentSlot() uint64
	Poseidon(inputs ...[]byte) []byte
	Pedersen(value, blind []byte) []byte
}
