// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package repo holds the validator engine's node-local configuration
// and the durable-store plumbing shared across packages: the
// Datastore interface ChainStore and net both build on, and the
// validator's own network signing key persisted inside it, grounded on
// ilxd/server.go's BuildServer wiring (repo.Config, repo.Datastore,
// HasNetworkKey/LoadNetworkKey/GenerateNetworkKeypair/PutNetworkKey).
package repo

import (
	"context"
	"crypto/rand"

	ds "github.com/ipfs/go-datastore"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
)

// Datastore is the storage interface ChainStore, net, and the mempool
// are built against. It is satisfied by *badger.Datastore in
// production and by ds.NewMapDatastore() in tests, the same swap ilxd
// makes between its real and mock datastores.
type Datastore interface {
	ds.Batching
}

// Config is the node-local configuration loaded at startup (spec.md
// treats config loading as out of core scope; this mirrors ilxd's
// repo.Config field set, trimmed to what the validator engine and its
// thin net/mempool companions actually consume).
type Config struct {
	DataDir   string
	LogDir    string
	LogLevel  string
	Testnet   bool
	Regtest   bool

	SeedAddrs   []string
	ListenAddrs []string

	MaxBlockVerifyBudgetMillis uint64
	MinFeePerByte              uint64
}

var networkKeyDatastoreKey = ds.NewKey("/network/privatekey")

// HasNetworkKey reports whether a network signing key has already been
// persisted in store.
func HasNetworkKey(store Datastore) (bool, error) {
	return store.Has(context.Background(), networkKeyDatastoreKey)
}

// LoadNetworkKey loads and unmarshals the previously persisted network
// signing key.
func LoadNetworkKey(store Datastore) (libp2pcrypto.PrivKey, error) {
	b, err := store.Get(context.Background(), networkKeyDatastoreKey)
	if err != nil {
		return nil, err
	}
	return libp2pcrypto.UnmarshalPrivateKey(b)
}

// PutNetworkKey marshals and persists a network signing key.
func PutNetworkKey(store Datastore, priv libp2pcrypto.PrivKey) error {
	b, err := libp2pcrypto.MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	return store.Put(context.Background(), networkKeyDatastoreKey, b)
}

// GenerateNetworkKeypair generates a fresh Ed25519 libp2p identity key
// for a node that has never persisted one before.
func GenerateNetworkKeypair() (libp2pcrypto.PrivKey, libp2pcrypto.PubKey, error) {
	return libp2pcrypto.GenerateEd25519Key(rand.Reader)
}
