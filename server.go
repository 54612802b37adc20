// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"sort"

	badger "github.com/ipfs/go-ds-badger"
	"github.com/libp2p/go-libp2p"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"github.com/shroud-chain/shroudd/blockchain"
	"github.com/shroud-chain/shroudd/mempool"
	"github.com/shroud-chain/shroudd/net"
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/repo"
	"github.com/shroud-chain/shroudd/sync"
	"github.com/shroud-chain/shroudd/types"
	"github.com/shroud-chain/shroudd/validate"
	"github.com/shroud-chain/shroudd/zk"
)

var log = zap.S()

// Server brings every constituent part of a validating node together:
// durable chain storage, the coin commitment accumulator, the ZK
// verifying-key cache, the mempool, and the peer transport (spec.md §2's
// engine wired up the way ilxd/server.go's BuildServer wires its own
// node, trimmed to what this engine actually does: it validates blocks
// and transactions, it does not produce or select them, §1).
type Server struct {
	cancelFunc context.CancelFunc
	ctx        context.Context

	config *repo.Config
	params *params.NetworkParams
	ds     repo.Datastore

	network      *net.Network
	chainStore   *blockchain.ChainStore
	accumulator  *blockchain.CommitmentTree
	vkCache      *zk.VKCache
	mempool      *mempool.Mempool
	chainService *sync.ChainService
}

// BuildServer constructs a Server from config.
func BuildServer(config *repo.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := setupLogging(config.LogDir, config.LogLevel, config.Testnet); err != nil {
		cancel()
		return nil, err
	}

	var netParams *params.NetworkParams
	if config.Regtest {
		netParams = &params.RegtestParams
	} else {
		netParams = &params.MainnetParams
	}

	ds, err := badger.NewDatastore(config.DataDir, &badger.DefaultOptions)
	if err != nil {
		cancel()
		return nil, err
	}

	privKey, err := loadOrGenerateNetworkKey(ds)
	if err != nil {
		cancel()
		return nil, err
	}

	listenAddrs := config.ListenAddrs
	if listenAddrs == nil {
		listenAddrs = []string{"/ip4/0.0.0.0/tcp/0"}
	}
	host, err := libp2p.New(libp2p.Identity(privKey), libp2p.ListenAddrStrings(listenAddrs...))
	if err != nil {
		cancel()
		return nil, err
	}
	network := net.NewNetwork(host)

	chainStore, err := blockchain.NewChainStore(
		blockchain.Params(netParams),
		blockchain.WithDatastore(ds),
		blockchain.MaxNullifiers(blockchain.DefaultMaxNullifiers),
		blockchain.MaxBlockVerifyBudgetMillis(netParams.MaxBlockVerifyBudgetMillis),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	accumulator, found, err := chainStore.LoadAccumulator(netParams.TreeDepth, netParams.MaxCheckpoints)
	if err != nil {
		cancel()
		return nil, err
	}
	if !found {
		accumulator = blockchain.NewCommitmentTree(netParams.TreeDepth, netParams.MaxCheckpoints)
	}

	vkCache := zk.NewVKCache()

	s := &Server{
		ctx:         ctx,
		cancelFunc:  cancel,
		config:      config,
		params:      netParams,
		ds:          ds,
		network:     network,
		chainStore:  chainStore,
		accumulator: accumulator,
		vkCache:     vkCache,
	}

	mpool, err := mempool.NewMempool(
		mempool.Params(netParams),
		mempool.BlockchainView(chainStore, accumulator),
		mempool.VerifyingKeyCache(vkCache),
		mempool.FeePerByte(config.MinFeePerByte),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	s.mempool = mpool

	s.chainService = sync.NewChainService(ctx, s.fetchBlock, s.submitTx, chainStore.BestSlotHash, network, netParams)

	s.printListenAddrs()
	return s, nil
}

// loadOrGenerateNetworkKey loads the node's persisted libp2p identity
// key, generating and persisting a fresh one the first time a node
// starts (ilxd/server.go's BuildServer does the same
// has/load-else-generate-and-put sequence).
func loadOrGenerateNetworkKey(ds repo.Datastore) (libp2pcrypto.PrivKey, error) {
	has, err := repo.HasNetworkKey(ds)
	if err != nil {
		return nil, err
	}
	if has {
		return repo.LoadNetworkKey(ds)
	}
	priv, _, err := repo.GenerateNetworkKeypair()
	if err != nil {
		return nil, err
	}
	if err := repo.PutNetworkKey(ds, priv); err != nil {
		return nil, err
	}
	return priv, nil
}

// fetchBlock looks up a previously-committed block for ChainService to
// serve to a requesting peer.
func (s *Server) fetchBlock(id types.ID) (*types.Block, error) {
	return s.chainStore.GetBlock(id)
}

// submitTx runs a peer-forwarded transaction through the mempool.
func (s *Server) submitTx(tx *types.Transaction) error {
	return s.mempool.ProcessTransaction(tx)
}

// HandleBlock verifies a block received from relayingPeer and, on
// success, commits it and persists the accumulator snapshot. Each
// block is verified with a fresh VKCache. Blocks that fail validation
// increase the relaying peer's banscore by a fixed 101 (spec.md §4.6's
// per-tx outcomes are logged individually; only a failure of the block
// itself, or its proposal, penalizes the peer that sent it).
func (s *Server) HandleBlock(blk *types.Block, relayingPeer peer.ID) error {
	var previous *types.Block
	if blk.Header.Slot != 0 {
		prev, err := s.chainStore.GetBlock(blk.Header.Parent)
		if err != nil {
			return fmt.Errorf("previous block unavailable: %w", err)
		}
		previous = prev
	}

	outcomes, err := validate.VerifyBlock(s.chainStore, s.accumulator, zk.NewVKCache(), blk, previous, false)
	if err != nil {
		s.network.IncreaseBanscore(relayingPeer, 101, 0)
		return err
	}

	if err := s.chainStore.PersistAccumulator(s.accumulator); err != nil {
		log.Errorf("failed to persist accumulator after block: %s", err)
	}

	id, _ := blk.ID()
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			log.Debugf("transaction %s in block %s failed verification: %s", outcome.TxID, id, outcome.Err)
			continue
		}
		s.mempool.RemoveTransaction(outcome.TxID)
	}
	log.Infof("new block: %s (slot: %d, transactions: %d)", id, blk.Header.Slot, len(blk.Transactions))
	return nil
}

// Close shuts down every part of the server and blocks until they
// finish closing.
func (s *Server) Close() error {
	s.cancelFunc()
	if err := s.network.Host().Close(); err != nil {
		return err
	}
	return s.chainStore.Close()
}

func (s *Server) printListenAddrs() {
	log.Infof("PeerID: %s", s.network.Host().ID().String())
	var lisAddrs []string
	for _, addr := range s.network.Host().Addrs() {
		lisAddrs = append(lisAddrs, addr.String())
	}
	sort.Strings(lisAddrs)
	for _, addr := range lisAddrs {
		log.Infof("Listening on %s", addr)
	}
}
