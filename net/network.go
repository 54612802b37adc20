// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package net is the thin peer-to-peer transport the validator engine
// sits on: a libp2p host plus a request/response message sender, the
// role ilxd/net plays for sync.ChainService (spec.md's Non-goals
// exclude flood-routing/gossip broadcast, not point-to-point RPC — so
// this package stops at request/response and never grows a pubsub
// layer).
package net

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"
)

var log = zap.S()

// UpdateLogger swaps the package-level logger, the per-package
// convention ilxd's log.go applies across its tree.
func UpdateLogger(l *zap.SugaredLogger) { log = l }

// Network wraps a libp2p host with the peer bookkeeping the
// ChainService needs: banscore tracking for misbehaving peers (a
// peer that lies about a requested block is worth remembering even
// though flood-routing ban policy itself is out of scope).
type Network struct {
	host host.Host

	mtx       sync.Mutex
	banscores map[peer.ID]int
}

// NewNetwork wraps h.
func NewNetwork(h host.Host) *Network {
	return &Network{host: h, banscores: make(map[peer.ID]int)}
}

// Host returns the underlying libp2p host.
func (n *Network) Host() host.Host { return n.host }

// IncreaseBanscore adds good/bad points to p's running banscore and
// logs once it crosses a point worth noticing; actual disconnect/ban
// enforcement is left to the caller's policy.
func (n *Network) IncreaseBanscore(p peer.ID, good, bad int) int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.banscores[p] += bad - good
	score := n.banscores[p]
	if bad > 0 {
		log.Debugf("increased banscore for peer %s to %d", p, score)
	}
	return score
}
