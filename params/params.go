// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package params defines the network-wide constants the consensus rules
// and genesis block are parameterized over, grounded on ilxd's
// params.NetworkParams / params/genesis.go convention.
package params

// NetworkParams bundles the constants that differ between mainnet,
// testnet and regtest-style local networks.
type NetworkParams struct {
	Name string

	// EpochLength is the number of slots in one epoch (spec.md §3).
	EpochLength uint64

	// GracePeriod is the number of epochs a staked coin must wait
	// between lifecycle transitions (spec.md §4.7).
	GracePeriod uint64

	// BlockReward is the amount added to a staked coin on a successful
	// Proposal transition (spec.md §4.7, "value += REWARD").
	BlockReward uint64

	// TreeDepth is the fixed depth of the coin commitment tree
	// (spec.md §3, "CommitmentTree").
	TreeDepth uint8

	// MaxCheckpoints bounds the bridge-tree's retained rewind history
	// (spec.md §4.8).
	MaxCheckpoints uint32

	// MaxBlockVerifyBudgetMillis is the wall-clock budget handed to
	// blockchain.MaxBlockVerifyBudgetMillis. No block-verify enforces
	// it; verification is not cut short however long it runs.
	MaxBlockVerifyBudgetMillis uint64

	// MinStake is the floor `zk/circuits/stake.StakeCircuit` enforces
	// (`MinStake <= Value`) on the coin a Proposal/UnstakeRequest/
	// Unstake call proves inclusion of.
	MinStake uint64
}

// MainnetParams are the production network constants.
var MainnetParams = NetworkParams{
	Name:                       "mainnet",
	EpochLength:                10800,
	GracePeriod:                2,
	BlockReward:                50,
	TreeDepth:                  32,
	MaxCheckpoints:             100,
	MaxBlockVerifyBudgetMillis: 5000,
	MinStake:                   1000,
}

// RegtestParams are the local-development network constants: short
// epochs and grace periods so lifecycle scenarios are practical to
// exercise in tests (spec.md §8's seed scenarios run against these).
var RegtestParams = NetworkParams{
	Name:                       "regtest",
	EpochLength:                4,
	GracePeriod:                1,
	BlockReward:                50,
	TreeDepth:                  32,
	MaxCheckpoints:             10,
	MaxBlockVerifyBudgetMillis: 5000,
	MinStake:                   1,
}
