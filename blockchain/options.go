// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/repo"
)

const (
	// DefaultMaxNullifiers bounds the in-memory nullifier membership
	// cache used to speed up DoubleSpend checks before falling through
	// to ChainStore.
	DefaultMaxNullifiers = 100000
)

// DefaultOptions returns a blockchain configure option that fills in
// the default settings for local development. Params and Datastore
// should almost always be overridden.
func DefaultOptions() Option {
	return func(cfg *config) error {
		cfg.params = &params.RegtestParams
		cfg.maxNullifiers = DefaultMaxNullifiers
		cfg.maxBlockVerifyBudgetMillis = params.RegtestParams.MaxBlockVerifyBudgetMillis
		return nil
	}
}

// Option is a configuration option function for the ChainStore.
type Option func(cfg *config) error

// Params identifies which network parameters the chain is associated
// with.
//
// This option is required.
func Params(p *params.NetworkParams) Option {
	return func(cfg *config) error {
		cfg.params = p
		return nil
	}
}

// WithDatastore is an implementation of the repo.Datastore interface.
//
// This option is required.
func WithDatastore(ds repo.Datastore) Option {
	return func(cfg *config) error {
		cfg.datastore = ds
		return nil
	}
}

// MaxNullifiers is the maximum number of nullifiers to hold in the
// in-memory membership cache for fast DoubleSpend rejection.
func MaxNullifiers(maxNullifiers uint) Option {
	return func(cfg *config) error {
		cfg.maxNullifiers = maxNullifiers
		return nil
	}
}

// MaxBlockVerifyBudgetMillis records a wall-clock budget, in
// milliseconds, for a single block-verify. The value is stored in the
// ChainStore config only: nothing reads it, and validate.VerifyBlock
// runs without any time limit.
func MaxBlockVerifyBudgetMillis(ms uint64) Option {
	return func(cfg *config) error {
		cfg.maxBlockVerifyBudgetMillis = ms
		return nil
	}
}

// Prune sets the ChainStore config's prune flag. Nothing reads the
// flag: no block records, contract state or nullifiers are pruned.
func Prune() Option {
	return func(cfg *config) error {
		cfg.prune = true
		return nil
	}
}

// config specifies the ChainStore configuration.
type config struct {
	params                     *params.NetworkParams
	datastore                  repo.Datastore
	maxNullifiers              uint
	maxBlockVerifyBudgetMillis uint64
	prune                      bool
}

func (cfg *config) validate() error {
	if cfg == nil {
		return AssertError("NewChainStore: config cannot be nil")
	}
	if cfg.params == nil {
		return AssertError("NewChainStore: params cannot be nil")
	}
	if cfg.datastore == nil {
		return AssertError("NewChainStore: datastore cannot be nil")
	}
	return nil
}

// AssertError identifies an internal programming error, as opposed to
// a RuleError (invalid input data).
type AssertError string

func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}
