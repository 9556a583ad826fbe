// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deploytest provides a deployment environment on a development
// chain for tests.
package deploytest

import (
	"context"
	"testing"
	"time"

	"github.com/ethersphere/lottery/pkg/config"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/contracts/lotterycontract"
	"github.com/ethersphere/lottery/pkg/contracts/vrfmock"
	"github.com/ethersphere/lottery/pkg/deploy"
	"github.com/ethersphere/lottery/pkg/devchain"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/statestore/mock"
	"github.com/ethersphere/lottery/pkg/storage"
)

// PollingInterval is the transaction polling interval used in tests.
const PollingInterval = 5 * time.Millisecond

type options struct {
	network  string
	now      func() time.Time
	store    storage.StateStorer
	verifier deploy.Verifier
	modify   func(*config.Network)
}

type Option func(*options)

// WithNetwork selects the network configuration. It defaults to hardhat.
func WithNetwork(name string) Option {
	return func(o *options) { o.network = name }
}

// WithNetworkConfig modifies the selected network configuration.
func WithNetworkConfig(f func(*config.Network)) Option {
	return func(o *options) { o.modify = f }
}

// WithClock sets the wall clock of the chain.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStateStore sets the store deployments and nonces are kept in.
func WithStateStore(s storage.StateStorer) Option {
	return func(o *options) { o.store = s }
}

func WithVerifier(v deploy.Verifier) Option {
	return func(o *options) { o.verifier = v }
}

// Registry returns a registry with the native lottery and coordinator mock.
func Registry() *contracts.Registry {
	return contracts.NewRegistry(lotterycontract.Native.Artifact(), vrfmock.Native.Artifact())
}

// New returns a runner with all deploy scripts given and a development chain
// behind its environment. Everything is closed when the test ends.
func New(t testing.TB, scripts []deploy.Script, opts ...Option) (*deploy.Runner, *devchain.Chain) {
	t.Helper()

	o := options{network: config.Hardhat}
	for _, opt := range opts {
		opt(&o)
	}
	network, ok := config.GetNetwork(o.network)
	if !ok {
		t.Fatalf("unknown network %s", o.network)
	}
	if o.modify != nil {
		o.modify(network)
	}
	if o.store == nil {
		o.store = mock.NewStateStore()
	}

	registry := Registry()
	chain, err := devchain.New(devchain.Options{
		Accounts: 5,
		Registry: registry,
		Now:      o.now,
		Logger:   log.Noop,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = chain.Close() })

	chainID, err := chain.ChainID(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	accounts, err := deploy.NewAccounts(log.Noop, chain, o.store, chainID, chain.Keys(), PollingInterval)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = accounts.Close() })

	env := &deploy.Environment{
		Logger:      log.Noop,
		Network:     network,
		Backend:     chain,
		Registry:    registry,
		Accounts:    accounts,
		Deployments: deploy.NewDeployments(log.Noop, network.Name, chain, registry, accounts, o.store, PollingInterval),
		Verifier:    o.verifier,
		Controller:  chain,
	}
	return deploy.NewRunner(env, scripts...), chain
}
