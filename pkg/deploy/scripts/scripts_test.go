// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scripts_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/config"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/deploy"
	"github.com/ethersphere/lottery/pkg/deploy/deploytest"
	"github.com/ethersphere/lottery/pkg/deploy/scripts"
	"github.com/ethersphere/lottery/pkg/lottery"
	"github.com/ethersphere/lottery/pkg/statestore/mock"
	"github.com/ethersphere/lottery/pkg/vrf"
)

type verifierMock struct {
	mu    sync.Mutex
	calls []common.Address
	args  [][]byte
}

func (v *verifierMock) Verify(_ context.Context, address common.Address, _ *contracts.Artifact, args []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, address)
	v.args = append(v.args, args)
	return nil
}

func TestDeployDevelopment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runner, chain := deploytest.New(t, scripts.All())
	env := runner.Environment()

	if err := runner.Run(ctx, scripts.TagAll); err != nil {
		t.Fatal(err)
	}

	mockDeployment, err := env.Deployments.Get(scripts.CoordinatorMock)
	if err != nil {
		t.Fatal(err)
	}
	lotteryDeployment, err := env.Deployments.Get(scripts.Lottery)
	if err != nil {
		t.Fatal(err)
	}

	deployer, err := env.Accounts.NamedTransactionService(deploy.Deployer)
	if err != nil {
		t.Fatal(err)
	}
	l := lottery.New(env.Logger, chain, deployer, lotteryDeployment.Address)
	status, err := l.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}

	network := env.Network
	if status.VRFCoordinator != mockDeployment.Address {
		t.Fatalf("got coordinator %s, want %s", status.VRFCoordinator, mockDeployment.Address)
	}
	if status.EntranceFee.Cmp(network.EntranceFee) != 0 {
		t.Fatalf("got entrance fee %d, want %d", status.EntranceFee, network.EntranceFee)
	}
	if status.GasLane != network.GasLane {
		t.Fatalf("got gas lane %s, want %s", status.GasLane, network.GasLane)
	}
	if status.CallbackGasLimit != network.CallbackGasLimit {
		t.Fatalf("got callback gas limit %d, want %d", status.CallbackGasLimit, network.CallbackGasLimit)
	}
	if status.Interval.Uint64() != network.Interval {
		t.Fatalf("got interval %d, want %d", status.Interval, network.Interval)
	}
	if status.State != lottery.StateOpen {
		t.Fatalf("got state %s, want open", status.State)
	}
	if len(status.Players) != 0 {
		t.Fatalf("got players %v, want none", status.Players)
	}

	coordinator := vrf.New(env.Logger, chain, deployer, mockDeployment.Address)
	sub, err := coordinator.GetSubscription(ctx, status.SubscriptionID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Balance.Cmp(config.SubscriptionFundAmount) != 0 {
		t.Fatalf("got subscription balance %d, want %d", sub.Balance, config.SubscriptionFundAmount)
	}
	if len(sub.Consumers) != 1 || sub.Consumers[0] != lotteryDeployment.Address {
		t.Fatalf("got consumers %v, want [%s]", sub.Consumers, lotteryDeployment.Address)
	}
}

func TestDeployReusesIdenticalDeployment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runner, chain := deploytest.New(t, scripts.All())
	env := runner.Environment()

	if err := runner.Run(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := env.Deployments.All()
	if err != nil {
		t.Fatal(err)
	}
	height, err := chain.BlockNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := runner.Run(ctx); err != nil {
		t.Fatal(err)
	}
	second, err := env.Deployments.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("got %d and %d deployments, want 2", len(first), len(second))
	}
	for i := range first {
		if first[i].Address != second[i].Address {
			t.Fatalf("deployment %s moved from %s to %s", first[i].Name, first[i].Address, second[i].Address)
		}
	}
	after, err := chain.BlockNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// only the idempotent addConsumer transaction is sent again
	if after != height+1 {
		t.Fatalf("got %d new blocks, want 1", after-height)
	}
}

func TestDeployMocksOnlyOnDevelopmentNetworks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	verifier := new(verifierMock)
	runner, _ := deploytest.New(t, scripts.All(),
		deploytest.WithNetwork(config.Goerli),
		deploytest.WithVerifier(verifier),
		deploytest.WithNetworkConfig(func(n *config.Network) {
			n.BlockConfirmations = 1
		}),
	)
	env := runner.Environment()

	if err := runner.Run(ctx, scripts.TagMocks); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Deployments.Get(scripts.CoordinatorMock); !errors.Is(err, deploy.ErrDeploymentNotFound) {
		t.Fatalf("got error %v, want %v", err, deploy.ErrDeploymentNotFound)
	}

	if err := runner.Run(ctx, scripts.TagLottery); err != nil {
		t.Fatal(err)
	}
	d, err := env.Deployments.Get(scripts.Lottery)
	if err != nil {
		t.Fatal(err)
	}
	if len(verifier.calls) != 1 || verifier.calls[0] != d.Address {
		t.Fatalf("got verifications %v, want [%s]", verifier.calls, d.Address)
	}
	if string(verifier.args[0]) != string(d.Args) {
		t.Fatal("verified with wrong constructor arguments")
	}

	deployer, err := env.Accounts.NamedTransactionService(deploy.Deployer)
	if err != nil {
		t.Fatal(err)
	}
	coordinator, err := lottery.New(env.Logger, env.Backend, deployer, d.Address).VRFCoordinator(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if coordinator != env.Network.VRFCoordinator {
		t.Fatalf("got coordinator %s, want %s", coordinator, env.Network.VRFCoordinator)
	}
}

func TestDeployWithoutCoordinator(t *testing.T) {
	t.Parallel()

	runner, _ := deploytest.New(t, scripts.All(), deploytest.WithNetwork(config.Ganache))
	err := runner.Run(context.Background())
	if !errors.Is(err, scripts.ErrNoCoordinator) {
		t.Fatalf("got error %v, want %v", err, scripts.ErrNoCoordinator)
	}
}

func TestFixture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := mock.NewStateStore()
	runner, chain := deploytest.New(t, scripts.All(), deploytest.WithStateStore(store))
	env := runner.Environment()

	if err := runner.Fixture(ctx, scripts.TagAll); err != nil {
		t.Fatal(err)
	}
	d, err := env.Deployments.Get(scripts.Lottery)
	if err != nil {
		t.Fatal(err)
	}
	height, err := chain.BlockNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}

	player, err := env.Accounts.NamedTransactionService(deploy.Player)
	if err != nil {
		t.Fatal(err)
	}
	l := lottery.New(env.Logger, chain, player, d.Address)
	if _, err := l.EnterLottery(ctx, env.Network.EntranceFee); err != nil {
		t.Fatal(err)
	}
	if n, err := l.NumberOfPlayers(ctx); err != nil || n != 1 {
		t.Fatalf("got %d players, %v", n, err)
	}

	for i := 0; i < 2; i++ {
		if err := runner.Fixture(ctx, scripts.TagAll); err != nil {
			t.Fatal(err)
		}
		after, err := chain.BlockNumber(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if after != height {
			t.Fatalf("got height %d after fixture, want %d", after, height)
		}
		again, err := env.Deployments.Get(scripts.Lottery)
		if err != nil {
			t.Fatal(err)
		}
		if again.Address != d.Address {
			t.Fatalf("lottery moved from %s to %s", d.Address, again.Address)
		}

		player, err := env.Accounts.NamedTransactionService(deploy.Player)
		if err != nil {
			t.Fatal(err)
		}
		l := lottery.New(env.Logger, chain, player, d.Address)
		if n, err := l.NumberOfPlayers(ctx); err != nil || n != 0 {
			t.Fatalf("got %d players after fixture, %v", n, err)
		}
		// the nonce of the reverted entry is reused
		if _, err := l.EnterLottery(ctx, big.NewInt(0).Set(env.Network.EntranceFee)); err != nil {
			t.Fatal(err)
		}
	}
}
