// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scripts

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/config"
	"github.com/ethersphere/lottery/pkg/contracts/lotterycontract"
	"github.com/ethersphere/lottery/pkg/deploy"
	"github.com/ethersphere/lottery/pkg/lottery"
	"github.com/ethersphere/lottery/pkg/vrf"
)

var ErrNoCoordinator = errors.New("no vrf coordinator configured")

// DeployLottery deploys the lottery with the parameters of the network. On
// development networks it is wired to a funded subscription of the
// coordinator mock, elsewhere the source is verified when possible.
var DeployLottery = deploy.Script{
	Name: "01_deploy_lottery",
	Tags: []string{TagAll, TagLottery},
	Run:  deployLottery,
}

func deployLottery(ctx context.Context, env *deploy.Environment) error {
	network := env.Network
	deployer, err := env.Accounts.Address(deploy.Deployer)
	if err != nil {
		return err
	}

	var (
		coordinator    common.Address
		subscriptionID uint64
		vrfService     *vrf.Service
	)
	if network.Development {
		mock, err := env.Deployments.Get(CoordinatorMock)
		if err != nil {
			return err
		}
		coordinator = mock.Address

		txService, err := env.Accounts.TransactionService(deployer)
		if err != nil {
			return err
		}
		vrfService = vrf.New(env.Logger, env.Backend, txService, coordinator)

		subscriptionID, err = existingSubscription(ctx, env, coordinator)
		if err != nil {
			return err
		}
		if subscriptionID == 0 {
			if subscriptionID, err = vrfService.CreateSubscription(ctx); err != nil {
				return err
			}
			if err := vrfService.FundSubscription(ctx, subscriptionID, config.SubscriptionFundAmount); err != nil {
				return err
			}
		}
	} else {
		if network.VRFCoordinator == (common.Address{}) {
			return fmt.Errorf("%w for network %s", ErrNoCoordinator, network.Name)
		}
		coordinator = network.VRFCoordinator
		subscriptionID = network.SubscriptionID
	}

	d, err := env.Deployments.Deploy(ctx, Lottery, deploy.Options{
		Contract: lotterycontract.Name,
		From:     deployer,
		Args: []interface{}{
			coordinator,
			network.EntranceFee,
			[32]byte(network.GasLane),
			subscriptionID,
			network.CallbackGasLimit,
			new(big.Int).SetUint64(network.Interval),
		},
		Log:               true,
		WaitConfirmations: network.Confirmations(),
	})
	if err != nil {
		return err
	}

	if network.Development {
		if err := vrfService.AddConsumer(ctx, subscriptionID, d.Address); err != nil {
			return err
		}
	} else if env.Verifier != nil && d.NewlyDeployed {
		env.Logger.Info("Verifying...")
		if err := env.Verify(ctx, d); err != nil {
			return err
		}
	}

	env.Logger.Info(rule)
	return nil
}

// existingSubscription returns the subscription of a lottery deployed
// earlier against the same coordinator, zero if there is none. Reusing it
// keeps the constructor arguments identical so the deployment is reused.
func existingSubscription(ctx context.Context, env *deploy.Environment, coordinator common.Address) (uint64, error) {
	d, err := env.Deployments.Get(Lottery)
	if errors.Is(err, deploy.ErrDeploymentNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	code, err := env.Backend.CodeAt(ctx, d.Address, nil)
	if err != nil {
		return 0, err
	}
	if len(code) == 0 {
		return 0, nil
	}

	txService, err := env.Accounts.TransactionService(d.Deployer)
	if err != nil {
		return 0, err
	}
	l := lottery.New(env.Logger, env.Backend, txService, d.Address)
	current, err := l.VRFCoordinator(ctx)
	if err != nil {
		return 0, err
	}
	if current != coordinator {
		return 0, nil
	}
	return l.SubscriptionID(ctx)
}
