// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scripts

import (
	"context"

	"github.com/ethersphere/lottery/pkg/config"
	"github.com/ethersphere/lottery/pkg/contracts/vrfmock"
	"github.com/ethersphere/lottery/pkg/deploy"
)

// DeployMocks deploys the coordinator mock on development networks.
var DeployMocks = deploy.Script{
	Name: "00_deploy_mocks",
	Tags: []string{TagAll, TagMocks},
	Run:  deployMocks,
}

func deployMocks(ctx context.Context, env *deploy.Environment) error {
	if !env.Network.Development {
		return nil
	}
	deployer, err := env.Accounts.Address(deploy.Deployer)
	if err != nil {
		return err
	}

	env.Logger.Info("Local network detected! Deploying mocks...")
	if _, err := env.Deployments.Deploy(ctx, CoordinatorMock, deploy.Options{
		Contract: vrfmock.Name,
		From:     deployer,
		Args:     []interface{}{config.BaseFee, config.GasPriceLink},
		Log:      true,
	}); err != nil {
		return err
	}
	env.Logger.Info("Mocks deployed!")
	env.Logger.Info(rule)
	return nil
}
