// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/sctx"
	"github.com/ethersphere/lottery/pkg/storage"
	"github.com/ethersphere/lottery/pkg/transaction"
	"github.com/vmihailenco/msgpack/v5"
)

const deploymentPrefix = "deployment_"

var (
	ErrDeploymentNotFound = errors.New("deployment not found")
	ErrNoContractAddress  = errors.New("receipt has no contract address")
)

// Deployment is the persisted record of a deployed contract.
type Deployment struct {
	Name            string         `msgpack:"name" json:"name"`
	Contract        string         `msgpack:"contract" json:"contract"`
	Network         string         `msgpack:"network" json:"network"`
	Address         common.Address `msgpack:"address" json:"address"`
	TransactionHash common.Hash    `msgpack:"txHash" json:"transactionHash"`
	Deployer        common.Address `msgpack:"deployer" json:"deployer"`
	BlockNumber     uint64         `msgpack:"blockNumber" json:"blockNumber"`
	GasUsed         uint64         `msgpack:"gasUsed" json:"gasUsed"`
	// CodeHash is the hash of the creation code without the constructor
	// arguments.
	CodeHash common.Hash   `msgpack:"codeHash" json:"codeHash"`
	Args     hexutil.Bytes `msgpack:"args" json:"args"`
	// NewlyDeployed is false when an existing deployment was reused.
	NewlyDeployed bool `msgpack:"-" json:"-"`
}

type deploymentRecord Deployment

func (d *Deployment) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal((*deploymentRecord)(d))
}

func (d *Deployment) UnmarshalBinary(data []byte) error {
	return msgpack.Unmarshal(data, (*deploymentRecord)(d))
}

// Options configure a single deployment.
type Options struct {
	// Contract is the artifact name. It defaults to the deployment name.
	Contract string
	From     common.Address
	Args     []interface{}
	// Log enables the deployment log line.
	Log bool
	// WaitConfirmations is the number of blocks to wait for after the
	// deployment was mined.
	WaitConfirmations uint64
}

// Deployments deploys contracts by name and keeps a record of them in the
// state store. A deployment with the same code and arguments as the
// recorded one is reused.
type Deployments struct {
	logger          log.Logger
	network         string
	backend         transaction.Backend
	registry        *contracts.Registry
	accounts        *Accounts
	store           storage.StateStorer
	pollingInterval time.Duration
	metrics         metrics

	mu sync.Mutex
}

func NewDeployments(logger log.Logger, network string, backend transaction.Backend, registry *contracts.Registry, accounts *Accounts, store storage.StateStorer, pollingInterval time.Duration) *Deployments {
	return &Deployments{
		logger:          logger.WithName(loggerName).Register(),
		network:         network,
		backend:         backend,
		registry:        registry,
		accounts:        accounts,
		store:           store,
		pollingInterval: pollingInterval,
		metrics:         newMetrics(),
	}
}

func (d *Deployments) key(name string) string {
	return fmt.Sprintf("%s%s_%s", deploymentPrefix, d.network, name)
}

// Deploy deploys the contract under the given name unless an identical
// deployment is already recorded and its code is present on chain.
func (d *Deployments) Deploy(ctx context.Context, name string, o Options) (*Deployment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	contract := o.Contract
	if contract == "" {
		contract = name
	}
	artifact, err := d.registry.Get(contract)
	if err != nil {
		return nil, err
	}
	args, err := artifact.ConstructorArguments(o.Args...)
	if err != nil {
		return nil, err
	}
	codeHash := crypto.Keccak256Hash(artifact.Bytecode)

	existing, err := d.get(name)
	switch {
	case errors.Is(err, ErrDeploymentNotFound):
	case err != nil:
		return nil, err
	case existing.Contract == contract && existing.CodeHash == codeHash && bytes.Equal(existing.Args, args):
		code, err := d.backend.CodeAt(ctx, existing.Address, nil)
		if err != nil {
			return nil, fmt.Errorf("code of %s: %w", name, err)
		}
		if len(code) > 0 {
			if o.Log {
				d.logger.Info(fmt.Sprintf("reusing %q at %s", name, existing.Address))
			}
			d.metrics.ReusedDeployments.Inc()
			return existing, nil
		}
	}

	txService, err := d.accounts.TransactionService(o.From)
	if err != nil {
		return nil, err
	}
	creation := make([]byte, 0, len(artifact.Bytecode)+len(args))
	creation = append(append(creation, artifact.Bytecode...), args...)

	txHash, err := txService.Send(ctx, &transaction.TxRequest{
		Data:        creation,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Description: "deploy " + name,
	})
	if err != nil {
		d.metrics.FailedDeployments.Inc()
		return nil, fmt.Errorf("deploy %s: %w", name, err)
	}
	if o.Log {
		d.logger.Info(fmt.Sprintf("deploying %q (tx: %s)...", name, txHash))
	}

	receipt, err := txService.WaitForReceipt(ctx, txHash)
	if err != nil {
		d.metrics.FailedDeployments.Inc()
		return nil, fmt.Errorf("deploy %s: %w", name, err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		d.metrics.FailedDeployments.Inc()
		return nil, fmt.Errorf("deploy %s: %w", name, transaction.ErrTransactionReverted)
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, fmt.Errorf("deploy %s: %w", name, ErrNoContractAddress)
	}

	if err := transaction.WaitForConfirmations(ctx, d.backend, receipt, o.WaitConfirmations, d.pollingInterval); err != nil {
		return nil, fmt.Errorf("deploy %s: wait for confirmations: %w", name, err)
	}

	dep := &Deployment{
		Name:            name,
		Contract:        contract,
		Network:         d.network,
		Address:         receipt.ContractAddress,
		TransactionHash: txHash,
		Deployer:        o.From,
		BlockNumber:     receipt.BlockNumber.Uint64(),
		GasUsed:         receipt.GasUsed,
		CodeHash:        codeHash,
		Args:            args,
		NewlyDeployed:   true,
	}
	if err := d.store.Put(d.key(name), dep); err != nil {
		return nil, fmt.Errorf("store deployment %s: %w", name, err)
	}
	d.metrics.Deployments.Inc()
	d.metrics.DeploymentGasUsed.Add(float64(receipt.GasUsed))

	if o.Log {
		d.logger.Info(fmt.Sprintf("deployed %q at %s with %d gas", name, dep.Address, dep.GasUsed))
	}
	return dep, nil
}

// Get returns the recorded deployment.
func (d *Deployments) Get(name string) (*Deployment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.get(name)
}

func (d *Deployments) get(name string) (*Deployment, error) {
	var dep Deployment
	if err := d.store.Get(d.key(name), &dep); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrDeploymentNotFound)
		}
		return nil, err
	}
	return &dep, nil
}

// All returns the recorded deployments of the network ordered by name.
func (d *Deployments) All() ([]Deployment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.all()
}

func (d *Deployments) all() ([]Deployment, error) {
	prefix := fmt.Sprintf("%s%s_", deploymentPrefix, d.network)
	var deployments []Deployment
	err := d.store.Iterate(prefix, func(key, value []byte) (bool, error) {
		if !strings.HasPrefix(string(key), prefix) {
			return true, nil
		}
		var dep Deployment
		if err := dep.UnmarshalBinary(value); err != nil {
			return true, fmt.Errorf("decode deployment %s: %w", key, err)
		}
		deployments = append(deployments, dep)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].Name < deployments[j].Name
	})
	return deployments, nil
}

// restore replaces the recorded deployments of the network.
func (d *Deployments) restore(deployments []Deployment) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.all()
	if err != nil {
		return err
	}
	for _, dep := range current {
		if err := d.store.Delete(d.key(dep.Name)); err != nil {
			return err
		}
	}
	for i := range deployments {
		if err := d.store.Put(d.key(deployments[i].Name), &deployments[i]); err != nil {
			return err
		}
	}
	return nil
}
