// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethersphere/lottery/pkg/config"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/crypto"
	"github.com/ethersphere/lottery/pkg/devchain"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/metrics"
	"github.com/ethersphere/lottery/pkg/transaction"
	"github.com/ethersphere/lottery/pkg/transaction/cache"
	"github.com/ethersphere/lottery/pkg/transaction/wrapped"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	maxDelay = 1 * time.Minute
	// defaultAccounts is the number of keys derived from a mnemonic.
	defaultAccounts = 3
	// receiptCacheSize bounds the receipts kept for remote chains.
	receiptCacheSize = 1024
)

var (
	ErrNoKeys          = errors.New("no account keys configured")
	ErrChainIDMismatch = errors.New("chain id does not match the network")
)

type ChainOptions struct {
	// Endpoint is the json-rpc url. It defaults to the network url. An
	// empty endpoint on a development network starts an in-process chain.
	Endpoint string
	// PrivateKeys are hex encoded account keys, deployer first.
	PrivateKeys []string
	// Keystore is an encrypted key file used as the deployer key.
	Keystore         string
	KeystorePassword string
	// Mnemonic derives the keys when none are given.
	Mnemonic        string
	PollingInterval time.Duration
	Now             func() time.Time
}

// Chain is an initialized chain backend with the accounts that sign on it.
type Chain struct {
	Backend transaction.Backend
	ChainID *big.Int
	Keys    []*ecdsa.PrivateKey
	// Controller is set on development networks.
	Controller devchain.Controller
	// Dev is the in-process chain, nil for remote backends.
	Dev *devchain.Chain

	metrics []prometheus.Collector
	close   func() error
}

// Metrics returns the backend metrics of remote chains.
func (c *Chain) Metrics() []prometheus.Collector {
	return c.metrics
}

func (c *Chain) Close() error {
	return c.close()
}

// InitChain starts an in-process development chain or connects to the
// network endpoint and resolves the account keys.
func InitChain(ctx context.Context, logger log.Logger, network *config.Network, registry *contracts.Registry, o ChainOptions) (*Chain, error) {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = network.URL
	}
	if endpoint == "" && network.Development {
		return initDevChain(logger, network, registry, o)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("network %s: no endpoint", network.Name)
	}

	rc, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial eth client: %w", err)
	}
	client := ethclient.NewClient(rc)
	backend := wrapped.NewBackend(client)

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		logger.Info("could not connect to backend; check the node or specify another endpoint", "endpoint", endpoint)
		client.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if network.ChainID != 0 && chainID.Int64() != network.ChainID {
		client.Close()
		return nil, fmt.Errorf("%w: got %d, want %d for %s", ErrChainIDMismatch, chainID, network.ChainID, network.Name)
	}

	if !network.Development {
		isSynced, err := transaction.IsSynced(ctx, backend, maxDelay)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("is synced: %w", err)
		}
		if !isSynced {
			logger.Info("waiting to sync with the blockchain backend")
			if err := transaction.WaitSynced(ctx, backend, maxDelay); err != nil {
				client.Close()
				return nil, fmt.Errorf("waiting backend sync: %w", err)
			}
		}
	}

	keys, err := resolveKeys(network, o)
	if err != nil {
		client.Close()
		return nil, err
	}

	cacheOptions := cache.Options{BlockNumberFetchInterval: o.PollingInterval}
	if !network.Development {
		cacheOptions.ReceiptCacheSize = receiptCacheSize
	}
	cached, err := cache.New(backend, cacheOptions)
	if err != nil {
		client.Close()
		return nil, err
	}

	c := &Chain{
		Backend: cached,
		ChainID: chainID,
		Keys:    keys,
		metrics: backend.Metrics(),
		close: func() error {
			client.Close()
			return nil
		},
	}
	if network.Development {
		c.Controller = devchain.NewClient(rc)
	}
	logger.Info("connected to blockchain backend", "endpoint", endpoint, "chain_id", chainID, "accounts", len(keys))
	return c, nil
}

func initDevChain(logger log.Logger, network *config.Network, registry *contracts.Registry, o ChainOptions) (*Chain, error) {
	var chainID *big.Int
	if network.ChainID != 0 {
		chainID = big.NewInt(network.ChainID)
	}
	mnemonic := o.Mnemonic
	if mnemonic == "" {
		mnemonic = network.Mnemonic
	}
	chain, err := devchain.New(devchain.Options{
		ChainID:  chainID,
		Mnemonic: mnemonic,
		Accounts: network.Accounts,
		Registry: registry,
		Now:      o.Now,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("development chain: %w", err)
	}
	chainID, err = chain.ChainID(context.Background())
	if err != nil {
		return nil, err
	}
	logger.Info("started in-process development chain", "chain_id", chainID, "accounts", len(chain.Accounts()))
	return &Chain{
		Backend:    chain,
		ChainID:    chainID,
		Keys:       chain.Keys(),
		Controller: chain,
		Dev:        chain,
		close:      chain.Close,
	}, nil
}

func resolveKeys(network *config.Network, o ChainOptions) ([]*ecdsa.PrivateKey, error) {
	var keys []*ecdsa.PrivateKey
	if o.Keystore != "" {
		data, err := ioutil.ReadFile(o.Keystore)
		if err != nil {
			return nil, fmt.Errorf("read keystore: %w", err)
		}
		key, err := crypto.DecryptKeystore(data, o.KeystorePassword)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	for _, k := range o.PrivateKeys {
		key, err := crypto.DecodeHexPrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("decode private key: %w", err)
		}
		keys = append(keys, key)
	}
	if len(keys) > 0 {
		return keys, nil
	}

	mnemonic := o.Mnemonic
	if mnemonic == "" {
		mnemonic = network.Mnemonic
	}
	if mnemonic == "" && network.Development {
		mnemonic = crypto.DefaultMnemonic
	}
	if mnemonic == "" {
		return nil, ErrNoKeys
	}
	n := network.Accounts
	if n == 0 {
		n = defaultAccounts
	}
	return crypto.DeriveKeys(mnemonic, n)
}

var _ metrics.Collector = (*Chain)(nil)
