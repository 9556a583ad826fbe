// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package node wires the chain backend, the deployment runner, the keeper
// agents and the HTTP servers into a running lottery node.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethersphere/lottery/pkg/api"
	"github.com/ethersphere/lottery/pkg/config"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/contracts/lotterycontract"
	"github.com/ethersphere/lottery/pkg/contracts/vrfmock"
	"github.com/ethersphere/lottery/pkg/deploy"
	"github.com/ethersphere/lottery/pkg/deploy/scripts"
	"github.com/ethersphere/lottery/pkg/devchain"
	"github.com/ethersphere/lottery/pkg/keeper"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/lottery"
	"github.com/ethersphere/lottery/pkg/storage"
	"github.com/ethersphere/lottery/pkg/verify"
	"github.com/ethersphere/lottery/pkg/vrf"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

const defaultPollingInterval = 2 * time.Second

var (
	ErrShutdownInProgress = errors.New("shutdown in progress")
	ErrUnknownNetwork     = errors.New("unknown network")
	ErrNoArtifacts        = errors.New("compiled artifacts are required on remote chains")
	ErrNoExplorer         = errors.New("no block explorer known for the chain")
)

type Options struct {
	DataDir string
	Network string
	// NetworksFile is a yaml file overriding the built-in networks.
	NetworksFile string
	// ArtifactsDir holds compiled hardhat artifacts.
	ArtifactsDir string
	Chain        ChainOptions
	Tags         []string

	Verify          bool
	EtherscanAPIKey string
	EtherscanAPIURL string

	APIAddr            string
	RPCAddr            string
	CORSAllowedOrigins []string
	KeeperInterval     time.Duration
	DisableKeeper      bool
}

// environment holds everything the deploy scripts run against.
type environment struct {
	network    *config.Network
	stateStore storage.StateStorer
	chain      *Chain
	runner     *deploy.Runner
	closers    []io.Closer
}

func (e *environment) Close() error {
	var mErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	return mErr
}

func lookupNetwork(o *Options) (*config.Network, error) {
	table := config.NewTable()
	if o.NetworksFile != "" {
		t, err := config.LoadNetworks(o.NetworksFile)
		if err != nil {
			return nil, err
		}
		table = t
	}
	network, ok := table.Get(o.Network)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, o.Network)
	}
	return network, nil
}

func setup(ctx context.Context, logger log.Logger, o *Options) (e *environment, err error) {
	network, err := lookupNetwork(o)
	if err != nil {
		return nil, err
	}
	if o.Chain.PollingInterval == 0 {
		o.Chain.PollingInterval = defaultPollingInterval
	}

	e = &environment{network: network}
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	stateStore, err := InitStateStore(logger, o.DataDir)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}
	e.stateStore = stateStore
	e.closers = append(e.closers, stateStore)

	registry := contracts.NewRegistry(lotterycontract.Native.Artifact(), vrfmock.Native.Artifact())
	if o.ArtifactsDir != "" {
		n, err := registry.LoadHardhatArtifacts(o.ArtifactsDir)
		if err != nil {
			return nil, fmt.Errorf("load artifacts: %w", err)
		}
		logger.Debug("loaded compiled artifacts", "count", n, "dir", o.ArtifactsDir)
	}

	chain, err := InitChain(ctx, logger, network, registry, o.Chain)
	if err != nil {
		return nil, err
	}
	e.chain = chain
	e.closers = append(e.closers, chain)
	if chain.Dev == nil && o.ArtifactsDir == "" {
		return nil, ErrNoArtifacts
	}

	accounts, err := deploy.NewAccounts(logger, chain.Backend, stateStore, chain.ChainID, chain.Keys, o.Chain.PollingInterval)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, accounts)

	var verifier deploy.Verifier
	if o.Verify {
		apiURL := o.EtherscanAPIURL
		if apiURL == "" {
			u, ok := verify.APIURL(chain.ChainID.Int64())
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNoExplorer, chain.ChainID)
			}
			apiURL = u
		}
		verifier = verify.New(logger, verify.Options{APIURL: apiURL, APIKey: o.EtherscanAPIKey})
	}

	e.runner = deploy.NewRunner(&deploy.Environment{
		Logger:      logger,
		Network:     network,
		Backend:     chain.Backend,
		Registry:    registry,
		Accounts:    accounts,
		Deployments: deploy.NewDeployments(logger, network.Name, chain.Backend, registry, accounts, stateStore, o.Chain.PollingInterval),
		Verifier:    verifier,
		Controller:  chain.Controller,
	}, scripts.All()...)
	return e, nil
}

// Deploy runs the deploy scripts with the options tags and returns all
// recorded deployments.
func Deploy(ctx context.Context, logger log.Logger, o *Options) ([]deploy.Deployment, error) {
	e, err := setup(ctx, logger, o)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	if err := e.runner.Run(ctx, o.Tags...); err != nil {
		return nil, err
	}
	return e.runner.Environment().Deployments.All()
}

// Node is a running lottery node.
type Node struct {
	env        *environment
	apiServer  *http.Server
	rpcServer  *http.Server
	keeper     io.Closer
	fulfiller  io.Closer
	apiService *api.Service
	apiAddr    net.Addr
	rpcAddr    net.Addr

	shutdownInProgress bool
	shutdownMutex      sync.Mutex
}

// NewNode deploys the contracts and starts the API, the keeper agents and,
// for the in-process chain, the json-rpc server.
func NewNode(ctx context.Context, logger log.Logger, o *Options) (n *Node, err error) {
	e, err := setup(ctx, logger, o)
	if err != nil {
		return nil, err
	}
	n = &Node{env: e}
	defer func() {
		if err != nil {
			_ = n.Shutdown()
		}
	}()

	n.apiService = api.New(logger, api.Options{
		Network:            e.network.Name,
		CORSAllowedOrigins: o.CORSAllowedOrigins,
	})
	n.apiService.MustRegisterMetrics(log.Metrics(logger)...)
	n.apiService.MustRegisterMetrics(e.chain.Metrics()...)
	if o.APIAddr != "" {
		n.apiServer, n.apiAddr, err = serve(logger, "api", o.APIAddr, n.apiService)
		if err != nil {
			return nil, err
		}
	}

	if e.chain.Dev != nil && o.RPCAddr != "" {
		rpcServer, err := devchain.NewServer(e.chain.Dev)
		if err != nil {
			return nil, err
		}
		n.rpcServer, n.rpcAddr, err = serve(logger, "json-rpc", o.RPCAddr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				rpcServer.WebsocketHandler([]string{"*"}).ServeHTTP(w, r)
				return
			}
			rpcServer.ServeHTTP(w, r)
		}))
		if err != nil {
			return nil, err
		}
	}

	env := e.runner.Environment()
	if err := e.runner.Run(ctx, o.Tags...); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	n.apiService.MustRegisterMetrics(env.Deployments.Metrics()...)

	lotteryDeployment, err := env.Deployments.Get(scripts.Lottery)
	if err != nil {
		return nil, err
	}
	deployer, err := env.Accounts.NamedTransactionService(deploy.Deployer)
	if err != nil {
		return nil, err
	}
	l := lottery.New(logger, e.chain.Backend, deployer, lotteryDeployment.Address)
	n.apiService.Configure(l, env.Deployments)

	if !o.DisableKeeper {
		k := keeper.NewKeeper(logger, l, o.KeeperInterval)
		n.apiService.MustRegisterMetrics(k.Metrics()...)
		k.Start()
		n.keeper = k
	}

	if e.network.Development {
		mockDeployment, err := env.Deployments.Get(scripts.CoordinatorMock)
		if err != nil {
			return nil, err
		}
		f := keeper.NewFulfiller(logger, e.chain.Backend, vrf.New(logger, e.chain.Backend, deployer, mockDeployment.Address), keeper.FulfillerOptions{
			Interval:       o.KeeperInterval,
			StartBlock:     lotteryDeployment.BlockNumber,
			TopUpThreshold: new(big.Int).Div(config.SubscriptionFundAmount, big.NewInt(4)),
			TopUpAmount:    config.SubscriptionFundAmount,
		})
		n.apiService.MustRegisterMetrics(f.Metrics()...)
		f.Start()
		n.fulfiller = f
	}

	logger.Info("lottery node started", "network", e.network.Name, "lottery", lotteryDeployment.Address)
	return n, nil
}

func serve(logger log.Logger, name, addr string, handler http.Handler) (*http.Server, net.Addr, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("%s listener: %w", name, err)
	}
	server := &http.Server{
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		Handler:           handler,
	}
	go func() {
		logger.Info("starting server", "server", name, "address", listener.Addr())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Debug("server failed", "server", name, "error", err)
			logger.Error(nil, "server failed", "server", name)
		}
	}()
	return server, listener.Addr(), nil
}

// APIAddr returns the address the API listens on, nil if it is disabled.
func (n *Node) APIAddr() net.Addr {
	return n.apiAddr
}

// RPCAddr returns the address of the development json-rpc server, nil if
// it is not running.
func (n *Node) RPCAddr() net.Addr {
	return n.rpcAddr
}

func (n *Node) Shutdown() error {
	var mErr error

	// if a shutdown is already in process, return here
	n.shutdownMutex.Lock()
	if n.shutdownInProgress {
		n.shutdownMutex.Unlock()
		return ErrShutdownInProgress
	}
	n.shutdownInProgress = true
	n.shutdownMutex.Unlock()

	tryClose := func(c io.Closer, errMsg string) {
		if c == nil {
			return
		}
		if err := c.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", errMsg, err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var eg errgroup.Group
	for name, server := range map[string]*http.Server{"api server": n.apiServer, "json-rpc server": n.rpcServer} {
		if server == nil {
			continue
		}
		name, server := name, server
		eg.Go(func() error {
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	if n.apiService != nil {
		tryClose(n.apiService, "api")
	}
	tryClose(n.keeper, "keeper")
	tryClose(n.fulfiller, "fulfiller")
	tryClose(n.env, "environment")

	return mErr
}
