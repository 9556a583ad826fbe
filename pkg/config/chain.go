// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	Hardhat   = "hardhat"
	Localhost = "localhost"
	Ganache   = "ganache"
	Dashboard = "dashboard"
	Goerli    = "goerli"
	Sepolia   = "sepolia"
)

var (
	// chain ID
	hardhatChainID = int64(31337)
	ganacheChainID = int64(1337)
	goerliChainID  = int64(5)
	sepoliaChainID = int64(11155111)
	// vrf coordinator
	goerliVRFCoordinator  = common.HexToAddress("0x2Ca8E0C643bDe4C2E08ab1fA0da3401AdAD7734D")
	sepoliaVRFCoordinator = common.HexToAddress("0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625")
	// gas lane, the key hash selecting the maximum gas price of the request
	goerliGasLane  = common.HexToHash("0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15")
	sepoliaGasLane = common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c")

	ganacheMnemonic = "crash envelope orbit crash actress debate improve borrow aunt twenty hero base"
)

const (
	defaultCallbackGasLimit = uint32(500000)
	// defaultInterval is the lottery round length in seconds.
	defaultInterval = uint64(30)
)

var (
	// DefaultEntranceFee is 0.01 ETH.
	DefaultEntranceFee = big.NewInt(1e16)

	// BaseFee is the flat LINK fee of the coordinator mock, 0.25 LINK.
	BaseFee = big.NewInt(25e16)
	// GasPriceLink is the LINK per gas price of the coordinator mock.
	GasPriceLink = big.NewInt(1e9)
	// SubscriptionFundAmount is the LINK the dev subscription is funded with.
	SubscriptionFundAmount = new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))
)

// DevelopmentChains are the networks on which the coordinator mock is
// deployed.
var DevelopmentChains = []string{Hardhat, Localhost}

// Network is the configuration of a single network.
type Network struct {
	Name    string
	ChainID int64
	// URL is the json-rpc endpoint. Empty for the in-process chain.
	URL string
	// Mnemonic and Accounts select the node managed accounts.
	Mnemonic string
	Accounts int

	EntranceFee      *big.Int
	GasLane          common.Hash
	SubscriptionID   uint64
	CallbackGasLimit uint32
	Interval         uint64
	VRFCoordinator   common.Address

	BlockConfirmations uint64
	Development        bool
}

// Confirmations returns the number of blocks to wait for, at least one.
func (n *Network) Confirmations() uint64 {
	if n.BlockConfirmations == 0 {
		return 1
	}
	return n.BlockConfirmations
}

func (n Network) copy() Network {
	if n.EntranceFee != nil {
		n.EntranceFee = new(big.Int).Set(n.EntranceFee)
	}
	return n
}

func defaultNetworks() []Network {
	return []Network{
		{
			Name:             Hardhat,
			ChainID:          hardhatChainID,
			EntranceFee:      new(big.Int).Set(DefaultEntranceFee),
			GasLane:          goerliGasLane,
			CallbackGasLimit: defaultCallbackGasLimit,
			Interval:         defaultInterval,
			Development:      true,
		},
		{
			Name:             Localhost,
			ChainID:          hardhatChainID,
			URL:              "http://127.0.0.1:8545",
			EntranceFee:      new(big.Int).Set(DefaultEntranceFee),
			GasLane:          goerliGasLane,
			CallbackGasLimit: defaultCallbackGasLimit,
			Interval:         defaultInterval,
			Development:      true,
		},
		{
			Name:             Ganache,
			ChainID:          ganacheChainID,
			URL:              "http://127.0.0.1:7545",
			Mnemonic:         ganacheMnemonic,
			Accounts:         10,
			EntranceFee:      new(big.Int).Set(DefaultEntranceFee),
			GasLane:          goerliGasLane,
			CallbackGasLimit: defaultCallbackGasLimit,
			Interval:         defaultInterval,
		},
		{
			Name:             Dashboard,
			URL:              "http://localhost:24012/rpc",
			EntranceFee:      new(big.Int).Set(DefaultEntranceFee),
			CallbackGasLimit: defaultCallbackGasLimit,
			Interval:         defaultInterval,
		},
		{
			Name:               Goerli,
			ChainID:            goerliChainID,
			EntranceFee:        new(big.Int).Set(DefaultEntranceFee),
			GasLane:            goerliGasLane,
			CallbackGasLimit:   defaultCallbackGasLimit,
			Interval:           defaultInterval,
			VRFCoordinator:     goerliVRFCoordinator,
			BlockConfirmations: 3,
		},
		{
			Name:               Sepolia,
			ChainID:            sepoliaChainID,
			EntranceFee:        new(big.Int).Set(DefaultEntranceFee),
			GasLane:            sepoliaGasLane,
			CallbackGasLimit:   defaultCallbackGasLimit,
			Interval:           defaultInterval,
			VRFCoordinator:     sepoliaVRFCoordinator,
			BlockConfirmations: 6,
		},
	}
}

var defaultTable = NewTable()

// GetNetwork returns the built-in configuration of the named network.
func GetNetwork(name string) (*Network, bool) {
	return defaultTable.Get(name)
}

// GetNetworkByChainID returns the first built-in network with the chain id.
func GetNetworkByChainID(chainID int64) (*Network, bool) {
	return defaultTable.ByChainID(chainID)
}

// IsDevelopment reports whether the named network is a development chain.
func IsDevelopment(name string) bool {
	for _, n := range DevelopmentChains {
		if n == name {
			return true
		}
	}
	return false
}
