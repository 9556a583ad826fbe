// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrInvalidNetwork = errors.New("invalid network configuration")
)

// Table maps network names to their configuration.
type Table struct {
	networks []Network
}

// NewTable returns a table with the built-in networks.
func NewTable() *Table {
	return &Table{networks: defaultNetworks()}
}

// Get returns a copy of the named network configuration.
func (t *Table) Get(name string) (*Network, bool) {
	for _, n := range t.networks {
		if n.Name == name {
			c := n.copy()
			return &c, true
		}
	}
	return nil, false
}

// ByChainID returns the first network with the chain id.
func (t *Table) ByChainID(chainID int64) (*Network, bool) {
	for _, n := range t.networks {
		if n.ChainID == chainID {
			c := n.copy()
			return &c, true
		}
	}
	return nil, false
}

// Names returns the sorted network names.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.networks))
	for _, n := range t.networks {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return names
}

// Set adds the network or replaces the one with the same name.
func (t *Table) Set(n Network) {
	for i := range t.networks {
		if t.networks[i].Name == n.Name {
			t.networks[i] = n.copy()
			return
		}
	}
	t.networks = append(t.networks, n.copy())
}

// networkYAML is the file representation of a network. Unset fields keep
// the value of the built-in network with the same name.
type networkYAML struct {
	ChainID            *int64  `yaml:"chain-id"`
	URL                *string `yaml:"url"`
	Mnemonic           *string `yaml:"mnemonic"`
	Accounts           *int    `yaml:"accounts"`
	EntranceFee        *string `yaml:"entrance-fee"`
	GasLane            *string `yaml:"gas-lane"`
	SubscriptionID     *uint64 `yaml:"subscription-id"`
	CallbackGasLimit   *uint32 `yaml:"callback-gas-limit"`
	Interval           *uint64 `yaml:"interval"`
	VRFCoordinator     *string `yaml:"vrf-coordinator"`
	BlockConfirmations *uint64 `yaml:"block-confirmations"`
	Development        *bool   `yaml:"development"`
}

// LoadNetworks reads a yaml file with a top level "networks" map and returns
// the built-in table extended by it.
func LoadNetworks(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read networks file: %w", err)
	}
	t := NewTable()
	if err := t.Merge(data); err != nil {
		return nil, fmt.Errorf("networks file %s: %w", path, err)
	}
	return t, nil
}

// Merge applies the yaml encoded networks to the table.
func (t *Table) Merge(data []byte) error {
	var file struct {
		Networks map[string]networkYAML `yaml:"networks"`
	}
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}

	names := make([]string, 0, len(file.Networks))
	for name := range file.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n, ok := t.Get(name)
		if !ok {
			n = &Network{Name: name}
		}
		if err := file.Networks[name].apply(n); err != nil {
			return fmt.Errorf("network %s: %w", name, err)
		}
		t.Set(*n)
	}
	return nil
}

func (y networkYAML) apply(n *Network) error {
	if y.ChainID != nil {
		n.ChainID = *y.ChainID
	}
	if y.URL != nil {
		n.URL = *y.URL
	}
	if y.Mnemonic != nil {
		n.Mnemonic = *y.Mnemonic
	}
	if y.Accounts != nil {
		n.Accounts = *y.Accounts
	}
	if y.EntranceFee != nil {
		fee, ok := new(big.Int).SetString(*y.EntranceFee, 10)
		if !ok || fee.Sign() < 0 {
			return fmt.Errorf("%w: entrance fee %q", ErrInvalidNetwork, *y.EntranceFee)
		}
		n.EntranceFee = fee
	}
	if y.GasLane != nil {
		if !isHex(*y.GasLane, common.HashLength) {
			return fmt.Errorf("%w: gas lane %q", ErrInvalidNetwork, *y.GasLane)
		}
		n.GasLane = common.HexToHash(*y.GasLane)
	}
	if y.SubscriptionID != nil {
		n.SubscriptionID = *y.SubscriptionID
	}
	if y.CallbackGasLimit != nil {
		n.CallbackGasLimit = *y.CallbackGasLimit
	}
	if y.Interval != nil {
		n.Interval = *y.Interval
	}
	if y.VRFCoordinator != nil {
		if !common.IsHexAddress(*y.VRFCoordinator) {
			return fmt.Errorf("%w: vrf coordinator %q", ErrInvalidNetwork, *y.VRFCoordinator)
		}
		n.VRFCoordinator = common.HexToAddress(*y.VRFCoordinator)
	}
	if y.BlockConfirmations != nil {
		n.BlockConfirmations = *y.BlockConfirmations
	}
	if y.Development != nil {
		n.Development = *y.Development
	}
	if n.EntranceFee == nil {
		n.EntranceFee = new(big.Int).Set(DefaultEntranceFee)
	}
	return nil
}

func isHex(s string, length int) bool {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != 2*length {
		return false
	}
	for _, c := range s {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
