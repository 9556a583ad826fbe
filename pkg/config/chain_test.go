// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config_test

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/config"
	"github.com/google/go-cmp/cmp"
)

func TestGetNetwork(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name          string
		chainID       int64
		development   bool
		confirmations uint64
		coordinator   bool
	}{
		{name: config.Hardhat, chainID: 31337, development: true, confirmations: 1},
		{name: config.Localhost, chainID: 31337, development: true, confirmations: 1},
		{name: config.Ganache, chainID: 1337, confirmations: 1},
		{name: config.Goerli, chainID: 5, confirmations: 3, coordinator: true},
		{name: config.Sepolia, chainID: 11155111, confirmations: 6, coordinator: true},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			n, ok := config.GetNetwork(tc.name)
			if !ok {
				t.Fatal("network not found")
			}
			if n.ChainID != tc.chainID {
				t.Fatalf("got chain id %d, want %d", n.ChainID, tc.chainID)
			}
			if n.Development != tc.development {
				t.Fatalf("got development %v, want %v", n.Development, tc.development)
			}
			if config.IsDevelopment(tc.name) != tc.development {
				t.Fatalf("development chains disagree for %s", tc.name)
			}
			if n.Confirmations() != tc.confirmations {
				t.Fatalf("got confirmations %d, want %d", n.Confirmations(), tc.confirmations)
			}
			if got := n.VRFCoordinator != (common.Address{}); got != tc.coordinator {
				t.Fatalf("got coordinator configured %v, want %v", got, tc.coordinator)
			}
			if n.EntranceFee.Cmp(config.DefaultEntranceFee) != 0 {
				t.Fatalf("got entrance fee %d, want %d", n.EntranceFee, config.DefaultEntranceFee)
			}
			if n.CallbackGasLimit != 500000 || n.Interval != 30 {
				t.Fatalf("unexpected lottery parameters %+v", n)
			}
		})
	}

	if _, ok := config.GetNetwork("mainnet"); ok {
		t.Fatal("unexpected mainnet configuration")
	}
}

func TestGetNetworkReturnsCopy(t *testing.T) {
	t.Parallel()

	n, _ := config.GetNetwork(config.Hardhat)
	n.EntranceFee.SetInt64(1)

	again, _ := config.GetNetwork(config.Hardhat)
	if again.EntranceFee.Cmp(config.DefaultEntranceFee) != 0 {
		t.Fatal("built-in configuration was modified")
	}
}

func TestGetNetworkByChainID(t *testing.T) {
	t.Parallel()

	n, ok := config.GetNetworkByChainID(31337)
	if !ok {
		t.Fatal("network not found")
	}
	if n.Name != config.Hardhat {
		t.Fatalf("got network %s, want %s", n.Name, config.Hardhat)
	}
	if _, ok := config.GetNetworkByChainID(1); ok {
		t.Fatal("unexpected network for chain id 1")
	}
}

func TestLoadNetworks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "networks.yaml")
	data := `
networks:
  goerli:
    subscription-id: 42
    url: https://goerli.example
  private:
    chain-id: 99
    entrance-fee: "1000"
    vrf-coordinator: "0x000000000000000000000000000000000000c0de"
    gas-lane: "0x0000000000000000000000000000000000000000000000000000000000000001"
    block-confirmations: 2
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	table, err := config.LoadNetworks(path)
	if err != nil {
		t.Fatal(err)
	}

	goerli, ok := table.Get(config.Goerli)
	if !ok {
		t.Fatal("goerli not found")
	}
	if goerli.SubscriptionID != 42 || goerli.URL != "https://goerli.example" {
		t.Fatalf("overrides not applied: %+v", goerli)
	}
	if goerli.BlockConfirmations != 3 || goerli.ChainID != 5 {
		t.Fatalf("built-in values lost: %+v", goerli)
	}

	private, ok := table.ByChainID(99)
	if !ok {
		t.Fatal("private network not found")
	}
	want := &config.Network{
		Name:               "private",
		ChainID:            99,
		EntranceFee:        big.NewInt(1000),
		VRFCoordinator:     common.HexToAddress("0xc0de"),
		GasLane:            common.BigToHash(big.NewInt(1)),
		BlockConfirmations: 2,
	}
	if diff := cmp.Diff(want, private, cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })); diff != "" {
		t.Fatalf("network mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"dashboard", "ganache", "goerli", "hardhat", "localhost", "private", "sepolia"}, table.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNetworksInvalid(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		data string
	}{
		{name: "unknown field", data: "networks:\n  goerli:\n    colour: red\n"},
		{name: "entrance fee", data: "networks:\n  goerli:\n    entrance-fee: ten\n"},
		{name: "coordinator", data: "networks:\n  goerli:\n    vrf-coordinator: 0x12\n"},
		{name: "gas lane", data: "networks:\n  goerli:\n    gas-lane: 0x12\n"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := config.NewTable().Merge([]byte(tc.data))
			if !errors.Is(err, config.ErrInvalidNetwork) {
				t.Fatalf("got error %v, want %v", err, config.ErrInvalidNetwork)
			}
		})
	}

	if _, err := config.LoadNetworks(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
