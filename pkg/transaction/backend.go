// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the part of an ethereum client the lottery tooling uses.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	BalanceAt(ctx context.Context, address common.Address, block *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// syncPollInterval is how often WaitSynced checks the head block.
const syncPollInterval = 5 * time.Second

// IsSynced reports whether the head block of the backend is at most
// maxDelay older than the wall clock.
func IsSynced(ctx context.Context, backend Backend, maxDelay time.Duration) (bool, error) {
	number, err := backend.BlockNumber(ctx)
	if err != nil {
		return false, err
	}
	header, err := backend.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return false, err
	}
	age := time.Since(time.Unix(int64(header.Time), 0))
	return age <= maxDelay, nil
}

// WaitSynced blocks until IsSynced holds.
func WaitSynced(ctx context.Context, backend Backend, maxDelay time.Duration) error {
	return poll(ctx, syncPollInterval, func() (bool, error) {
		return IsSynced(ctx, backend, maxDelay)
	})
}

// WaitForConfirmations blocks until the block containing the receipt has the
// requested number of confirmations, the block itself counting as the first.
func WaitForConfirmations(ctx context.Context, backend Backend, receipt *types.Receipt, confirmations uint64, pollingInterval time.Duration) error {
	if confirmations <= 1 || receipt.BlockNumber == nil {
		return nil
	}
	target := receipt.BlockNumber.Uint64() + confirmations - 1
	return poll(ctx, pollingInterval, func() (bool, error) {
		number, err := backend.BlockNumber(ctx)
		return number >= target, err
	})
}

// poll runs done until it reports true, fails, or the context ends.
func poll(ctx context.Context, interval time.Duration, done func() (bool, error)) error {
	for {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// ParseABIUnchecked parses a json abi and panics on failure. Only use it
// with constants known to be valid.
func ParseABIUnchecked(json string) abi.ABI {
	cabi, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		panic(fmt.Sprintf("error creating ABI for contract: %v", err))
	}
	return cabi
}
