// Copyright 2023 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/transaction"
	"github.com/ethersphere/lottery/pkg/transaction/backendmock"
	"github.com/ethersphere/lottery/pkg/transaction/cache"
)

func TestBlockNumberCache(t *testing.T) {
	t.Parallel()

	var calls uint64
	backend, err := cache.New(backendmock.New(
		backendmock.WithBlockNumberFunc(func(context.Context) (uint64, error) {
			calls++
			return calls, nil
		}),
	), cache.Options{BlockNumberFetchInterval: time.Minute})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Unix(1000, 0)
	backend.SetNowFn(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		n, err := backend.BlockNumber(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Fatalf("got block number %d, want 1", n)
		}
	}

	now = now.Add(time.Minute + time.Second)

	n, err := backend.BlockNumber(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got block number %d, want 2", n)
	}
}

func TestReceiptCache(t *testing.T) {
	t.Parallel()

	minedHash := common.HexToHash("0x1")
	pendingHash := common.HexToHash("0x2")

	newBackend := func(t *testing.T, size int) (transaction.Backend, map[common.Hash]int) {
		t.Helper()

		calls := make(map[common.Hash]int)
		backend, err := cache.New(backendmock.New(
			backendmock.WithTransactionReceiptFunc(func(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
				calls[txHash]++
				if txHash == pendingHash {
					return nil, ethereum.NotFound
				}
				return &types.Receipt{TxHash: txHash, Status: types.ReceiptStatusSuccessful}, nil
			}),
		), cache.Options{ReceiptCacheSize: size})
		if err != nil {
			t.Fatal(err)
		}
		return backend, calls
	}

	t.Run("cached", func(t *testing.T) {
		t.Parallel()

		backend, calls := newBackend(t, 8)
		for i := 0; i < 3; i++ {
			receipt, err := backend.TransactionReceipt(context.Background(), minedHash)
			if err != nil {
				t.Fatal(err)
			}
			if receipt.TxHash != minedHash {
				t.Fatalf("got receipt for %s, want %s", receipt.TxHash, minedHash)
			}
			if _, err := backend.TransactionReceipt(context.Background(), pendingHash); !errors.Is(err, ethereum.NotFound) {
				t.Fatalf("got error %v, want %v", err, ethereum.NotFound)
			}
		}
		if calls[minedHash] != 1 {
			t.Errorf("got %d backend calls for a mined receipt, want 1", calls[minedHash])
		}
		if calls[pendingHash] != 3 {
			t.Errorf("got %d backend calls for a pending receipt, want 3", calls[pendingHash])
		}
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		backend, calls := newBackend(t, 0)
		for i := 0; i < 3; i++ {
			if _, err := backend.TransactionReceipt(context.Background(), minedHash); err != nil {
				t.Fatal(err)
			}
		}
		if calls[minedHash] != 3 {
			t.Errorf("got %d backend calls, want 3", calls[minedHash])
		}
	})
}
