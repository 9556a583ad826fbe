// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wrapped_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/transaction/backendmock"
	"github.com/ethersphere/lottery/pkg/transaction/wrapped"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBackendMetrics(t *testing.T) {
	t.Parallel()

	backend := wrapped.NewBackend(backendmock.New(
		backendmock.WithChainID(big.NewInt(31337)),
		backendmock.WithBlockNumberFunc(func(context.Context) (uint64, error) {
			return 7, nil
		}),
		backendmock.WithTransactionReceiptFunc(func(context.Context, common.Hash) (*types.Receipt, error) {
			return nil, ethereum.NotFound
		}),
		backendmock.WithPendingNonceAtFunc(func(context.Context, common.Address) (uint64, error) {
			return 0, errors.New("boom")
		}),
	))

	n, err := backend.BlockNumber(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Fatalf("got block number %d, want 7", n)
	}

	id, err := backend.ChainID(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id.Int64() != 31337 {
		t.Fatalf("got chain id %d, want 31337", id)
	}

	if _, err := backend.TransactionReceipt(context.Background(), common.Hash{}); !errors.Is(err, ethereum.NotFound) {
		t.Fatalf("got error %v, want %v", err, ethereum.NotFound)
	}
	if _, err := backend.PendingNonceAt(context.Background(), common.Address{}); err == nil {
		t.Fatal("expected error")
	}

	collectors := backend.Metrics()
	if len(collectors) != 4 {
		t.Fatalf("got %d collectors, want 4", len(collectors))
	}
	if got := testutil.ToFloat64(collectors[0]); got != 4 {
		t.Fatalf("got %v total calls, want 4", got)
	}
	if got := testutil.ToFloat64(collectors[1]); got != 1 {
		t.Fatalf("got %v total errors, want 1", got)
	}
}
