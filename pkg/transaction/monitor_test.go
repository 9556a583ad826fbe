// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/transaction"
	"github.com/ethersphere/lottery/pkg/transaction/backendmock"
)

func TestMonitorWatchTransaction(t *testing.T) {
	t.Parallel()

	sender := common.HexToAddress("0xabcd")
	txHash := common.HexToHash("0xaaaa")
	nonce := uint64(3)
	pollingInterval := 10 * time.Millisecond
	cancellationDepth := uint64(5)

	t.Run("confirmed", func(t *testing.T) {
		t.Parallel()

		monitor := transaction.NewMonitor(log.Noop, backendmock.New(
			backendmock.WithBlockNumberFunc(func(context.Context) (uint64, error) {
				return 10, nil
			}),
			backendmock.WithNonceAtFunc(func(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
				if account != sender {
					t.Errorf("nonce for wrong account %x", account)
				}
				return nonce + 1, nil
			}),
			backendmock.WithTransactionReceiptFunc(func(ctx context.Context, h common.Hash) (*types.Receipt, error) {
				return &types.Receipt{TxHash: h, Status: types.ReceiptStatusSuccessful}, nil
			}),
		), sender, pollingInterval, cancellationDepth)
		defer monitor.Close()

		receiptC, errC, err := monitor.WatchTransaction(txHash, nonce)
		if err != nil {
			t.Fatal(err)
		}

		select {
		case receipt := <-receiptC:
			if receipt.TxHash != txHash {
				t.Fatalf("got receipt for %x, want %x", receipt.TxHash, txHash)
			}
		case err := <-errC:
			t.Fatal(err)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for receipt")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		monitor := transaction.NewMonitor(log.Noop, backendmock.New(
			backendmock.WithBlockNumberFunc(func(context.Context) (uint64, error) {
				return 10, nil
			}),
			backendmock.WithNonceAtFunc(func(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
				return nonce + 1, nil
			}),
			backendmock.WithTransactionReceiptFunc(func(ctx context.Context, h common.Hash) (*types.Receipt, error) {
				return nil, ethereum.NotFound
			}),
		), sender, pollingInterval, cancellationDepth)
		defer monitor.Close()

		receiptC, errC, err := monitor.WatchTransaction(txHash, nonce)
		if err != nil {
			t.Fatal(err)
		}

		select {
		case <-receiptC:
			t.Fatal("got receipt for cancelled transaction")
		case err := <-errC:
			if !errors.Is(err, transaction.ErrTransactionCancelled) {
				t.Fatalf("got error %v, want %v", err, transaction.ErrTransactionCancelled)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for cancellation")
		}
	})

	t.Run("young chain", func(t *testing.T) {
		t.Parallel()

		monitor := transaction.NewMonitor(log.Noop, backendmock.New(
			backendmock.WithBlockNumberFunc(func(context.Context) (uint64, error) {
				return 2, nil
			}),
			backendmock.WithNonceAtFunc(func(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
				if blockNumber.Cmp(big.NewInt(2)) > 0 {
					t.Errorf("nonce requested for future block %d", blockNumber)
				}
				return nonce + 1, nil
			}),
			backendmock.WithTransactionReceiptFunc(func(ctx context.Context, h common.Hash) (*types.Receipt, error) {
				return nil, ethereum.NotFound
			}),
		), sender, pollingInterval, cancellationDepth)

		_, errC, err := monitor.WatchTransaction(txHash, nonce)
		if err != nil {
			t.Fatal(err)
		}

		time.Sleep(5 * pollingInterval)

		if err := monitor.Close(); err != nil {
			t.Fatal(err)
		}
		if err := <-errC; !errors.Is(err, transaction.ErrMonitorClosed) {
			t.Fatalf("got error %v, want %v", err, transaction.ErrMonitorClosed)
		}
	})
}

func TestWaitForConfirmations(t *testing.T) {
	t.Parallel()

	var block uint64 = 5
	backend := backendmock.New(
		backendmock.WithBlockNumberFunc(func(context.Context) (uint64, error) {
			block++
			return block, nil
		}),
	)

	receipt := &types.Receipt{BlockNumber: big.NewInt(6)}
	err := transaction.WaitForConfirmations(context.Background(), backend, receipt, 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if block != 8 {
		t.Fatalf("returned at block %d, want 8", block)
	}
}

func TestIsSynced(t *testing.T) {
	t.Parallel()

	maxDelay := 10 * time.Second
	now := time.Now().UTC()
	ctx := context.Background()
	blockNumber := uint64(100)

	backendAt := func(blockTime time.Time) transaction.Backend {
		return backendmock.New(
			backendmock.WithBlockNumberFunc(func(c context.Context) (uint64, error) {
				return blockNumber, nil
			}),
			backendmock.WithHeaderbyNumberFunc(func(ctx context.Context, number *big.Int) (*types.Header, error) {
				if number.Uint64() != blockNumber {
					return nil, errors.New("called with wrong block number")
				}
				return &types.Header{
					Time: uint64(blockTime.Unix()),
				}, nil
			}),
		)
	}

	synced, err := transaction.IsSynced(ctx, backendAt(now), maxDelay)
	if err != nil {
		t.Fatal(err)
	}
	if !synced {
		t.Fatal("expected synced")
	}

	synced, err = transaction.IsSynced(ctx, backendAt(now.Add(-2*maxDelay)), maxDelay)
	if err != nil {
		t.Fatal(err)
	}
	if synced {
		t.Fatal("expected not synced")
	}
}
