// Copyright 2023 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/transaction"
	lru "github.com/hashicorp/golang-lru"
)

var _ transaction.Backend = (*cachedBackend)(nil)

const DefaultBlockNumberFetchInterval = time.Second * 5

type Options struct {
	// BlockNumberFetchInterval defaults to DefaultBlockNumberFetchInterval.
	BlockNumberFetchInterval time.Duration
	// ReceiptCacheSize is the number of receipts kept in memory. Zero
	// disables the cache. Receipts must not change once mined, so it is
	// left off on chains that can be reverted to a snapshot.
	ReceiptCacheSize int
}

type cachedBackend struct {
	transaction.Backend
	nowFn                    func() time.Time
	blockNumber              uint64
	blockNumberLastFetchTime time.Time
	blockNumberFetchInterval time.Duration

	lock sync.Mutex

	receipts *lru.Cache
}

// New wraps the backend so that the latest block number is fetched from the
// node at most once per interval and mined receipts are served from memory.
func New(backend transaction.Backend, o Options) (*cachedBackend, error) {
	if o.BlockNumberFetchInterval <= 0 {
		o.BlockNumberFetchInterval = DefaultBlockNumberFetchInterval
	}
	b := &cachedBackend{
		Backend:                  backend,
		nowFn:                    time.Now,
		blockNumberFetchInterval: o.BlockNumberFetchInterval,
	}
	if o.ReceiptCacheSize > 0 {
		receipts, err := lru.New(o.ReceiptCacheSize)
		if err != nil {
			return nil, err
		}
		b.receipts = receipts
	}
	return b, nil
}

func (b *cachedBackend) BlockNumber(ctx context.Context) (uint64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	now := b.nowFn()
	if b.blockNumberLastFetchTime.IsZero() || b.blockNumberLastFetchTime.Add(b.blockNumberFetchInterval).Before(now) {
		bno, err := b.Backend.BlockNumber(ctx)
		if err != nil {
			return bno, err
		}

		b.blockNumber = bno
		b.blockNumberLastFetchTime = now
	}

	return b.blockNumber, nil
}

func (b *cachedBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if b.receipts == nil {
		return b.Backend.TransactionReceipt(ctx, txHash)
	}
	if v, ok := b.receipts.Get(txHash); ok {
		return v.(*types.Receipt), nil
	}
	receipt, err := b.Backend.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	b.receipts.Add(txHash, receipt)
	return receipt, nil
}
