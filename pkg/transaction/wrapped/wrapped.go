// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wrapped provides a transaction.Backend that records prometheus
// metrics for every call made to the underlying node.
package wrapped

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/transaction"
)

var (
	_ transaction.Backend = (*wrappedBackend)(nil)
)

type wrappedBackend struct {
	backend transaction.Backend
	metrics metrics
}

func NewBackend(backend transaction.Backend) *wrappedBackend {
	return &wrappedBackend{
		backend: backend,
		metrics: newMetrics(),
	}
}

// observe records one call of the named method. Not found errors are part of
// normal operation and are not counted as errors.
func (b *wrappedBackend) observe(method string, start time.Time, err error) {
	b.metrics.TotalRPCCalls.Inc()
	b.metrics.Calls.WithLabelValues(method).Inc()
	b.metrics.CallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		b.metrics.TotalRPCErrors.Inc()
	}
}

func (b *wrappedBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) (code []byte, err error) {
	defer func(start time.Time) { b.observe("eth_getCode", start, err) }(time.Now())
	return b.backend.CodeAt(ctx, contract, blockNumber)
}

func (b *wrappedBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) (result []byte, err error) {
	defer func(start time.Time) { b.observe("eth_call", start, err) }(time.Now())
	return b.backend.CallContract(ctx, call, blockNumber)
}

func (b *wrappedBackend) HeaderByNumber(ctx context.Context, number *big.Int) (header *types.Header, err error) {
	defer func(start time.Time) { b.observe("eth_getBlockByNumber", start, err) }(time.Now())
	return b.backend.HeaderByNumber(ctx, number)
}

func (b *wrappedBackend) PendingCodeAt(ctx context.Context, account common.Address) (code []byte, err error) {
	defer func(start time.Time) { b.observe("eth_getCode", start, err) }(time.Now())
	return b.backend.PendingCodeAt(ctx, account)
}

func (b *wrappedBackend) PendingNonceAt(ctx context.Context, account common.Address) (nonce uint64, err error) {
	defer func(start time.Time) { b.observe("eth_getTransactionCount", start, err) }(time.Now())
	return b.backend.PendingNonceAt(ctx, account)
}

func (b *wrappedBackend) SuggestGasPrice(ctx context.Context) (price *big.Int, err error) {
	defer func(start time.Time) { b.observe("eth_gasPrice", start, err) }(time.Now())
	return b.backend.SuggestGasPrice(ctx)
}

func (b *wrappedBackend) SuggestGasTipCap(ctx context.Context) (tip *big.Int, err error) {
	defer func(start time.Time) { b.observe("eth_maxPriorityFeePerGas", start, err) }(time.Now())
	return b.backend.SuggestGasTipCap(ctx)
}

func (b *wrappedBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (gas uint64, err error) {
	defer func(start time.Time) { b.observe("eth_estimateGas", start, err) }(time.Now())
	return b.backend.EstimateGas(ctx, call)
}

func (b *wrappedBackend) SendTransaction(ctx context.Context, tx *types.Transaction) (err error) {
	defer func(start time.Time) { b.observe("eth_sendRawTransaction", start, err) }(time.Now())
	return b.backend.SendTransaction(ctx, tx)
}

func (b *wrappedBackend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) (logs []types.Log, err error) {
	defer func(start time.Time) { b.observe("eth_getLogs", start, err) }(time.Now())
	return b.backend.FilterLogs(ctx, query)
}

func (b *wrappedBackend) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (sub ethereum.Subscription, err error) {
	defer func(start time.Time) { b.observe("eth_subscribe", start, err) }(time.Now())
	return b.backend.SubscribeFilterLogs(ctx, query, ch)
}

func (b *wrappedBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (receipt *types.Receipt, err error) {
	defer func(start time.Time) { b.observe("eth_getTransactionReceipt", start, err) }(time.Now())
	return b.backend.TransactionReceipt(ctx, txHash)
}

func (b *wrappedBackend) TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error) {
	defer func(start time.Time) { b.observe("eth_getTransactionByHash", start, err) }(time.Now())
	return b.backend.TransactionByHash(ctx, hash)
}

func (b *wrappedBackend) BlockNumber(ctx context.Context) (number uint64, err error) {
	defer func(start time.Time) { b.observe("eth_blockNumber", start, err) }(time.Now())
	return b.backend.BlockNumber(ctx)
}

func (b *wrappedBackend) BlockByNumber(ctx context.Context, number *big.Int) (block *types.Block, err error) {
	defer func(start time.Time) { b.observe("eth_getBlockByNumber", start, err) }(time.Now())
	return b.backend.BlockByNumber(ctx, number)
}

func (b *wrappedBackend) BalanceAt(ctx context.Context, address common.Address, block *big.Int) (balance *big.Int, err error) {
	defer func(start time.Time) { b.observe("eth_getBalance", start, err) }(time.Now())
	return b.backend.BalanceAt(ctx, address, block)
}

func (b *wrappedBackend) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (nonce uint64, err error) {
	defer func(start time.Time) { b.observe("eth_getTransactionCount", start, err) }(time.Now())
	return b.backend.NonceAt(ctx, account, blockNumber)
}

func (b *wrappedBackend) ChainID(ctx context.Context) (chainID *big.Int, err error) {
	defer func(start time.Time) { b.observe("eth_chainId", start, err) }(time.Now())
	return b.backend.ChainID(ctx)
}
