// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package backendmock provides a chain backend answering only the calls a
// test configures.
package backendmock

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/transaction"
)

// ErrNotImplemented is returned by every call the test did not configure.
var ErrNotImplemented = errors.New("backend call not implemented")

type backend struct {
	chainID            *big.Int
	blockNumber        func(ctx context.Context) (uint64, error)
	headerByNumber     func(ctx context.Context, number *big.Int) (*types.Header, error)
	callContract       func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	estimateGas        func(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	suggestGasPrice    func(ctx context.Context) (*big.Int, error)
	nonceAt            func(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	pendingNonceAt     func(ctx context.Context, account common.Address) (uint64, error)
	sendTransaction    func(ctx context.Context, tx *types.Transaction) error
	transactionReceipt func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Option configures the mock backend.
type Option func(*backend)

// New returns a backend configured by opts.
func New(opts ...Option) transaction.Backend {
	b := new(backend)
	for _, o := range opts {
		o(b)
	}
	return b
}

// WithChainID makes ChainID answer id.
func WithChainID(id *big.Int) Option {
	return func(b *backend) { b.chainID = id }
}

func WithBlockNumberFunc(f func(context.Context) (uint64, error)) Option {
	return func(b *backend) { b.blockNumber = f }
}

func WithHeaderbyNumberFunc(f func(ctx context.Context, number *big.Int) (*types.Header, error)) Option {
	return func(b *backend) { b.headerByNumber = f }
}

func WithCallContractFunc(f func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)) Option {
	return func(b *backend) { b.callContract = f }
}

func WithEstimateGasFunc(f func(ctx context.Context, call ethereum.CallMsg) (uint64, error)) Option {
	return func(b *backend) { b.estimateGas = f }
}

func WithSuggestGasPriceFunc(f func(ctx context.Context) (*big.Int, error)) Option {
	return func(b *backend) { b.suggestGasPrice = f }
}

func WithNonceAtFunc(f func(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)) Option {
	return func(b *backend) { b.nonceAt = f }
}

func WithPendingNonceAtFunc(f func(ctx context.Context, account common.Address) (uint64, error)) Option {
	return func(b *backend) { b.pendingNonceAt = f }
}

func WithSendTransactionFunc(f func(ctx context.Context, tx *types.Transaction) error) Option {
	return func(b *backend) { b.sendTransaction = f }
}

func WithTransactionReceiptFunc(f func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)) Option {
	return func(b *backend) { b.transactionReceipt = f }
}

func (b *backend) ChainID(context.Context) (*big.Int, error) {
	if b.chainID == nil {
		return nil, ErrNotImplemented
	}
	return new(big.Int).Set(b.chainID), nil
}

func (b *backend) BlockNumber(ctx context.Context) (uint64, error) {
	if b.blockNumber == nil {
		return 0, ErrNotImplemented
	}
	return b.blockNumber(ctx)
}

func (b *backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if b.headerByNumber == nil {
		return nil, ErrNotImplemented
	}
	return b.headerByNumber(ctx, number)
}

func (b *backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if b.callContract == nil {
		return nil, ErrNotImplemented
	}
	return b.callContract(ctx, call, blockNumber)
}

func (b *backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if b.estimateGas == nil {
		return 0, ErrNotImplemented
	}
	return b.estimateGas(ctx, call)
}

func (b *backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if b.suggestGasPrice == nil {
		return nil, ErrNotImplemented
	}
	return b.suggestGasPrice(ctx)
}

func (b *backend) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	if b.nonceAt == nil {
		return 0, ErrNotImplemented
	}
	return b.nonceAt(ctx, account, blockNumber)
}

func (b *backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if b.pendingNonceAt == nil {
		return 0, ErrNotImplemented
	}
	return b.pendingNonceAt(ctx, account)
}

func (b *backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if b.sendTransaction == nil {
		return ErrNotImplemented
	}
	return b.sendTransaction(ctx, tx)
}

func (b *backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if b.transactionReceipt == nil {
		return nil, ErrNotImplemented
	}
	return b.transactionReceipt(ctx, txHash)
}

func (*backend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, ErrNotImplemented
}

func (*backend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return nil, ErrNotImplemented
}

func (*backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return nil, ErrNotImplemented
}

func (*backend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, ErrNotImplemented
}

func (*backend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, ErrNotImplemented
}

func (*backend) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	return nil, false, ErrNotImplemented
}

func (*backend) BlockByNumber(context.Context, *big.Int) (*types.Block, error) {
	return nil, ErrNotImplemented
}

func (*backend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return nil, ErrNotImplemented
}
