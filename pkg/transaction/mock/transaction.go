// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mock provides a transaction.Service whose behaviour is set per
// test, including helpers that check ABI encoded contract calls.
package mock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/transaction"
)

var errNotImplemented = errors.New("not implemented")

type SendFunc func(ctx context.Context, request *transaction.TxRequest) (common.Hash, error)
type CallFunc func(ctx context.Context, request *transaction.TxRequest) ([]byte, error)
type ReceiptFunc func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

type service struct {
	sender  common.Address
	send    SendFunc
	call    CallFunc
	receipt ReceiptFunc
}

// Option configures the mock.
type Option func(*service)

// New returns a mock whose unset operations fail.
func New(opts ...Option) transaction.Service {
	s := new(service)
	for _, o := range opts {
		o(s)
	}
	return s
}

func WithSender(sender common.Address) Option {
	return func(s *service) { s.sender = sender }
}

func WithSendFunc(f SendFunc) Option {
	return func(s *service) { s.send = f }
}

func WithCallFunc(f CallFunc) Option {
	return func(s *service) { s.call = f }
}

func WithWaitForReceiptFunc(f ReceiptFunc) Option {
	return func(s *service) { s.receipt = f }
}

func (s *service) Sender() common.Address { return s.sender }

func (s *service) Send(ctx context.Context, request *transaction.TxRequest) (common.Hash, error) {
	if s.send == nil {
		return common.Hash{}, errNotImplemented
	}
	return s.send(ctx, request)
}

func (s *service) Call(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
	if s.call == nil {
		return nil, errNotImplemented
	}
	return s.call(ctx, request)
}

func (s *service) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if s.receipt == nil {
		return nil, errNotImplemented
	}
	return s.receipt(ctx, txHash)
}

func (s *service) WatchSentTransaction(common.Hash) (<-chan types.Receipt, <-chan error, error) {
	return nil, nil, errNotImplemented
}

func (s *service) PendingTransactions() ([]common.Hash, error) { return nil, nil }

func (s *service) ResendTransaction(context.Context, common.Hash) error { return errNotImplemented }

func (s *service) StoredTransaction(common.Hash) (*transaction.StoredTransaction, error) {
	return nil, transaction.ErrUnknownTransaction
}

func (s *service) Close() error { return nil }

// Call is one expected contract read and its encoded result.
type Call struct {
	abi    *abi.ABI
	to     common.Address
	method string
	params []interface{}
	result []byte
}

func ABICall(a *abi.ABI, to common.Address, result []byte, method string, params ...interface{}) Call {
	return Call{abi: a, to: to, method: method, params: params, result: result}
}

// match checks that the request targets the call's contract with its
// packed arguments.
func (c Call) match(request *transaction.TxRequest) error {
	want, err := c.abi.Pack(c.method, c.params...)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, request.Data) {
		return fmt.Errorf("%s: wrong data. wanted %x, got %x", c.method, want, request.Data)
	}
	if request.To == nil {
		return fmt.Errorf("%s: no recipient", c.method)
	}
	if *request.To != c.to {
		return fmt.Errorf("%s: wrong recipient. wanted %s, got %s", c.method, c.to, request.To)
	}
	return nil
}

// WithABICallSequence expects the calls in order, one request each.
func WithABICallSequence(calls ...Call) Option {
	return WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
		if len(calls) == 0 {
			return nil, errors.New("unexpected call")
		}
		next := calls[0]
		if err := next.match(request); err != nil {
			return nil, err
		}
		calls = calls[1:]
		return next.result, nil
	})
}

func WithABICall(a *abi.ABI, to common.Address, result []byte, method string, params ...interface{}) Option {
	return WithABICallSequence(ABICall(a, to, result, method, params...))
}

// WithABISend expects every sent transaction to carry the method call and
// value, and answers with txHash.
func WithABISend(a *abi.ABI, txHash common.Hash, to common.Address, value *big.Int, method string, params ...interface{}) Option {
	expected := ABICall(a, to, nil, method, params...)
	return WithSendFunc(func(ctx context.Context, request *transaction.TxRequest) (common.Hash, error) {
		if err := expected.match(request); err != nil {
			return common.Hash{}, err
		}
		if request.Value == nil || request.Value.Cmp(value) != 0 {
			return common.Hash{}, fmt.Errorf("%s: wrong value. wanted %d, got %d", method, value, request.Value)
		}
		return txHash, nil
	})
}
