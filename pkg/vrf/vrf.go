// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vrf is a client of the randomness coordinator. Fulfilment is only
// available on the coordinator mock deployed to development networks.
package vrf

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/contracts/vrfmock"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/sctx"
	"github.com/ethersphere/lottery/pkg/transaction"
)

const loggerName = "vrf"

var (
	coordinatorABI = transaction.ParseABIUnchecked(vrfmock.CoordinatorABI)

	RandomWordsRequestedEvent = coordinatorABI.Events["RandomWordsRequested"]
	RandomWordsFulfilledEvent = coordinatorABI.Events["RandomWordsFulfilled"]
	SubscriptionCreatedEvent  = coordinatorABI.Events["SubscriptionCreated"]
)

var (
	ErrNonexistentRequest  = errors.New("nonexistent request")
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrMustBeSubOwner      = errors.New("must be subscription owner")
	ErrTooManyConsumers    = errors.New("too many consumers")
	ErrInvalidConsumer     = errors.New("invalid consumer")
	ErrInsufficientBalance = errors.New("insufficient subscription balance")
	ErrInvalidRandomWords  = errors.New("invalid random words")
)

// Subscription is the coordinator view of a subscription.
type Subscription struct {
	Balance   *big.Int         `json:"balance"`
	ReqCount  uint64           `json:"reqCount"`
	Owner     common.Address   `json:"owner"`
	Consumers []common.Address `json:"consumers"`
}

// RandomWordsRequested is the event emitted for every randomness request.
type RandomWordsRequested struct {
	KeyHash                     [32]byte
	RequestId                   *big.Int
	PreSeed                     *big.Int
	SubId                       uint64
	MinimumRequestConfirmations uint16
	CallbackGasLimit            uint32
	NumWords                    uint32
	Sender                      common.Address
}

// RandomWordsFulfilled is the event emitted once a request was served.
type RandomWordsFulfilled struct {
	RequestId  *big.Int
	OutputSeed *big.Int
	Payment    *big.Int
	Success    bool
}

type Interface interface {
	Address() common.Address
	CreateSubscription(ctx context.Context) (uint64, error)
	FundSubscription(ctx context.Context, subID uint64, amount *big.Int) error
	AddConsumer(ctx context.Context, subID uint64, consumer common.Address) error
	RemoveConsumer(ctx context.Context, subID uint64, consumer common.Address) error
	GetSubscription(ctx context.Context, subID uint64) (*Subscription, error)
	ConsumerIsAdded(ctx context.Context, subID uint64, consumer common.Address) (bool, error)
	// FulfillRandomWords delivers the mock random words for the request.
	FulfillRandomWords(ctx context.Context, requestID *big.Int, consumer common.Address) (*RandomWordsFulfilled, error)
	// FulfillRandomWordsWithOverride delivers the given words for the request.
	FulfillRandomWordsWithOverride(ctx context.Context, requestID *big.Int, consumer common.Address, words []*big.Int) (*RandomWordsFulfilled, error)
	// RandomWordsRequested returns the requests emitted in the block range.
	// A nil to block means the latest block.
	RandomWordsRequested(ctx context.Context, from, to *big.Int) ([]RandomWordsRequested, error)
}

type Service struct {
	logger    log.Logger
	filterer  ethereum.LogFilterer
	txService transaction.Service
	address   common.Address
}

func New(logger log.Logger, filterer ethereum.LogFilterer, txService transaction.Service, address common.Address) *Service {
	return &Service{
		logger:    logger.WithName(loggerName).WithValues("coordinator", address).Register(),
		filterer:  filterer,
		txService: txService,
		address:   address,
	}
}

func (s *Service) Address() common.Address {
	return s.address
}

func (s *Service) CreateSubscription(ctx context.Context) (uint64, error) {
	receipt, err := s.send(ctx, "create subscription", "createSubscription")
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}
	for _, l := range transaction.EventLogs(receipt, s.address, SubscriptionCreatedEvent) {
		if len(l.Topics) < 2 {
			continue
		}
		subID := new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64()
		s.logger.Debug("subscription created", "subscription_id", subID)
		return subID, nil
	}
	return 0, fmt.Errorf("create subscription: %w", transaction.ErrEventNotFound)
}

func (s *Service) FundSubscription(ctx context.Context, subID uint64, amount *big.Int) error {
	if _, err := s.send(ctx, "fund subscription", "fundSubscription", subID, amount); err != nil {
		return fmt.Errorf("fund subscription %d: %w", subID, err)
	}
	s.logger.Debug("subscription funded", "subscription_id", subID, "amount", amount)
	return nil
}

func (s *Service) AddConsumer(ctx context.Context, subID uint64, consumer common.Address) error {
	if _, err := s.send(ctx, "add consumer", "addConsumer", subID, consumer); err != nil {
		return fmt.Errorf("add consumer %s: %w", consumer, err)
	}
	s.logger.Debug("consumer added", "subscription_id", subID, "consumer", consumer)
	return nil
}

func (s *Service) RemoveConsumer(ctx context.Context, subID uint64, consumer common.Address) error {
	if _, err := s.send(ctx, "remove consumer", "removeConsumer", subID, consumer); err != nil {
		return fmt.Errorf("remove consumer %s: %w", consumer, err)
	}
	return nil
}

func (s *Service) GetSubscription(ctx context.Context, subID uint64) (*Subscription, error) {
	results, err := s.call(ctx, "getSubscription", subID)
	if err != nil {
		return nil, fmt.Errorf("get subscription %d: %w", subID, err)
	}
	return &Subscription{
		Balance:   results[0].(*big.Int),
		ReqCount:  results[1].(uint64),
		Owner:     results[2].(common.Address),
		Consumers: results[3].([]common.Address),
	}, nil
}

func (s *Service) ConsumerIsAdded(ctx context.Context, subID uint64, consumer common.Address) (bool, error) {
	results, err := s.call(ctx, "consumerIsAdded", subID, consumer)
	if err != nil {
		return false, fmt.Errorf("consumer is added: %w", err)
	}
	return results[0].(bool), nil
}

func (s *Service) FulfillRandomWords(ctx context.Context, requestID *big.Int, consumer common.Address) (*RandomWordsFulfilled, error) {
	receipt, err := s.send(ctx, "fulfill random words", "fulfillRandomWords", requestID, consumer)
	if err != nil {
		return nil, fmt.Errorf("fulfill request %d: %w", requestID, err)
	}
	return s.fulfilled(receipt)
}

func (s *Service) FulfillRandomWordsWithOverride(ctx context.Context, requestID *big.Int, consumer common.Address, words []*big.Int) (*RandomWordsFulfilled, error) {
	receipt, err := s.send(ctx, "fulfill random words", "fulfillRandomWordsWithOverride", requestID, consumer, words)
	if err != nil {
		return nil, fmt.Errorf("fulfill request %d: %w", requestID, err)
	}
	return s.fulfilled(receipt)
}

func (s *Service) fulfilled(receipt *types.Receipt) (*RandomWordsFulfilled, error) {
	var e RandomWordsFulfilled
	if err := transaction.FindSingleEvent(&coordinatorABI, receipt, s.address, RandomWordsFulfilledEvent, &e); err != nil {
		return nil, err
	}
	s.logger.Debug("random words fulfilled", "request_id", e.RequestId, "payment", e.Payment, "success", e.Success)
	return &e, nil
}

func (s *Service) RandomWordsRequested(ctx context.Context, from, to *big.Int) ([]RandomWordsRequested, error) {
	logs, err := s.filterer.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []common.Address{s.address},
		Topics:    [][]common.Hash{{RandomWordsRequestedEvent.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("filter random words requests: %w", err)
	}
	requests := make([]RandomWordsRequested, 0, len(logs))
	for _, l := range logs {
		r, err := ParseRandomWordsRequested(l)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, nil
}

// RandomWordsRequestedQuery is the filter selecting the randomness requests
// of the coordinator.
func RandomWordsRequestedQuery(coordinator common.Address) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{coordinator},
		Topics:    [][]common.Hash{{RandomWordsRequestedEvent.ID}},
	}
}

// ParseRandomWordsRequested decodes a RandomWordsRequested log.
func ParseRandomWordsRequested(l types.Log) (*RandomWordsRequested, error) {
	var r RandomWordsRequested
	if err := transaction.ParseEvent(&coordinatorABI, RandomWordsRequestedEvent.Name, &r, l); err != nil {
		return nil, fmt.Errorf("parse random words request: %w", err)
	}
	return &r, nil
}

func (s *Service) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	callData, err := coordinatorABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	result, err := s.txService.Call(ctx, &transaction.TxRequest{
		To:   &s.address,
		Data: callData,
	})
	if err != nil {
		return nil, decodeError(err)
	}
	return coordinatorABI.Unpack(method, result)
}

func (s *Service) send(ctx context.Context, description, method string, args ...interface{}) (*types.Receipt, error) {
	callData, err := coordinatorABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	txHash, err := s.txService.Send(ctx, &transaction.TxRequest{
		To:          &s.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Value:       big.NewInt(0),
		Description: description,
	})
	if err != nil {
		return nil, decodeError(err)
	}
	receipt, err := s.txService.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, transaction.ErrTransactionReverted
	}
	return receipt, nil
}

type revertError struct {
	sentinel error
	cause    error
}

func (e *revertError) Error() string {
	return fmt.Sprintf("%v: %v", e.sentinel, e.cause)
}

func (e *revertError) Is(target error) bool {
	return target == e.sentinel
}

func (e *revertError) Unwrap() error {
	return e.cause
}

var sentinels = []struct {
	signature string
	err       error
}{
	{vrfmock.ErrInvalidSubscription, ErrInvalidSubscription},
	{vrfmock.ErrMustBeSubOwner, ErrMustBeSubOwner},
	{vrfmock.ErrTooManyConsumers, ErrTooManyConsumers},
	{vrfmock.ErrInvalidConsumer, ErrInvalidConsumer},
	{vrfmock.ErrInsufficientBalance, ErrInsufficientBalance},
	{vrfmock.ErrInvalidRandomWords, ErrInvalidRandomWords},
}

func decodeError(err error) error {
	data, ok := transaction.RevertData(err)
	if !ok {
		return err
	}
	if reason, ok := contracts.RevertReason(data); ok && reason == vrfmock.NonexistentRequest {
		return &revertError{sentinel: ErrNonexistentRequest, cause: err}
	}
	for _, s := range sentinels {
		if _, ok := contracts.MatchError(data, s.signature); ok {
			return &revertError{sentinel: s.err, cause: err}
		}
	}
	return err
}
