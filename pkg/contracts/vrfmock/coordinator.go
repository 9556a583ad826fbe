// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vrfmock implements the randomness coordinator mock deployed on
// development networks.
package vrfmock

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/transaction"
)

// Name is the artifact name of the coordinator mock.
const Name = "VRFCoordinatorV2Mock"

// MaxConsumers is the maximum number of consumers per subscription.
const MaxConsumers = 100

// NonexistentRequest is the revert reason for fulfilling an unknown request.
const NonexistentRequest = "nonexistent request"

// Custom error signatures the mock reverts with.
const (
	ErrInvalidSubscription = "InvalidSubscription()"
	ErrMustBeSubOwner      = "MustBeSubOwner(address)"
	ErrTooManyConsumers    = "TooManyConsumers()"
	ErrInvalidConsumer     = "InvalidConsumer(uint64,address)"
	ErrInsufficientBalance = "InsufficientBalance()"
	ErrInvalidRandomWords  = "InvalidRandomWords()"
)

var (
	coordinatorABI = transaction.ParseABIUnchecked(CoordinatorABI)
	consumer       = transaction.ParseABIUnchecked(consumerABI)
)

// Native is the coordinator mock description to register with the chain.
var Native = contracts.NewNative(Name, CoordinatorABI, newCoordinator)

type subscription struct {
	owner     common.Address
	balance   *big.Int
	reqCount  uint64
	consumers []common.Address
}

type request struct {
	subID            uint64
	callbackGasLimit uint32
	numWords         uint32
}

type coordinator struct {
	baseFee      *big.Int
	gasPriceLink *big.Int

	currentSubID  uint64
	nextRequestID *big.Int
	nextPreSeed   *big.Int
	subscriptions map[uint64]*subscription
	requests      map[string]request
}

func newCoordinator(_ contracts.Env, args []interface{}) (contracts.Contract, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("coordinator constructor: got %d arguments, want 2", len(args))
	}
	return &coordinator{
		baseFee:       new(big.Int).Set(args[0].(*big.Int)),
		gasPriceLink:  new(big.Int).Set(args[1].(*big.Int)),
		nextRequestID: big.NewInt(1),
		nextPreSeed:   big.NewInt(100),
		subscriptions: make(map[uint64]*subscription),
		requests:      make(map[string]request),
	}, nil
}

func (c *coordinator) Copy() contracts.Contract {
	cp := &coordinator{
		baseFee:       new(big.Int).Set(c.baseFee),
		gasPriceLink:  new(big.Int).Set(c.gasPriceLink),
		currentSubID:  c.currentSubID,
		nextRequestID: new(big.Int).Set(c.nextRequestID),
		nextPreSeed:   new(big.Int).Set(c.nextPreSeed),
		subscriptions: make(map[uint64]*subscription, len(c.subscriptions)),
		requests:      make(map[string]request, len(c.requests)),
	}
	for id, s := range c.subscriptions {
		cp.subscriptions[id] = &subscription{
			owner:     s.owner,
			balance:   new(big.Int).Set(s.balance),
			reqCount:  s.reqCount,
			consumers: append([]common.Address(nil), s.consumers...),
		}
	}
	for id, r := range c.requests {
		cp.requests[id] = r
	}
	return cp
}

func (c *coordinator) Call(env contracts.Env, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "BASE_FEE":
		return []interface{}{new(big.Int).Set(c.baseFee)}, nil
	case "GAS_PRICE_LINK":
		return []interface{}{new(big.Int).Set(c.gasPriceLink)}, nil
	case "createSubscription":
		return c.createSubscription(env)
	case "fundSubscription":
		return nil, c.fundSubscription(env, args[0].(uint64), args[1].(*big.Int))
	case "addConsumer":
		return nil, c.addConsumer(env, args[0].(uint64), args[1].(common.Address))
	case "removeConsumer":
		return nil, c.removeConsumer(env, args[0].(uint64), args[1].(common.Address))
	case "cancelSubscription":
		return nil, c.cancelSubscription(env, args[0].(uint64), args[1].(common.Address))
	case "getSubscription":
		s, ok := c.subscriptions[args[0].(uint64)]
		if !ok {
			return nil, contracts.CustomError(ErrInvalidSubscription)
		}
		return []interface{}{new(big.Int).Set(s.balance), s.reqCount, s.owner, append([]common.Address{}, s.consumers...)}, nil
	case "consumerIsAdded":
		return []interface{}{c.consumerIsAdded(args[0].(uint64), args[1].(common.Address))}, nil
	case "requestRandomWords":
		return c.requestRandomWords(env, args[0].([32]byte), args[1].(uint64), args[2].(uint16), args[3].(uint32), args[4].(uint32))
	case "fulfillRandomWords":
		return nil, c.fulfillRandomWords(env, args[0].(*big.Int), args[1].(common.Address), nil)
	case "fulfillRandomWordsWithOverride":
		return nil, c.fulfillRandomWords(env, args[0].(*big.Int), args[1].(common.Address), args[2].([]*big.Int))
	}
	return nil, &contracts.Revert{}
}

func (c *coordinator) emit(env contracts.Env, name string, values ...interface{}) error {
	return contracts.EmitEvent(env, &coordinatorABI, name, values...)
}

func (c *coordinator) createSubscription(env contracts.Env) ([]interface{}, error) {
	c.currentSubID++
	c.subscriptions[c.currentSubID] = &subscription{
		owner:   env.Caller(),
		balance: new(big.Int),
	}
	if err := c.emit(env, "SubscriptionCreated", c.currentSubID, env.Caller()); err != nil {
		return nil, err
	}
	return []interface{}{c.currentSubID}, nil
}

func (c *coordinator) fundSubscription(env contracts.Env, subID uint64, amount *big.Int) error {
	s, ok := c.subscriptions[subID]
	if !ok {
		return contracts.CustomError(ErrInvalidSubscription)
	}
	oldBalance := new(big.Int).Set(s.balance)
	s.balance.Add(s.balance, amount)
	return c.emit(env, "SubscriptionFunded", subID, oldBalance, new(big.Int).Set(s.balance))
}

// ownedSubscription returns the subscription if the caller owns it.
func (c *coordinator) ownedSubscription(env contracts.Env, subID uint64) (*subscription, error) {
	s, ok := c.subscriptions[subID]
	if !ok {
		return nil, contracts.CustomError(ErrInvalidSubscription)
	}
	if env.Caller() != s.owner {
		return nil, contracts.CustomError(ErrMustBeSubOwner, s.owner)
	}
	return s, nil
}

func (c *coordinator) addConsumer(env contracts.Env, subID uint64, consumer common.Address) error {
	s, err := c.ownedSubscription(env, subID)
	if err != nil {
		return err
	}
	if c.consumerIsAdded(subID, consumer) {
		return nil
	}
	if len(s.consumers) >= MaxConsumers {
		return contracts.CustomError(ErrTooManyConsumers)
	}
	s.consumers = append(s.consumers, consumer)
	return c.emit(env, "ConsumerAdded", subID, consumer)
}

func (c *coordinator) removeConsumer(env contracts.Env, subID uint64, consumer common.Address) error {
	s, err := c.ownedSubscription(env, subID)
	if err != nil {
		return err
	}
	for i, a := range s.consumers {
		if a == consumer {
			s.consumers = append(s.consumers[:i], s.consumers[i+1:]...)
			return c.emit(env, "ConsumerRemoved", subID, consumer)
		}
	}
	return contracts.CustomError(ErrInvalidConsumer, subID, consumer)
}

func (c *coordinator) cancelSubscription(env contracts.Env, subID uint64, to common.Address) error {
	s, err := c.ownedSubscription(env, subID)
	if err != nil {
		return err
	}
	delete(c.subscriptions, subID)
	return c.emit(env, "SubscriptionCanceled", subID, to, new(big.Int).Set(s.balance))
}

func (c *coordinator) consumerIsAdded(subID uint64, consumer common.Address) bool {
	s, ok := c.subscriptions[subID]
	if !ok {
		return false
	}
	for _, a := range s.consumers {
		if a == consumer {
			return true
		}
	}
	return false
}

func (c *coordinator) requestRandomWords(env contracts.Env, keyHash [32]byte, subID uint64, minConfirmations uint16, callbackGasLimit, numWords uint32) ([]interface{}, error) {
	s, ok := c.subscriptions[subID]
	if !ok {
		return nil, contracts.CustomError(ErrInvalidSubscription)
	}
	if !c.consumerIsAdded(subID, env.Caller()) {
		return nil, contracts.CustomError(ErrInvalidConsumer, subID, env.Caller())
	}

	requestID := new(big.Int).Set(c.nextRequestID)
	preSeed := new(big.Int).Set(c.nextPreSeed)
	c.nextRequestID.Add(c.nextRequestID, big.NewInt(1))
	c.nextPreSeed.Add(c.nextPreSeed, big.NewInt(1))
	s.reqCount++

	c.requests[requestID.String()] = request{
		subID:            subID,
		callbackGasLimit: callbackGasLimit,
		numWords:         numWords,
	}

	err := c.emit(env, "RandomWordsRequested", keyHash, requestID, preSeed, subID, minConfirmations, callbackGasLimit, numWords, env.Caller())
	if err != nil {
		return nil, err
	}
	return []interface{}{requestID}, nil
}

// Payment returns the LINK charged for fulfilling a request with the given
// callback gas limit.
func Payment(baseFee, gasPriceLink *big.Int, callbackGasLimit uint32) *big.Int {
	p := new(big.Int).Mul(gasPriceLink, new(big.Int).SetUint64(uint64(callbackGasLimit)))
	return p.Add(p, baseFee)
}

// RandomWords returns the words the mock delivers for a request unless they
// are overridden.
func RandomWords(requestID *big.Int, n uint32) []*big.Int {
	args := abi.Arguments{{Type: uint256Type}, {Type: uint256Type}}
	words := make([]*big.Int, n)
	for i := range words {
		packed, _ := args.Pack(requestID, big.NewInt(int64(i)))
		words[i] = new(big.Int).SetBytes(crypto.Keccak256(packed))
	}
	return words
}

var uint256Type, _ = abi.NewType("uint256", "", nil)

func (c *coordinator) fulfillRandomWords(env contracts.Env, requestID *big.Int, consumerAddress common.Address, words []*big.Int) error {
	req, ok := c.requests[requestID.String()]
	if !ok {
		return contracts.RevertString(NonexistentRequest)
	}

	if len(words) == 0 {
		words = RandomWords(requestID, req.numWords)
	} else if len(words) != int(req.numWords) {
		return contracts.CustomError(ErrInvalidRandomWords)
	}

	input, err := consumer.Pack("rawFulfillRandomWords", requestID, words)
	if err != nil {
		return err
	}
	delete(c.requests, requestID.String())
	_, callErr := env.Call(consumerAddress, new(big.Int), input)
	success := callErr == nil

	payment := Payment(c.baseFee, c.gasPriceLink, req.callbackGasLimit)
	s, ok := c.subscriptions[req.subID]
	if !ok {
		return contracts.CustomError(ErrInvalidSubscription)
	}
	if s.balance.Cmp(payment) < 0 {
		return contracts.CustomError(ErrInsufficientBalance)
	}
	s.balance.Sub(s.balance, payment)

	return c.emit(env, "RandomWordsFulfilled", requestID, requestID, payment, success)
}
