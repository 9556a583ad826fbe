// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lotterycontract is the Go implementation of the lottery contract
// run by the development chain.
package lotterycontract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/transaction"
)

// Name is the artifact name of the lottery contract.
const Name = "Lottery"

const (
	NumWords             = 1
	RequestConfirmations = 3
)

// Lottery states as returned by getLotteryState.
const (
	StateOpen        uint8 = 0
	StateCalculating uint8 = 1
)

// Custom error signatures the contract reverts with.
const (
	ErrNotEnoughETH              = "NotEnoughETH()"
	ErrNotOpen                   = "NotOpen()"
	ErrUpkeepNotNeeded           = "UpkeepNotNeeded(uint256,uint256,uint256)"
	ErrTransferFailed            = "TransferFailed()"
	ErrOnlyCoordinatorCanFulfill = "OnlyCoordinatorCanFulfill(address,address)"
	ErrUnknownRequest            = "UnknownRequest(uint256)"
	// errPanic is raised with one of the panic codes below.
	errPanic = "Panic(uint256)"
)

const (
	panicDivisionByZero = 0x12
	panicOutOfBounds    = 0x32
)

var (
	lotteryABI  = transaction.ParseABIUnchecked(LotteryABI)
	coordinator = transaction.ParseABIUnchecked(coordinatorABI)
)

// Native is the lottery contract description to register with the chain.
var Native = contracts.NewNative(Name, LotteryABI, newLottery)

type lottery struct {
	vrfCoordinator   common.Address
	entranceFee      *big.Int
	gasLane          [32]byte
	subscriptionID   uint64
	callbackGasLimit uint32
	interval         *big.Int

	state         uint8
	players       []common.Address
	recentWinner  common.Address
	lastTimestamp *big.Int
	requests      map[string]struct{}
}

func newLottery(env contracts.Env, args []interface{}) (contracts.Contract, error) {
	if len(args) != 6 {
		return nil, fmt.Errorf("lottery constructor: got %d arguments, want 6", len(args))
	}
	return &lottery{
		vrfCoordinator:   args[0].(common.Address),
		entranceFee:      new(big.Int).Set(args[1].(*big.Int)),
		gasLane:          args[2].([32]byte),
		subscriptionID:   args[3].(uint64),
		callbackGasLimit: args[4].(uint32),
		interval:         new(big.Int).Set(args[5].(*big.Int)),
		state:            StateOpen,
		lastTimestamp:    new(big.Int).SetUint64(env.BlockTime()),
		requests:         make(map[string]struct{}),
	}, nil
}

func (l *lottery) Copy() contracts.Contract {
	c := *l
	c.entranceFee = new(big.Int).Set(l.entranceFee)
	c.interval = new(big.Int).Set(l.interval)
	c.lastTimestamp = new(big.Int).Set(l.lastTimestamp)
	c.players = append([]common.Address(nil), l.players...)
	c.requests = make(map[string]struct{}, len(l.requests))
	for id := range l.requests {
		c.requests[id] = struct{}{}
	}
	return &c
}

func (l *lottery) Call(env contracts.Env, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "enterLottery":
		return nil, l.enter(env)
	case "checkUpkeep":
		return []interface{}{l.upkeepNeeded(env), []byte{}}, nil
	case "performUpkeep":
		return nil, l.performUpkeep(env)
	case "rawFulfillRandomWords":
		return nil, l.fulfillRandomWords(env, args[0].(*big.Int), args[1].([]*big.Int))
	case "getEntranceFee":
		return []interface{}{new(big.Int).Set(l.entranceFee)}, nil
	case "getLotteryState":
		return []interface{}{l.state}, nil
	case "getInterval":
		return []interface{}{new(big.Int).Set(l.interval)}, nil
	case "getGasLane":
		return []interface{}{l.gasLane}, nil
	case "getCallbackGasLimit":
		return []interface{}{l.callbackGasLimit}, nil
	case "getSubscriptionId":
		return []interface{}{l.subscriptionID}, nil
	case "getVrfCoordinator":
		return []interface{}{l.vrfCoordinator}, nil
	case "getPlayer":
		index := args[0].(*big.Int)
		if !index.IsInt64() || index.Int64() >= int64(len(l.players)) {
			return nil, contracts.CustomError(errPanic, big.NewInt(panicOutOfBounds))
		}
		return []interface{}{l.players[index.Int64()]}, nil
	case "getRecentWinner":
		return []interface{}{l.recentWinner}, nil
	case "getLastTimestamp":
		return []interface{}{new(big.Int).Set(l.lastTimestamp)}, nil
	case "getNumberOfPlayers":
		return []interface{}{big.NewInt(int64(len(l.players)))}, nil
	case "getNumWords":
		return []interface{}{big.NewInt(NumWords)}, nil
	case "getRequestConfirmations":
		return []interface{}{big.NewInt(RequestConfirmations)}, nil
	}
	return nil, &contracts.Revert{}
}

func (l *lottery) enter(env contracts.Env) error {
	if env.Value().Cmp(l.entranceFee) < 0 {
		return contracts.CustomError(ErrNotEnoughETH)
	}
	if l.state != StateOpen {
		return contracts.CustomError(ErrNotOpen)
	}
	l.players = append(l.players, env.Caller())
	return contracts.EmitEvent(env, &lotteryABI, "LotteryEntered", env.Caller())
}

// upkeepNeeded is true when the lottery is open, the interval has passed and
// there is at least one player and some balance.
func (l *lottery) upkeepNeeded(env contracts.Env) bool {
	elapsed := new(big.Int).Sub(new(big.Int).SetUint64(env.BlockTime()), l.lastTimestamp)
	return l.state == StateOpen &&
		elapsed.Cmp(l.interval) > 0 &&
		len(l.players) > 0 &&
		env.Balance(env.Self()).Sign() > 0
}

func (l *lottery) performUpkeep(env contracts.Env) error {
	if !l.upkeepNeeded(env) {
		return contracts.CustomError(ErrUpkeepNotNeeded,
			env.Balance(env.Self()),
			big.NewInt(int64(len(l.players))),
			big.NewInt(int64(l.state)),
		)
	}
	l.state = StateCalculating

	input, err := coordinator.Pack("requestRandomWords", l.gasLane, l.subscriptionID, uint16(RequestConfirmations), l.callbackGasLimit, uint32(NumWords))
	if err != nil {
		return err
	}
	out, err := env.Call(l.vrfCoordinator, new(big.Int), input)
	if err != nil {
		return err
	}
	results, err := coordinator.Unpack("requestRandomWords", out)
	if err != nil || len(results) != 1 {
		return &contracts.Revert{}
	}
	requestID := results[0].(*big.Int)
	l.requests[requestID.String()] = struct{}{}

	return contracts.EmitEvent(env, &lotteryABI, "RequestedLotteryWinner", requestID)
}

func (l *lottery) fulfillRandomWords(env contracts.Env, requestID *big.Int, words []*big.Int) error {
	if env.Caller() != l.vrfCoordinator {
		return contracts.CustomError(ErrOnlyCoordinatorCanFulfill, env.Caller(), l.vrfCoordinator)
	}
	if _, ok := l.requests[requestID.String()]; !ok {
		return contracts.CustomError(ErrUnknownRequest, requestID)
	}
	if len(words) == 0 {
		return contracts.CustomError(errPanic, big.NewInt(panicOutOfBounds))
	}
	if len(l.players) == 0 {
		return contracts.CustomError(errPanic, big.NewInt(panicDivisionByZero))
	}
	delete(l.requests, requestID.String())

	index := new(big.Int).Mod(words[0], big.NewInt(int64(len(l.players))))
	winner := l.players[index.Int64()]

	l.recentWinner = winner
	l.state = StateOpen
	l.players = nil
	l.lastTimestamp = new(big.Int).SetUint64(env.BlockTime())

	if err := env.Transfer(winner, env.Balance(env.Self())); err != nil {
		return contracts.CustomError(ErrTransferFailed)
	}

	return contracts.EmitEvent(env, &lotteryABI, "WinnerPicked", winner)
}
