// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/lottery"
)

var ErrNotImplemented = errors.New("not implemented")

type lotteryMock struct {
	address       common.Address
	enterLottery  func(ctx context.Context, value *big.Int) (*types.Receipt, error)
	checkUpkeep   func(ctx context.Context, checkData []byte) (bool, []byte, error)
	performUpkeep func(ctx context.Context, performData []byte) (*big.Int, error)
	player        func(ctx context.Context, index uint64) (common.Address, error)
	balance       func(ctx context.Context) (*big.Int, error)
	status        func(ctx context.Context) (*lottery.Status, error)
}

// Option is an option passed to New.
type Option func(*lotteryMock)

// New creates a lottery contract mock. Getters without an explicit function
// are served from the status function.
func New(opts ...Option) lottery.Interface {
	m := &lotteryMock{}
	for _, o := range opts {
		o(m)
	}
	return m
}

func WithAddress(address common.Address) Option {
	return func(m *lotteryMock) {
		m.address = address
	}
}

func WithEnterLotteryFunc(f func(ctx context.Context, value *big.Int) (*types.Receipt, error)) Option {
	return func(m *lotteryMock) {
		m.enterLottery = f
	}
}

func WithCheckUpkeepFunc(f func(ctx context.Context, checkData []byte) (bool, []byte, error)) Option {
	return func(m *lotteryMock) {
		m.checkUpkeep = f
	}
}

func WithPerformUpkeepFunc(f func(ctx context.Context, performData []byte) (*big.Int, error)) Option {
	return func(m *lotteryMock) {
		m.performUpkeep = f
	}
}

func WithPlayerFunc(f func(ctx context.Context, index uint64) (common.Address, error)) Option {
	return func(m *lotteryMock) {
		m.player = f
	}
}

func WithBalanceFunc(f func(ctx context.Context) (*big.Int, error)) Option {
	return func(m *lotteryMock) {
		m.balance = f
	}
}

func WithStatusFunc(f func(ctx context.Context) (*lottery.Status, error)) Option {
	return func(m *lotteryMock) {
		m.status = f
	}
}

func (m *lotteryMock) Address() common.Address {
	return m.address
}

func (m *lotteryMock) EnterLottery(ctx context.Context, value *big.Int) (*types.Receipt, error) {
	if m.enterLottery != nil {
		return m.enterLottery(ctx, value)
	}
	return nil, ErrNotImplemented
}

func (m *lotteryMock) CheckUpkeep(ctx context.Context, checkData []byte) (bool, []byte, error) {
	if m.checkUpkeep != nil {
		return m.checkUpkeep(ctx, checkData)
	}
	return false, nil, ErrNotImplemented
}

func (m *lotteryMock) PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, error) {
	if m.performUpkeep != nil {
		return m.performUpkeep(ctx, performData)
	}
	return nil, ErrNotImplemented
}

func (m *lotteryMock) Status(ctx context.Context) (*lottery.Status, error) {
	if m.status != nil {
		return m.status(ctx)
	}
	return nil, ErrNotImplemented
}

func (m *lotteryMock) EntranceFee(ctx context.Context) (*big.Int, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return s.EntranceFee, nil
}

func (m *lotteryMock) State(ctx context.Context) (lottery.State, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	return s.State, nil
}

func (m *lotteryMock) Interval(ctx context.Context) (*big.Int, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return s.Interval, nil
}

func (m *lotteryMock) GasLane(ctx context.Context) (common.Hash, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return s.GasLane, nil
}

func (m *lotteryMock) CallbackGasLimit(ctx context.Context) (uint32, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	return s.CallbackGasLimit, nil
}

func (m *lotteryMock) SubscriptionID(ctx context.Context) (uint64, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	return s.SubscriptionID, nil
}

func (m *lotteryMock) VRFCoordinator(ctx context.Context) (common.Address, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return s.VRFCoordinator, nil
}

func (m *lotteryMock) Player(ctx context.Context, index uint64) (common.Address, error) {
	if m.player != nil {
		return m.player(ctx, index)
	}
	s, err := m.Status(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if index >= uint64(len(s.Players)) {
		return common.Address{}, lottery.ErrIndexOutOfRange
	}
	return s.Players[index], nil
}

func (m *lotteryMock) Players(ctx context.Context) ([]common.Address, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return s.Players, nil
}

func (m *lotteryMock) RecentWinner(ctx context.Context) (common.Address, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return s.RecentWinner, nil
}

func (m *lotteryMock) LastTimestamp(ctx context.Context) (*big.Int, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return s.LastTimestamp, nil
}

func (m *lotteryMock) NumberOfPlayers(ctx context.Context) (uint64, error) {
	s, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	return uint64(len(s.Players)), nil
}

func (m *lotteryMock) NumWords(context.Context) (uint64, error) {
	return 1, nil
}

func (m *lotteryMock) RequestConfirmations(context.Context) (uint64, error) {
	return 3, nil
}

func (m *lotteryMock) Balance(ctx context.Context) (*big.Int, error) {
	if m.balance != nil {
		return m.balance(ctx)
	}
	s, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return s.Balance, nil
}
