// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/transaction"
)

var (
	LotteryEnteredEvent         = lotteryABI.Events["LotteryEntered"]
	RequestedLotteryWinnerEvent = lotteryABI.Events["RequestedLotteryWinner"]
	WinnerPickedEvent           = lotteryABI.Events["WinnerPicked"]
)

type LotteryEntered struct {
	Player common.Address
}

type RequestedLotteryWinner struct {
	RequestId *big.Int
}

type WinnerPicked struct {
	Winner common.Address
}

// ParseLotteryEntered returns the first LotteryEntered event of the receipt.
func ParseLotteryEntered(receipt *types.Receipt, address common.Address) (*LotteryEntered, error) {
	var e LotteryEntered
	if err := transaction.FindSingleEvent(&lotteryABI, receipt, address, LotteryEnteredEvent, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ParseRequestedLotteryWinner returns the request id emitted when the round
// was closed.
func ParseRequestedLotteryWinner(receipt *types.Receipt, address common.Address) (*RequestedLotteryWinner, error) {
	var e RequestedLotteryWinner
	if err := transaction.FindSingleEvent(&lotteryABI, receipt, address, RequestedLotteryWinnerEvent, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ParseWinnerPicked returns the winner announced in the receipt.
func ParseWinnerPicked(receipt *types.Receipt, address common.Address) (*WinnerPicked, error) {
	var e WinnerPicked
	if err := transaction.FindSingleEvent(&lotteryABI, receipt, address, WinnerPickedEvent, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
