// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNoTopic       = errors.New("no topic")
)

// ParseEvent decodes the data and indexed topics of a log of the named
// event into out.
func ParseEvent(a *abi.ABI, eventName string, out interface{}, l types.Log) error {
	if len(l.Topics) == 0 {
		return ErrNoTopic
	}
	event, ok := a.Events[eventName]
	if !ok {
		return ErrEventNotFound
	}
	if len(l.Data) > 0 {
		if err := a.UnpackIntoInterface(out, eventName, l.Data); err != nil {
			return err
		}
	}
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return abi.ParseTopics(out, indexed, l.Topics[1:])
}

// EventLogs returns the logs of the event emitted by the contract, in
// receipt order.
func EventLogs(receipt *types.Receipt, contract common.Address, event abi.Event) []*types.Log {
	var logs []*types.Log
	for _, l := range receipt.Logs {
		if l.Address == contract && len(l.Topics) > 0 && l.Topics[0] == event.ID {
			logs = append(logs, l)
		}
	}
	return logs
}

// FindSingleEvent decodes the first log of the event in a successful
// receipt.
func FindSingleEvent(a *abi.ABI, receipt *types.Receipt, contract common.Address, event abi.Event, out interface{}) error {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ErrTransactionReverted
	}
	logs := EventLogs(receipt, contract, event)
	if len(logs) == 0 {
		return ErrEventNotFound
	}
	return ParseEvent(a, event.Name, out, *logs[0])
}
