// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/lottery/pkg/contracts"
)

// Gas schedule. Only the intrinsic part follows the protocol, execution is
// charged a flat amount per contract invocation.
const (
	txGas            = 21000
	txCreationGas    = 32000
	txDataZeroGas    = 4
	txDataNonZeroGas = 16
	callGas          = 50000
	nestedCallGas    = 25000
)

var errOutOfGas = errors.New("out of gas")

func intrinsicGas(data []byte, creation bool) uint64 {
	gas := uint64(txGas)
	if creation {
		gas += txCreationGas
	}
	for _, b := range data {
		if b == 0 {
			gas += txDataZeroGas
		} else {
			gas += txDataNonZeroGas
		}
	}
	return gas
}

type message struct {
	from     common.Address
	to       *common.Address
	nonce    uint64
	value    *big.Int
	data     []byte
	gasLimit uint64
}

type result struct {
	gasUsed         uint64
	returnData      []byte
	contractAddress common.Address
	logs            []*types.Log
	// err is the reason of a failed execution, a *contracts.Revert when the
	// contract reverted.
	err error
}

// execute runs the message against the current state. All state changes of
// a failed execution are undone, the caller is responsible for nonce and
// gas payment.
func (c *Chain) execute(msg message, number, timestamp uint64) *result {
	x := &execution{
		registry: c.registry,
		st:       c.state,
		number:   number,
		time:     timestamp,
		active:   make(map[common.Address]bool),
		logs:     []*types.Log{},
	}
	res := &result{}

	mark := c.state.mark()
	if msg.to == nil {
		x.gas = callGas
		addr, err := x.create(msg.from, msg.nonce, msg.value, msg.data)
		res.contractAddress, res.err = addr, err
	} else {
		if c.state.code(*msg.to) != nil {
			x.gas = callGas
		}
		res.returnData, res.err = x.call(msg.from, *msg.to, msg.value, msg.data)
	}

	res.gasUsed = intrinsicGas(msg.data, msg.to == nil) + x.gas
	if res.err == nil && res.gasUsed > msg.gasLimit {
		res.err = errOutOfGas
	}
	if res.gasUsed > msg.gasLimit {
		res.gasUsed = msg.gasLimit
	}
	if res.err != nil {
		c.state.revertTo(mark)
		res.returnData = nil
		res.contractAddress = common.Address{}
		res.logs = []*types.Log{}
		return res
	}
	res.logs = x.logs
	return res
}

// execution holds the context shared by all frames of a single top level
// call.
type execution struct {
	registry *contracts.Registry
	st       *state
	number   uint64
	time     uint64
	gas      uint64
	logs     []*types.Log
	// active contracts are on the call stack and may not be reentered.
	active map[common.Address]bool
}

// call executes input on the contract at to. A failed call leaves no trace
// in the state or the logs.
func (x *execution) call(caller, to common.Address, value *big.Int, input []byte) (out []byte, err error) {
	mark, logs := x.st.mark(), len(x.logs)
	defer func() {
		if err != nil {
			x.st.revertTo(mark)
			x.logs = x.logs[:logs]
		}
	}()

	if !x.st.transfer(caller, to, value) {
		return nil, &contracts.Revert{}
	}

	a, ok := x.st.accounts[to]
	if !ok || a.native == nil {
		if ok && len(a.code) > 0 {
			return nil, &contracts.Revert{}
		}
		return nil, nil
	}
	if x.active[to] {
		return nil, contracts.RevertString("reentrant call")
	}
	x.active[to] = true
	defer delete(x.active, to)

	working := a.contract.Copy()
	f := &frame{x: x, caller: caller, self: to, value: value}
	out, err = run(func() ([]byte, error) {
		return a.native.Execute(working, f, input)
	})
	if err != nil {
		return nil, err
	}
	x.st.commitContract(to, working)
	return out, nil
}

// create deploys the native contract selected by the creation code.
func (x *execution) create(caller common.Address, nonce uint64, value *big.Int, input []byte) (common.Address, error) {
	addr := crypto.CreateAddress(caller, nonce)
	native, ok := x.registry.NativeByCode(input)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unsupported bytecode", &contracts.Revert{})
	}

	mark, logs := x.st.mark(), len(x.logs)
	if !x.st.transfer(caller, addr, value) {
		return common.Address{}, &contracts.Revert{}
	}

	x.active[addr] = true
	defer delete(x.active, addr)

	var contract contracts.Contract
	f := &frame{x: x, caller: caller, self: addr, value: value}
	_, err := run(func() (_ []byte, err error) {
		contract, err = native.Deploy(f, input)
		return nil, err
	})
	if err != nil {
		x.st.revertTo(mark)
		x.logs = x.logs[:logs]
		return common.Address{}, err
	}
	x.st.setContract(addr, native, contract)
	return addr, nil
}

// run converts panics of native code into reverts.
func run(f func() ([]byte, error)) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", &contracts.Revert{}, r)
		}
	}()
	return f()
}

// frame is the contracts.Env of a single contract invocation.
type frame struct {
	x      *execution
	caller common.Address
	self   common.Address
	value  *big.Int
}

func (f *frame) Caller() common.Address { return f.caller }

func (f *frame) Self() common.Address { return f.self }

func (f *frame) Value() *big.Int { return new(big.Int).Set(f.value) }

func (f *frame) BlockNumber() uint64 { return f.x.number }

func (f *frame) BlockTime() uint64 { return f.x.time }

func (f *frame) Balance(account common.Address) *big.Int {
	return f.x.st.balance(account)
}

func (f *frame) Transfer(to common.Address, amount *big.Int) error {
	if !f.x.st.transfer(f.self, to, amount) {
		return errors.New("insufficient balance")
	}
	return nil
}

func (f *frame) Emit(topics []common.Hash, data []byte) {
	f.x.logs = append(f.x.logs, &types.Log{
		Address: f.self,
		Topics:  append([]common.Hash(nil), topics...),
		Data:    append([]byte(nil), data...),
	})
}

func (f *frame) Call(to common.Address, value *big.Int, input []byte) ([]byte, error) {
	f.x.gas += nestedCallGas
	if value == nil {
		value = new(big.Int)
	}
	return f.x.call(f.self, to, value, input)
}
