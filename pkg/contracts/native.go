// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Env is the execution environment of a single native contract call.
type Env interface {
	// Caller is the immediate caller, a contract for nested calls.
	Caller() common.Address
	// Self is the address of the executing contract.
	Self() common.Address
	// Value is the amount of wei sent along with the call.
	Value() *big.Int
	BlockNumber() uint64
	BlockTime() uint64
	Balance(account common.Address) *big.Int
	// Transfer moves wei from the executing contract to the account.
	Transfer(to common.Address, amount *big.Int) error
	// Emit appends a log entry originating from the executing contract.
	Emit(topics []common.Hash, data []byte)
	// Call executes input against another contract. Reverts of the callee
	// are returned as *Revert and its state changes are discarded.
	Call(to common.Address, value *big.Int, input []byte) ([]byte, error)
}

// Contract is the state of a deployed native contract.
type Contract interface {
	// Call executes the named method with ABI decoded arguments and returns
	// the values to ABI encode as the result.
	Call(env Env, method string, args []interface{}) ([]interface{}, error)
	// Copy returns a deep copy used to discard changes on revert.
	Copy() Contract
}

// Native is a contract implemented in Go.
type Native struct {
	Name   string
	ABI    abi.ABI
	RawABI json.RawMessage
	// New runs the constructor.
	New func(env Env, args []interface{}) (Contract, error)
}

// NewNative parses the json ABI and returns the native contract description.
func NewNative(name, abiJSON string, constructor func(env Env, args []interface{}) (Contract, error)) *Native {
	cabi, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("error creating ABI for native contract %s: %v", name, err))
	}
	return &Native{
		Name:   name,
		ABI:    cabi,
		RawABI: json.RawMessage(abiJSON),
		New:    constructor,
	}
}

// NativeBytecode is the code of a native contract. It is used both as
// creation prefix and as deployed code.
func NativeBytecode(name string) []byte {
	return crypto.Keccak256([]byte("native:" + name))
}

// Code returns the bytecode of the native contract.
func (n *Native) Code() []byte {
	return NativeBytecode(n.Name)
}

// Matches reports whether the code starts with the bytecode of this contract.
func (n *Native) Matches(code []byte) bool {
	return bytes.HasPrefix(code, n.Code())
}

// Artifact returns a deployable artifact for the native contract.
func (n *Native) Artifact() *Artifact {
	return &Artifact{
		Name:             n.Name,
		SourceName:       "native/" + n.Name,
		ABI:              n.ABI,
		RawABI:           n.RawABI,
		Bytecode:         n.Code(),
		DeployedBytecode: n.Code(),
		Native:           n,
	}
}

// Deploy decodes the constructor arguments that follow the bytecode in the
// creation input and constructs the contract.
func (n *Native) Deploy(env Env, input []byte) (Contract, error) {
	if !n.Matches(input) {
		return nil, &Revert{}
	}
	args, err := n.ABI.Constructor.Inputs.Unpack(input[len(n.Code()):])
	if err != nil {
		return nil, &Revert{}
	}
	return n.New(env, args)
}

// Execute dispatches the call input to the contract method selected by the
// first four bytes and returns the ABI encoded result.
func (n *Native) Execute(c Contract, env Env, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, &Revert{}
	}
	method, err := n.ABI.MethodById(input[:4])
	if err != nil {
		return nil, &Revert{}
	}
	if env.Value().Sign() > 0 && !method.IsPayable() {
		return nil, &Revert{}
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, &Revert{}
	}

	out, err := c.Call(env, method.Name, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

// EmitEvent emits the named event. Values are given in the order of the
// event inputs, indexed ones are encoded as topics.
func EmitEvent(env Env, a *abi.ABI, name string, values ...interface{}) error {
	event, ok := a.Events[name]
	if !ok {
		return fmt.Errorf("unknown event %s", name)
	}
	if len(values) != len(event.Inputs) {
		return fmt.Errorf("event %s: got %d values, want %d", name, len(values), len(event.Inputs))
	}

	topics := []common.Hash{event.ID}
	var data []interface{}
	for i, input := range event.Inputs {
		if !input.Indexed {
			data = append(data, values[i])
			continue
		}
		t, err := abi.MakeTopics([]interface{}{values[i]})
		if err != nil {
			return fmt.Errorf("event %s: topic %s: %w", name, input.Name, err)
		}
		topics = append(topics, t[0][0])
	}

	packed, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return fmt.Errorf("event %s: %w", name, err)
	}
	env.Emit(topics, packed)
	return nil
}
