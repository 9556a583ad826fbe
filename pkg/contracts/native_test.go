// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package contracts_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/contracts"
)

const counterABI = `[
	{"type":"constructor","inputs":[{"name":"start","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"increment","inputs":[{"name":"by","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"get","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"deposit","inputs":[],"outputs":[],"stateMutability":"payable"},
	{"type":"event","name":"Incremented","inputs":[{"name":"caller","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false}
]`

type counter struct {
	value *big.Int
}

var counterNative = contracts.NewNative("Counter", counterABI, func(env contracts.Env, args []interface{}) (contracts.Contract, error) {
	return &counter{value: new(big.Int).Set(args[0].(*big.Int))}, nil
})

func (c *counter) Call(env contracts.Env, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "increment":
		by := args[0].(*big.Int)
		if by.Sign() == 0 {
			return nil, contracts.CustomError("ZeroIncrement()")
		}
		c.value.Add(c.value, by)
		return nil, contracts.EmitEvent(env, &counterNative.ABI, "Incremented", env.Caller(), new(big.Int).Set(c.value))
	case "get":
		return []interface{}{new(big.Int).Set(c.value)}, nil
	case "deposit":
		return nil, nil
	}
	return nil, &contracts.Revert{}
}

func (c *counter) Copy() contracts.Contract {
	return &counter{value: new(big.Int).Set(c.value)}
}

type testEnv struct {
	caller common.Address
	value  *big.Int
	logs   [][]common.Hash
}

func (e *testEnv) Caller() common.Address                  { return e.caller }
func (e *testEnv) Self() common.Address                    { return common.HexToAddress("0xc0") }
func (e *testEnv) Value() *big.Int                         { return e.value }
func (e *testEnv) BlockNumber() uint64                     { return 1 }
func (e *testEnv) BlockTime() uint64                       { return 1 }
func (e *testEnv) Balance(common.Address) *big.Int         { return new(big.Int) }
func (e *testEnv) Transfer(common.Address, *big.Int) error { return nil }
func (e *testEnv) Emit(topics []common.Hash, data []byte) {
	e.logs = append(e.logs, topics)
}
func (e *testEnv) Call(common.Address, *big.Int, []byte) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func TestNativeDeployAndExecute(t *testing.T) {
	t.Parallel()

	env := &testEnv{caller: common.HexToAddress("0xaa"), value: new(big.Int)}
	artifact := counterNative.Artifact()

	creation, err := artifact.CreationCode(big.NewInt(40))
	if err != nil {
		t.Fatal(err)
	}
	if !counterNative.Matches(creation) {
		t.Fatal("creation code does not match native")
	}

	c, err := counterNative.Deploy(env, creation)
	if err != nil {
		t.Fatal(err)
	}

	input, err := counterNative.ABI.Pack("increment", big.NewInt(2))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := counterNative.Execute(c, env, input); err != nil {
		t.Fatal(err)
	}
	if len(env.logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(env.logs))
	}
	topics := env.logs[0]
	if topics[0] != counterNative.ABI.Events["Incremented"].ID {
		t.Fatal("wrong event topic")
	}
	if common.BytesToAddress(topics[1].Bytes()) != env.caller {
		t.Fatal("wrong indexed caller")
	}

	input, err = counterNative.ABI.Pack("get")
	if err != nil {
		t.Fatal(err)
	}
	out, err := counterNative.Execute(c, env, input)
	if err != nil {
		t.Fatal(err)
	}
	results, err := counterNative.ABI.Unpack("get", out)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].(*big.Int).Int64() != 42 {
		t.Fatalf("got counter %v, want 42", results[0])
	}
}

func TestNativeExecuteReverts(t *testing.T) {
	t.Parallel()

	c := &counter{value: big.NewInt(0)}

	increment, err := counterNative.ABI.Pack("increment", big.NewInt(1))
	if err != nil {
		t.Fatal(err)
	}
	zero, err := counterNative.ABI.Pack("increment", big.NewInt(0))
	if err != nil {
		t.Fatal(err)
	}
	deposit, err := counterNative.ABI.Pack("deposit")
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name    string
		input   []byte
		value   int64
		wantErr bool
	}{
		{name: "short input", input: []byte{1, 2}, wantErr: true},
		{name: "unknown selector", input: []byte{1, 2, 3, 4}, wantErr: true},
		{name: "value to non payable", input: increment, value: 1, wantErr: true},
		{name: "custom error", input: zero, wantErr: true},
		{name: "value to payable", input: deposit, value: 1},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := &testEnv{value: big.NewInt(tc.value)}
			_, err := counterNative.Execute(c.Copy(), env, tc.input)
			var revert *contracts.Revert
			if got := errors.As(err, &revert); got != tc.wantErr {
				t.Fatalf("got revert %v, want %v (err %v)", got, tc.wantErr, err)
			}
		})
	}
}
