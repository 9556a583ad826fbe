// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package contracts_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/google/go-cmp/cmp"
)

func TestErrorSelector(t *testing.T) {
	t.Parallel()

	// well known selector of Error(string)
	got := hexutil.Encode(contracts.ErrorSelector("Error(string)"))
	if got != "0x08c379a0" {
		t.Fatalf("got selector %s, want 0x08c379a0", got)
	}
}

func TestCustomError(t *testing.T) {
	t.Parallel()

	const sig = "UpkeepNotNeeded(uint256,uint256,uint256)"

	r := contracts.CustomError(sig, big.NewInt(1), big.NewInt(2), big.NewInt(0))
	if len(r.Data) != 4+3*32 {
		t.Fatalf("got revert data length %d, want %d", len(r.Data), 4+3*32)
	}

	args, ok := contracts.MatchError(r.Data, sig)
	if !ok {
		t.Fatal("revert data does not match its own signature")
	}
	want := []interface{}{big.NewInt(1), big.NewInt(2), big.NewInt(0)}
	if diff := cmp.Diff(want, args, cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })); diff != "" {
		t.Fatalf("mismatch (-want +have):\n%s", diff)
	}

	if _, ok := contracts.MatchError(r.Data, "NotOpen()"); ok {
		t.Fatal("revert data matches another signature")
	}
}

func TestCustomErrorNoArguments(t *testing.T) {
	t.Parallel()

	r := contracts.CustomError("NotOpen()")
	if !bytes.Equal(r.Data, contracts.ErrorSelector("NotOpen()")) {
		t.Fatalf("got revert data %x", r.Data)
	}
	if _, ok := contracts.MatchError(r.Data, "NotOpen()"); !ok {
		t.Fatal("expected match")
	}
	if r.Error() != "execution reverted" {
		t.Fatalf("got error %q", r.Error())
	}
}

func TestCustomErrorAddresses(t *testing.T) {
	t.Parallel()

	const sig = "OnlyCoordinatorCanFulfill(address,address)"
	have, want := common.HexToAddress("0x01"), common.HexToAddress("0x02")

	args, ok := contracts.MatchError(contracts.CustomError(sig, have, want).Data, sig)
	if !ok {
		t.Fatal("expected match")
	}
	if args[0].(common.Address) != have || args[1].(common.Address) != want {
		t.Fatalf("got arguments %v", args)
	}
}

func TestRevertString(t *testing.T) {
	t.Parallel()

	r := contracts.RevertString("nonexistent request")

	reason, ok := contracts.RevertReason(r.Data)
	if !ok {
		t.Fatal("expected reason")
	}
	if reason != "nonexistent request" {
		t.Fatalf("got reason %q", reason)
	}
	if r.Error() != "execution reverted: nonexistent request" {
		t.Fatalf("got error %q", r.Error())
	}

	if _, ok := contracts.RevertReason([]byte{1, 2}); ok {
		t.Fatal("short data decoded as reason")
	}
}

func TestCustomErrorMalformed(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	contracts.CustomError("NotOpen")
}
