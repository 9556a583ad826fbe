// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sctx_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethersphere/lottery/pkg/sctx"
)

func TestGasSettings(t *testing.T) {
	ctx := context.Background()

	if got := sctx.GetGasPrice(ctx); got != nil {
		t.Fatalf("got gas price %v, want nil", got)
	}
	if got := sctx.GetGasLimitWithDefault(ctx, 100); got != 100 {
		t.Fatalf("got gas limit %d, want default 100", got)
	}

	ctx = sctx.SetGasPrice(ctx, big.NewInt(7))
	ctx = sctx.SetGasLimit(ctx, 21000)

	if got := sctx.GetGasPrice(ctx); got.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("got gas price %v, want 7", got)
	}
	if got := sctx.GetGasLimitWithDefault(ctx, 100); got != 21000 {
		t.Fatalf("got gas limit %d, want 21000", got)
	}
}

func TestConfirmations(t *testing.T) {
	ctx := context.Background()
	if got := sctx.GetConfirmations(ctx); got != 1 {
		t.Fatalf("got %d confirmations, want 1", got)
	}
	if got := sctx.GetConfirmations(sctx.SetConfirmations(ctx, 0)); got != 1 {
		t.Fatalf("got %d confirmations, want 1", got)
	}
	if got := sctx.GetConfirmations(sctx.SetConfirmations(ctx, 3)); got != 3 {
		t.Fatalf("got %d confirmations, want 3", got)
	}
}
