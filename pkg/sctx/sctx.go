// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sctx provides convenience methods for context
// value injection and extraction.
package sctx

import (
	"context"
	"math/big"
)

type (
	gasPriceKey      struct{}
	gasLimitKey      struct{}
	confirmationsKey struct{}
)

// SetGasLimit sets the gas limit used by transactions sent with ctx.
func SetGasLimit(ctx context.Context, limit uint64) context.Context {
	return context.WithValue(ctx, gasLimitKey{}, limit)
}

// GetGasLimit returns the gas limit from the context or 0 if it was not set.
func GetGasLimit(ctx context.Context) uint64 {
	v, ok := ctx.Value(gasLimitKey{}).(uint64)
	if ok {
		return v
	}
	return 0
}

// GetGasLimitWithDefault returns the gas limit from the context or
// defaultLimit if it was not set.
func GetGasLimitWithDefault(ctx context.Context, defaultLimit uint64) uint64 {
	limit := GetGasLimit(ctx)
	if limit == 0 {
		return defaultLimit
	}
	return limit
}

// SetGasPrice sets the gas price used by transactions sent with ctx.
func SetGasPrice(ctx context.Context, price *big.Int) context.Context {
	return context.WithValue(ctx, gasPriceKey{}, price)
}

// GetGasPrice returns the gas price from the context or nil, in which case
// the suggested gas price of the backend is used.
func GetGasPrice(ctx context.Context) *big.Int {
	v, ok := ctx.Value(gasPriceKey{}).(*big.Int)
	if ok {
		return v
	}
	return nil
}

// SetConfirmations sets the number of blocks a transaction sent with ctx
// should be buried under before it is considered final.
func SetConfirmations(ctx context.Context, n uint64) context.Context {
	return context.WithValue(ctx, confirmationsKey{}, n)
}

// GetConfirmations returns the number of required confirmations, at least 1.
func GetConfirmations(ctx context.Context) uint64 {
	v, ok := ctx.Value(confirmationsKey{}).(uint64)
	if ok && v > 0 {
		return v
	}
	return 1
}
