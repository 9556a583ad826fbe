// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var _ Controller = (*Client)(nil)

// Client controls a development node over json-rpc. It works with this
// package's server as well as with hardhat and ganache nodes.
type Client struct {
	c *rpc.Client
}

// NewClient wraps an established json-rpc connection.
func NewClient(c *rpc.Client) *Client {
	return &Client{c: c}
}

// DialInProc connects to the server in the same process.
func DialInProc(server *rpc.Server) *Client {
	return NewClient(rpc.DialInProc(server))
}

// RPC returns the underlying json-rpc client.
func (c *Client) RPC() *rpc.Client {
	return c.c
}

func (c *Client) IncreaseTime(ctx context.Context, seconds uint64) (uint64, error) {
	var total uint64
	if err := c.c.CallContext(ctx, &total, "evm_increaseTime", seconds); err != nil {
		return 0, err
	}
	return total, nil
}

func (c *Client) SetNextBlockTimestamp(ctx context.Context, timestamp uint64) error {
	return c.c.CallContext(ctx, nil, "evm_setNextBlockTimestamp", timestamp)
}

func (c *Client) Mine(ctx context.Context) error {
	return c.c.CallContext(ctx, nil, "evm_mine")
}

func (c *Client) Snapshot(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.c.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (c *Client) Revert(ctx context.Context, id uint64) (bool, error) {
	var ok bool
	if err := c.c.CallContext(ctx, &ok, "evm_revert", hexutil.Uint64(id)); err != nil {
		return false, err
	}
	return ok, nil
}

func (c *Client) SetBalance(ctx context.Context, account common.Address, balance *big.Int) error {
	return c.c.CallContext(ctx, nil, "hardhat_setBalance", account, (*hexutil.Big)(balance))
}

func (c *Client) Close() {
	c.c.Close()
}
