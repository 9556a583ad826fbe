// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Controller manipulates time and state of a development chain. It is
// implemented by the in-process Chain and by the json-rpc Client.
type Controller interface {
	// IncreaseTime moves the clock of future blocks forward and returns the
	// total adjustment in seconds.
	IncreaseTime(ctx context.Context, seconds uint64) (uint64, error)
	// SetNextBlockTimestamp fixes the timestamp of the next block.
	SetNextBlockTimestamp(ctx context.Context, timestamp uint64) error
	// Mine mines an empty block.
	Mine(ctx context.Context) error
	// Snapshot records the chain state and returns its id.
	Snapshot(ctx context.Context) (uint64, error)
	// Revert restores the snapshot. The snapshot and all later ones are
	// discarded. It returns false for unknown ids.
	Revert(ctx context.Context, id uint64) (bool, error)
	// SetBalance overrides the balance of an account.
	SetBalance(ctx context.Context, account common.Address, balance *big.Int) error
}

var _ Controller = (*Chain)(nil)

func (c *Chain) IncreaseTime(ctx context.Context, seconds uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeOffset += int64(seconds)
	c.logger.Debug("time increased", "seconds", seconds, "offset", c.timeOffset)
	return uint64(c.timeOffset), nil
}

func (c *Chain) SetNextBlockTimestamp(ctx context.Context, timestamp uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if parent := c.head().block.Time(); timestamp <= parent {
		return fmt.Errorf("%w: %d <= %d", ErrTimestamp, timestamp, parent)
	}
	c.nextTimestamp = timestamp
	// later blocks continue from the new timestamp
	c.timeOffset = int64(timestamp) - c.now().Unix()
	return nil
}

func (c *Chain) Mine(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.seal(c.nextBlockTime(), nil, nil)
	c.logger.Debug("block mined", "block", b.NumberU64(), "time", b.Time())
	return nil
}

func (c *Chain) Snapshot(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSnapshotID++
	c.snapshots[c.lastSnapshotID] = &snapshot{
		state:         c.state.copy(),
		height:        len(c.blocks),
		timeOffset:    c.timeOffset,
		nextTimestamp: c.nextTimestamp,
	}
	c.logger.Debug("snapshot taken", "id", c.lastSnapshotID, "block", len(c.blocks)-1)
	return c.lastSnapshotID, nil
}

func (c *Chain) Revert(ctx context.Context, id uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.snapshots[id]
	if !ok {
		return false, nil
	}
	for sid := range c.snapshots {
		if sid >= id {
			delete(c.snapshots, sid)
		}
	}

	for _, b := range c.blocks[s.height:] {
		for _, tx := range b.block.Transactions() {
			delete(c.txs, tx.Hash())
		}
	}
	c.blocks = c.blocks[:s.height]
	c.state = s.state
	c.timeOffset = s.timeOffset
	c.nextTimestamp = s.nextTimestamp

	c.logger.Debug("reverted to snapshot", "id", id, "block", len(c.blocks)-1)
	return true, nil
}
