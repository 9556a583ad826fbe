// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package keeper runs the off chain roles a lottery relies on: the upkeep
// automation that closes rounds and, on development networks, the
// randomness oracle that answers coordinator requests.
package keeper

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/lottery"
)

const loggerName = "keeper"

// DefaultInterval is the pause between upkeep checks.
const DefaultInterval = 5 * time.Second

// Keeper closes lottery rounds once the contract reports an upkeep is
// needed.
type Keeper struct {
	logger   log.Logger
	lottery  lottery.Interface
	interval time.Duration
	metrics  keeperMetrics
	quit     chan struct{}
	wg       sync.WaitGroup
}

func NewKeeper(logger log.Logger, l lottery.Interface, interval time.Duration) *Keeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Keeper{
		logger:   logger.WithName(loggerName).WithValues("lottery", l.Address()).Register(),
		lottery:  l,
		interval: interval,
		metrics:  newKeeperMetrics(),
		quit:     make(chan struct{}),
	}
}

// Start runs the upkeep loop until Close is called.
func (k *Keeper) Start() {
	k.wg.Add(1)
	go k.run()
}

func (k *Keeper) run() {
	defer k.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-k.quit
		cancel()
	}()

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		if _, err := k.Check(ctx); err != nil && !errors.Is(err, context.Canceled) {
			k.logger.Error(err, "upkeep failed")
		}
		select {
		case <-k.quit:
			return
		case <-ticker.C:
		}
	}
}

// Check asks the lottery whether an upkeep is needed and performs it. It
// returns the randomness request id, or nil if nothing was done.
func (k *Keeper) Check(ctx context.Context) (*big.Int, error) {
	k.metrics.Checks.Inc()
	needed, performData, err := k.lottery.CheckUpkeep(ctx, []byte{})
	if err != nil {
		k.metrics.CheckErrors.Inc()
		return nil, err
	}
	if !needed {
		k.logger.Debug("upkeep not needed")
		return nil, nil
	}

	requestID, err := k.lottery.PerformUpkeep(ctx, performData)
	if err != nil {
		// another keeper closed the round between the check and the send
		if errors.Is(err, lottery.ErrUpkeepNotNeeded) {
			k.logger.Debug("upkeep no longer needed", "error", err)
			return nil, nil
		}
		k.metrics.UpkeepErrors.Inc()
		return nil, err
	}
	k.metrics.Upkeeps.Inc()
	k.logger.Info("round closed", "request_id", requestID)
	return requestID, nil
}

func (k *Keeper) Close() error {
	close(k.quit)
	k.wg.Wait()
	return nil
}
