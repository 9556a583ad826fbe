// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keeper

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/vrf"
	"github.com/hashicorp/go-multierror"
)

// ChainBackend reports the chain head.
type ChainBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type FulfillerOptions struct {
	// Interval is the pause between scans for new requests.
	Interval time.Duration
	// StartBlock is the first block scanned.
	StartBlock uint64
	// TopUpThreshold and TopUpAmount fund a subscription whose balance
	// dropped below the threshold before its request is served. A nil
	// amount disables top ups, a nil threshold tops up on every request.
	TopUpThreshold *big.Int
	TopUpAmount    *big.Int
}

// Fulfiller answers randomness requests of a coordinator mock in place of
// an oracle network.
type Fulfiller struct {
	logger      log.Logger
	backend     ChainBackend
	coordinator vrf.Interface
	options     FulfillerOptions
	metrics     fulfillerMetrics

	mu      sync.Mutex
	next    uint64                              // next block to scan
	retries map[string]vrf.RandomWordsRequested // failed requests by id

	quit chan struct{}
	wg   sync.WaitGroup
}

func NewFulfiller(logger log.Logger, backend ChainBackend, coordinator vrf.Interface, o FulfillerOptions) *Fulfiller {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return &Fulfiller{
		logger:      logger.WithName(loggerName).WithValues("coordinator", coordinator.Address()).Register(),
		backend:     backend,
		coordinator: coordinator,
		options:     o,
		metrics:     newFulfillerMetrics(),
		next:        o.StartBlock,
		retries:     make(map[string]vrf.RandomWordsRequested),
		quit:        make(chan struct{}),
	}
}

// Start scans for requests until Close is called.
func (f *Fulfiller) Start() {
	f.wg.Add(1)
	go f.run()
}

func (f *Fulfiller) run() {
	defer f.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-f.quit
		cancel()
	}()

	ticker := time.NewTicker(f.options.Interval)
	defer ticker.Stop()

	for {
		if _, err := f.Fulfill(ctx); err != nil && !errors.Is(err, context.Canceled) {
			f.logger.Error(err, "fulfill randomness requests")
		}
		select {
		case <-f.quit:
			return
		case <-ticker.C:
		}
	}
}

// Fulfill serves the requests that failed in earlier scans and then all
// requests emitted since the last scan, and returns the fulfillment events.
// A failing request does not stop the others and is tried again on the next
// call.
func (f *Fulfiller) Fulfill(ctx context.Context) ([]*vrf.RandomWordsFulfilled, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	head, err := f.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}

	requests := f.pendingRetries()
	if head >= f.next {
		emitted, err := f.coordinator.RandomWordsRequested(ctx, new(big.Int).SetUint64(f.next), new(big.Int).SetUint64(head))
		if err != nil {
			return nil, err
		}
		f.next = head + 1
		f.metrics.LastBlock.Set(float64(head))
		for _, r := range emitted {
			if _, ok := f.retries[r.RequestId.String()]; !ok {
				requests = append(requests, r)
			}
		}
	}

	var (
		fulfilled []*vrf.RandomWordsFulfilled
		errs      *multierror.Error
	)
	for _, r := range requests {
		id := r.RequestId.String()
		if _, retry := f.retries[id]; !retry {
			f.metrics.Requests.Inc()
		}
		e, err := f.fulfill(ctx, r)
		if err != nil {
			f.metrics.FulfillErrors.Inc()
			f.retries[id] = r
			errs = multierror.Append(errs, fmt.Errorf("request %s: %w", r.RequestId, err))
			continue
		}
		delete(f.retries, id)
		if e != nil {
			fulfilled = append(fulfilled, e)
		}
	}
	return fulfilled, errs.ErrorOrNil()
}

// pendingRetries returns the failed requests ordered by request id.
func (f *Fulfiller) pendingRetries() []vrf.RandomWordsRequested {
	rs := make([]vrf.RandomWordsRequested, 0, len(f.retries))
	for _, r := range f.retries {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].RequestId.Cmp(rs[j].RequestId) < 0 })
	return rs
}

func (f *Fulfiller) fulfill(ctx context.Context, r vrf.RandomWordsRequested) (*vrf.RandomWordsFulfilled, error) {
	if err := f.topUp(ctx, r.SubId); err != nil {
		return nil, err
	}

	e, err := f.coordinator.FulfillRandomWords(ctx, r.RequestId, r.Sender)
	if errors.Is(err, vrf.ErrNonexistentRequest) {
		f.logger.Debug("request already fulfilled", "request_id", r.RequestId)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.metrics.Fulfilled.Inc()
	if !e.Success {
		f.logger.Warning("consumer rejected random words", "request_id", r.RequestId, "consumer", r.Sender)
	} else {
		f.logger.Info("random words fulfilled", "request_id", r.RequestId, "consumer", r.Sender, "payment", e.Payment)
	}
	return e, nil
}

func (f *Fulfiller) topUp(ctx context.Context, subID uint64) error {
	if f.options.TopUpAmount == nil {
		return nil
	}
	sub, err := f.coordinator.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}
	if f.options.TopUpThreshold != nil && sub.Balance.Cmp(f.options.TopUpThreshold) >= 0 {
		return nil
	}
	if err := f.coordinator.FundSubscription(ctx, subID, f.options.TopUpAmount); err != nil {
		return fmt.Errorf("top up subscription %d: %w", subID, err)
	}
	f.metrics.TopUps.Inc()
	f.logger.Info("subscription topped up", "subscription_id", subID, "amount", f.options.TopUpAmount)
	return nil
}

func (f *Fulfiller) Close() error {
	close(f.quit)
	f.wg.Wait()
	return nil
}
