// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/log"
)

var (
	ErrTransactionCancelled = errors.New("transaction cancelled")
	ErrMonitorClosed        = errors.New("monitor closed")
)

// Monitor resolves sent transactions of one account into receipts.
//
// It follows the account nonce rather than each transaction: a watched
// transaction is only looked up once the on-chain nonce has moved past it,
// and one without a receipt is reported cancelled when its nonce was
// already used cancellationDepth blocks ago.
type Monitor interface {
	io.Closer
	// WatchTransaction returns channels that receive either the receipt
	// or an error, exactly once.
	WatchTransaction(txHash common.Hash, nonce uint64) (<-chan types.Receipt, <-chan error, error)
}

type watch struct {
	hash     common.Hash
	nonce    uint64
	receiptC chan types.Receipt
	errC     chan error
}

type monitor struct {
	logger  log.Logger
	backend Backend
	sender  common.Address

	pollingInterval   time.Duration
	cancellationDepth uint64

	mu      sync.Mutex
	watches map[*watch]struct{}
	added   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMonitor(logger log.Logger, backend Backend, sender common.Address, pollingInterval time.Duration, cancellationDepth uint64) Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &monitor{
		logger:            logger.WithName(loggerName).WithValues("sender", sender).Register(),
		backend:           backend,
		sender:            sender,
		pollingInterval:   pollingInterval,
		cancellationDepth: cancellationDepth,
		watches:           make(map[*watch]struct{}),
		added:             make(chan struct{}, 1),
		ctx:               ctx,
		cancel:            cancel,
	}

	m.wg.Add(1)
	go m.run()

	return m
}

func (m *monitor) WatchTransaction(txHash common.Hash, nonce uint64) (<-chan types.Receipt, <-chan error, error) {
	w := &watch{
		hash:     txHash,
		nonce:    nonce,
		receiptC: make(chan types.Receipt, 1),
		errC:     make(chan error, 1),
	}

	m.mu.Lock()
	m.watches[w] = struct{}{}
	m.mu.Unlock()

	select {
	case m.added <- struct{}{}:
	default:
	}

	m.logger.Debug("watching transaction", "tx", txHash, "nonce", nonce)
	return w.receiptC, w.errC, nil
}

func (m *monitor) run() {
	defer m.wg.Done()
	defer m.closeWatches()

	ticker := time.NewTicker(m.pollingInterval)
	defer ticker.Stop()

	var lastHead uint64
	for {
		force := false
		select {
		case <-m.added:
			force = true
		case <-ticker.C:
		case <-m.ctx.Done():
			return
		}

		if m.pending() == 0 {
			continue
		}

		head, err := m.backend.BlockNumber(m.ctx)
		if err != nil {
			m.logger.Error(err, "get block number failed")
			continue
		}
		// A new watch is checked against the current head even without a
		// new block.
		if head <= lastHead && !force {
			continue
		}

		if err := m.sweep(head); err != nil {
			m.logger.Debug("checking watched transactions failed", "block", head, "error", err)
			continue
		}
		lastHead = head
	}
}

func (m *monitor) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches)
}

// below returns the watches with a nonce lower than the given one.
func (m *monitor) below(nonce uint64) []*watch {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ws []*watch
	for w := range m.watches {
		if w.nonce < nonce {
			ws = append(ws, w)
		}
	}
	return ws
}

// sweep resolves the watches whose nonce was used at the head block.
func (m *monitor) sweep(head uint64) error {
	nonce, err := m.backend.NonceAt(m.ctx, m.sender, new(big.Int).SetUint64(head))
	if err != nil {
		return err
	}

	var (
		confirmed = make(map[*watch]*types.Receipt)
		missing   []*watch
	)
	for _, w := range m.below(nonce) {
		receipt, err := m.backend.TransactionReceipt(m.ctx, w.hash)
		switch {
		case receipt != nil:
			confirmed[w] = receipt
		case err == nil, errors.Is(err, ethereum.NotFound):
			// Replaced for now. A reorg can still bring it back.
			missing = append(missing, w)
		default:
			return err
		}
	}

	var cancelled []*watch
	if len(missing) > 0 && head >= m.cancellationDepth {
		settled, err := m.backend.NonceAt(m.ctx, m.sender, new(big.Int).SetUint64(head-m.cancellationDepth))
		if err != nil {
			return err
		}
		for _, w := range missing {
			if w.nonce <= settled {
				cancelled = append(cancelled, w)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for w, receipt := range confirmed {
		w.receiptC <- *receipt
		delete(m.watches, w)
	}
	for _, w := range cancelled {
		m.logger.Debug("transaction cancelled", "tx", w.hash, "nonce", w.nonce)
		w.errC <- ErrTransactionCancelled
		delete(m.watches, w)
	}
	return nil
}

func (m *monitor) closeWatches() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for w := range m.watches {
		w.errC <- ErrMonitorClosed
		delete(m.watches, w)
	}
}

func (m *monitor) Close() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
