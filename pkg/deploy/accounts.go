// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/crypto"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/storage"
	"github.com/ethersphere/lottery/pkg/transaction"
	"github.com/hashicorp/go-multierror"
)

// Named accounts.
const (
	Deployer = "deployer"
	Attacker = "attacker"
	Player   = "player"
)

// namedAccounts maps account names to key indexes.
var namedAccounts = map[string]int{
	Deployer: 0,
	Attacker: 1,
	Player:   2,
}

// cancellationDepth is the number of blocks after which a replaced
// transaction is considered cancelled.
const cancellationDepth = 6

var ErrUnknownAccount = errors.New("unknown account")

type account struct {
	signer    crypto.Signer
	txService transaction.Service
	monitor   transaction.Monitor
}

// Accounts holds the keys available for deployments and builds a transaction
// service for each of them on first use.
type Accounts struct {
	logger          log.Logger
	backend         transaction.Backend
	store           storage.StateStorer
	chainID         *big.Int
	pollingInterval time.Duration

	mu        sync.Mutex
	keys      []*ecdsa.PrivateKey
	addresses []common.Address
	services  map[common.Address]*account
}

func NewAccounts(logger log.Logger, backend transaction.Backend, store storage.StateStorer, chainID *big.Int, keys []*ecdsa.PrivateKey, pollingInterval time.Duration) (*Accounts, error) {
	addresses := make([]common.Address, 0, len(keys))
	for _, k := range keys {
		addr, err := crypto.NewEthereumAddress(k.PublicKey)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return &Accounts{
		logger:          logger,
		backend:         backend,
		store:           store,
		chainID:         chainID,
		pollingInterval: pollingInterval,
		keys:            keys,
		addresses:       addresses,
		services:        make(map[common.Address]*account),
	}, nil
}

// Addresses returns all account addresses in key order.
func (a *Accounts) Addresses() []common.Address {
	return append([]common.Address(nil), a.addresses...)
}

// Named returns the addresses of the named accounts that have a key.
func (a *Accounts) Named() map[string]common.Address {
	named := make(map[string]common.Address, len(namedAccounts))
	for name, i := range namedAccounts {
		if i < len(a.addresses) {
			named[name] = a.addresses[i]
		}
	}
	return named
}

// Address resolves a named account.
func (a *Accounts) Address(name string) (common.Address, error) {
	i, ok := namedAccounts[name]
	if !ok || i >= len(a.addresses) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	return a.addresses[i], nil
}

// TransactionService returns the transaction service sending from the
// account.
func (a *Accounts) TransactionService(addr common.Address) (transaction.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if acc, ok := a.services[addr]; ok {
		return acc.txService, nil
	}

	for i, candidate := range a.addresses {
		if candidate != addr {
			continue
		}
		signer := crypto.NewDefaultSigner(a.keys[i])
		monitor := transaction.NewMonitor(a.logger, a.backend, addr, a.pollingInterval, cancellationDepth)
		txService, err := transaction.NewService(a.logger, a.backend, signer, a.store, a.chainID, monitor)
		if err != nil {
			_ = monitor.Close()
			return nil, fmt.Errorf("transaction service for %s: %w", addr, err)
		}
		a.services[addr] = &account{signer: signer, txService: txService, monitor: monitor}
		return txService, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, addr)
}

// NamedTransactionService returns the transaction service of a named account.
func (a *Accounts) NamedTransactionService(name string) (transaction.Service, error) {
	addr, err := a.Address(name)
	if err != nil {
		return nil, err
	}
	return a.TransactionService(addr)
}

// Reset closes the transaction services and forgets the locally tracked
// nonces. It is called after the chain was reverted to a snapshot.
func (a *Accounts) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var mErr error
	for addr, acc := range a.services {
		if err := closeAccount(acc); err != nil {
			mErr = multierror.Append(mErr, err)
		}
		delete(a.services, addr)
	}
	for _, addr := range a.addresses {
		if err := transaction.ResetNonce(a.store, addr); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("reset nonce of %s: %w", addr, err))
		}
	}
	return mErr
}

func (a *Accounts) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var mErr error
	for addr, acc := range a.services {
		if err := closeAccount(acc); err != nil {
			mErr = multierror.Append(mErr, err)
		}
		delete(a.services, addr)
	}
	return mErr
}

func closeAccount(acc *account) error {
	var mErr error
	if err := acc.txService.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("transaction service: %w", err))
	}
	if err := acc.monitor.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("transaction monitor: %w", err))
	}
	return mErr
}
