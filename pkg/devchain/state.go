// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/contracts"
)

type account struct {
	nonce    uint64
	balance  *big.Int
	code     []byte
	native   *contracts.Native
	contract contracts.Contract
}

func (a *account) copy() *account {
	c := &account{
		nonce:   a.nonce,
		balance: new(big.Int).Set(a.balance),
		code:    a.code,
		native:  a.native,
	}
	if a.contract != nil {
		c.contract = a.contract.Copy()
	}
	return c
}

// state is the world state. Every change is recorded in a journal so that
// it can be undone up to a previous journal position.
type state struct {
	accounts map[common.Address]*account
	journal  []func()
}

func newState() *state {
	return &state{
		accounts: make(map[common.Address]*account),
	}
}

// copy returns a deep copy without the journal.
func (s *state) copy() *state {
	c := newState()
	for addr, a := range s.accounts {
		c.accounts[addr] = a.copy()
	}
	return c
}

func (s *state) get(addr common.Address) *account {
	a, ok := s.accounts[addr]
	if !ok {
		a = &account{balance: new(big.Int)}
		s.accounts[addr] = a
		s.journal = append(s.journal, func() { delete(s.accounts, addr) })
	}
	return a
}

func (s *state) balance(addr common.Address) *big.Int {
	a, ok := s.accounts[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(a.balance)
}

func (s *state) nonce(addr common.Address) uint64 {
	if a, ok := s.accounts[addr]; ok {
		return a.nonce
	}
	return 0
}

func (s *state) code(addr common.Address) []byte {
	if a, ok := s.accounts[addr]; ok {
		return a.code
	}
	return nil
}

func (s *state) setBalance(addr common.Address, v *big.Int) {
	a := s.get(addr)
	prev := a.balance
	a.balance = new(big.Int).Set(v)
	s.journal = append(s.journal, func() { a.balance = prev })
}

func (s *state) addBalance(addr common.Address, v *big.Int) {
	s.setBalance(addr, new(big.Int).Add(s.balance(addr), v))
}

// subBalance returns false without changes if the balance is too low.
func (s *state) subBalance(addr common.Address, v *big.Int) bool {
	b := s.balance(addr)
	if b.Cmp(v) < 0 {
		return false
	}
	s.setBalance(addr, b.Sub(b, v))
	return true
}

func (s *state) transfer(from, to common.Address, v *big.Int) bool {
	if v.Sign() == 0 {
		return true
	}
	if !s.subBalance(from, v) {
		return false
	}
	s.addBalance(to, v)
	return true
}

func (s *state) incNonce(addr common.Address) {
	a := s.get(addr)
	a.nonce++
	s.journal = append(s.journal, func() { a.nonce-- })
}

func (s *state) setContract(addr common.Address, native *contracts.Native, c contracts.Contract) {
	a := s.get(addr)
	prevCode, prevNative, prevContract := a.code, a.native, a.contract
	a.code, a.native, a.contract = native.Code(), native, c
	s.journal = append(s.journal, func() {
		a.code, a.native, a.contract = prevCode, prevNative, prevContract
	})
}

// commitContract replaces the contract state with its working copy.
func (s *state) commitContract(addr common.Address, c contracts.Contract) {
	a := s.get(addr)
	prev := a.contract
	a.contract = c
	s.journal = append(s.journal, func() { a.contract = prev })
}

func (s *state) mark() int {
	return len(s.journal)
}

// revertTo undoes all changes recorded after the mark.
func (s *state) revertTo(mark int) {
	for i := len(s.journal) - 1; i >= mark; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:mark]
}

// commit forgets the journal, making all changes permanent.
func (s *state) commit() {
	s.journal = nil
}

// balances and nonces are recorded per block to answer historic queries.
func (s *state) balances() map[common.Address]*big.Int {
	m := make(map[common.Address]*big.Int, len(s.accounts))
	for addr, a := range s.accounts {
		m[addr] = new(big.Int).Set(a.balance)
	}
	return m
}

func (s *state) nonces() map[common.Address]uint64 {
	m := make(map[common.Address]uint64, len(s.accounts))
	for addr, a := range s.accounts {
		m[addr] = a.nonce
	}
	return m
}
