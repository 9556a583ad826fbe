// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/crypto"
)

// SignTxFunc replaces transaction signing.
type SignTxFunc func(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)

type signer struct {
	address common.Address
	signTx  SignTxFunc
}

// Option configures the mock signer.
type Option func(*signer)

// New returns a signer for the zero address that refuses to sign unless
// configured otherwise.
func New(opts ...Option) crypto.Signer {
	s := new(signer)
	for _, o := range opts {
		o(s)
	}
	return s
}

// WithAddress sets the account the signer reports.
func WithAddress(address common.Address) Option {
	return func(s *signer) { s.address = address }
}

func WithSignTxFunc(f SignTxFunc) Option {
	return func(s *signer) { s.signTx = f }
}

func (s *signer) EthereumAddress() (common.Address, error) { return s.address, nil }

func (*signer) PublicKey() (*ecdsa.PublicKey, error) { return nil, nil }

func (s *signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if s.signTx == nil {
		return nil, errors.New("signing not configured")
	}
	return s.signTx(tx, chainID)
}
