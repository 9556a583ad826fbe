// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// DefaultMnemonic is the well known mnemonic that funds development accounts.
const DefaultMnemonic = "test test test test test test test test test test test junk"

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// GenerateSecp256k1Key generates an ECDSA private key using
// secp256k1 elliptic curve.
func GenerateSecp256k1Key() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(btcec.S256(), rand.Reader)
}

// EncodeSecp256k1PrivateKey encodes raw ECDSA private key.
func EncodeSecp256k1PrivateKey(k *ecdsa.PrivateKey) []byte {
	return (*btcec.PrivateKey)(k).Serialize()
}

// DecodeSecp256k1PrivateKey decodes raw ECDSA private key.
func DecodeSecp256k1PrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	if l := len(data); l != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("secp256k1 data size %d expected %d", l, btcec.PrivKeyBytesLen)
	}
	privk, _ := btcec.PrivKeyFromBytes(btcec.S256(), data)
	return (*ecdsa.PrivateKey)(privk), nil
}

// DecodeHexPrivateKey decodes a hex encoded private key with or without the
// 0x prefix.
func DecodeHexPrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return DecodeSecp256k1PrivateKey(common.FromHex(s))
}

// NewEthereumAddress returns the ethereum address of the public key.
func NewEthereumAddress(p ecdsa.PublicKey) (common.Address, error) {
	if p.X == nil || p.Y == nil {
		return common.Address{}, errors.New("invalid public key")
	}
	return crypto.PubkeyToAddress(p), nil
}

// DeriveKeys deterministically derives n private keys from the mnemonic.
// Key i is keccak256(seed || i) where seed is the BIP-39 seed of the
// mnemonic with an empty passphrase.
func DeriveKeys(mnemonic string, n int) ([]*ecdsa.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")

	keys := make([]*ecdsa.PrivateKey, 0, n)
	index := make([]byte, 4)
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint32(index, uint32(i))
		key, err := DecodeSecp256k1PrivateKey(crypto.Keccak256(seed, index))
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// DecryptKeystore decrypts an encrypted JSON key file.
func DecryptKeystore(keyJSON []byte, password string) (*ecdsa.PrivateKey, error) {
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return key.PrivateKey, nil
}
