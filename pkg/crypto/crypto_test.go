// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crypto_test

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/lottery/pkg/crypto"
	"github.com/google/uuid"
)

func TestGenerateSecp256k1Key(t *testing.T) {
	k1, err := crypto.GenerateSecp256k1Key()
	if err != nil {
		t.Fatal(err)
	}
	k2, err := crypto.GenerateSecp256k1Key()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(crypto.EncodeSecp256k1PrivateKey(k1), crypto.EncodeSecp256k1PrivateKey(k2)) {
		t.Fatal("two generated keys are equal")
	}
}

func TestDecodeSecp256k1PrivateKey(t *testing.T) {
	k1, err := crypto.GenerateSecp256k1Key()
	if err != nil {
		t.Fatal(err)
	}
	d := crypto.EncodeSecp256k1PrivateKey(k1)
	k2, err := crypto.DecodeSecp256k1PrivateKey(d)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(k1.D.Bytes(), k2.D.Bytes()) {
		t.Fatal("encoded and decoded keys are not equal")
	}

	if _, err := crypto.DecodeSecp256k1PrivateKey([]byte{1, 2}); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestDecodeHexPrivateKey(t *testing.T) {
	const hexKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	key, err := crypto.DecodeHexPrivateKey(hexKey)
	if err != nil {
		t.Fatal(err)
	}
	addr, err := crypto.NewEthereumAddress(key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if addr != want {
		t.Fatalf("got address %s, want %s", addr, want)
	}
}

func TestDeriveKeys(t *testing.T) {
	keys, err := crypto.DeriveKeys(crypto.DefaultMnemonic, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 3 {
		t.Fatalf("got %d keys, want 3", len(keys))
	}

	again, err := crypto.DeriveKeys(crypto.DefaultMnemonic, 3)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]struct{})
	for i := range keys {
		if !bytes.Equal(keys[i].D.Bytes(), again[i].D.Bytes()) {
			t.Fatalf("key %d is not deterministic", i)
		}
		seen[keys[i].D.String()] = struct{}{}
	}
	if len(seen) != 3 {
		t.Fatal("derived keys are not unique")
	}

	if _, err := crypto.DeriveKeys("not a mnemonic", 1); !errors.Is(err, crypto.ErrInvalidMnemonic) {
		t.Fatalf("got error %v, want %v", err, crypto.ErrInvalidMnemonic)
	}
}

func TestDecryptKeystore(t *testing.T) {
	key, err := crypto.GenerateSecp256k1Key()
	if err != nil {
		t.Fatal(err)
	}

	k := &keystore.Key{
		Id:         uuid.New(),
		Address:    ethcrypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
	}
	keyJSON, err := keystore.EncryptKey(k, "secret", keystore.LightScryptN, keystore.LightScryptP)
	if err != nil {
		t.Fatal(err)
	}

	got, err := crypto.DecryptKeystore(keyJSON, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if got.D.Cmp(key.D) != 0 {
		t.Fatal("decrypted key mismatch")
	}

	if _, err := crypto.DecryptKeystore(keyJSON, "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestSignerSignTx(t *testing.T) {
	key, err := crypto.GenerateSecp256k1Key()
	if err != nil {
		t.Fatal(err)
	}
	signer := crypto.NewDefaultSigner(key)
	address, err := signer.EthereumAddress()
	if err != nil {
		t.Fatal(err)
	}

	chainID := big.NewInt(31337)
	tx := types.NewTransaction(0, common.HexToAddress("0xabcd"), big.NewInt(1), 21000, big.NewInt(1), nil)
	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		t.Fatal(err)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatal(err)
	}
	if sender != address {
		t.Fatalf("got sender %s, want %s", sender, address)
	}
}
