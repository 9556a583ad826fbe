// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/devchain"
)

func newTestServer(t *testing.T, chain *devchain.Chain) *rpc.Client {
	t.Helper()

	server, err := devchain.NewServer(chain)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(server.Stop)

	client := rpc.DialInProc(server)
	t.Cleanup(client.Close)
	return client
}

func TestRPCEthClient(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	ctx := context.Background()
	client := ethclient.NewClient(newTestServer(t, chain))
	key := chain.Keys()[0]
	from, to := chain.Accounts()[0], chain.Accounts()[1]

	id, err := client.ChainID(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id.Int64() != devchain.DefaultChainID {
		t.Fatalf("got chain id %d, want %d", id, devchain.DefaultChainID)
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		t.Fatal(err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(1000),
		Gas:      21000,
		GasPrice: gasPrice,
	}), types.LatestSignerForChainID(id), key)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.SendTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}

	receipt, err := client.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful || receipt.BlockNumber.Uint64() != 1 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	got, pending, err := client.TransactionByHash(ctx, tx.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if pending || got.Hash() != tx.Hash() {
		t.Fatalf("unexpected transaction %s pending %v", got.Hash(), pending)
	}

	block, err := client.BlockByNumber(ctx, big.NewInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(block.Transactions()) != 1 || block.Transactions()[0].Hash() != tx.Hash() {
		t.Fatal("block does not contain the transaction")
	}
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if header.Hash() != block.Hash() {
		t.Fatalf("got head %s, want %s", header.Hash(), block.Hash())
	}

	balance, err := client.BalanceAt(ctx, to, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := new(big.Int).Add(devchain.DefaultBalance, big.NewInt(1000)); balance.Cmp(want) != 0 {
		t.Fatalf("got balance %d, want %d", balance, want)
	}

	if _, err := client.TransactionReceipt(ctx, common.HexToHash("0x01")); !errors.Is(err, ethereum.NotFound) {
		t.Fatalf("got error %v, want not found", err)
	}
}

func TestRPCRevertData(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	ctx := context.Background()
	client := ethclient.NewClient(newTestServer(t, chain))
	addr := deployCounter(t, chain, 7)

	_, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: pack(t, "incrementAndFail")}, nil)
	var de rpc.DataError
	if !errors.As(err, &de) {
		t.Fatalf("got error %v, want data error", err)
	}
	s, ok := de.ErrorData().(string)
	if !ok {
		t.Fatalf("got error data %T, want string", de.ErrorData())
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		t.Fatal(err)
	}
	args, ok := contracts.MatchError(data, errFail)
	if !ok {
		t.Fatalf("unexpected revert data %x", data)
	}
	if args[0].(*big.Int).Int64() != 8 {
		t.Fatalf("got error argument %d, want 8", args[0])
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: pack(t, "count")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := new(big.Int).SetBytes(out).Int64(); got != 7 {
		t.Fatalf("got count %d, want 7", got)
	}
}

func TestRPCLogs(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	ctx := context.Background()
	client := ethclient.NewClient(newTestServer(t, chain))
	addr := deployCounter(t, chain, 0)

	logs := make(chan types.Log, 1)
	sub, err := client.SubscribeFilterLogs(ctx, ethereum.FilterQuery{Addresses: []common.Address{addr}}, logs)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	receipt := sendTx(t, chain, chain.Keys()[0], &addr, new(big.Int), pack(t, "increment"))

	select {
	case l := <-logs:
		if l.TxHash != receipt.TxHash {
			t.Fatalf("got log of %s, want %s", l.TxHash, receipt.TxHash)
		}
	case err := <-sub.Err():
		t.Fatal(err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for log")
	}

	filtered, err := client.FilterLogs(ctx, ethereum.FilterQuery{Addresses: []common.Address{addr}})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].TxHash != receipt.TxHash {
		t.Fatalf("unexpected logs %+v", filtered)
	}
}

func TestRPCController(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t, withClock(time.Unix(5000, 0)))
	ctx := context.Background()
	client := devchain.NewClient(newTestServer(t, chain))

	id, err := client.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	total, err := client.IncreaseTime(ctx, 60)
	if err != nil {
		t.Fatal(err)
	}
	if total != 60 {
		t.Fatalf("got total offset %d, want 60", total)
	}
	if err := client.Mine(ctx); err != nil {
		t.Fatal(err)
	}
	header, err := chain.HeaderByNumber(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if header.Number.Uint64() != 1 || header.Time != 5060 {
		t.Fatalf("got block %d at %d, want block 1 at 5060", header.Number, header.Time)
	}

	if err := client.SetNextBlockTimestamp(ctx, 6000); err != nil {
		t.Fatal(err)
	}
	if err := client.Mine(ctx); err != nil {
		t.Fatal(err)
	}
	header, err = chain.HeaderByNumber(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if header.Time != 6000 {
		t.Fatalf("got block time %d, want 6000", header.Time)
	}

	ok, err := client.Revert(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("revert failed")
	}
	n, err := chain.BlockNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("got block number %d after revert, want 0", n)
	}

	ok, err = client.Revert(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("snapshot reverted twice")
	}
}

func TestRPCSetBalance(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	ctx := context.Background()
	client := devchain.NewClient(newTestServer(t, chain))
	account := common.HexToAddress("0xbeef")

	balanceOf := func() *big.Int {
		t.Helper()
		b, err := chain.BalanceAt(ctx, account, nil)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	id, err := client.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.SetBalance(ctx, account, big.NewInt(1e18)); err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(); got.Cmp(big.NewInt(1e18)) != 0 {
		t.Fatalf("got balance %d, want 1e18", got)
	}

	if ok, err := client.Revert(ctx, id); err != nil || !ok {
		t.Fatalf("revert: %v %v", ok, err)
	}
	if got := balanceOf(); got.Sign() != 0 {
		t.Fatalf("got balance %d after revert, want 0", got)
	}
}
