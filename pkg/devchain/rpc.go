// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// ClientVersion is reported by web3_clientVersion.
const ClientVersion = "lottery-devchain/v1"

// NewServer returns a json-rpc server exposing the chain in the eth, net,
// web3, evm and hardhat namespaces.
func NewServer(c *Chain) (*rpc.Server, error) {
	server := rpc.NewServer()
	apis := []struct {
		namespace string
		service   interface{}
	}{
		{"eth", &ethAPI{chain: c}},
		{"net", &netAPI{chain: c}},
		{"web3", &web3API{}},
		{"evm", &evmAPI{chain: c}},
		{"hardhat", &hardhatAPI{chain: c}},
	}
	for _, api := range apis {
		if err := server.RegisterName(api.namespace, api.service); err != nil {
			return nil, fmt.Errorf("register %s api: %w", api.namespace, err)
		}
	}
	return server, nil
}

type web3API struct{}

func (*web3API) ClientVersion() string {
	return ClientVersion
}

type netAPI struct {
	chain *Chain
}

func (api *netAPI) Version() string {
	return api.chain.chainID.String()
}

type evmAPI struct {
	chain *Chain
}

func (api *evmAPI) IncreaseTime(ctx context.Context, seconds uint64) (uint64, error) {
	return api.chain.IncreaseTime(ctx, seconds)
}

func (api *evmAPI) SetNextBlockTimestamp(ctx context.Context, timestamp uint64) error {
	return api.chain.SetNextBlockTimestamp(ctx, timestamp)
}

func (api *evmAPI) Mine(ctx context.Context) (string, error) {
	if err := api.chain.Mine(ctx); err != nil {
		return "", err
	}
	return "0x0", nil
}

func (api *evmAPI) Snapshot(ctx context.Context) (hexutil.Uint64, error) {
	id, err := api.chain.Snapshot(ctx)
	return hexutil.Uint64(id), err
}

func (api *evmAPI) Revert(ctx context.Context, id hexutil.Uint64) (bool, error) {
	return api.chain.Revert(ctx, uint64(id))
}

// hardhatAPI serves the hardhat_ methods deploy tooling relies on.
type hardhatAPI struct {
	chain *Chain
}

func (api *hardhatAPI) SetBalance(ctx context.Context, account common.Address, balance hexutil.Big) (bool, error) {
	if err := api.chain.SetBalance(ctx, account, balance.ToInt()); err != nil {
		return false, err
	}
	return true, nil
}

type ethAPI struct {
	chain *Chain
}

// callArgs are the arguments of eth_call and eth_estimateGas.
type callArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

func (args *callArgs) msg() ethereum.CallMsg {
	var msg ethereum.CallMsg
	if args.From != nil {
		msg.From = *args.From
	}
	msg.To = args.To
	if args.Gas != nil {
		msg.Gas = uint64(*args.Gas)
	}
	if args.GasPrice != nil {
		msg.GasPrice = args.GasPrice.ToInt()
	}
	if args.Value != nil {
		msg.Value = args.Value.ToInt()
	}
	switch {
	case args.Input != nil:
		msg.Data = *args.Input
	case args.Data != nil:
		msg.Data = *args.Data
	}
	return msg
}

// blockNumber converts the json-rpc block tag, latest and pending resolve
// to nil.
func blockNumber(n rpc.BlockNumber) *big.Int {
	if n < 0 {
		return nil
	}
	return big.NewInt(n.Int64())
}

func (api *ethAPI) ChainId(ctx context.Context) (*hexutil.Big, error) {
	id, err := api.chain.ChainID(ctx)
	return (*hexutil.Big)(id), err
}

func (api *ethAPI) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	n, err := api.chain.BlockNumber(ctx)
	return hexutil.Uint64(n), err
}

func (api *ethAPI) GasPrice(ctx context.Context) (*hexutil.Big, error) {
	p, err := api.chain.SuggestGasPrice(ctx)
	return (*hexutil.Big)(p), err
}

func (api *ethAPI) MaxPriorityFeePerGas(ctx context.Context) (*hexutil.Big, error) {
	p, err := api.chain.SuggestGasTipCap(ctx)
	return (*hexutil.Big)(p), err
}

func (api *ethAPI) Accounts() []common.Address {
	return api.chain.Accounts()
}

func (api *ethAPI) GetBalance(ctx context.Context, account common.Address, n rpc.BlockNumber) (*hexutil.Big, error) {
	b, err := api.chain.BalanceAt(ctx, account, blockNumber(n))
	return (*hexutil.Big)(b), err
}

func (api *ethAPI) GetTransactionCount(ctx context.Context, account common.Address, n rpc.BlockNumber) (hexutil.Uint64, error) {
	if n == rpc.PendingBlockNumber {
		nonce, err := api.chain.PendingNonceAt(ctx, account)
		return hexutil.Uint64(nonce), err
	}
	nonce, err := api.chain.NonceAt(ctx, account, blockNumber(n))
	return hexutil.Uint64(nonce), err
}

func (api *ethAPI) GetCode(ctx context.Context, account common.Address, n rpc.BlockNumber) (hexutil.Bytes, error) {
	return api.chain.CodeAt(ctx, account, blockNumber(n))
}

// Call returns *RevertError unwrapped so that the revert data is attached
// to the json-rpc error.
func (api *ethAPI) Call(ctx context.Context, args callArgs, n *rpc.BlockNumber) (hexutil.Bytes, error) {
	return api.chain.CallContract(ctx, args.msg(), nil)
}

func (api *ethAPI) EstimateGas(ctx context.Context, args callArgs, n *rpc.BlockNumber) (hexutil.Uint64, error) {
	gas, err := api.chain.EstimateGas(ctx, args.msg())
	return hexutil.Uint64(gas), err
}

func (api *ethAPI) SendRawTransaction(ctx context.Context, input hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	if err := api.chain.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (api *ethAPI) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r, err := api.chain.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	return r, err
}

func (api *ethAPI) GetTransactionByHash(ctx context.Context, hash common.Hash) (map[string]interface{}, error) {
	b, tx, ok := api.chain.transactionBlock(hash)
	if !ok {
		return nil, nil
	}
	return api.marshalTransaction(tx, b)
}

func (api *ethAPI) GetBlockByNumber(ctx context.Context, n rpc.BlockNumber, fullTx bool) (map[string]interface{}, error) {
	b, err := api.chain.BlockByNumber(ctx, blockNumber(n))
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return api.marshalBlock(b, fullTx)
}

func (api *ethAPI) GetBlockByHash(ctx context.Context, hash common.Hash, fullTx bool) (map[string]interface{}, error) {
	b, err := api.chain.BlockByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return api.marshalBlock(b, fullTx)
}

// filterArgs are the arguments of eth_getLogs and the logs subscription.
type filterArgs struct {
	BlockHash *common.Hash     `json:"blockHash"`
	FromBlock *rpc.BlockNumber `json:"fromBlock"`
	ToBlock   *rpc.BlockNumber `json:"toBlock"`
	Addresses addresses        `json:"address"`
	Topics    [][]common.Hash  `json:"topics"`
}

// addresses accepts a single address or a list of them.
type addresses []common.Address

func (a *addresses) UnmarshalJSON(data []byte) error {
	var list []common.Address
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var single common.Address
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*a = addresses{single}
	return nil
}

func (args filterArgs) query() ethereum.FilterQuery {
	q := ethereum.FilterQuery{
		BlockHash: args.BlockHash,
		Addresses: args.Addresses,
		Topics:    args.Topics,
	}
	if args.FromBlock != nil {
		q.FromBlock = blockNumber(*args.FromBlock)
	}
	if args.ToBlock != nil {
		q.ToBlock = blockNumber(*args.ToBlock)
	}
	return q
}

func (api *ethAPI) GetLogs(ctx context.Context, args filterArgs) ([]types.Log, error) {
	return api.chain.FilterLogs(ctx, args.query())
}

// Logs is the eth_subscribe("logs") subscription.
func (api *ethAPI) Logs(ctx context.Context, args filterArgs) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}
	rpcSub := notifier.CreateSubscription()

	logs := make(chan types.Log)
	sub, err := api.chain.SubscribeFilterLogs(ctx, args.query(), logs)
	if err != nil {
		return nil, err
	}

	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				_ = notifier.Notify(rpcSub.ID, l)
			case <-rpcSub.Err():
				return
			case <-notifier.Closed():
				return
			case <-sub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}

func (api *ethAPI) marshalBlock(b *types.Block, fullTx bool) (map[string]interface{}, error) {
	fields, err := toFields(b.Header())
	if err != nil {
		return nil, err
	}
	fields["size"] = hexutil.Uint64(b.Size())
	fields["uncles"] = []common.Hash{}

	txs := make([]interface{}, 0, len(b.Transactions()))
	for _, tx := range b.Transactions() {
		if !fullTx {
			txs = append(txs, tx.Hash())
			continue
		}
		t, err := api.marshalTransaction(tx, b)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	fields["transactions"] = txs
	return fields, nil
}

func (api *ethAPI) marshalTransaction(tx *types.Transaction, b *types.Block) (map[string]interface{}, error) {
	fields, err := toFields(tx)
	if err != nil {
		return nil, err
	}
	from, err := types.Sender(api.chain.signer, tx)
	if err != nil {
		return nil, err
	}
	fields["from"] = from
	fields["blockHash"] = b.Hash()
	fields["blockNumber"] = (*hexutil.Big)(b.Number())
	fields["transactionIndex"] = hexutil.Uint64(0)
	fields["gasPrice"] = (*hexutil.Big)(tx.GasPrice())
	return fields, nil
}

// toFields renders the json encoding of v as a field map to extend.
func toFields(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
