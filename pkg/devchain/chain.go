// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package devchain implements an in-process development chain. Every
// accepted transaction is mined in its own block and contracts are executed
// by their native Go implementations.
package devchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/crypto"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/transaction"
)

// loggerName is the tree path name of the logger for this package.
const loggerName = "devchain"

const (
	DefaultChainID  = 31337
	DefaultAccounts = 20
	DefaultGasLimit = 30_000_000
)

var (
	// DefaultBalance is the genesis balance of every dev account, 10000 ETH.
	DefaultBalance = new(big.Int).Mul(big.NewInt(10000), big.NewInt(1e18))
	// DefaultGasPrice is 1 gwei.
	DefaultGasPrice = big.NewInt(1e9)
)

var (
	ErrNonceTooLow       = errors.New("nonce too low")
	ErrNonceTooHigh      = errors.New("nonce too high")
	ErrInsufficientFunds = errors.New("insufficient funds for gas * price + value")
	ErrIntrinsicGas      = errors.New("intrinsic gas too low")
	ErrGasLimit          = errors.New("exceeds block gas limit")
	ErrInvalidSender     = errors.New("invalid sender")
	ErrTimestamp         = errors.New("timestamp must be greater than the latest block timestamp")
	ErrClosed            = errors.New("chain closed")
)

var _ transaction.Backend = (*Chain)(nil)

// Options configure a new Chain.
type Options struct {
	ChainID *big.Int
	// Mnemonic and Accounts select the funded development keys.
	Mnemonic string
	Accounts int
	Balance  *big.Int
	GasPrice *big.Int
	GasLimit uint64
	// Registry resolves creation bytecode to native contracts.
	Registry *contracts.Registry
	Now      func() time.Time
	Logger   log.Logger
}

type block struct {
	block    *types.Block
	receipts []*types.Receipt
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
}

type txEntry struct {
	tx    *types.Transaction
	block uint64
}

type snapshot struct {
	state         *state
	height        int
	timeOffset    int64
	nextTimestamp uint64
}

// Chain is a single node automining development chain.
type Chain struct {
	logger   log.Logger
	chainID  *big.Int
	signer   types.Signer
	gasPrice *big.Int
	gasLimit uint64
	registry *contracts.Registry
	now      func() time.Time
	keys     []*ecdsa.PrivateKey
	accounts []common.Address

	mu             sync.Mutex
	state          *state
	blocks         []*block
	txs            map[common.Hash]txEntry
	timeOffset     int64
	nextTimestamp  uint64
	snapshots      map[uint64]*snapshot
	lastSnapshotID uint64
	subs           map[*logSubscription]struct{}
	quit           chan struct{}
	closeOnce      sync.Once
}

// New creates a chain with a genesis block funding the dev accounts.
func New(o Options) (*Chain, error) {
	if o.ChainID == nil {
		o.ChainID = big.NewInt(DefaultChainID)
	}
	if o.Mnemonic == "" {
		o.Mnemonic = crypto.DefaultMnemonic
	}
	if o.Accounts == 0 {
		o.Accounts = DefaultAccounts
	}
	if o.Balance == nil {
		o.Balance = DefaultBalance
	}
	if o.GasPrice == nil {
		o.GasPrice = DefaultGasPrice
	}
	if o.GasLimit == 0 {
		o.GasLimit = DefaultGasLimit
	}
	if o.Registry == nil {
		o.Registry = contracts.NewRegistry()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.Noop
	}

	keys, err := crypto.DeriveKeys(o.Mnemonic, o.Accounts)
	if err != nil {
		return nil, fmt.Errorf("dev accounts: %w", err)
	}

	c := &Chain{
		logger:    o.Logger.WithName(loggerName).Register(),
		chainID:   new(big.Int).Set(o.ChainID),
		signer:    types.LatestSignerForChainID(o.ChainID),
		gasPrice:  new(big.Int).Set(o.GasPrice),
		gasLimit:  o.GasLimit,
		registry:  o.Registry,
		now:       o.Now,
		keys:      keys,
		state:     newState(),
		txs:       make(map[common.Hash]txEntry),
		snapshots: make(map[uint64]*snapshot),
		subs:      make(map[*logSubscription]struct{}),
		quit:      make(chan struct{}),
	}

	for _, key := range keys {
		addr, err := crypto.NewEthereumAddress(key.PublicKey)
		if err != nil {
			return nil, err
		}
		c.accounts = append(c.accounts, addr)
		c.state.setBalance(addr, o.Balance)
	}
	c.state.commit()

	c.seal(uint64(c.now().Unix()), nil, nil)

	c.logger.Debug("development chain created", "chain_id", c.chainID, "accounts", len(c.accounts))
	return c, nil
}

// Accounts returns the funded development accounts.
func (c *Chain) Accounts() []common.Address {
	return append([]common.Address(nil), c.accounts...)
}

// Keys returns the private keys of the development accounts.
func (c *Chain) Keys() []*ecdsa.PrivateKey {
	return append([]*ecdsa.PrivateKey(nil), c.keys...)
}

// Close stops all log subscriptions.
func (c *Chain) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	return nil
}

func (c *Chain) head() *block {
	return c.blocks[len(c.blocks)-1]
}

// nextBlockTime returns the timestamp of the next block to be mined.
func (c *Chain) nextBlockTime() uint64 {
	if c.nextTimestamp != 0 {
		return c.nextTimestamp
	}
	t := uint64(c.now().Unix() + c.timeOffset)
	if parent := c.head().block.Time(); t <= parent {
		t = parent + 1
	}
	return t
}

// seal appends a block with the given transactions and receipts on top of
// the current head. It must be called with the lock held or during
// construction.
func (c *Chain) seal(timestamp uint64, txs []*types.Transaction, receipts []*types.Receipt) *types.Block {
	// blocks forced ahead of the clock move the clock with them
	if drift := int64(timestamp) - c.now().Unix(); drift > c.timeOffset {
		c.timeOffset = drift
	}
	header := &types.Header{
		Number:     big.NewInt(int64(len(c.blocks))),
		GasLimit:   c.gasLimit,
		Time:       timestamp,
		Difficulty: new(big.Int),
	}
	if len(c.blocks) > 0 {
		header.ParentHash = c.head().block.Hash()
	}
	for _, r := range receipts {
		header.GasUsed += r.GasUsed
	}

	b := types.NewBlock(header, txs, nil, receipts, trie.NewStackTrie(nil))

	var logIndex uint
	var logs []types.Log
	for i, r := range receipts {
		r.BlockHash = b.Hash()
		r.BlockNumber = b.Number()
		r.TransactionIndex = uint(i)
		for _, l := range r.Logs {
			l.BlockHash = b.Hash()
			l.BlockNumber = b.NumberU64()
			l.TxIndex = uint(i)
			l.Index = logIndex
			logIndex++
			logs = append(logs, *l)
		}
		c.txs[r.TxHash] = txEntry{tx: txs[i], block: b.NumberU64()}
	}

	c.blocks = append(c.blocks, &block{
		block:    b,
		receipts: receipts,
		balances: c.state.balances(),
		nonces:   c.state.nonces(),
	})
	c.nextTimestamp = 0

	if len(logs) > 0 {
		for sub := range c.subs {
			sub.push(logs)
		}
	}
	return b
}

// blockAt resolves a block number argument, nil being the latest block.
func (c *Chain) blockAt(number *big.Int) (*block, error) {
	if number == nil || number.Sign() < 0 {
		return c.head(), nil
	}
	if !number.IsUint64() || number.Uint64() >= uint64(len(c.blocks)) {
		return nil, ethereum.NotFound
	}
	return c.blocks[number.Uint64()], nil
}

// SendTransaction validates a signed transaction, executes it and mines it
// in a new block. A reverted transaction is mined with a failed receipt.
func (c *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.txs[tx.Hash()]; ok {
		return transaction.ErrAlreadyImported
	}

	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSender, err)
	}

	switch nonce := c.state.nonce(from); {
	case tx.Nonce() < nonce:
		return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooLow, from, tx.Nonce(), nonce)
	case tx.Nonce() > nonce:
		return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooHigh, from, tx.Nonce(), nonce)
	}
	if tx.Gas() > c.gasLimit {
		return ErrGasLimit
	}
	intrinsic := intrinsicGas(tx.Data(), tx.To() == nil)
	if tx.Gas() < intrinsic {
		return fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, tx.Gas(), intrinsic)
	}
	if c.state.balance(from).Cmp(tx.Cost()) < 0 {
		return fmt.Errorf("%w: address %s", ErrInsufficientFunds, from)
	}

	timestamp := c.nextBlockTime()
	number := uint64(len(c.blocks))

	fee := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas()), tx.GasPrice())
	c.state.subBalance(from, fee)
	nonce := c.state.nonce(from)
	c.state.incNonce(from)

	res := c.execute(message{
		from:     from,
		to:       tx.To(),
		nonce:    nonce,
		value:    tx.Value(),
		data:     tx.Data(),
		gasLimit: tx.Gas(),
	}, number, timestamp)

	refund := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas()-res.gasUsed), tx.GasPrice())
	c.state.addBalance(from, refund)
	c.state.commit()

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: res.gasUsed,
		GasUsed:           res.gasUsed,
		TxHash:            tx.Hash(),
		ContractAddress:   res.contractAddress,
		Logs:              res.logs,
	}
	if res.err != nil {
		receipt.Status = types.ReceiptStatusFailed
	}
	for _, l := range receipt.Logs {
		l.TxHash = tx.Hash()
	}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})

	b := c.seal(timestamp, []*types.Transaction{tx}, []*types.Receipt{receipt})

	c.logger.Debug("transaction mined", "tx", tx.Hash(), "block", b.NumberU64(), "from", from, "status", receipt.Status, "gas_used", res.gasUsed)
	if res.err != nil {
		c.logger.Debug("transaction reverted", "tx", tx.Hash(), "error", res.err)
	}
	return nil
}

// CallContract executes the call against the pending block without
// persisting any change.
func (c *Chain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.simulate(call)
	if res.err != nil {
		return nil, res.err
	}
	return res.returnData, nil
}

// EstimateGas returns the gas used by the call when executed against the
// pending block.
func (c *Chain) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.simulate(call)
	if res.err != nil {
		return 0, res.err
	}
	return res.gasUsed, nil
}

func (c *Chain) simulate(call ethereum.CallMsg) *result {
	gasLimit := call.Gas
	if gasLimit == 0 {
		gasLimit = c.gasLimit
	}
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	mark := c.state.mark()
	defer c.state.revertTo(mark)

	if c.state.balance(call.From).Cmp(value) < 0 {
		return &result{err: fmt.Errorf("%w: address %s", ErrInsufficientFunds, call.From)}
	}

	res := c.execute(message{
		from:     call.From,
		to:       call.To,
		nonce:    c.state.nonce(call.From),
		value:    value,
		data:     call.Data,
		gasLimit: gasLimit,
	}, uint64(len(c.blocks)), c.nextBlockTime())

	if res.err != nil {
		res.err = newRevertError(res.err)
	}
	return res
}

func (c *Chain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.code(account), nil
}

func (c *Chain) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.CodeAt(ctx, account, nil)
}

func (c *Chain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.nonce(account), nil
}

func (c *Chain) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.blockAt(blockNumber)
	if err != nil {
		return 0, err
	}
	return b.nonces[account], nil
}

func (c *Chain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.blockAt(blockNumber)
	if err != nil {
		return nil, err
	}
	if v, ok := b.balances[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

// SetBalance overrides the balance of the account in the head block.
func (c *Chain) SetBalance(ctx context.Context, account common.Address, balance *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.setBalance(account, balance)
	c.state.commit()

	// snapshots share block records, replace the head instead of editing it
	head := *c.head()
	head.balances = make(map[common.Address]*big.Int, len(c.head().balances)+1)
	for a, v := range c.head().balances {
		head.balances[a] = v
	}
	head.balances[account] = new(big.Int).Set(balance)
	c.blocks[len(c.blocks)-1] = &head

	c.logger.Debug("balance set", "account", account, "balance", balance)
	return nil
}

func (c *Chain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.gasPrice), nil
}

func (c *Chain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.gasPrice), nil
}

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head().block.NumberU64(), nil
}

func (c *Chain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.blockAt(number)
	if err != nil {
		return nil, err
	}
	return b.block.Header(), nil
}

func (c *Chain) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.blockAt(number)
	if err != nil {
		return nil, err
	}
	return b.block, nil
}

// BlockByHash returns the block with the given hash.
func (c *Chain) BlockByHash(ctx context.Context, hash common.Hash) (*types.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range c.blocks {
		if b.block.Hash() == hash {
			return b.block, nil
		}
	}
	return nil, ethereum.NotFound
}

func (c *Chain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.txs[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	for _, r := range c.blocks[e.block].receipts {
		if r.TxHash == txHash {
			return r, nil
		}
	}
	return nil, ethereum.NotFound
}

func (c *Chain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return e.tx, false, nil
}

// transactionBlock returns the block a mined transaction is included in.
func (c *Chain) transactionBlock(hash common.Hash) (*types.Block, *types.Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.txs[hash]
	if !ok {
		return nil, nil, false
	}
	return c.blocks[e.block].block, e.tx, true
}

// FilterLogs returns the logs of mined blocks matching the query.
func (c *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var blocks []*block
	if q.BlockHash != nil {
		for _, b := range c.blocks {
			if b.block.Hash() == *q.BlockHash {
				blocks = append(blocks, b)
			}
		}
		if len(blocks) == 0 {
			return nil, ethereum.NotFound
		}
	} else {
		from, to := uint64(0), c.head().block.NumberU64()
		if q.FromBlock != nil && q.FromBlock.Sign() >= 0 {
			from = q.FromBlock.Uint64()
		}
		if q.ToBlock != nil && q.ToBlock.Sign() >= 0 && q.ToBlock.Uint64() < to {
			to = q.ToBlock.Uint64()
		}
		for n := from; n <= to && n < uint64(len(c.blocks)); n++ {
			blocks = append(blocks, c.blocks[n])
		}
	}

	logs := []types.Log{}
	for _, b := range blocks {
		for _, r := range b.receipts {
			for _, l := range r.Logs {
				if matchLog(q, l) {
					logs = append(logs, *l)
				}
			}
		}
	}
	return logs, nil
}

// SubscribeFilterLogs delivers logs of newly mined blocks matching the
// addresses and topics of the query. Delivery never blocks mining.
func (c *Chain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	sub := &logSubscription{
		query:  q,
		notify: make(chan struct{}, 1),
	}

	c.mu.Lock()
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer func() {
			c.mu.Lock()
			delete(c.subs, sub)
			c.mu.Unlock()
		}()
		for {
			select {
			case <-sub.notify:
			case <-quit:
				return nil
			case <-c.quit:
				return ErrClosed
			}
			for _, l := range sub.drain() {
				select {
				case ch <- l:
				case <-quit:
					return nil
				case <-c.quit:
					return ErrClosed
				}
			}
		}
	}), nil
}

type logSubscription struct {
	query  ethereum.FilterQuery
	mu     sync.Mutex
	queue  []types.Log
	notify chan struct{}
}

func (s *logSubscription) push(logs []types.Log) {
	s.mu.Lock()
	for _, l := range logs {
		l := l
		if matchLog(s.query, &l) {
			s.queue = append(s.queue, l)
		}
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *logSubscription) drain() []types.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := s.queue
	s.queue = nil
	return logs
}

// matchLog reports whether the log matches the addresses and topics of the
// query. An empty topic position matches anything.
func matchLog(q ethereum.FilterQuery, l *types.Log) bool {
	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(q.Topics) > len(l.Topics) {
		return false
	}
	for i, sub := range q.Topics {
		if len(sub) == 0 {
			continue
		}
		found := false
		for _, t := range sub {
			if t == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
