// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/crypto"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// loggerName is the tree path name of the logger for this package.
const loggerName = "transaction"

const (
	noncePrefix              = "transaction_nonce_"
	storedTransactionPrefix  = "transaction_stored_"
	pendingTransactionPrefix = "transaction_pending_"
)

var (
	// ErrTransactionReverted denotes that the sent transaction has been
	// reverted.
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrUnknownTransaction  = errors.New("unknown transaction")
	ErrAlreadyImported     = errors.New("already imported")
)

// TxRequest describes a request for a transaction that can be executed.
type TxRequest struct {
	To          *common.Address // recipient of the transaction or nil for contract creation
	Data        []byte          // transaction data
	GasPrice    *big.Int        // gas price or nil if suggested gas price should be used
	GasLimit    uint64          // gas limit or 0 if it should be estimated
	Value       *big.Int        // amount of wei to send
	Description string          // optional description
}

// StoredTransaction is the record of a sent transaction, enough to sign it
// again with the same hash.
type StoredTransaction struct {
	To          *common.Address `msgpack:"to"`
	Data        []byte          `msgpack:"data"`
	GasPrice    *big.Int        `msgpack:"gasPrice"`
	GasLimit    uint64          `msgpack:"gasLimit"`
	Value       *big.Int        `msgpack:"value"`
	Nonce       uint64          `msgpack:"nonce"`
	Created     int64           `msgpack:"created"`
	Description string          `msgpack:"description"`
}

type storedTransactionRecord StoredTransaction

func (s *StoredTransaction) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal((*storedTransactionRecord)(s))
}

func (s *StoredTransaction) UnmarshalBinary(data []byte) error {
	return msgpack.Unmarshal(data, (*storedTransactionRecord)(s))
}

func (s *StoredTransaction) transaction() *types.Transaction {
	return newTransaction(s.Nonce, s.To, s.Value, s.GasLimit, s.GasPrice, s.Data)
}

// newTransaction returns a contract creation when to is nil.
func newTransaction(nonce uint64, to *common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
}

// Service sends transactions from a single account and tracks them until
// they are mined. It fills in gas price, gas limit and nonce.
type Service interface {
	io.Closer
	Sender() common.Address
	Send(ctx context.Context, request *TxRequest) (txHash common.Hash, err error)
	// Call runs the request against the pending state without sending it.
	Call(ctx context.Context, request *TxRequest) (result []byte, err error)
	// WaitForReceipt and WatchSentTransaction only accept transactions sent
	// by this service.
	WaitForReceipt(ctx context.Context, txHash common.Hash) (receipt *types.Receipt, err error)
	WatchSentTransaction(txHash common.Hash) (<-chan types.Receipt, <-chan error, error)
	StoredTransaction(txHash common.Hash) (*StoredTransaction, error)
	// PendingTransactions lists sent transactions not yet mined or cancelled.
	PendingTransactions() ([]common.Hash, error)
	// ResendTransaction broadcasts a stored transaction again, for when it
	// dropped out of the mempool.
	ResendTransaction(ctx context.Context, txHash common.Hash) error
}

type transactionService struct {
	wg     sync.WaitGroup
	lock   sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	logger  log.Logger
	backend Backend
	signer  crypto.Signer
	sender  common.Address
	store   storage.StateStorer
	chainID *big.Int
	monitor Monitor
}

// NewService returns a Service sending from the signer's account. Pending
// transactions recorded by an earlier run are watched again.
func NewService(logger log.Logger, backend Backend, signer crypto.Signer, store storage.StateStorer, chainID *big.Int, monitor Monitor) (Service, error) {
	sender, err := signer.EthereumAddress()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &transactionService{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.WithName(loggerName).WithValues("sender", sender).Register(),
		backend: backend,
		signer:  signer,
		sender:  sender,
		store:   store,
		chainID: chainID,
		monitor: monitor,
	}

	pending, err := t.PendingTransactions()
	if err != nil {
		cancel()
		return nil, err
	}
	for _, txHash := range pending {
		t.waitForPendingTx(txHash)
	}
	return t, nil
}

func (t *transactionService) Sender() common.Address {
	return t.sender
}

// Send signs and broadcasts the request with the next free nonce of the
// sender. The transaction is recorded as pending until it is mined or
// cancelled.
func (t *transactionService) Send(ctx context.Context, request *TxRequest) (common.Hash, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	nonce, err := t.nextNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := t.prepare(ctx, request, nonce)
	if err != nil {
		return common.Hash{}, err
	}
	signed, err := t.signer.SignTx(tx, t.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	txHash := signed.Hash()

	t.logger.V(1).Register().Debug("sending transaction", "tx", txHash, "nonce", nonce, "description", request.Description)
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	if err := t.store.Put(t.nonceKey(), nonce+1); err != nil {
		return common.Hash{}, err
	}
	if err := t.record(signed, request.Description); err != nil {
		return common.Hash{}, err
	}
	t.waitForPendingTx(txHash)
	return txHash, nil
}

// record stores the sent transaction and marks it pending until the
// monitor resolves it.
func (t *transactionService) record(tx *types.Transaction, description string) error {
	stored := &StoredTransaction{
		To:          tx.To(),
		Data:        tx.Data(),
		GasPrice:    tx.GasPrice(),
		GasLimit:    tx.Gas(),
		Value:       tx.Value(),
		Nonce:       tx.Nonce(),
		Created:     time.Now().Unix(),
		Description: description,
	}
	if err := t.store.Put(storedTransactionKey(tx.Hash()), stored); err != nil {
		return err
	}
	return t.store.Put(pendingTransactionKey(tx.Hash()), struct{}{})
}

func (t *transactionService) waitForPendingTx(txHash common.Hash) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		switch _, err := t.WaitForReceipt(t.ctx, txHash); {
		case err == nil:
			t.logger.V(1).Register().Debug("pending transaction confirmed", "tx", txHash)
		case errors.Is(err, ErrTransactionCancelled):
			t.logger.Warning("pending transaction cancelled", "tx", txHash)
		case errors.Is(err, context.Canceled), errors.Is(err, ErrMonitorClosed):
			// shutting down, keep the transaction marked as pending
			return
		default:
			t.logger.Error(err, "waiting for pending transaction failed", "tx", txHash)
			return
		}

		if err := t.store.Delete(pendingTransactionKey(txHash)); err != nil {
			t.logger.Error(err, "unregistering pending transaction failed", "tx", txHash)
		}
	}()
}

// Call simulates the request against the pending state. Reverted calls return
// a *RevertError carrying the revert data.
func (t *transactionService) Call(ctx context.Context, request *TxRequest) ([]byte, error) {
	msg := ethereum.CallMsg{
		From:     t.sender,
		To:       request.To,
		Data:     request.Data,
		GasPrice: request.GasPrice,
		Gas:      request.GasLimit,
		Value:    request.Value,
	}
	data, err := t.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, asRevertError(err)
	}
	return data, nil
}

func (t *transactionService) StoredTransaction(txHash common.Hash) (*StoredTransaction, error) {
	stored := new(StoredTransaction)
	switch err := t.store.Get(storedTransactionKey(txHash), stored); {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrUnknownTransaction
	case err != nil:
		return nil, err
	}
	return stored, nil
}

// gasLimitMargin is the share of the estimate added on top of estimated gas
// limits.
const gasLimitMargin = 5

// prepare fills in the gas limit and price the request leaves open.
func (t *transactionService) prepare(ctx context.Context, request *TxRequest, nonce uint64) (*types.Transaction, error) {
	value := request.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit := request.GasLimit
	if gasLimit == 0 {
		estimate, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  t.sender,
			To:    request.To,
			Data:  request.Data,
			Value: value,
		})
		if err != nil {
			return nil, asRevertError(err)
		}
		gasLimit = estimate + estimate/gasLimitMargin
	}

	gasPrice := request.GasPrice
	if gasPrice == nil {
		suggested, err := t.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		gasPrice = suggested
	}

	return newTransaction(nonce, request.To, value, gasLimit, gasPrice, request.Data), nil
}

func (t *transactionService) nonceKey() string {
	return nonceKey(t.sender)
}

func nonceKey(sender common.Address) string {
	return fmt.Sprintf("%s%x", noncePrefix, sender)
}

// ResetNonce drops the locally tracked nonce of the sender so that the next
// transaction uses the nonce of the chain. It is needed after the chain was
// reverted to an earlier state.
func ResetNonce(store storage.StateStorer, sender common.Address) error {
	return store.Delete(nonceKey(sender))
}

func storedTransactionKey(txHash common.Hash) string {
	return fmt.Sprintf("%s%x", storedTransactionPrefix, txHash)
}

func pendingTransactionKey(txHash common.Hash) string {
	return fmt.Sprintf("%s%x", pendingTransactionPrefix, txHash)
}

// nextNonce is the larger of the locally tracked and the pending chain
// nonce. The chain wins when transactions were sent from elsewhere.
func (t *transactionService) nextNonce(ctx context.Context) (uint64, error) {
	chainNonce, err := t.backend.PendingNonceAt(ctx, t.sender)
	if err != nil {
		return 0, err
	}
	var local uint64
	switch err := t.store.Get(t.nonceKey(), &local); {
	case errors.Is(err, storage.ErrNotFound):
		return chainNonce, nil
	case err != nil:
		return 0, err
	case chainNonce > local:
		return chainNonce, nil
	default:
		return local, nil
	}
}

// WaitForReceipt blocks until the transaction is mined, cancelled or ctx
// ends.
func (t *transactionService) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receiptC, errC, err := t.WatchSentTransaction(txHash)
	if err != nil {
		return nil, err
	}
	select {
	case receipt := <-receiptC:
		return &receipt, nil
	case err := <-errC:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WatchSentTransaction only accepts transactions recorded by this service,
// since the monitor needs their nonce.
func (t *transactionService) WatchSentTransaction(txHash common.Hash) (<-chan types.Receipt, <-chan error, error) {
	stored, err := t.StoredTransaction(txHash)
	if err != nil {
		return nil, nil, err
	}
	return t.monitor.WatchTransaction(txHash, stored.Nonce)
}

func (t *transactionService) PendingTransactions() ([]common.Hash, error) {
	hashes := make([]common.Hash, 0)
	err := t.store.Iterate(pendingTransactionPrefix, func(key, _ []byte) (bool, error) {
		hashes = append(hashes, common.HexToHash(strings.TrimPrefix(string(key), pendingTransactionPrefix)))
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

// ResendTransaction signs the stored transaction again and broadcasts it.
// Nodes that still know it answer with ErrAlreadyImported.
func (t *transactionService) ResendTransaction(ctx context.Context, txHash common.Hash) error {
	stored, err := t.StoredTransaction(txHash)
	if err != nil {
		return err
	}
	signed, err := t.signer.SignTx(stored.transaction(), t.chainID)
	if err != nil {
		return err
	}
	if signed.Hash() != txHash {
		return errors.New("transaction hash changed")
	}
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		if alreadyKnown(err) {
			return ErrAlreadyImported
		}
		return err
	}
	return nil
}

func alreadyKnown(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already imported") || strings.Contains(msg, "already known")
}

func (t *transactionService) Close() error {
	t.cancel()
	t.wg.Wait()
	return nil
}
