// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lottery is the client of a deployed lottery contract.
package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/contracts/lotterycontract"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/sctx"
	"github.com/ethersphere/lottery/pkg/transaction"
)

// loggerName is the tree path name of the logger for this package.
const loggerName = "lottery"

var lotteryABI = transaction.ParseABIUnchecked(lotterycontract.LotteryABI)

var (
	ErrNotEnoughETH    = errors.New("not enough eth to enter the lottery")
	ErrNotOpen         = errors.New("lottery is not open")
	ErrUpkeepNotNeeded = errors.New("upkeep not needed")
	ErrTransferFailed  = errors.New("transfer to the winner failed")
	ErrOnlyCoordinator = errors.New("only the coordinator can fulfill")
	ErrUnknownRequest  = errors.New("unknown randomness request")
	ErrIndexOutOfRange = errors.New("player index out of range")
)

// State is the state of the lottery round.
type State uint8

const (
	StateOpen        = State(lotterycontract.StateOpen)
	StateCalculating = State(lotterycontract.StateCalculating)
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCalculating:
		return "calculating"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "open":
		*s = StateOpen
	case "calculating":
		*s = StateCalculating
	default:
		return fmt.Errorf("unknown lottery state %q", text)
	}
	return nil
}

// Interface is the lottery contract.
type Interface interface {
	Address() common.Address
	// EnterLottery pays value to enter the sender into the current round.
	EnterLottery(ctx context.Context, value *big.Int) (*types.Receipt, error)
	// CheckUpkeep reports whether the round can be closed.
	CheckUpkeep(ctx context.Context, checkData []byte) (upkeepNeeded bool, performData []byte, err error)
	// PerformUpkeep closes the round and returns the randomness request id.
	PerformUpkeep(ctx context.Context, performData []byte) (requestID *big.Int, err error)
	EntranceFee(ctx context.Context) (*big.Int, error)
	State(ctx context.Context) (State, error)
	Interval(ctx context.Context) (*big.Int, error)
	GasLane(ctx context.Context) (common.Hash, error)
	CallbackGasLimit(ctx context.Context) (uint32, error)
	SubscriptionID(ctx context.Context) (uint64, error)
	VRFCoordinator(ctx context.Context) (common.Address, error)
	Player(ctx context.Context, index uint64) (common.Address, error)
	Players(ctx context.Context) ([]common.Address, error)
	RecentWinner(ctx context.Context) (common.Address, error)
	LastTimestamp(ctx context.Context) (*big.Int, error)
	NumberOfPlayers(ctx context.Context) (uint64, error)
	NumWords(ctx context.Context) (uint64, error)
	RequestConfirmations(ctx context.Context) (uint64, error)
	Balance(ctx context.Context) (*big.Int, error)
	Status(ctx context.Context) (*Status, error)
}

// Status is a snapshot of the lottery state.
type Status struct {
	Address          common.Address   `json:"address"`
	State            State            `json:"state"`
	EntranceFee      *big.Int         `json:"entranceFee"`
	Interval         *big.Int         `json:"interval"`
	LastTimestamp    *big.Int         `json:"lastTimestamp"`
	Players          []common.Address `json:"players"`
	RecentWinner     common.Address   `json:"recentWinner"`
	Balance          *big.Int         `json:"balance"`
	UpkeepNeeded     bool             `json:"upkeepNeeded"`
	VRFCoordinator   common.Address   `json:"vrfCoordinator"`
	SubscriptionID   uint64           `json:"subscriptionId"`
	GasLane          common.Hash      `json:"gasLane"`
	CallbackGasLimit uint32           `json:"callbackGasLimit"`
}

// BalanceReader returns the balance of an account.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Service struct {
	logger    log.Logger
	backend   BalanceReader
	txService transaction.Service
	address   common.Address
}

func New(logger log.Logger, backend BalanceReader, txService transaction.Service, address common.Address) *Service {
	return &Service{
		logger:    logger.WithName(loggerName).WithValues("address", address).Register(),
		backend:   backend,
		txService: txService,
		address:   address,
	}
}

func (s *Service) Address() common.Address {
	return s.address
}

func (s *Service) EnterLottery(ctx context.Context, value *big.Int) (*types.Receipt, error) {
	callData, err := lotteryABI.Pack("enterLottery")
	if err != nil {
		return nil, err
	}
	receipt, err := s.sendAndWait(ctx, &transaction.TxRequest{
		To:          &s.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Value:       value,
		Description: "enter lottery",
	})
	if err != nil {
		return nil, fmt.Errorf("enter lottery: %w", err)
	}
	s.logger.Debug("entered lottery", "player", s.txService.Sender(), "value", value, "tx", receipt.TxHash)
	return receipt, nil
}

func (s *Service) CheckUpkeep(ctx context.Context, checkData []byte) (bool, []byte, error) {
	results, err := s.call(ctx, "checkUpkeep", checkData)
	if err != nil {
		return false, nil, fmt.Errorf("check upkeep: %w", err)
	}
	return results[0].(bool), results[1].([]byte), nil
}

func (s *Service) PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, error) {
	callData, err := lotteryABI.Pack("performUpkeep", performData)
	if err != nil {
		return nil, err
	}
	receipt, err := s.sendAndWait(ctx, &transaction.TxRequest{
		To:          &s.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Value:       big.NewInt(0),
		Description: "perform upkeep",
	})
	if err != nil {
		return nil, fmt.Errorf("perform upkeep: %w", err)
	}

	event, err := ParseRequestedLotteryWinner(receipt, s.address)
	if err != nil {
		return nil, fmt.Errorf("perform upkeep: %w", err)
	}
	s.logger.Debug("requested lottery winner", "request_id", event.RequestId, "tx", receipt.TxHash)
	return event.RequestId, nil
}

func (s *Service) EntranceFee(ctx context.Context) (*big.Int, error) {
	return s.callBigInt(ctx, "getEntranceFee")
}

func (s *Service) State(ctx context.Context) (State, error) {
	results, err := s.call(ctx, "getLotteryState")
	if err != nil {
		return 0, fmt.Errorf("get lottery state: %w", err)
	}
	return State(results[0].(uint8)), nil
}

func (s *Service) Interval(ctx context.Context) (*big.Int, error) {
	return s.callBigInt(ctx, "getInterval")
}

func (s *Service) GasLane(ctx context.Context) (common.Hash, error) {
	results, err := s.call(ctx, "getGasLane")
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas lane: %w", err)
	}
	return common.Hash(results[0].([32]byte)), nil
}

func (s *Service) CallbackGasLimit(ctx context.Context) (uint32, error) {
	results, err := s.call(ctx, "getCallbackGasLimit")
	if err != nil {
		return 0, fmt.Errorf("get callback gas limit: %w", err)
	}
	return results[0].(uint32), nil
}

func (s *Service) SubscriptionID(ctx context.Context) (uint64, error) {
	results, err := s.call(ctx, "getSubscriptionId")
	if err != nil {
		return 0, fmt.Errorf("get subscription id: %w", err)
	}
	return results[0].(uint64), nil
}

func (s *Service) VRFCoordinator(ctx context.Context) (common.Address, error) {
	return s.callAddress(ctx, "getVrfCoordinator")
}

func (s *Service) Player(ctx context.Context, index uint64) (common.Address, error) {
	return s.callAddress(ctx, "getPlayer", new(big.Int).SetUint64(index))
}

// Players returns all entrants of the current round.
func (s *Service) Players(ctx context.Context) ([]common.Address, error) {
	n, err := s.NumberOfPlayers(ctx)
	if err != nil {
		return nil, err
	}
	players := make([]common.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		p, err := s.Player(ctx, i)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

func (s *Service) RecentWinner(ctx context.Context) (common.Address, error) {
	return s.callAddress(ctx, "getRecentWinner")
}

func (s *Service) LastTimestamp(ctx context.Context) (*big.Int, error) {
	return s.callBigInt(ctx, "getLastTimestamp")
}

func (s *Service) NumberOfPlayers(ctx context.Context) (uint64, error) {
	return s.callUint64(ctx, "getNumberOfPlayers")
}

func (s *Service) NumWords(ctx context.Context) (uint64, error) {
	return s.callUint64(ctx, "getNumWords")
}

func (s *Service) RequestConfirmations(ctx context.Context) (uint64, error) {
	return s.callUint64(ctx, "getRequestConfirmations")
}

func (s *Service) Balance(ctx context.Context) (*big.Int, error) {
	b, err := s.backend.BalanceAt(ctx, s.address, nil)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{Address: s.address}
	var err error
	if st.State, err = s.State(ctx); err != nil {
		return nil, err
	}
	if st.EntranceFee, err = s.EntranceFee(ctx); err != nil {
		return nil, err
	}
	if st.Interval, err = s.Interval(ctx); err != nil {
		return nil, err
	}
	if st.LastTimestamp, err = s.LastTimestamp(ctx); err != nil {
		return nil, err
	}
	if st.Players, err = s.Players(ctx); err != nil {
		return nil, err
	}
	if st.RecentWinner, err = s.RecentWinner(ctx); err != nil {
		return nil, err
	}
	if st.Balance, err = s.Balance(ctx); err != nil {
		return nil, err
	}
	if st.UpkeepNeeded, _, err = s.CheckUpkeep(ctx, nil); err != nil {
		return nil, err
	}
	if st.VRFCoordinator, err = s.VRFCoordinator(ctx); err != nil {
		return nil, err
	}
	if st.SubscriptionID, err = s.SubscriptionID(ctx); err != nil {
		return nil, err
	}
	if st.GasLane, err = s.GasLane(ctx); err != nil {
		return nil, err
	}
	if st.CallbackGasLimit, err = s.CallbackGasLimit(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) callBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	results, err := s.call(ctx, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return results[0].(*big.Int), nil
}

func (s *Service) callUint64(ctx context.Context, method string, args ...interface{}) (uint64, error) {
	v, err := s.callBigInt(ctx, method, args...)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s: value %d overflows uint64", method, v)
	}
	return v.Uint64(), nil
}

func (s *Service) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	results, err := s.call(ctx, method, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", method, err)
	}
	return results[0].(common.Address), nil
}

// call simulates the method and unpacks its results.
func (s *Service) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	callData, err := lotteryABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	result, err := s.txService.Call(ctx, &transaction.TxRequest{
		To:   &s.address,
		Data: callData,
	})
	if err != nil {
		return nil, decodeError(err)
	}
	results, err := lotteryABI.Unpack(method, result)
	if err != nil {
		return nil, err
	}
	if len(results) != len(lotteryABI.Methods[method].Outputs) {
		return nil, fmt.Errorf("unexpected number of results %d", len(results))
	}
	return results, nil
}

// sendAndWait sends the transaction and waits until it is mined.
func (s *Service) sendAndWait(ctx context.Context, request *transaction.TxRequest) (*types.Receipt, error) {
	txHash, err := s.txService.Send(ctx, request)
	if err != nil {
		return nil, decodeError(err)
	}

	receipt, err := s.txService.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, transaction.ErrTransactionReverted
	}
	return receipt, nil
}

// revertError attaches the sentinel matching the revert data to the
// transaction error.
type revertError struct {
	sentinel error
	cause    error
}

func (e *revertError) Error() string {
	return fmt.Sprintf("%v: %v", e.sentinel, e.cause)
}

func (e *revertError) Is(target error) bool {
	return target == e.sentinel
}

func (e *revertError) Unwrap() error {
	return e.cause
}

// UpkeepNotNeededError is returned when the round cannot be closed yet. It
// carries the values the contract reported.
type UpkeepNotNeededError struct {
	Balance *big.Int
	Players uint64
	State   State
	cause   error
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("%v: balance %d, players %d, state %s", ErrUpkeepNotNeeded, e.Balance, e.Players, e.State)
}

func (e *UpkeepNotNeededError) Is(target error) bool {
	return target == ErrUpkeepNotNeeded
}

func (e *UpkeepNotNeededError) Unwrap() error {
	return e.cause
}

var sentinels = []struct {
	signature string
	err       error
}{
	{lotterycontract.ErrNotEnoughETH, ErrNotEnoughETH},
	{lotterycontract.ErrNotOpen, ErrNotOpen},
	{lotterycontract.ErrTransferFailed, ErrTransferFailed},
	{lotterycontract.ErrOnlyCoordinatorCanFulfill, ErrOnlyCoordinator},
	{lotterycontract.ErrUnknownRequest, ErrUnknownRequest},
	{"Panic(uint256)", ErrIndexOutOfRange},
}

// decodeError maps revert data of the lottery custom errors to the package
// sentinel errors.
func decodeError(err error) error {
	data, ok := transaction.RevertData(err)
	if !ok {
		return err
	}
	if args, ok := contracts.MatchError(data, lotterycontract.ErrUpkeepNotNeeded); ok {
		return &UpkeepNotNeededError{
			Balance: args[0].(*big.Int),
			Players: args[1].(*big.Int).Uint64(),
			State:   State(args[2].(*big.Int).Uint64()),
			cause:   err,
		}
	}
	for _, s := range sentinels {
		if _, ok := contracts.MatchError(data, s.signature); ok {
			return &revertError{sentinel: s.err, cause: err}
		}
	}
	return err
}
