// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keeper_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethersphere/lottery/pkg/keeper"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/lottery"
	"github.com/ethersphere/lottery/pkg/lottery/mock"
)

func TestKeeperCheck(t *testing.T) {
	t.Parallel()

	errBackend := errors.New("backend")
	performData := []byte{0x01}

	for _, tc := range []struct {
		name        string
		needed      bool
		checkErr    error
		performErr  error
		wantID      *big.Int
		wantErr     error
		wantPerform bool
	}{
		{
			name: "not needed",
		},
		{
			name:        "needed",
			needed:      true,
			wantID:      big.NewInt(7),
			wantPerform: true,
		},
		{
			name:     "check fails",
			checkErr: errBackend,
			wantErr:  errBackend,
		},
		{
			name:        "closed by someone else",
			needed:      true,
			performErr:  &lottery.UpkeepNotNeededError{},
			wantPerform: true,
		},
		{
			name:        "perform fails",
			needed:      true,
			performErr:  errBackend,
			wantErr:     errBackend,
			wantPerform: true,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			performed := false
			l := mock.New(
				mock.WithCheckUpkeepFunc(func(context.Context, []byte) (bool, []byte, error) {
					return tc.needed, performData, tc.checkErr
				}),
				mock.WithPerformUpkeepFunc(func(_ context.Context, data []byte) (*big.Int, error) {
					performed = true
					if !bytes.Equal(data, performData) {
						t.Fatalf("got perform data %x, want %x", data, performData)
					}
					if tc.performErr != nil {
						return nil, tc.performErr
					}
					return tc.wantID, nil
				}),
			)

			k := keeper.NewKeeper(log.Noop, l, time.Second)
			id, err := k.Check(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got error %v, want %v", err, tc.wantErr)
			}
			if performed != tc.wantPerform {
				t.Fatalf("got performed %v, want %v", performed, tc.wantPerform)
			}
			if tc.wantID == nil && id != nil || tc.wantID != nil && (id == nil || id.Cmp(tc.wantID) != 0) {
				t.Fatalf("got request id %v, want %v", id, tc.wantID)
			}
		})
	}
}

func TestKeeperStart(t *testing.T) {
	t.Parallel()

	performed := make(chan struct{}, 1)
	l := mock.New(
		mock.WithCheckUpkeepFunc(func(context.Context, []byte) (bool, []byte, error) {
			return true, nil, nil
		}),
		mock.WithPerformUpkeepFunc(func(context.Context, []byte) (*big.Int, error) {
			select {
			case performed <- struct{}{}:
			default:
			}
			return big.NewInt(1), nil
		}),
	)

	k := keeper.NewKeeper(log.Noop, l, 10*time.Millisecond)
	k.Start()

	select {
	case <-performed:
	case <-time.After(5 * time.Second):
		t.Fatal("upkeep not performed")
	}
	if err := k.Close(); err != nil {
		t.Fatal(err)
	}
}
