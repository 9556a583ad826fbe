// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/jsonhttp"
	"github.com/ethersphere/lottery/pkg/lottery"
	"github.com/gorilla/mux"
)

type lotteryPlayerResponse struct {
	Index   uint64         `json:"index"`
	Address common.Address `json:"address"`
}

// lotteryStatusHandler coalesces concurrent requests into a single round
// of contract calls.
func (s *Service) lotteryStatusHandler(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.statusFlight.Do(r.Context(), "status", func(ctx context.Context) (interface{}, error) {
		return s.lottery.Status(ctx)
	})
	if err != nil {
		s.logger.Debug("lottery status: get failed", "error", err)
		s.logger.Error(nil, "lottery status: get failed")
		jsonhttp.InternalServerError(w, "lottery status unavailable")
		return
	}
	jsonhttp.OK(w, v.(*lottery.Status))
}

func (s *Service) lotteryPlayerHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		s.logger.Debug("lottery player: invalid index", "index", mux.Vars(r)["index"], "error", err)
		jsonhttp.BadRequest(w, "invalid player index")
		return
	}

	player, err := s.lottery.Player(r.Context(), index)
	if err != nil {
		if errors.Is(err, lottery.ErrIndexOutOfRange) {
			jsonhttp.NotFound(w, "player not found")
			return
		}
		s.logger.Debug("lottery player: get failed", "index", index, "error", err)
		s.logger.Error(nil, "lottery player: get failed")
		jsonhttp.InternalServerError(w, "lottery player unavailable")
		return
	}
	jsonhttp.OK(w, lotteryPlayerResponse{Index: index, Address: player})
}
