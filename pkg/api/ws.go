// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultStatusFeedInterval is how often the status feed polls the
	// contract.
	DefaultStatusFeedInterval = 2 * time.Second

	writeDeadline = 4 * time.Second
	pingPeriod    = 30 * time.Second
)

// lotteryWsHandler upgrades the connection and pushes a status snapshot
// every time it changes.
func (s *Service) lotteryWsHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || s.checkOrigin(o)
		},
	}
	// Upgrade replies with an error status on failure.
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("lottery ws: upgrade failed", "error", err)
		return
	}

	s.wsWg.Add(1)
	go s.pumpStatus(conn)
}

func (s *Service) pumpStatus(conn *websocket.Conn) {
	defer s.wsWg.Done()

	var (
		gone        = make(chan struct{})
		poll        = time.NewTicker(s.statusFeedInterval)
		ping        = time.NewTicker(pingPeriod)
		last        []byte
		ctx, cancel = context.WithCancel(context.Background())
	)
	defer func() {
		cancel()
		poll.Stop()
		ping.Stop()
		conn.Close()
	}()

	// Control frames are only processed while reading.
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(messageType int, data []byte) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
			s.logger.Debug("lottery ws: set write deadline failed", "error", err)
			return false
		}
		if err := conn.WriteMessage(messageType, data); err != nil {
			s.logger.Debug("lottery ws: write failed", "error", err)
			return false
		}
		return true
	}

	push := func() bool {
		status, _, err := s.statusFlight.Do(ctx, "status", func(ctx context.Context) (interface{}, error) {
			return s.lottery.Status(ctx)
		})
		if err != nil {
			s.logger.Debug("lottery ws: get status failed", "error", err)
			return true
		}
		b, err := json.Marshal(status)
		if err != nil {
			s.logger.Debug("lottery ws: marshal status failed", "error", err)
			return true
		}
		if bytes.Equal(b, last) {
			return true
		}
		last = b
		s.metrics.StatusFeedMessages.Inc()
		return write(websocket.TextMessage, b)
	}

	s.metrics.StatusFeedConnections.Inc()
	defer s.metrics.StatusFeedConnections.Dec()

	if !push() {
		return
	}
	for {
		select {
		case <-poll.C:
			if !push() {
				return
			}
		case <-ping.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		case <-s.quit:
			write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-gone:
			return
		}
	}
}
