// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scripts holds the deploy scripts of the lottery.
package scripts

import (
	"strings"

	"github.com/ethersphere/lottery/pkg/deploy"
)

// Tags selecting scripts.
const (
	TagAll     = "all"
	TagMocks   = "mocks"
	TagLottery = "lottery"
)

// Deployment names.
const (
	CoordinatorMock = "VRFCoordinatorV2Mock"
	Lottery         = "Lottery"
)

var rule = strings.Repeat("-", 50)

// All returns the scripts in the order they run.
func All() []deploy.Script {
	return []deploy.Script{
		DeployMocks,
		DeployLottery,
	}
}
