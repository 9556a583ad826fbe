// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lotterycontract

// LotteryABI is the json ABI of the lottery contract.
const LotteryABI = `[
  {
    "type": "constructor",
    "inputs": [
      {"name": "vrfCoordinatorV2", "type": "address"},
      {"name": "entranceFee", "type": "uint256"},
      {"name": "gasLane", "type": "bytes32"},
      {"name": "subscriptionId", "type": "uint64"},
      {"name": "callbackGasLimit", "type": "uint32"},
      {"name": "interval", "type": "uint256"}
    ],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "enterLottery",
    "inputs": [],
    "outputs": [],
    "stateMutability": "payable"
  },
  {
    "type": "function",
    "name": "checkUpkeep",
    "inputs": [{"name": "checkData", "type": "bytes"}],
    "outputs": [
      {"name": "upkeepNeeded", "type": "bool"},
      {"name": "performData", "type": "bytes"}
    ],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "performUpkeep",
    "inputs": [{"name": "performData", "type": "bytes"}],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "rawFulfillRandomWords",
    "inputs": [
      {"name": "requestId", "type": "uint256"},
      {"name": "randomWords", "type": "uint256[]"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "getEntranceFee",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getLotteryState",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint8"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getInterval",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getGasLane",
    "inputs": [],
    "outputs": [{"name": "", "type": "bytes32"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getCallbackGasLimit",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint32"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getSubscriptionId",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint64"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getVrfCoordinator",
    "inputs": [],
    "outputs": [{"name": "", "type": "address"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getPlayer",
    "inputs": [{"name": "index", "type": "uint256"}],
    "outputs": [{"name": "", "type": "address"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getRecentWinner",
    "inputs": [],
    "outputs": [{"name": "", "type": "address"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getLastTimestamp",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getNumberOfPlayers",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getNumWords",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "pure"
  },
  {
    "type": "function",
    "name": "getRequestConfirmations",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "pure"
  },
  {
    "type": "event",
    "name": "LotteryEntered",
    "inputs": [{"name": "player", "type": "address", "indexed": true}],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "RequestedLotteryWinner",
    "inputs": [{"name": "requestId", "type": "uint256", "indexed": true}],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "WinnerPicked",
    "inputs": [{"name": "winner", "type": "address", "indexed": true}],
    "anonymous": false
  }
]`

// coordinatorABI is the part of the coordinator interface the lottery calls.
const coordinatorABI = `[
  {
    "type": "function",
    "name": "requestRandomWords",
    "inputs": [
      {"name": "keyHash", "type": "bytes32"},
      {"name": "subId", "type": "uint64"},
      {"name": "minimumRequestConfirmations", "type": "uint16"},
      {"name": "callbackGasLimit", "type": "uint32"},
      {"name": "numWords", "type": "uint32"}
    ],
    "outputs": [{"name": "requestId", "type": "uint256"}],
    "stateMutability": "nonpayable"
  }
]`
