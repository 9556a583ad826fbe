// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrfmock

// CoordinatorABI is the json ABI of the coordinator mock.
const CoordinatorABI = `[
  {
    "type": "constructor",
    "inputs": [
      {"name": "_baseFee", "type": "uint96"},
      {"name": "_gasPriceLink", "type": "uint96"}
    ],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "BASE_FEE",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint96"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "GAS_PRICE_LINK",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint96"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "createSubscription",
    "inputs": [],
    "outputs": [{"name": "_subId", "type": "uint64"}],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "fundSubscription",
    "inputs": [
      {"name": "_subId", "type": "uint64"},
      {"name": "_amount", "type": "uint96"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "addConsumer",
    "inputs": [
      {"name": "_subId", "type": "uint64"},
      {"name": "_consumer", "type": "address"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "removeConsumer",
    "inputs": [
      {"name": "_subId", "type": "uint64"},
      {"name": "_consumer", "type": "address"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "cancelSubscription",
    "inputs": [
      {"name": "_subId", "type": "uint64"},
      {"name": "_to", "type": "address"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "getSubscription",
    "inputs": [{"name": "_subId", "type": "uint64"}],
    "outputs": [
      {"name": "balance", "type": "uint96"},
      {"name": "reqCount", "type": "uint64"},
      {"name": "owner", "type": "address"},
      {"name": "consumers", "type": "address[]"}
    ],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "consumerIsAdded",
    "inputs": [
      {"name": "_subId", "type": "uint64"},
      {"name": "_consumer", "type": "address"}
    ],
    "outputs": [{"name": "", "type": "bool"}],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "requestRandomWords",
    "inputs": [
      {"name": "_keyHash", "type": "bytes32"},
      {"name": "_subId", "type": "uint64"},
      {"name": "_minimumRequestConfirmations", "type": "uint16"},
      {"name": "_callbackGasLimit", "type": "uint32"},
      {"name": "_numWords", "type": "uint32"}
    ],
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "fulfillRandomWords",
    "inputs": [
      {"name": "_requestId", "type": "uint256"},
      {"name": "_consumer", "type": "address"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "fulfillRandomWordsWithOverride",
    "inputs": [
      {"name": "_requestId", "type": "uint256"},
      {"name": "_consumer", "type": "address"},
      {"name": "_words", "type": "uint256[]"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "event",
    "name": "SubscriptionCreated",
    "inputs": [
      {"name": "subId", "type": "uint64", "indexed": true},
      {"name": "owner", "type": "address", "indexed": false}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "SubscriptionFunded",
    "inputs": [
      {"name": "subId", "type": "uint64", "indexed": true},
      {"name": "oldBalance", "type": "uint256", "indexed": false},
      {"name": "newBalance", "type": "uint256", "indexed": false}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "SubscriptionCanceled",
    "inputs": [
      {"name": "subId", "type": "uint64", "indexed": true},
      {"name": "to", "type": "address", "indexed": false},
      {"name": "amount", "type": "uint256", "indexed": false}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "ConsumerAdded",
    "inputs": [
      {"name": "subId", "type": "uint64", "indexed": true},
      {"name": "consumer", "type": "address", "indexed": false}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "ConsumerRemoved",
    "inputs": [
      {"name": "subId", "type": "uint64", "indexed": true},
      {"name": "consumer", "type": "address", "indexed": false}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "RandomWordsRequested",
    "inputs": [
      {"name": "keyHash", "type": "bytes32", "indexed": true},
      {"name": "requestId", "type": "uint256", "indexed": false},
      {"name": "preSeed", "type": "uint256", "indexed": false},
      {"name": "subId", "type": "uint64", "indexed": true},
      {"name": "minimumRequestConfirmations", "type": "uint16", "indexed": false},
      {"name": "callbackGasLimit", "type": "uint32", "indexed": false},
      {"name": "numWords", "type": "uint32", "indexed": false},
      {"name": "sender", "type": "address", "indexed": true}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "RandomWordsFulfilled",
    "inputs": [
      {"name": "requestId", "type": "uint256", "indexed": true},
      {"name": "outputSeed", "type": "uint256", "indexed": false},
      {"name": "payment", "type": "uint96", "indexed": false},
      {"name": "success", "type": "bool", "indexed": false}
    ],
    "anonymous": false
  }
]`

// consumerABI is the callback every consumer implements.
const consumerABI = `[
  {
    "type": "function",
    "name": "rawFulfillRandomWords",
    "inputs": [
      {"name": "requestId", "type": "uint256"},
      {"name": "randomWords", "type": "uint256[]"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  }
]`
