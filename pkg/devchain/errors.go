// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethersphere/lottery/pkg/contracts"
)

// RevertError is returned by calls and gas estimations that failed. It
// carries the revert data the way json-rpc nodes do.
type RevertError struct {
	reason string
	data   []byte
}

func newRevertError(err error) *RevertError {
	var r *contracts.Revert
	if !errors.As(err, &r) {
		return &RevertError{reason: err.Error()}
	}
	return &RevertError{
		reason: r.Error(),
		data:   r.Data,
	}
}

func (e *RevertError) Error() string {
	return e.reason
}

// ErrorCode is the json-rpc error code of execution errors.
func (e *RevertError) ErrorCode() int {
	return 3
}

// ErrorData returns the hex encoded revert data.
func (e *RevertError) ErrorData() interface{} {
	return hexutil.Encode(e.data)
}

// Data returns the raw revert data.
func (e *RevertError) Data() []byte {
	return e.data
}
