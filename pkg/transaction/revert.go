// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RevertError is returned when a call or a gas estimation is reverted by the
// contract. Data holds the raw revert data as returned by the node.
type RevertError struct {
	Message string
	Data    []byte
}

func (e *RevertError) Error() string {
	if len(e.Data) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: 0x%x", e.Message, e.Data)
}

// Unwrap makes errors.Is(err, ErrTransactionReverted) hold for revert errors.
func (e *RevertError) Unwrap() error {
	return ErrTransactionReverted
}

// RevertData returns the revert data carried by err, if any.
func RevertData(err error) ([]byte, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Data, true
	}
	return nil, false
}

// asRevertError converts json-rpc errors with attached data into a
// *RevertError. Other errors are returned unchanged.
func asRevertError(err error) error {
	var de rpc.DataError
	if !errors.As(err, &de) {
		return err
	}

	var data []byte
	switch v := de.ErrorData().(type) {
	case string:
		d, derr := hexutil.Decode(v)
		if derr != nil {
			return err
		}
		data = d
	case []byte:
		data = v
	case nil:
	default:
		return err
	}

	return &RevertError{
		Message: de.Error(),
		Data:    data,
	}
}
