// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package contracts

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// errorStringSignature is the signature of reverts with a reason string.
const errorStringSignature = "Error(string)"

// Revert aborts a contract call. Data is returned to the caller as revert
// data.
type Revert struct {
	Data []byte
}

func (r *Revert) Error() string {
	if reason, ok := RevertReason(r.Data); ok {
		return "execution reverted: " + reason
	}
	return "execution reverted"
}

// ErrorSelector returns the four byte selector of an error signature such as
// "NotOpen()".
func ErrorSelector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// CustomError returns a revert with the encoded custom error. It panics if the
// signature is malformed or the arguments do not match it.
func CustomError(signature string, args ...interface{}) *Revert {
	arguments, err := errorArguments(signature)
	if err != nil {
		panic(err)
	}
	packed, err := arguments.Pack(args...)
	if err != nil {
		panic(fmt.Sprintf("pack %s: %v", signature, err))
	}
	return &Revert{Data: append(ErrorSelector(signature), packed...)}
}

// RevertString returns a revert with a reason string.
func RevertString(reason string) *Revert {
	return CustomError(errorStringSignature, reason)
}

// RevertReason decodes the reason string of the revert data.
func RevertReason(data []byte) (string, bool) {
	args, ok := MatchError(data, errorStringSignature)
	if !ok || len(args) != 1 {
		return "", false
	}
	reason, ok := args[0].(string)
	return reason, ok
}

// MatchError reports whether the revert data encodes the custom error with the
// given signature and returns its decoded arguments.
func MatchError(data []byte, signature string) ([]interface{}, bool) {
	if len(data) < 4 || !bytes.Equal(data[:4], ErrorSelector(signature)) {
		return nil, false
	}
	arguments, err := errorArguments(signature)
	if err != nil {
		return nil, false
	}
	args, err := arguments.Unpack(data[4:])
	if err != nil {
		return nil, false
	}
	return args, true
}

// errorArguments parses the argument types of a signature. Tuple types are
// not supported.
func errorArguments(signature string) (abi.Arguments, error) {
	open := strings.IndexByte(signature, '(')
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return nil, fmt.Errorf("malformed error signature %q", signature)
	}
	inner := signature[open+1 : len(signature)-1]
	if inner == "" {
		return abi.Arguments{}, nil
	}

	var arguments abi.Arguments
	for _, t := range strings.Split(inner, ",") {
		typ, err := abi.NewType(strings.TrimSpace(t), "", nil)
		if err != nil {
			return nil, fmt.Errorf("error signature %q: %w", signature, err)
		}
		arguments = append(arguments, abi.Argument{Type: typ})
	}
	return arguments, nil
}
