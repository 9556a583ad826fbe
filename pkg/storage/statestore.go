// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage defines the key value state store used for nonces,
// transactions and deployment records.
package storage

import (
	"encoding"
	"encoding/json"
	"errors"
	"io"
)

// ErrNotFound is returned when a requested key does not exist in the store.
var ErrNotFound = errors.New("storage: not found")

// StateStorer defines methods required to get, set, delete values for different keys
// and close the underlying resources.
type StateStorer interface {
	Get(key string, i interface{}) (err error)
	Put(key string, i interface{}) (err error)
	Delete(key string) (err error)
	Iterate(prefix string, iterFunc StateIterFunc) (err error)
	io.Closer
}

// StateIterFunc is used when iterating through StateStorer key/value pairs
type StateIterFunc func(key, value []byte) (stop bool, err error)

// Marshal encodes a value for a StateStorer, with the BinaryMarshaler
// implementation when there is one and JSON otherwise.
func Marshal(i interface{}) ([]byte, error) {
	if marshaler, ok := i.(encoding.BinaryMarshaler); ok {
		return marshaler.MarshalBinary()
	}
	return json.Marshal(i)
}

// Unmarshal decodes data produced by Marshal into i.
func Unmarshal(data []byte, i interface{}) error {
	if unmarshaler, ok := i.(encoding.BinaryUnmarshaler); ok {
		return unmarshaler.UnmarshalBinary(data)
	}
	return json.Unmarshal(data, i)
}
