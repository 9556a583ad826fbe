// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package test holds the conformance tests every storage.StateStorer
// implementation is expected to pass.
package test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethersphere/lottery/pkg/storage"
	"github.com/google/go-cmp/cmp"
)

const (
	key1 = "key1" // stores the serialized type
	key2 = "key2" // stores a json array
)

var (
	value1 = &Serializing{value: "value1"}
	value2 = []string{"a", "b", "c"}
)

// Serializing records whether the binary (un)marshaler was used by the store.
type Serializing struct {
	value           string
	marshalCalled   bool
	unmarshalCalled bool
}

func (st *Serializing) MarshalBinary() (data []byte, err error) {
	d := []byte(st.value)
	st.marshalCalled = true

	return d, nil
}

func (st *Serializing) UnmarshalBinary(data []byte) (err error) {
	st.value = string(data)
	st.unmarshalCalled = true
	return nil
}

// Run executes the basic conformance tests against stores created by f.
func Run(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	t.Helper()

	t.Run("put get", func(t *testing.T) {
		store := f(t)
		insertValues(t, store)
		testPersistedValues(t, store)
	})

	t.Run("iterator", func(t *testing.T) {
		testStoreIterator(t, f(t))
	})

	t.Run("delete", func(t *testing.T) {
		store := f(t)
		insertValues(t, store)
		if err := store.Delete(key2); err != nil {
			t.Fatal(err)
		}
		var s []string
		if err := store.Get(key2, &s); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
		}
	})
}

// RunPersist checks that values survive closing and reopening a store in
// the same directory.
func RunPersist(t *testing.T, f func(t *testing.T, dir string) storage.StateStorer) {
	t.Helper()

	dir := t.TempDir()

	store := f(t, dir)
	insertValues(t, store)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store = f(t, dir)
	defer store.Close()

	testPersistedValues(t, store)
}

func insertValues(t *testing.T, store storage.StateStorer) {
	t.Helper()

	v1 := &Serializing{value: value1.value}
	err := store.Put(key1, v1)
	if err != nil {
		t.Fatal(err)
	}

	if !v1.marshalCalled {
		t.Fatal("binaryMarshaller not called on serialized type")
	}

	err = store.Put(key2, value2)
	if err != nil {
		t.Fatal(err)
	}
}

func testPersistedValues(t *testing.T, store storage.StateStorer) {
	t.Helper()

	v := &Serializing{}
	err := store.Get(key1, v)
	if err != nil {
		t.Fatal(err)
	}

	if !v.unmarshalCalled {
		t.Fatal("unmarshaler not called")
	}

	if v.value != value1.value {
		t.Fatalf("expected persisted to be %s but got %s", value1.value, v.value)
	}

	s := []string{}
	err = store.Get(key2, &s)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(value2, s); diff != "" {
		t.Fatalf("deserialized data mismatch (-want +got):\n%s", diff)
	}
}

func testStoreIterator(t *testing.T, store storage.StateStorer) {
	t.Helper()

	storePrefix := "test_"
	err := store.Put(storePrefix+"key1", "value1")
	if err != nil {
		t.Fatal(err)
	}

	// do not include prefix in one of the entries
	err = store.Put("key2", "value2")
	if err != nil {
		t.Fatal(err)
	}

	err = store.Put(storePrefix+"key3", "value3")
	if err != nil {
		t.Fatal(err)
	}

	entries := make(map[string]string)

	err = store.Iterate(storePrefix, func(key []byte, value []byte) (stop bool, err error) {
		var entry string
		if err := json.Unmarshal(value, &entry); err != nil {
			return true, err
		}
		entries[string(key)] = entry
		return false, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	expectedEntries := map[string]string{"test_key1": "value1", "test_key3": "value3"}

	if diff := cmp.Diff(expectedEntries, entries); diff != "" {
		t.Fatalf("store entries mismatch (-want +got):\n%s", diff)
	}
}
