// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"sort"
	"strings"
	"sync"

	"github.com/ethersphere/lottery/pkg/storage"
)

var _ storage.StateStorer = (*store)(nil)

type store struct {
	store map[string][]byte
	mtx   sync.RWMutex
}

// NewStateStore returns an in-memory state store for tests.
func NewStateStore() storage.StateStorer {
	return &store{
		store: make(map[string][]byte),
	}
}

func (s *store) Get(key string, i interface{}) (err error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	data, ok := s.store[key]
	if !ok {
		return storage.ErrNotFound
	}

	return storage.Unmarshal(data, i)
}

func (s *store) Put(key string, i interface{}) error {
	data, err := storage.Marshal(i)
	if err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.store[key] = data
	return nil
}

func (s *store) Delete(key string) (err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.store, key)
	return nil
}

// Iterate visits the matching keys in order, as leveldb does.
func (s *store) Iterate(prefix string, iterFunc storage.StateIterFunc) error {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	keys := make([]string, 0, len(s.store))
	for k := range s.store {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		stop, err := iterFunc([]byte(k), append([]byte(nil), s.store[k]...))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (s *store) Close() (err error) {
	return nil
}
