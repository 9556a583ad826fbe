// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package leveldb

import (
	"errors"
	"fmt"

	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/storage"
	"github.com/syndtr/goleveldb/leveldb"
	ldberr "github.com/syndtr/goleveldb/leveldb/errors"
	ldbs "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// loggerName is the tree path name of the logger for this package.
const loggerName = "leveldb"

const (
	schemaKey = "statestore_schema"
	// SchemaVersion names the layout of the stored records.
	SchemaVersion = "lottery-v1"
)

var ErrSchemaMismatch = errors.New("statestore schema mismatch")

var _ storage.StateStorer = (*Store)(nil)

// Store uses LevelDB to store values.
type Store struct {
	db     *leveldb.DB
	logger log.Logger
}

// NewInMemoryStateStore creates a state store backed by leveldb memory storage.
func NewInMemoryStateStore(l log.Logger) (*Store, error) {
	db, err := leveldb.Open(ldbs.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return open(db, l.WithName(loggerName).Register())
}

// NewStateStore opens the persistent store at path, recovering it when the
// files are corrupted. A store written with another schema is refused.
func NewStateStore(path string, l log.Logger) (*Store, error) {
	l = l.WithName(loggerName).Register()

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		if !ldberr.IsCorrupted(err) {
			return nil, err
		}

		l.Warning("statestore open failed, attempting recovery", "path", path, "error", err)
		db, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, fmt.Errorf("statestore recovery: %w", err)
		}
		l.Warning("statestore recovery done", "path", path)
	}
	return open(db, l)
}

func open(db *leveldb.DB, l log.Logger) (*Store, error) {
	s := &Store{db: db, logger: l}
	if err := s.checkSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// checkSchema stamps a new store with the current schema.
func (s *Store) checkSchema() error {
	var schema string
	switch err := s.Get(schemaKey, &schema); {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Debug("initializing statestore schema", "schema", SchemaVersion)
		return s.Put(schemaKey, SchemaVersion)
	case err != nil:
		return fmt.Errorf("read statestore schema: %w", err)
	case schema != SchemaVersion:
		return fmt.Errorf("%w: got %q, want %q", ErrSchemaMismatch, schema, SchemaVersion)
	}
	return nil
}

// Get retrieves a value of the requested key. If no results are found,
// storage.ErrNotFound will be returned.
func (s *Store) Get(key string, i interface{}) error {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return storage.ErrNotFound
		}
		return err
	}
	return storage.Unmarshal(data, i)
}

// Put stores a value for an arbitrary key.
func (s *Store) Put(key string, i interface{}) error {
	data, err := storage.Marshal(i)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), data, nil)
}

// Delete removes entries stored under a specific key.
func (s *Store) Delete(key string) error {
	return s.db.Delete([]byte(key), nil)
}

// Iterate entries that match the supplied prefix.
func (s *Store) Iterate(prefix string, iterFunc storage.StateIterFunc) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		stop, err := iterFunc(append([]byte(nil), iter.Key()...), append([]byte(nil), iter.Value()...))
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return iter.Error()
}

// Close releases the resources used by the store.
func (s *Store) Close() error {
	return s.db.Close()
}
