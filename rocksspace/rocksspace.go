//go:build rocksdb

// Package rocksspace stores an mdbcursor key space in RocksDB.
//
// RocksDB has no duplicate keys, so a DupSort space keeps one entry per
// (key, value) pair under the composite encoding of internal/dupkey, with
// an empty RocksDB value. A simple space maps keys to values directly.
//
// Build with -tags rocksdb; the package links librocksdb through cgo.
package rocksspace

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tecbot/gorocksdb"

	"github.com/Giulio2002/mdbcursor"
	"github.com/Giulio2002/mdbcursor/internal/dupkey"
)

// Space is a KeySpace over a RocksDB database.
type Space struct {
	db    *gorocksdb.DB
	ro    *gorocksdb.ReadOptions
	wo    *gorocksdb.WriteOptions
	flags uint

	mu        sync.Mutex // guards it
	it        *gorocksdb.Iterator
	itVersion uint64
	version   atomic.Uint64
}

// Open opens or creates the database at path.
func Open(path string, flags uint) (*Space, error) {
	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	defer opts.Destroy()

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		return nil, fmt.Errorf("rocksspace: open %s: %w", path, err)
	}
	return &Space{
		db:    db,
		ro:    gorocksdb.NewDefaultReadOptions(),
		wo:    gorocksdb.NewDefaultWriteOptions(),
		flags: flags & mdbcursor.DupSort,
	}, nil
}

// Close releases the iterator and closes the database.
func (s *Space) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.it != nil {
		s.it.Close()
		s.it = nil
	}
	s.ro.Destroy()
	s.wo.Destroy()
	s.db.Close()
}

// Flags returns the key space mode.
func (s *Space) Flags() uint {
	return s.flags
}

// Version changes after every write made through this Space.
func (s *Space) Version() uint64 {
	return s.version.Load()
}

func (s *Space) dupSort() bool {
	return s.flags&mdbcursor.DupSort != 0
}

// iter returns an iterator that sees every write made so far. RocksDB
// iterators read from an implicit snapshot, so a stale one is replaced.
// Callers hold s.mu.
func (s *Space) iter() *gorocksdb.Iterator {
	v := s.version.Load()
	if s.it == nil || s.itVersion != v {
		if s.it != nil {
			s.it.Close()
		}
		s.it = s.db.NewIterator(s.ro)
		s.itVersion = v
	}
	return s.it
}

func rawKey(it *gorocksdb.Iterator) []byte {
	k := it.Key()
	defer k.Free()
	return bytes.Clone(k.Data())
}

// at returns the user key under the iterator.
func (s *Space) at(it *gorocksdb.Iterator) ([]byte, bool, error) {
	if !it.Valid() {
		return nil, false, it.Err()
	}
	k := rawKey(it)
	if !s.dupSort() {
		return k, true, nil
	}
	key, _, err := dupkey.Decode(k)
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}

// First returns the lowest key.
func (s *Space) First() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.iter()
	it.SeekToFirst()
	return s.at(it)
}

// Last returns the highest key.
func (s *Space) Last() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.iter()
	it.SeekToLast()
	return s.at(it)
}

// Seek returns the least key >= key.
func (s *Space) Seek(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.iter()
	if s.dupSort() {
		it.Seek(dupkey.Prefix(key))
	} else {
		it.Seek(key)
	}
	return s.at(it)
}

// Exact reports whether key is present.
func (s *Space) Exact(key []byte) (bool, error) {
	k, ok, err := s.Seek(key)
	if err != nil || !ok {
		return false, err
	}
	return bytes.Equal(k, key), nil
}

// Group returns the values of key.
func (s *Space) Group(key []byte) ([][]byte, error) {
	if !s.dupSort() {
		v, err := s.db.Get(s.ro, key)
		if err != nil {
			return nil, err
		}
		defer v.Free()
		if !v.Exists() {
			return nil, nil
		}
		return [][]byte{bytes.Clone(v.Data())}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := dupkey.Prefix(key)
	it := s.iter()
	var group [][]byte
	for it.Seek(prefix); it.Valid(); it.Next() {
		k := rawKey(it)
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		group = append(group, k[len(prefix):])
	}
	return group, it.Err()
}

// Next returns the least key > key.
func (s *Space) Next(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.iter()
	if s.dupSort() {
		it.Seek(dupkey.PrefixEnd(key))
		return s.at(it)
	}
	it.Seek(key)
	if it.Valid() && bytes.Equal(rawKey(it), key) {
		it.Next()
	}
	return s.at(it)
}

// Prev returns the greatest key < key.
func (s *Space) Prev(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.iter()
	if s.dupSort() {
		it.Seek(dupkey.Prefix(key))
	} else {
		it.Seek(key)
	}
	if it.Valid() {
		it.Prev()
	} else if err := it.Err(); err != nil {
		return nil, false, err
	} else {
		it.SeekToLast()
	}
	return s.at(it)
}

// Put stores value under key. A DupSort space adds it to the key's group.
func (s *Space) Put(key, value []byte) error {
	if key == nil || value == nil {
		return mdbcursor.ErrInvalidArgumentError
	}
	var err error
	if s.dupSort() {
		err = s.db.Put(s.wo, dupkey.Encode(key, value), []byte{})
	} else {
		err = s.db.Put(s.wo, key, value)
	}
	if err != nil {
		return fmt.Errorf("rocksspace: put: %w", err)
	}
	s.version.Add(1)
	return nil
}

// Del removes value from key's group, or every value of key when value is
// nil.
func (s *Space) Del(key, value []byte) error {
	if key == nil {
		return mdbcursor.ErrInvalidArgumentError
	}
	var targets [][]byte
	switch {
	case !s.dupSort():
		targets = [][]byte{key}
	case value != nil:
		targets = [][]byte{dupkey.Encode(key, value)}
	default:
		group, err := s.Group(key)
		if err != nil {
			return err
		}
		for _, v := range group {
			targets = append(targets, dupkey.Encode(key, v))
		}
	}

	batch := gorocksdb.NewWriteBatch()
	defer batch.Destroy()
	for _, k := range targets {
		v, err := s.db.Get(s.ro, k)
		if err != nil {
			return err
		}
		exists := v.Exists()
		v.Free()
		if !exists {
			return mdbcursor.ErrNotFoundError
		}
		batch.Delete(k)
	}
	if len(targets) == 0 {
		return mdbcursor.ErrNotFoundError
	}
	if err := s.db.Write(s.wo, batch); err != nil {
		return fmt.Errorf("rocksspace: delete: %w", err)
	}
	s.version.Add(1)
	return nil
}
