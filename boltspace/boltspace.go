// Package boltspace exposes a bbolt bucket as an mdbcursor.KeySpace.
//
// A simple key space maps each bucket key to its value. A DupSort key space
// stores every key as a nested bucket whose keys are the duplicate values,
// so bbolt keeps each group sorted bytewise for free. Duplicate values must
// therefore be non-empty.
package boltspace

import (
	"bytes"
	"fmt"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"

	"github.com/Giulio2002/mdbcursor"
)

// Space is a KeySpace view of one bucket inside a bbolt transaction. Slices
// it returns are owned by bbolt and valid until the transaction ends.
type Space struct {
	tx     *bolt.Tx
	bucket *bolt.Bucket
	flags  uint
	writes atomic.Uint64
}

// New binds a Space to bucket in tx. A writable transaction creates the
// bucket when missing.
func New(tx *bolt.Tx, bucket []byte, flags uint) (*Space, error) {
	var b *bolt.Bucket
	if tx.Writable() {
		var err error
		if b, err = tx.CreateBucketIfNotExists(bucket); err != nil {
			return nil, fmt.Errorf("boltspace: create bucket %q: %w", bucket, err)
		}
	} else if b = tx.Bucket(bucket); b == nil {
		return nil, fmt.Errorf("boltspace: bucket %q not found", bucket)
	}
	return &Space{tx: tx, bucket: b, flags: flags & mdbcursor.DupSort}, nil
}

func (s *Space) dupSort() bool {
	return s.flags&mdbcursor.DupSort != 0
}

// Flags returns the key space mode.
func (s *Space) Flags() uint {
	return s.flags
}

// Version identifies the transaction snapshot plus writes made through s.
// Writes made to the bucket by other means are not observed.
func (s *Space) Version() uint64 {
	return uint64(s.tx.ID())<<32 | s.writes.Load()
}

// seekExact returns the value stored at exactly key.
func (s *Space) seekExact(b *bolt.Bucket, key []byte) (v []byte, ok bool) {
	k, v := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}

// First returns the lowest key.
func (s *Space) First() ([]byte, bool, error) {
	k, _ := s.bucket.Cursor().First()
	return k, k != nil, nil
}

// Last returns the highest key.
func (s *Space) Last() ([]byte, bool, error) {
	k, _ := s.bucket.Cursor().Last()
	return k, k != nil, nil
}

// Seek returns the least key >= key.
func (s *Space) Seek(key []byte) ([]byte, bool, error) {
	k, _ := s.bucket.Cursor().Seek(key)
	return k, k != nil, nil
}

// Exact reports whether key is present.
func (s *Space) Exact(key []byte) (bool, error) {
	_, ok := s.seekExact(s.bucket, key)
	return ok, nil
}

// Group returns the values of key.
func (s *Space) Group(key []byte) ([][]byte, error) {
	if !s.dupSort() {
		v, ok := s.seekExact(s.bucket, key)
		if !ok {
			return nil, nil
		}
		return [][]byte{v}, nil
	}
	nb := s.bucket.Bucket(key)
	if nb == nil {
		return nil, nil
	}
	var group [][]byte
	c := nb.Cursor()
	for v, _ := c.First(); v != nil; v, _ = c.Next() {
		group = append(group, v)
	}
	return group, nil
}

// Next returns the least key > key.
func (s *Space) Next(key []byte) ([]byte, bool, error) {
	c := s.bucket.Cursor()
	k, _ := c.Seek(key)
	if k != nil && bytes.Equal(k, key) {
		k, _ = c.Next()
	}
	return k, k != nil, nil
}

// Prev returns the greatest key < key.
func (s *Space) Prev(key []byte) ([]byte, bool, error) {
	c := s.bucket.Cursor()
	k, _ := c.Seek(key)
	if k == nil {
		k, _ = c.Last()
	} else {
		k, _ = c.Prev()
	}
	return k, k != nil, nil
}

// Put stores value under key. Requires a writable transaction.
func (s *Space) Put(key, value []byte) error {
	var err error
	if s.dupSort() {
		var nb *bolt.Bucket
		if nb, err = s.bucket.CreateBucketIfNotExists(key); err == nil {
			err = nb.Put(value, []byte{})
		}
	} else {
		err = s.bucket.Put(key, value)
	}
	if err != nil {
		return fmt.Errorf("boltspace: put %q: %w", key, err)
	}
	s.writes.Add(1)
	return nil
}

// Del removes value from key's group, or the whole key when value is nil.
// Groups left empty are dropped.
func (s *Space) Del(key, value []byte) error {
	if !s.dupSort() {
		if _, ok := s.seekExact(s.bucket, key); !ok {
			return mdbcursor.ErrNotFoundError
		}
		if err := s.bucket.Delete(key); err != nil {
			return fmt.Errorf("boltspace: delete %q: %w", key, err)
		}
		s.writes.Add(1)
		return nil
	}

	nb := s.bucket.Bucket(key)
	if nb == nil {
		return mdbcursor.ErrNotFoundError
	}
	if value != nil {
		if _, ok := s.seekExact(nb, value); !ok {
			return mdbcursor.ErrNotFoundError
		}
		if err := nb.Delete(value); err != nil {
			return fmt.Errorf("boltspace: delete %q/%q: %w", key, value, err)
		}
		if k, _ := nb.Cursor().First(); k != nil {
			s.writes.Add(1)
			return nil
		}
	}
	if err := s.bucket.DeleteBucket(key); err != nil {
		return fmt.Errorf("boltspace: delete %q: %w", key, err)
	}
	s.writes.Add(1)
	return nil
}
