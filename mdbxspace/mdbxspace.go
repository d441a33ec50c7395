// Package mdbxspace exposes a libmdbx table, read through mdbx-go, as an
// mdbcursor.KeySpace.
//
// The Space drives one native cursor with the seek primitives the state
// machine needs (SetRange, SetKey, NextNoDup, PrevNoDup, NextDup); the
// mdbcursor.Cursor on top keeps its own position. This lets the pure Go
// dispatch be checked against libmdbx on the same data.
//
// A Space is not reentrant: every method moves the one native cursor, and
// mdbx read transactions are bound to their OS thread. Give each goroutine
// its own transaction and Space, and open all mdbcursor.Cursors on a Space
// from the goroutine that owns it.
package mdbxspace

import (
	"fmt"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/Giulio2002/mdbcursor"
)

// Space is a KeySpace over one DBI of a read-only mdbx transaction.
// It must not be used from more than one goroutine.
// Returned slices point into the memory map and are valid until the
// transaction ends.
type Space struct {
	txn   *mdbx.Txn
	cur   *mdbx.Cursor
	flags uint
}

// New opens a Space on dbi. flags must match how the table was created
// (mdbcursor.DupSort for tables opened with mdbx.DupSort).
func New(txn *mdbx.Txn, dbi mdbx.DBI, flags uint) (*Space, error) {
	cur, err := txn.OpenCursor(dbi)
	if err != nil {
		return nil, fmt.Errorf("mdbxspace: open cursor: %w", err)
	}
	return &Space{txn: txn, cur: cur, flags: flags & mdbcursor.DupSort}, nil
}

// Close releases the native cursor. The transaction is left to the caller.
func (s *Space) Close() {
	if s.cur != nil {
		s.cur.Close()
		s.cur = nil
	}
}

// Flags returns the key space mode.
func (s *Space) Flags() uint {
	return s.flags
}

// Version is the transaction id; a read transaction never changes.
func (s *Space) Version() uint64 {
	return s.txn.ID()
}

// found folds MDBX_NOTFOUND into ok=false.
func found(k []byte, err error) ([]byte, bool, error) {
	if mdbx.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return k, true, nil
}

func (s *Space) get(key []byte, op uint) ([]byte, bool, error) {
	k, _, err := s.cur.Get(key, nil, op)
	return found(k, err)
}

// First returns the lowest key.
func (s *Space) First() ([]byte, bool, error) {
	return s.get(nil, mdbx.First)
}

// Last returns the highest key.
func (s *Space) Last() ([]byte, bool, error) {
	return s.get(nil, mdbx.Last)
}

// Seek returns the least key >= key.
func (s *Space) Seek(key []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return s.First()
	}
	return s.get(key, mdbx.SetRange)
}

// Exact reports whether key is present.
func (s *Space) Exact(key []byte) (bool, error) {
	_, ok, err := s.get(key, mdbx.SetKey)
	return ok, err
}

// Group returns the values of key.
func (s *Space) Group(key []byte) ([][]byte, error) {
	_, v, err := s.cur.Get(key, nil, mdbx.SetKey)
	if mdbx.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	group := [][]byte{v}
	if s.flags&mdbcursor.DupSort == 0 {
		return group, nil
	}
	for {
		_, v, err = s.cur.Get(nil, nil, mdbx.NextDup)
		if mdbx.IsNotFound(err) {
			return group, nil
		}
		if err != nil {
			return nil, err
		}
		group = append(group, v)
	}
}

// Next returns the least key > key.
func (s *Space) Next(key []byte) ([]byte, bool, error) {
	k, ok, err := s.Seek(key)
	if err != nil || !ok {
		return nil, false, err
	}
	if string(k) != string(key) {
		return k, true, nil
	}
	return s.get(nil, mdbx.NextNoDup)
}

// Prev returns the greatest key < key.
func (s *Space) Prev(key []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, nil
	}
	_, ok, err := s.get(key, mdbx.SetRange)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return s.get(nil, mdbx.Last)
	}
	return s.get(nil, mdbx.PrevNoDup)
}
