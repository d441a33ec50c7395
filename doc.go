// Package mdbcursor implements the cursor positioning state machine of an
// LMDB/MDBX style sorted key-value store.
//
// A Cursor interprets the 18 MDB cursor operations (First, NextDup,
// SetRange, GetBothRange, ...) against a KeySpace: any ordered structure
// that can seek by key and list the sorted duplicate values of a key. The
// operation codes are the ones LMDB and MDBX use on the wire.
//
// Key features:
//   - Stable, explicitly numbered operation codes
//   - Simple and DupSort (duplicate-sorted) key spaces
//   - Deterministic failures: ErrNotFound or ErrInvalidArgument only
//   - Revalidation of the cursor position when the key space changes
//   - In-memory, bbolt, libmdbx, RocksDB and mmap snapshot key spaces
//
// Basic usage:
//
//	ks := mdbcursor.NewMemSpace(mdbcursor.DupSort)
//	ks.PutGroup([]byte("a"), []byte("1"), []byte("2"))
//	ks.Put([]byte("c"), []byte("3"))
//
//	cur, err := mdbcursor.OpenCursor(ks)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cur.Close()
//
//	k, v, err := cur.Get([]byte("b"), nil, mdbcursor.SetRange)
//	// k == "c", v == "3"
//
//	for k, v, err := cur.Get(nil, nil, mdbcursor.First); err == nil; k, v, err = cur.Get(nil, nil, mdbcursor.Next) {
//	    fmt.Printf("%s=%s\n", k, v)
//	}
package mdbcursor
