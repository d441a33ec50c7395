package mdbcursor

import (
	"bytes"
	"sort"
)

// KeySpace is the ordered storage a Cursor navigates.
//
// Keys are ordered bytewise. Every method is read-only from the cursor's
// point of view; a returned ok=false means no key satisfies the request.
// Returned slices may alias storage and must not be modified by the caller.
type KeySpace interface {
	// Flags returns DupSort or DBDefaults. The mode never changes.
	Flags() uint

	// First returns the lowest key.
	First() (key []byte, ok bool, err error)

	// Last returns the highest key.
	Last() (key []byte, ok bool, err error)

	// Seek returns the least key >= key.
	Seek(key []byte) ([]byte, bool, error)

	// Exact reports whether key is present.
	Exact(key []byte) (bool, error)

	// Group returns the values of key in ascending bytewise order, or nil
	// when key is absent. Simple key spaces return a single value.
	Group(key []byte) ([][]byte, error)

	// Next returns the least key > key.
	Next(key []byte) ([]byte, bool, error)

	// Prev returns the greatest key < key.
	Prev(key []byte) ([]byte, bool, error)
}

// Versioned is implemented by key spaces that can tell whether they changed.
// The version must differ after any mutation.
type Versioned interface {
	Version() uint64
}

// searchValue returns the index of the first value >= v in an ascending group.
func searchValue(group [][]byte, v []byte) int {
	return sort.Search(len(group), func(i int) bool {
		return bytes.Compare(group[i], v) >= 0
	})
}

// indexOfValue returns the index of v in group, or -1.
func indexOfValue(group [][]byte, v []byte) int {
	i := searchValue(group, v)
	if i < len(group) && bytes.Equal(group[i], v) {
		return i
	}
	return -1
}

func isDupSort(ks KeySpace) bool {
	return ks.Flags()&DupSort != 0
}
