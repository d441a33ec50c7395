package mdbcursor

import (
	"bytes"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
)

// memDegree is the B-tree fan-out used by MemSpace.
const memDegree = 32

type memEntry struct {
	key    []byte
	values [][]byte // ascending, never empty, replaced (not edited) on write
}

func memLess(a, b *memEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemSpace is an in-memory KeySpace backed by a B-tree.
//
// Reads take a shared lock and may run from many goroutines. Value slices
// handed out by Group are never modified afterwards; writers install a fresh
// slice instead.
type MemSpace struct {
	mu      sync.RWMutex
	flags   uint
	tree    *btree.BTreeG[*memEntry]
	version atomic.Uint64
}

// NewMemSpace creates an empty key space. flags is DBDefaults or DupSort.
func NewMemSpace(flags uint) *MemSpace {
	return &MemSpace{
		flags: flags & DupSort,
		tree:  btree.NewG(memDegree, memLess),
	}
}

// Flags returns the key space mode.
func (m *MemSpace) Flags() uint {
	return m.flags
}

// Version changes after every successful mutation.
func (m *MemSpace) Version() uint64 {
	return m.version.Load()
}

// Len returns the number of distinct keys.
func (m *MemSpace) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// Put stores value under key. A simple key space overwrites the previous
// value; a DupSort key space adds value to the key's group unless present.
func (m *MemSpace) Put(key, value []byte) error {
	if key == nil || value == nil {
		return ErrInvalidArgumentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v := bytes.Clone(value)
	e, ok := m.tree.Get(&memEntry{key: key})
	switch {
	case !ok:
		m.tree.ReplaceOrInsert(&memEntry{key: bytes.Clone(key), values: [][]byte{v}})
	case m.flags&DupSort == 0:
		e.values = [][]byte{v}
	default:
		i, found := slices.BinarySearchFunc(e.values, v, bytes.Compare)
		if found {
			return nil
		}
		e.values = slices.Insert(slices.Clone(e.values), i, v)
	}
	m.version.Add(1)
	return nil
}

// PutGroup replaces the whole group of key. A simple key space accepts
// exactly one value; anything else is rejected with ErrInvalidArgument.
func (m *MemSpace) PutGroup(key []byte, values ...[]byte) error {
	if key == nil || len(values) == 0 {
		return ErrInvalidArgumentError
	}
	if m.flags&DupSort == 0 && len(values) != 1 {
		return newErrorf(ErrInvalidArgument, "simple key space cannot hold %d values for one key", len(values))
	}
	group := make([][]byte, 0, len(values))
	for _, v := range values {
		if v == nil {
			return ErrInvalidArgumentError
		}
		group = append(group, bytes.Clone(v))
	}
	slices.SortFunc(group, bytes.Compare)
	group = slices.CompactFunc(group, bytes.Equal)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.ReplaceOrInsert(&memEntry{key: bytes.Clone(key), values: group})
	m.version.Add(1)
	return nil
}

// Del removes value from key's group, or the whole key when value is nil.
// A group that becomes empty is removed.
func (m *MemSpace) Del(key, value []byte) error {
	if key == nil {
		return ErrInvalidArgumentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.tree.Get(&memEntry{key: key})
	if !ok {
		return ErrNotFoundError
	}
	if value != nil {
		i, found := slices.BinarySearchFunc(e.values, value, bytes.Compare)
		if !found {
			return ErrNotFoundError
		}
		if len(e.values) > 1 {
			e.values = slices.Delete(slices.Clone(e.values), i, i+1)
			m.version.Add(1)
			return nil
		}
	}
	m.tree.Delete(e)
	m.version.Add(1)
	return nil
}

// First returns the lowest key.
func (m *MemSpace) First() ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tree.Min()
	if !ok {
		return nil, false, nil
	}
	return e.key, true, nil
}

// Last returns the highest key.
func (m *MemSpace) Last() ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tree.Max()
	if !ok {
		return nil, false, nil
	}
	return e.key, true, nil
}

// Seek returns the least key >= key.
func (m *MemSpace) Seek(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		found []byte
		ok    bool
	)
	m.tree.AscendGreaterOrEqual(&memEntry{key: key}, func(e *memEntry) bool {
		found, ok = e.key, true
		return false
	})
	return found, ok, nil
}

// Exact reports whether key is present.
func (m *MemSpace) Exact(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Has(&memEntry{key: key}), nil
}

// Group returns the values stored under key.
func (m *MemSpace) Group(key []byte) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tree.Get(&memEntry{key: key})
	if !ok {
		return nil, nil
	}
	return e.values, nil
}

// Next returns the least key > key.
func (m *MemSpace) Next(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		found []byte
		ok    bool
	)
	m.tree.AscendGreaterOrEqual(&memEntry{key: key}, func(e *memEntry) bool {
		if bytes.Equal(e.key, key) {
			return true
		}
		found, ok = e.key, true
		return false
	})
	return found, ok, nil
}

// Prev returns the greatest key < key.
func (m *MemSpace) Prev(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		found []byte
		ok    bool
	)
	m.tree.DescendLessOrEqual(&memEntry{key: key}, func(e *memEntry) bool {
		if bytes.Equal(e.key, key) {
			return true
		}
		found, ok = e.key, true
		return false
	})
	return found, ok, nil
}
