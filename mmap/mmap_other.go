//go:build !unix

package mmap

import "os"

// MapFile reads the file at path into memory. Platforms without unix mmap
// get a heap copy with the same read-only contract.
func MapFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return &Map{data: data, size: int64(len(data)), heap: true}, nil
}

// Close drops the data.
func (m *Map) Close() error {
	m.data = nil
	m.size = 0
	return nil
}

// AdviseSequential is a no-op.
func (m *Map) AdviseSequential() error { return nil }

// AdviseRandom is a no-op.
func (m *Map) AdviseRandom() error { return nil }

// AdviseWillNeed is a no-op.
func (m *Map) AdviseWillNeed() error { return nil }
