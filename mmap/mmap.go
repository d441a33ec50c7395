// Package mmap maps snapshot files read-only into memory.
package mmap

// Map is a read-only view of a whole file.
type Map struct {
	data []byte // mapped region, nil after Close
	size int64
	heap bool // data was read into the heap, not mapped
}

// Data returns the mapped bytes. The slice must not be written to and is
// invalid after Close.
func (m *Map) Data() []byte {
	return m.data
}

// Size returns the mapped length.
func (m *Map) Size() int64 {
	return m.size
}

// Mapped reports whether the data is backed by an OS mapping.
func (m *Map) Mapped() bool {
	return m.data != nil && !m.heap
}

// Error is returned by mapping operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidRange = &Error{Op: "invalid range"}
	ErrNotMapped    = &Error{Op: "not mapped"}
	ErrEmptyFile    = &Error{Op: "empty file"}
)

// Slice returns data[off:off+n] or ErrInvalidRange.
func (m *Map) Slice(off, n int64) ([]byte, error) {
	if m.data == nil {
		return nil, ErrNotMapped
	}
	if off < 0 || n < 0 || off > m.size || n > m.size-off {
		return nil, ErrInvalidRange
	}
	return m.data[off : off+n : off+n], nil
}
