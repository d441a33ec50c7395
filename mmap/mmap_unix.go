//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// MapFile maps the file at path read-only. The descriptor is closed once
// the mapping exists.
func MapFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return nil, ErrEmptyFile
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, &Error{Op: "mmap", Err: err}
	}
	return &Map{data: data, size: size}, nil
}

// Close releases the mapping.
func (m *Map) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	m.size = 0
	return err
}

// Advise provides hints to the kernel about memory usage patterns.
func (m *Map) Advise(advice int) error {
	if m.data == nil {
		return ErrNotMapped
	}
	return unix.Madvise(m.data, advice)
}

// AdviseSequential hints that pages will be accessed sequentially.
func (m *Map) AdviseSequential() error {
	return m.Advise(unix.MADV_SEQUENTIAL)
}

// AdviseRandom hints that pages will be accessed randomly.
func (m *Map) AdviseRandom() error {
	return m.Advise(unix.MADV_RANDOM)
}

// AdviseWillNeed hints that pages will be needed soon.
func (m *Map) AdviseWillNeed() error {
	return m.Advise(unix.MADV_WILLNEED)
}
