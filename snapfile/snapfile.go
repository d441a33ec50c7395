// Package snapfile writes a key space to an immutable file and serves it
// back as a memory-mapped mdbcursor.KeySpace.
//
// File layout, all integers little endian:
//
//	header   magic u64 | version u32 | flags u32 | numKeys u64 | indexOff u64
//	records  keyLen u32 | key | nvals u32 | (valLen u32 | val) * nvals
//	index    numKeys * u64 record offsets, in key order
//
// Keys and values returned by a Space alias the mapping and stay valid until
// Close.
package snapfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/Giulio2002/mdbcursor"
	"github.com/Giulio2002/mdbcursor/mmap"
)

const (
	// magic is "MDBCSNAP" read as a little endian u64.
	magic       uint64 = 0x50414E5343424D44
	fileVersion uint32 = 1
	headerSize         = 32
)

// ErrCorrupt is wrapped by every error about a malformed file.
var ErrCorrupt = errors.New("snapfile: corrupt file")

// Write stores every key and value of ks at path. The file is written
// under a temporary name and renamed into place.
func Write(path string, ks mdbcursor.KeySpace) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	var (
		off   uint64 = headerSize
		index []uint64
		buf   [8]byte
	)
	put32 := func(v uint32) error {
		binary.LittleEndian.PutUint32(buf[:4], v)
		_, err := w.Write(buf[:4])
		off += 4
		return err
	}
	putBytes := func(b []byte) error {
		if uint64(len(b)) > math.MaxUint32 {
			return fmt.Errorf("snapfile: %d byte item too large", len(b))
		}
		if err := put32(uint32(len(b))); err != nil {
			return err
		}
		_, err := w.Write(b)
		off += uint64(len(b))
		return err
	}

	// header is filled in once the index offset is known
	if _, err := w.Write(make([]byte, headerSize)); err != nil {
		return err
	}

	key, ok, err := ks.First()
	for ; err == nil && ok; key, ok, err = ks.Next(key) {
		group, gerr := ks.Group(key)
		if gerr != nil {
			return gerr
		}
		if len(group) == 0 {
			continue
		}
		index = append(index, off)
		if err := putBytes(key); err != nil {
			return err
		}
		if err := put32(uint32(len(group))); err != nil {
			return err
		}
		for _, v := range group {
			if err := putBytes(v); err != nil {
				return err
			}
		}
	}
	if err != nil {
		return err
	}

	indexOff := off
	for _, o := range index {
		binary.LittleEndian.PutUint64(buf[:], o)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint64(hdr[0:], magic)
	binary.LittleEndian.PutUint32(hdr[8:], fileVersion)
	binary.LittleEndian.PutUint32(hdr[12:], uint32(ks.Flags()&mdbcursor.DupSort))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(len(index)))
	binary.LittleEndian.PutUint64(hdr[24:], indexOff)
	if _, err := tmp.WriteAt(hdr[:], 0); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Space is a read-only KeySpace over a snapshot file.
type Space struct {
	m       *mmap.Map
	flags   uint
	numKeys int
	index   []byte
}

// Open maps the snapshot at path.
func Open(path string) (*Space, error) {
	m, err := mmap.MapFile(path)
	if err != nil {
		return nil, err
	}
	s, err := parse(m)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.AdviseRandom()
	return s, nil
}

func parse(m *mmap.Map) (*Space, error) {
	hdr, err := m.Slice(0, headerSize)
	if err != nil {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if binary.LittleEndian.Uint64(hdr[0:]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint32(hdr[8:]); v != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	flags := uint(binary.LittleEndian.Uint32(hdr[12:]))
	numKeys := binary.LittleEndian.Uint64(hdr[16:])
	indexOff := binary.LittleEndian.Uint64(hdr[24:])
	if numKeys > uint64(m.Size())/8 || indexOff > math.MaxInt64 {
		return nil, fmt.Errorf("%w: bad index", ErrCorrupt)
	}
	index, err := m.Slice(int64(indexOff), int64(numKeys*8))
	if err != nil || int64(indexOff+numKeys*8) != m.Size() {
		return nil, fmt.Errorf("%w: bad index", ErrCorrupt)
	}
	return &Space{m: m, flags: flags & mdbcursor.DupSort, numKeys: int(numKeys), index: index}, nil
}

// Close unmaps the file.
func (s *Space) Close() error {
	return s.m.Close()
}

// Flags returns the mode the snapshot was written with.
func (s *Space) Flags() uint {
	return s.flags
}

// Version is constant; a snapshot never changes.
func (s *Space) Version() uint64 {
	return 1
}

// Len returns the number of keys.
func (s *Space) Len() int {
	return s.numKeys
}

// item reads a length-prefixed byte string at off and returns the offset
// after it.
func (s *Space) item(off int64) ([]byte, int64, error) {
	n, err := s.m.Slice(off, 4)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: record at %d", ErrCorrupt, off)
	}
	size := int64(binary.LittleEndian.Uint32(n))
	b, err := s.m.Slice(off+4, size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: record at %d", ErrCorrupt, off)
	}
	return b, off + 4 + size, nil
}

func (s *Space) record(i int) int64 {
	return int64(binary.LittleEndian.Uint64(s.index[i*8:]))
}

func (s *Space) key(i int) ([]byte, error) {
	k, _, err := s.item(s.record(i))
	return k, err
}

// search returns the least index whose key is >= key.
func (s *Space) search(key []byte) (int, error) {
	lo, hi := 0, s.numKeys
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		k, err := s.key(mid)
		if err != nil {
			return 0, err
		}
		if bytes.Compare(k, key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func (s *Space) keyAt(i int) ([]byte, bool, error) {
	if i < 0 || i >= s.numKeys {
		return nil, false, nil
	}
	k, err := s.key(i)
	if err != nil {
		return nil, false, err
	}
	return k, true, nil
}

// First returns the lowest key.
func (s *Space) First() ([]byte, bool, error) {
	return s.keyAt(0)
}

// Last returns the highest key.
func (s *Space) Last() ([]byte, bool, error) {
	return s.keyAt(s.numKeys - 1)
}

// Seek returns the least key >= key.
func (s *Space) Seek(key []byte) ([]byte, bool, error) {
	i, err := s.search(key)
	if err != nil {
		return nil, false, err
	}
	return s.keyAt(i)
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
	i, err := s.search(key)
	if err != nil || i >= s.numKeys {
		return nil, err
	}
	k, off, err := s.item(s.record(i))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(k, key) {
		return nil, nil
	}
	n, err := s.m.Slice(off, 4)
	if err != nil {
		return nil, fmt.Errorf("%w: group of %q", ErrCorrupt, key)
	}
	nvals := int64(binary.LittleEndian.Uint32(n))
	off += 4
	if nvals > (s.m.Size()-off)/4 {
		return nil, fmt.Errorf("%w: group of %q", ErrCorrupt, key)
	}
	group := make([][]byte, 0, nvals)
	for j := int64(0); j < nvals; j++ {
		var v []byte
		v, off, err = s.item(off)
		if err != nil {
			return nil, err
		}
		group = append(group, v)
	}
	return group, nil
}

// Next returns the least key > key.
func (s *Space) Next(key []byte) ([]byte, bool, error) {
	i, err := s.search(key)
	if err != nil {
		return nil, false, err
	}
	if k, ok, err := s.keyAt(i); err != nil || (ok && !bytes.Equal(k, key)) {
		return k, ok, err
	}
	return s.keyAt(i + 1)
}

// Prev returns the greatest key < key.
func (s *Space) Prev(key []byte) ([]byte, bool, error) {
	i, err := s.search(key)
	if err != nil {
		return nil, false, err
	}
	return s.keyAt(i - 1)
}
