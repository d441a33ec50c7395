package mmap

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dat")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMapFile(t *testing.T) {
	data := []byte("MapFile test data content")
	m, err := MapFile(writeFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if !bytes.Equal(m.Data(), data) {
		t.Errorf("data mismatch: got %q, want %q", m.Data(), data)
	}
	if m.Size() != int64(len(data)) {
		t.Errorf("size mismatch: got %d, want %d", m.Size(), len(data))
	}
}

func TestSlice(t *testing.T) {
	m, err := MapFile(writeFile(t, []byte("0123456789")))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	b, err := m.Slice(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "234" {
		t.Errorf("Slice(2, 3) = %q, want %q", b, "234")
	}
	if cap(b) != 3 {
		t.Errorf("Slice capacity %d leaks past the range", cap(b))
	}
	if b, err := m.Slice(10, 0); err != nil || len(b) != 0 {
		t.Errorf("Slice(10, 0) = %q, %v", b, err)
	}

	for _, r := range [][2]int64{{-1, 1}, {0, 11}, {9, 2}, {11, 0}, {2, -1}} {
		if _, err := m.Slice(r[0], r[1]); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("Slice(%d, %d): got %v, want ErrInvalidRange", r[0], r[1], err)
		}
	}
}

func TestClose(t *testing.T) {
	m, err := MapFile(writeFile(t, []byte("close test")))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if m.Data() != nil || m.Size() != 0 {
		t.Error("mapping still visible after Close")
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := m.Slice(0, 1); !errors.Is(err, ErrNotMapped) {
		t.Errorf("Slice after Close: got %v, want ErrNotMapped", err)
	}
}

func TestEmptyFile(t *testing.T) {
	_, err := MapFile(writeFile(t, nil))
	if err != ErrEmptyFile {
		t.Errorf("expected ErrEmptyFile, got %v", err)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := MapFile(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestAdvise(t *testing.T) {
	m, err := MapFile(writeFile(t, make([]byte, 4096)))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if err := m.AdviseSequential(); err != nil {
		t.Errorf("AdviseSequential failed: %v", err)
	}
	if err := m.AdviseRandom(); err != nil {
		t.Errorf("AdviseRandom failed: %v", err)
	}
	if err := m.AdviseWillNeed(); err != nil {
		t.Errorf("AdviseWillNeed failed: %v", err)
	}
}
