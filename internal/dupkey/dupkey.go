// Package dupkey packs a (key, value) pair into one byte string whose
// bytewise order is the order of the pair: by key first, then by value.
//
// Stores without native duplicate support keep a DupSort table as one
// entry per pair. The key is escaped (0x00 becomes 0x00 0xFF) and closed
// with 0x00 0x01, then the raw value follows. Because the terminator sorts
// below any escaped byte, "a" < "ab" holds for the encoded forms too.
package dupkey

import (
	"bytes"
	"errors"
)

const (
	esc       = 0x00
	escZero   = 0xFF
	terminate = 0x01
	pastEnd   = 0x02
)

// ErrMalformed is returned by Decode for input Encode could not produce.
var ErrMalformed = errors.New("dupkey: malformed composite key")

// Encode returns the composite form of (key, value).
func Encode(key, value []byte) []byte {
	out := make([]byte, 0, len(key)+bytes.Count(key, []byte{esc})+2+len(value))
	out = appendKey(out, key)
	out = append(out, esc, terminate)
	return append(out, value...)
}

// Prefix returns the bytes every composite of key starts with.
func Prefix(key []byte) []byte {
	out := make([]byte, 0, len(key)+2)
	out = appendKey(out, key)
	return append(out, esc, terminate)
}

// PrefixEnd returns the least byte string greater than every composite of
// key. It is also the seek target for "first key after key".
func PrefixEnd(key []byte) []byte {
	out := make([]byte, 0, len(key)+2)
	out = appendKey(out, key)
	return append(out, esc, pastEnd)
}

func appendKey(out, key []byte) []byte {
	for _, b := range key {
		if b == esc {
			out = append(out, esc, escZero)
			continue
		}
		out = append(out, b)
	}
	return out
}

// Decode splits a composite back into key and value. The value aliases
// composite; the key is a fresh slice.
func Decode(composite []byte) (key, value []byte, err error) {
	key = make([]byte, 0, len(composite))
	for i := 0; i < len(composite); i++ {
		b := composite[i]
		if b != esc {
			key = append(key, b)
			continue
		}
		if i+1 >= len(composite) {
			return nil, nil, ErrMalformed
		}
		switch composite[i+1] {
		case escZero:
			key = append(key, esc)
			i++
		case terminate:
			return key, composite[i+2:], nil
		default:
			return nil, nil, ErrMalformed
		}
	}
	return nil, nil, ErrMalformed
}
