package mdbcursor

import (
	"encoding/binary"
	"math/rand"
	"testing"
)

func benchSpace(b *testing.B, numKeys, numDupVals int) *MemSpace {
	b.Helper()
	ks := NewMemSpace(DupSort)
	for i := 0; i < numKeys; i++ {
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(i))
		group := make([][]byte, numDupVals)
		for j := range group {
			group[j] = binary.BigEndian.AppendUint64(nil, uint64(j))
		}
		if err := ks.PutGroup(key, group...); err != nil {
			b.Fatal(err)
		}
	}
	return ks
}

func benchCursor(b *testing.B, ks KeySpace) *Cursor {
	b.Helper()
	c, err := OpenCursor(ks)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(c.Close)
	return c
}

func BenchmarkNextWalk(b *testing.B) {
	c := benchCursor(b, benchSpace(b, 10_000, 4))

	b.ReportAllocs()
	b.ResetTimer()
	count := 0
	for i := 0; i < b.N; i++ {
		for _, _, err := c.Get(nil, nil, First); err == nil; _, _, err = c.Get(nil, nil, Next) {
			count++
		}
	}
	b.ReportMetric(float64(count)/float64(b.N), "entries/iter")
}

func BenchmarkSetRangeRandom(b *testing.B) {
	const numKeys = 100_000
	c := benchCursor(b, benchSpace(b, numKeys, 1))
	rng := rand.New(rand.NewSource(1))
	probe := make([]byte, 8)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(probe, uint64(rng.Intn(numKeys)))
		if _, _, err := c.Get(probe, nil, SetRange); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkNextMultiple(b *testing.B) {
	c := benchCursor(b, benchSpace(b, 10, 10_000))
	if err := c.SetBatchSize(256); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Apply(First, nil, nil); err != nil {
			b.Fatal(err)
		}
		if _, err := c.Apply(GetMultiple, nil, nil); err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := c.Apply(NextMultiple, nil, nil); err != nil {
				break
			}
		}
	}
}

// BenchmarkRevalidate measures steps over a key space without Version,
// where every relative op re-reads the current group.
func BenchmarkRevalidate(b *testing.B) {
	c := benchCursor(b, plainSpace{benchSpace(b, 10_000, 4)})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, _, err := c.Get(nil, nil, First); err == nil; _, _, err = c.Get(nil, nil, Next) {
		}
	}
}
