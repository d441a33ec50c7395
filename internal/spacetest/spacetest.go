// Package spacetest is a conformance suite run against every KeySpace
// implementation. Each backend's tests call Run with a factory that loads
// the given groups into a fresh key space.
package spacetest

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/mdbcursor"
)

// Group is one key and its values, in any order.
type Group struct {
	Key    string
	Values []string
}

// Factory builds a key space holding groups. flags is DBDefaults or DupSort;
// simple key spaces only receive single-value groups.
type Factory func(t *testing.T, flags uint, groups []Group) mdbcursor.KeySpace

// DupFixture is the DupSort data set used by the suite.
var DupFixture = []Group{
	{Key: "a", Values: []string{"2", "1"}},
	{Key: "b", Values: []string{"x"}},
	{Key: "c", Values: []string{"3", "4", "5", "6", "7"}},
	{Key: "e", Values: []string{"9"}},
}

// SimpleFixture is the simple-mode data set used by the suite.
var SimpleFixture = []Group{
	{Key: "a", Values: []string{"1"}},
	{Key: "b", Values: []string{"2"}},
	{Key: "d", Values: []string{"4"}},
	{Key: "f", Values: []string{"6"}},
}

type kv struct{ k, v string }

// flatten returns the fixture in cursor order.
func flatten(groups []Group) []kv {
	sorted := slices.Clone(groups)
	slices.SortFunc(sorted, func(a, b Group) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	var out []kv
	for _, g := range sorted {
		vals := slices.Clone(g.Values)
		slices.Sort(vals)
		for _, v := range vals {
			out = append(out, kv{g.Key, v})
		}
	}
	return out
}

func open(t *testing.T, ks mdbcursor.KeySpace) *mdbcursor.Cursor {
	t.Helper()
	c, err := mdbcursor.OpenCursor(ks)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func get(t *testing.T, c *mdbcursor.Cursor, op mdbcursor.Op, key, value string) kv {
	t.Helper()
	var k, v []byte
	if key != "" {
		k = []byte(key)
	}
	if value != "" {
		v = []byte(value)
	}
	res, err := c.Apply(op, k, v)
	require.NoError(t, err, "%s(%q, %q)", op, key, value)
	return kv{string(res.Key), string(res.Value)}
}

func requireNotFound(t *testing.T, c *mdbcursor.Cursor, op mdbcursor.Op, key, value []byte) {
	t.Helper()
	_, err := c.Apply(op, key, value)
	require.True(t, mdbcursor.IsNotFound(err), "%s: want NotFound, got %v", op, err)
	require.False(t, c.Positioned(), "%s: NotFound must unposition the cursor", op)
}

func requireInvalid(t *testing.T, c *mdbcursor.Cursor, op mdbcursor.Op, key, value []byte) {
	t.Helper()
	before := c.Positioned()
	_, err := c.Apply(op, key, value)
	require.True(t, mdbcursor.IsInvalidArgument(err), "%s: want InvalidArgument, got %v", op, err)
	require.Equal(t, before, c.Positioned(), "%s: InvalidArgument must not move the cursor", op)
}

func walk(t *testing.T, c *mdbcursor.Cursor, start, step mdbcursor.Op) []kv {
	t.Helper()
	var out []kv
	res, err := c.Apply(start, nil, nil)
	for err == nil {
		out = append(out, kv{string(res.Key), string(res.Value)})
		res, err = c.Apply(step, nil, nil)
	}
	require.True(t, mdbcursor.IsNotFound(err), "walk ended with %v", err)
	require.False(t, c.Positioned())
	return out
}

// Run executes the suite against the key spaces produced by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("DupSort", func(t *testing.T) {
		runDupSort(t, factory)
	})
	t.Run("Simple", func(t *testing.T) {
		runSimple(t, factory)
	})
	t.Run("Empty", func(t *testing.T) {
		for _, flags := range []uint{mdbcursor.DBDefaults, mdbcursor.DupSort} {
			c := open(t, factory(t, flags, nil))
			requireNotFound(t, c, mdbcursor.First, nil, nil)
			requireNotFound(t, c, mdbcursor.Last, nil, nil)
			requireNotFound(t, c, mdbcursor.SetRange, []byte("a"), nil)
			requireNotFound(t, c, mdbcursor.Set, []byte("a"), nil)
		}
	})
}

func runDupSort(t *testing.T, factory Factory) {
	ks := factory(t, mdbcursor.DupSort, DupFixture)
	want := flatten(DupFixture)

	t.Run("ForwardWalk", func(t *testing.T) {
		c := open(t, ks)
		require.Equal(t, want, walk(t, c, mdbcursor.First, mdbcursor.Next))
		// the walk ended unpositioned; further steps are rejected
		requireInvalid(t, c, mdbcursor.Next, nil, nil)
	})

	t.Run("ReverseWalk", func(t *testing.T) {
		c := open(t, ks)
		rev := slices.Clone(want)
		slices.Reverse(rev)
		require.Equal(t, rev, walk(t, c, mdbcursor.Last, mdbcursor.Prev))
	})

	t.Run("SetThenCurrent", func(t *testing.T) {
		c := open(t, ks)
		for _, g := range DupFixture {
			first := slices.Min(g.Values)
			require.Equal(t, kv{g.Key, first}, get(t, c, mdbcursor.Set, g.Key, ""))
			require.Equal(t, kv{g.Key, first}, get(t, c, mdbcursor.GetCurrent, "", ""))
			require.Equal(t, kv{g.Key, first}, get(t, c, mdbcursor.GetCurrent, "", ""))
			require.Equal(t, kv{g.Key, first}, get(t, c, mdbcursor.SetKey, g.Key, ""))
		}
		requireNotFound(t, c, mdbcursor.Set, []byte("b0"), nil)
		requireNotFound(t, c, mdbcursor.SetKey, []byte("d"), nil)
	})

	t.Run("SetRange", func(t *testing.T) {
		c := open(t, ks)
		cases := []struct {
			probe string
			want  kv
		}{
			{"", kv{"a", "1"}},
			{"a", kv{"a", "1"}},
			{"a0", kv{"b", "x"}},
			{"b", kv{"b", "x"}},
			{"d", kv{"e", "9"}},
			{"e", kv{"e", "9"}},
		}
		for _, tc := range cases {
			res, err := c.Apply(mdbcursor.SetRange, []byte(tc.probe), nil)
			require.NoError(t, err, tc.probe)
			require.Equal(t, tc.want, kv{string(res.Key), string(res.Value)}, tc.probe)
		}
		requireNotFound(t, c, mdbcursor.SetRange, []byte("f"), nil)
	})

	t.Run("NextDupCount", func(t *testing.T) {
		c := open(t, ks)
		for _, g := range DupFixture {
			get(t, c, mdbcursor.Set, g.Key, "")
			n := 0
			for {
				if _, err := c.Apply(mdbcursor.NextDup, nil, nil); err != nil {
					require.True(t, mdbcursor.IsNotFound(err))
					break
				}
				n++
			}
			require.Equal(t, len(g.Values)-1, n, g.Key)
		}
	})

	t.Run("PrevDup", func(t *testing.T) {
		c := open(t, ks)
		require.Equal(t, kv{"c", "7"}, get(t, c, mdbcursor.GetBothRange, "c", "65"))
		require.Equal(t, kv{"c", "6"}, get(t, c, mdbcursor.PrevDup, "", ""))
		require.Equal(t, kv{"c", "3"}, get(t, c, mdbcursor.FirstDup, "", ""))
		requireNotFound(t, c, mdbcursor.PrevDup, nil, nil)
	})

	t.Run("FirstLastDup", func(t *testing.T) {
		c := open(t, ks)
		get(t, c, mdbcursor.GetBoth, "c", "5")
		require.Equal(t, kv{"c", "7"}, get(t, c, mdbcursor.LastDup, "", ""))
		require.Equal(t, kv{"c", "3"}, get(t, c, mdbcursor.FirstDup, "", ""))
		require.Equal(t, kv{"c", "3"}, get(t, c, mdbcursor.FirstDup, "", ""))
	})

	t.Run("NoDup", func(t *testing.T) {
		c := open(t, ks)
		get(t, c, mdbcursor.GetBoth, "a", "2")
		require.Equal(t, kv{"b", "x"}, get(t, c, mdbcursor.NextNoDup, "", ""))
		require.Equal(t, kv{"c", "3"}, get(t, c, mdbcursor.NextNoDup, "", ""))
		require.Equal(t, kv{"b", "x"}, get(t, c, mdbcursor.PrevNoDup, "", ""))
		require.Equal(t, kv{"a", "2"}, get(t, c, mdbcursor.PrevNoDup, "", ""))
		requireNotFound(t, c, mdbcursor.PrevNoDup, nil, nil)

		get(t, c, mdbcursor.Set, "e", "")
		requireNotFound(t, c, mdbcursor.NextNoDup, nil, nil)
	})

	t.Run("GetBoth", func(t *testing.T) {
		c := open(t, ks)
		require.Equal(t, kv{"a", "2"}, get(t, c, mdbcursor.GetBoth, "a", "2"))
		requireNotFound(t, c, mdbcursor.GetBoth, []byte("a"), []byte("3"))
		requireNotFound(t, c, mdbcursor.GetBoth, []byte("z"), []byte("1"))
	})

	t.Run("GetBothRange", func(t *testing.T) {
		c := open(t, ks)
		require.Equal(t, kv{"a", "2"}, get(t, c, mdbcursor.GetBothRange, "a", "2"))
		require.Equal(t, kv{"a", "1"}, get(t, c, mdbcursor.GetBothRange, "a", "0"))
		requireNotFound(t, c, mdbcursor.GetBothRange, []byte("a"), []byte("9"))
		requireNotFound(t, c, mdbcursor.GetBothRange, []byte("d"), []byte("0"))
	})

	t.Run("Multiple", func(t *testing.T) {
		c := open(t, ks)
		require.NoError(t, c.SetBatchSize(2))
		get(t, c, mdbcursor.GetBoth, "c", "4")

		var batches [][]string
		res, err := c.Apply(mdbcursor.GetMultiple, nil, nil)
		for err == nil {
			var b []string
			for _, v := range res.Batch {
				b = append(b, string(v))
			}
			batches = append(batches, b)
			require.Equal(t, "c", string(res.Key))
			require.Equal(t, b[len(b)-1], string(res.Value))
			res, err = c.Apply(mdbcursor.NextMultiple, nil, nil)
		}
		require.True(t, mdbcursor.IsNotFound(err))
		require.Equal(t, [][]string{{"4", "5"}, {"6", "7"}}, batches)
	})

	t.Run("Unpositioned", func(t *testing.T) {
		c := open(t, ks)
		for _, op := range []mdbcursor.Op{
			mdbcursor.GetCurrent, mdbcursor.Next, mdbcursor.Prev,
			mdbcursor.NextDup, mdbcursor.PrevDup, mdbcursor.FirstDup, mdbcursor.LastDup,
			mdbcursor.NextNoDup, mdbcursor.PrevNoDup,
			mdbcursor.GetMultiple, mdbcursor.NextMultiple,
		} {
			requireInvalid(t, c, op, nil, nil)
		}
	})

	t.Run("MissingArguments", func(t *testing.T) {
		c := open(t, ks)
		get(t, c, mdbcursor.First, "", "")
		requireInvalid(t, c, mdbcursor.Set, nil, nil)
		requireInvalid(t, c, mdbcursor.SetKey, nil, nil)
		requireInvalid(t, c, mdbcursor.SetRange, nil, nil)
		requireInvalid(t, c, mdbcursor.GetBoth, []byte("a"), nil)
		requireInvalid(t, c, mdbcursor.GetBothRange, nil, []byte("1"))
		require.Equal(t, kv{"a", "1"}, get(t, c, mdbcursor.GetCurrent, "", ""))
	})
}

func runSimple(t *testing.T, factory Factory) {
	ks := factory(t, mdbcursor.DBDefaults, SimpleFixture)
	want := flatten(SimpleFixture)

	t.Run("Walks", func(t *testing.T) {
		c := open(t, ks)
		require.Equal(t, want, walk(t, c, mdbcursor.First, mdbcursor.Next))
		require.Equal(t, want, walk(t, c, mdbcursor.First, mdbcursor.NextNoDup))
		rev := slices.Clone(want)
		slices.Reverse(rev)
		require.Equal(t, rev, walk(t, c, mdbcursor.Last, mdbcursor.Prev))
		require.Equal(t, rev, walk(t, c, mdbcursor.Last, mdbcursor.PrevNoDup))
	})

	t.Run("Seeks", func(t *testing.T) {
		c := open(t, ks)
		require.Equal(t, kv{"d", "4"}, get(t, c, mdbcursor.SetRange, "c", ""))
		require.Equal(t, kv{"d", "4"}, get(t, c, mdbcursor.SetRange, "d", ""))
		require.Equal(t, kv{"b", "2"}, get(t, c, mdbcursor.SetKey, "b", ""))
		require.Equal(t, kv{"f", "6"}, get(t, c, mdbcursor.GetBoth, "f", "6"))
		requireNotFound(t, c, mdbcursor.GetBoth, []byte("f"), []byte("7"))
		require.Equal(t, kv{"f", "6"}, get(t, c, mdbcursor.GetBothRange, "f", "5"))
		requireNotFound(t, c, mdbcursor.SetRange, []byte("g"), nil)
	})

	t.Run("DupOpsRejected", func(t *testing.T) {
		c := open(t, ks)
		get(t, c, mdbcursor.Set, "b", "")
		for _, op := range []mdbcursor.Op{
			mdbcursor.FirstDup, mdbcursor.LastDup, mdbcursor.NextDup, mdbcursor.PrevDup,
			mdbcursor.GetMultiple, mdbcursor.NextMultiple,
		} {
			requireInvalid(t, c, op, nil, nil)
			require.Equal(t, kv{"b", "2"}, get(t, c, mdbcursor.GetCurrent, "", ""), fmt.Sprint(op))
		}
	})
}
