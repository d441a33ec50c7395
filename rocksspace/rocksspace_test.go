//go:build rocksdb

package rocksspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/mdbcursor"
	"github.com/Giulio2002/mdbcursor/internal/spacetest"
)

func openSpace(t *testing.T, flags uint) *Space {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "rocks.db"), flags)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newSpace(t *testing.T, flags uint, groups []spacetest.Group) mdbcursor.KeySpace {
	s := openSpace(t, flags)
	for _, g := range groups {
		for _, v := range g.Values {
			require.NoError(t, s.Put([]byte(g.Key), []byte(v)))
		}
	}
	return s
}

func TestConformance(t *testing.T) {
	spacetest.Run(t, newSpace)
}

// TestKeysWithZeroBytes checks that escaped keys keep their order and
// groups stay apart.
func TestKeysWithZeroBytes(t *testing.T) {
	s := openSpace(t, mdbcursor.DupSort)
	for _, kv := range [][2]string{{"a", "1"}, {"a\x00", "2"}, {"a\x00\x00", "3"}, {"a", "0"}} {
		require.NoError(t, s.Put([]byte(kv[0]), []byte(kv[1])))
	}

	c, err := mdbcursor.OpenCursor(s)
	require.NoError(t, err)
	defer c.Close()

	var got [][2]string
	for k, v, err := c.Get(nil, nil, mdbcursor.First); err == nil; k, v, err = c.Get(nil, nil, mdbcursor.Next) {
		got = append(got, [2]string{string(k), string(v)})
	}
	require.Equal(t, [][2]string{{"a", "0"}, {"a", "1"}, {"a\x00", "2"}, {"a\x00\x00", "3"}}, got)

	_, _, err = c.Get([]byte("a\x00"), nil, mdbcursor.Set)
	require.NoError(t, err)
	n, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)
}

func TestWritesRefreshIterator(t *testing.T) {
	s := openSpace(t, mdbcursor.DupSort)
	require.NoError(t, s.Put([]byte("k"), []byte("1")))

	c, err := mdbcursor.OpenCursor(s)
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Get(nil, nil, mdbcursor.First)
	require.NoError(t, err)

	require.NoError(t, s.Put([]byte("k"), []byte("2")))
	_, v, err := c.Get(nil, nil, mdbcursor.NextDup)
	require.NoError(t, err)
	require.Equal(t, "2", string(v))

	require.NoError(t, s.Del([]byte("k"), nil))
	_, _, err = c.Get(nil, nil, mdbcursor.GetCurrent)
	require.True(t, mdbcursor.IsNotFound(err), "got %v", err)
	require.True(t, mdbcursor.IsNotFound(s.Del([]byte("k"), nil)))
}
