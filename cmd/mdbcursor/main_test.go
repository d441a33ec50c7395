package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/mdbcursor"
	"github.com/Giulio2002/mdbcursor/internal/config"
)

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Spaces = []config.SpaceConfig{{
		Name:    "events",
		DupSort: true,
		Data: []config.EntryConfig{
			{Key: "a", Values: []string{"2", "1"}},
			{Key: "c", Values: []string{"3"}},
		},
	}}
	require.NoError(t, cfg.Validate())

	spaces, err := buildSpaces(&cfg)
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, writeSnapshots(dir, spaces))

	// serve the written snapshot in place of the in-memory data
	cfg.Spaces = []config.SpaceConfig{{Name: "events", Snapshot: filepath.Join(dir, "events.snap")}}
	loaded, err := buildSpaces(&cfg)
	require.NoError(t, err)
	defer loaded["events"].close()

	ks := loaded["events"].ks
	require.Equal(t, mdbcursor.DupSort, ks.Flags())

	c, err := mdbcursor.OpenCursor(ks)
	require.NoError(t, err)
	defer c.Close()

	k, v, err := c.Get([]byte("b"), nil, mdbcursor.SetRange)
	require.NoError(t, err)
	require.Equal(t, "c", string(k))
	require.Equal(t, "3", string(v))

	_, v, err = c.Get([]byte("a"), []byte("15"), mdbcursor.GetBothRange)
	require.NoError(t, err)
	require.Equal(t, "2", string(v))
}

func TestBuildSpacesMissingSnapshot(t *testing.T) {
	cfg := config.Default()
	cfg.Spaces = []config.SpaceConfig{
		{Name: "mem", Data: []config.EntryConfig{{Key: "k", Values: []string{"v"}}}},
		{Name: "gone", Snapshot: filepath.Join(t.TempDir(), "gone.snap")},
	}
	_, err := buildSpaces(&cfg)
	require.ErrorContains(t, err, `space "gone"`)
}
