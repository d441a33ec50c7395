package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/mdbcursor"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json: true
http-server:
  port: 9090
  read_header_timeout: 2s
cursor:
  batch_size: 16
spaces:
  - name: events
    dupsort: true
    data:
      - key: a
        values: ["2", "1"]
      - key: c
        values: ["3"]
  - name: frozen
    snapshot: /var/lib/mdbcursor/frozen.snap
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.True(t, cfg.Logger.JSON)
	lvl, err := cfg.Logger.SlogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)
	require.Equal(t, mdbcursor.LogLvlDebug, cfg.Logger.CursorLogLevel())

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 2*time.Second, cfg.Server.ReadHeaderTimeout)
	require.Equal(t, 16, cfg.Cursor.BatchSize)

	require.Len(t, cfg.Spaces, 2)
	require.Equal(t, mdbcursor.DupSort, cfg.Spaces[0].Flags())
	require.Equal(t, []string{"2", "1"}, cfg.Spaces[0].Data[0].Values)
	require.Equal(t, mdbcursor.DBDefaults, cfg.Spaces[1].Flags())
	require.Equal(t, "/var/lib/mdbcursor/frozen.snap", cfg.Spaces[1].Snapshot)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "http-server:\n  port: 7000\n"))
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.Server.Port)
	require.Equal(t, mdbcursor.DefaultBatchSize, cfg.Cursor.BatchSize)
	require.Equal(t, "INFO", cfg.Logger.Level)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"level":      func(c *Config) { c.Logger.Level = "loud" },
		"port":       func(c *Config) { c.Server.Port = 70000 },
		"batch zero": func(c *Config) { c.Cursor.BatchSize = 0 },
		"batch max":  func(c *Config) { c.Cursor.BatchSize = mdbcursor.MaxBatchSize + 1 },
		"no name":    func(c *Config) { c.Spaces = []SpaceConfig{{}} },
		"duplicate": func(c *Config) {
			c.Spaces = []SpaceConfig{{Name: "a"}, {Name: "a"}}
		},
		"exclusive": func(c *Config) {
			c.Spaces = []SpaceConfig{{Name: "a", Snapshot: "x", Data: []EntryConfig{{Key: "k", Values: []string{"v"}}}}}
		},
		"empty group": func(c *Config) {
			c.Spaces = []SpaceConfig{{Name: "a", Data: []EntryConfig{{Key: "k"}}}}
		},
		"simple dups": func(c *Config) {
			c.Spaces = []SpaceConfig{{Name: "a", Data: []EntryConfig{{Key: "k", Values: []string{"1", "2"}}}}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "cursor:\n  batch_size: -3\n"))
	require.ErrorContains(t, err, "batch_size")
}

func TestCursorLogLevel(t *testing.T) {
	for level, want := range map[string]mdbcursor.LogLvl{
		"DEBUG": mdbcursor.LogLvlDebug,
		"info":  mdbcursor.LogLvlNotice,
		"WARN":  mdbcursor.LogLvlWarn,
		"error": mdbcursor.LogLvlError,
		"bogus": mdbcursor.LogLvlWarn,
	} {
		require.Equal(t, want, LoggerConfig{Level: level}.CursorLogLevel(), level)
	}
}
