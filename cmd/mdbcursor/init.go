package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Giulio2002/mdbcursor"
	"github.com/Giulio2002/mdbcursor/internal/config"
	"github.com/Giulio2002/mdbcursor/snapfile"
)

// initLogger sets the default slog.Logger (JSON or text) and routes cursor
// traces into it.
func initLogger(cfg *config.Config) {
	level, err := cfg.Logger.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var handler slog.Handler
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	mdbcursor.SetLogger(func(msg string, args ...any) {
		logger.Debug(msg, args...)
	}, cfg.Logger.CursorLogLevel())
	slog.Info("logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
}

// space is a configured key space and how to release it.
type space struct {
	ks    mdbcursor.KeySpace
	close func() error
}

// buildSpaces opens snapshot spaces and fills in-memory ones from config.
func buildSpaces(cfg *config.Config) (map[string]space, error) {
	spaces := make(map[string]space, len(cfg.Spaces))
	closeAll := func() {
		for _, s := range spaces {
			s.close()
		}
	}

	for _, sc := range cfg.Spaces {
		if sc.Snapshot != "" {
			snap, err := snapfile.Open(sc.Snapshot)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("space %q: %w", sc.Name, err)
			}
			spaces[sc.Name] = space{ks: snap, close: snap.Close}
			slog.Info("space loaded", "space", sc.Name, "snapshot", sc.Snapshot, "keys", snap.Len())
			continue
		}

		ms := mdbcursor.NewMemSpace(sc.Flags())
		for _, e := range sc.Data {
			values := make([][]byte, len(e.Values))
			for i, v := range e.Values {
				values[i] = []byte(v)
			}
			if err := ms.PutGroup([]byte(e.Key), values...); err != nil {
				closeAll()
				return nil, fmt.Errorf("space %q key %q: %w", sc.Name, e.Key, err)
			}
		}
		spaces[sc.Name] = space{ks: ms, close: func() error { return nil }}
		slog.Info("space loaded", "space", sc.Name, "dupsort", sc.DupSort, "keys", ms.Len())
	}
	return spaces, nil
}

// writeSnapshots stores every space as dir/<name>.snap.
func writeSnapshots(dir string, spaces map[string]space) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for name, s := range spaces {
		path := filepath.Join(dir, name+".snap")
		if err := snapfile.Write(path, s.ks); err != nil {
			return fmt.Errorf("space %q: %w", name, err)
		}
		slog.Info("snapshot written", "space", name, "path", path)
	}
	return nil
}
