// Package config holds the YAML configuration of the mdbcursor server.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/Giulio2002/mdbcursor"
)

// Config is the root of the configuration file.
type Config struct {
	Logger LoggerConfig  `yaml:"logger"`
	Server ServerConfig  `yaml:"http-server"`
	Cursor CursorConfig  `yaml:"cursor"`
	Spaces []SpaceConfig `yaml:"spaces"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// CursorConfig sets defaults for cursors opened through the server.
type CursorConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// SpaceConfig describes one named key space. It is either loaded from a
// snapshot file or built in memory from Data.
type SpaceConfig struct {
	Name     string        `yaml:"name"`
	DupSort  bool          `yaml:"dupsort"`
	Snapshot string        `yaml:"snapshot"`
	Data     []EntryConfig `yaml:"data"`
}

type EntryConfig struct {
	Key    string   `yaml:"key"`
	Values []string `yaml:"values"`
}

// Flags returns the mdbcursor flags for the space.
func (s SpaceConfig) Flags() uint {
	if s.DupSort {
		return mdbcursor.DupSort
	}
	return mdbcursor.DBDefaults
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
		},
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: time.Second,
		},
		Cursor: CursorConfig{
			BatchSize: mdbcursor.DefaultBatchSize,
		},
	}
}

// Load reads the YAML file at path over Default. A missing file yields
// Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and cross-field rules.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Logger.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("http-server.port %d out of range", c.Server.Port))
	}
	if c.Cursor.BatchSize < 1 || c.Cursor.BatchSize > mdbcursor.MaxBatchSize {
		errs = append(errs, fmt.Errorf("cursor.batch_size %d not in [1, %d]", c.Cursor.BatchSize, mdbcursor.MaxBatchSize))
	}

	seen := make(map[string]bool, len(c.Spaces))
	for i, s := range c.Spaces {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("spaces[%d]: missing name", i))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("spaces[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true

		if s.Snapshot != "" && len(s.Data) > 0 {
			errs = append(errs, fmt.Errorf("space %q: snapshot and data are exclusive", s.Name))
		}
		for _, e := range s.Data {
			if len(e.Values) == 0 {
				errs = append(errs, fmt.Errorf("space %q: key %q has no values", s.Name, e.Key))
			}
			if !s.DupSort && len(e.Values) > 1 {
				errs = append(errs, fmt.Errorf("space %q: key %q has %d values but the space is not dupsort", s.Name, e.Key, len(e.Values)))
			}
		}
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level (DEBUG, INFO, WARN, ERROR in any case).
func (l LoggerConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("logger.level: %w", err)
	}
	return lvl, nil
}

// CursorLogLevel maps the slog level onto the cursor trace levels.
func (l LoggerConfig) CursorLogLevel() mdbcursor.LogLvl {
	lvl, err := l.SlogLevel()
	if err != nil {
		return mdbcursor.LogLvlWarn
	}
	switch {
	case lvl <= slog.LevelDebug:
		return mdbcursor.LogLvlDebug
	case lvl <= slog.LevelInfo:
		return mdbcursor.LogLvlNotice
	case lvl <= slog.LevelWarn:
		return mdbcursor.LogLvlWarn
	default:
		return mdbcursor.LogLvlError
	}
}
