// Command mdbcursor serves the key spaces named in its config file over
// HTTP, or writes them to snapshot files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Giulio2002/mdbcursor"
	"github.com/Giulio2002/mdbcursor/internal/config"
	"github.com/Giulio2002/mdbcursor/internal/httpapi"
)

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "path to the YAML config file")
		snapshotDir = flag.String("snapshot", "", "write every space to DIR/<name>.snap and exit")
		version     = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println(mdbcursor.Version())
		return
	}
	if err := run(*configPath, *snapshotDir); err != nil {
		slog.Error("mdbcursor failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, snapshotDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	initLogger(&cfg)

	spaces, err := buildSpaces(&cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range spaces {
			s.close()
		}
	}()

	if snapshotDir != "" {
		return writeSnapshots(snapshotDir, spaces)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	served := make(map[string]mdbcursor.KeySpace, len(spaces))
	for name, s := range spaces {
		served[name] = s.ks
	}
	srv := httpapi.NewServer(served, httpapi.Options{
		Port:              cfg.Server.Port,
		BatchSize:         cfg.Cursor.BatchSize,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	})
	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return srv.Stop()
}
